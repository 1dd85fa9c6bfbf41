// Package handlers contains the Kafka consumer-side event handlers.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Shopify/sarama"

	"github.com/merchkit/storefront-api/internal/models"
	"github.com/merchkit/storefront-api/internal/store"
	"github.com/merchkit/storefront-api/pkg/logger"
)

// OrderEventsHandler consumes order events and feeds the metric time series.
// A delivered order appends its amount to the daily_revenue series.
type OrderEventsHandler struct {
	metrics store.MetricStore
	logger  logger.Logger
}

// NewOrderEventsHandler creates a new OrderEventsHandler
func NewOrderEventsHandler(metrics store.MetricStore, logger logger.Logger) *OrderEventsHandler {
	return &OrderEventsHandler{metrics: metrics, logger: logger}
}

// DailyRevenueMetric is the series name fed by delivered orders
const DailyRevenueMetric = "daily_revenue"

// HandleMessage handles one consumed event message
func (h *OrderEventsHandler) HandleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var event models.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.Error("Failed to unmarshal event", "error", err, "topic", msg.Topic)
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	h.logger.Debug("Handling event",
		"eventType", event.EventType,
		"eventId", event.EventID,
		"aggregateId", event.AggregateID)

	switch event.EventType {
	case models.EventOrderStatusChanged:
		return h.handleStatusChanged(ctx, event)
	default:
		// other event types are consumed for ordering but carry no
		// metric contribution
		return nil
	}
}

type statusChangedData struct {
	OrderID     string  `json:"order_id"`
	NewStatus   string  `json:"new_status"`
	TotalAmount float64 `json:"total_amount"`
}

func (h *OrderEventsHandler) handleStatusChanged(ctx context.Context, event models.Event) error {
	raw, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to re-encode event data: %w", err)
	}

	var data statusChangedData
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("failed to decode status change data: %w", err)
	}

	if data.NewStatus != string(models.OrderStatusDelivered) {
		return nil
	}

	point := models.NewMetricPoint(DailyRevenueMetric, data.TotalAmount, event.OccurredAt)
	if err := h.metrics.Append(ctx, point); err != nil {
		return fmt.Errorf("failed to append revenue metric: %w", err)
	}

	h.logger.Info("Recorded delivered order revenue",
		"orderId", data.OrderID,
		"amount", data.TotalAmount,
		"date", point.Date)
	return nil
}
