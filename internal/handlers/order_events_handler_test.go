package handlers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Shopify/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merchkit/storefront-api/internal/models"
	"github.com/merchkit/storefront-api/pkg/logger"
)

type memMetricStore struct {
	points []*models.MetricPoint
}

func (m *memMetricStore) Append(_ context.Context, point *models.MetricPoint) error {
	m.points = append(m.points, point)
	return nil
}

func (m *memMetricStore) Range(_ context.Context, name string, from, to time.Time) ([]*models.MetricPoint, error) {
	var points []*models.MetricPoint
	for _, point := range m.points {
		if point.Name == name && !point.Date.Before(from) && !point.Date.After(to) {
			points = append(points, point)
		}
	}
	return points, nil
}

func eventMessage(t *testing.T, eventType string, data interface{}) *sarama.ConsumerMessage {
	t.Helper()
	payload, err := json.Marshal(models.Event{
		EventType:   eventType,
		EventID:     "evt-test",
		AggregateID: "ord-test",
		OccurredAt:  time.Date(2026, 5, 4, 15, 30, 0, 0, time.UTC),
		Data:        data,
	})
	require.NoError(t, err)
	return &sarama.ConsumerMessage{Topic: "storefront.events", Value: payload}
}

func TestDeliveredOrderAppendsDailyRevenue(t *testing.T) {
	metrics := &memMetricStore{}
	h := NewOrderEventsHandler(metrics, logger.NewNopLogger())

	msg := eventMessage(t, models.EventOrderStatusChanged, map[string]interface{}{
		"order_id":     "ord-test",
		"old_status":   "shipped",
		"new_status":   "delivered",
		"total_amount": 129.99,
	})

	require.NoError(t, h.HandleMessage(context.Background(), msg))
	require.Len(t, metrics.points, 1)
	assert.Equal(t, DailyRevenueMetric, metrics.points[0].Name)
	assert.Equal(t, 129.99, metrics.points[0].Value)
	// dated to the event day, not the consume time
	assert.Equal(t, time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC), metrics.points[0].Date)
}

func TestNonDeliveredTransitionIgnored(t *testing.T) {
	metrics := &memMetricStore{}
	h := NewOrderEventsHandler(metrics, logger.NewNopLogger())

	msg := eventMessage(t, models.EventOrderStatusChanged, map[string]interface{}{
		"order_id":   "ord-test",
		"new_status": "shipped",
	})

	require.NoError(t, h.HandleMessage(context.Background(), msg))
	assert.Empty(t, metrics.points)
}

func TestUnknownEventTypeIgnored(t *testing.T) {
	metrics := &memMetricStore{}
	h := NewOrderEventsHandler(metrics, logger.NewNopLogger())

	msg := eventMessage(t, models.EventCustomerCreated, map[string]interface{}{"id": "cus-1"})
	require.NoError(t, h.HandleMessage(context.Background(), msg))
	assert.Empty(t, metrics.points)
}

func TestMalformedPayloadErrors(t *testing.T) {
	metrics := &memMetricStore{}
	h := NewOrderEventsHandler(metrics, logger.NewNopLogger())

	err := h.HandleMessage(context.Background(), &sarama.ConsumerMessage{Value: []byte("{broken")})
	assert.Error(t, err)
}
