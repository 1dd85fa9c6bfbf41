package models

import (
	"encoding/json"
	"time"
)

// Event type tokens published through the outbox
const (
	EventOrderCreated         = "order_created"
	EventOrderStatusChanged   = "order_status_changed"
	EventProductStockDepleted = "product_stock_depleted"
	EventCustomerCreated      = "customer_created"
)

// Event is the wire envelope for outbox payloads
type Event struct {
	EventType   string      `json:"event_type"`
	EventID     string      `json:"event_id"`
	AggregateID string      `json:"aggregate_id"`
	OccurredAt  time.Time   `json:"occurred_at"`
	Data        interface{} `json:"data"`
}

func newOutboxMessage(aggregateType, aggregateID, eventType string, data interface{}) (*OutboxMessage, error) {
	event := Event{
		EventType:   eventType,
		EventID:     GenerateID("evt"),
		AggregateID: aggregateID,
		OccurredAt:  GetCurrentTime(),
		Data:        data,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	return &OutboxMessage{
		ID:            GenerateID("obx"),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     GetCurrentTime(),
		Status:        OutboxStatusPending,
	}, nil
}

// NewOrderCreatedEvent builds the outbox message for a created order
func NewOrderCreatedEvent(order *Order) (*OutboxMessage, error) {
	return newOutboxMessage("order", order.ID, EventOrderCreated, order)
}

// NewOrderStatusChangedEvent builds the outbox message for a status transition
func NewOrderStatusChangedEvent(order *Order, oldStatus OrderStatus) (*OutboxMessage, error) {
	return newOutboxMessage("order", order.ID, EventOrderStatusChanged, map[string]interface{}{
		"order_id":       order.ID,
		"customer_email": order.CustomerEmail,
		"old_status":     string(oldStatus),
		"new_status":     string(order.Status),
		"total_amount":   order.TotalAmount,
	})
}

// NewProductStockDepletedEvent builds the outbox message for a stock-out
func NewProductStockDepletedEvent(product *Product) (*OutboxMessage, error) {
	return newOutboxMessage("product", product.ID, EventProductStockDepleted, map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
		"category":   product.Category,
	})
}

// NewCustomerCreatedEvent builds the outbox message for a new customer
func NewCustomerCreatedEvent(customer *Customer) (*OutboxMessage, error) {
	return newOutboxMessage("customer", customer.ID, EventCustomerCreated, customer)
}
