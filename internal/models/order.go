package models

import (
	"time"
)

// OrderStatus represents the lifecycle status of an order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// orderTransitions is the fixed transition table. Delivered and cancelled are
// terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

// ValidOrderStatus reports whether s names a known status
func ValidOrderStatus(s string) bool {
	_, ok := orderTransitions[OrderStatus(s)]
	return ok
}

// CanTransition reports whether an order may move from one status to another
func CanTransition(from, to OrderStatus) bool {
	for _, allowed := range orderTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Order represents a customer order with its line items and timeline
type Order struct {
	ID              string           `db:"id" json:"id" bson:"_id"`
	CustomerName    string           `db:"customer_name" json:"customer_name" bson:"customer_name"`
	CustomerEmail   string           `db:"customer_email" json:"customer_email" bson:"customer_email"`
	CustomerPhone   string           `db:"customer_phone" json:"customer_phone,omitempty" bson:"customer_phone,omitempty"`
	ShippingAddress string           `db:"shipping_address" json:"shipping_address,omitempty" bson:"shipping_address,omitempty"`
	TotalAmount     float64          `db:"total_amount" json:"total_amount" bson:"total_amount"`
	Status          OrderStatus      `db:"status" json:"status" bson:"status"`
	Items           []*OrderItem     `db:"-" json:"items,omitempty" bson:"items,omitempty"`
	Timeline        []*TimelineEntry `db:"-" json:"timeline,omitempty" bson:"timeline,omitempty"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at" bson:"updated_at"`
}

// OrderItem is one line of an order. The unit price is a snapshot taken at
// purchase time, decoupled from the current product price.
type OrderItem struct {
	ID        string  `db:"id" json:"id" bson:"_id"`
	OrderID   string  `db:"order_id" json:"order_id" bson:"order_id"`
	ProductID string  `db:"product_id" json:"product_id" bson:"product_id"`
	Quantity  int     `db:"quantity" json:"quantity" bson:"quantity"`
	UnitPrice float64 `db:"unit_price" json:"unit_price" bson:"unit_price"`
	Size      string  `db:"size" json:"size,omitempty" bson:"size,omitempty"`
	Color     string  `db:"color" json:"color,omitempty" bson:"color,omitempty"`
}

// TimelineEntry is a human-readable audit entry on an order
type TimelineEntry struct {
	ID        string    `db:"id" json:"id" bson:"_id"`
	OrderID   string    `db:"order_id" json:"order_id" bson:"order_id"`
	Message   string    `db:"message" json:"message" bson:"message"`
	CreatedAt time.Time `db:"created_at" json:"created_at" bson:"created_at"`
}

// NewOrder creates a new pending order
func NewOrder(customerName, customerEmail, customerPhone, shippingAddress string, totalAmount float64) *Order {
	now := GetCurrentTime()

	return &Order{
		ID:              GenerateID("ord"),
		CustomerName:    customerName,
		CustomerEmail:   customerEmail,
		CustomerPhone:   customerPhone,
		ShippingAddress: shippingAddress,
		TotalAmount:     totalAmount,
		Status:          OrderStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// NewOrderItem creates a line item for the given order
func NewOrderItem(orderID, productID string, quantity int, unitPrice float64, size, color string) *OrderItem {
	return &OrderItem{
		ID:        GenerateID("itm"),
		OrderID:   orderID,
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Size:      size,
		Color:     color,
	}
}

// NewTimelineEntry creates a timeline entry for the given order
func NewTimelineEntry(orderID, message string) *TimelineEntry {
	return &TimelineEntry{
		ID:        GenerateID("tml"),
		OrderID:   orderID,
		Message:   message,
		CreatedAt: GetCurrentTime(),
	}
}
