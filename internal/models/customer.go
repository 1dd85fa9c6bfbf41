package models

import (
	"strings"
	"time"
)

// Customer represents a storefront customer. The analytics fields (total
// spent, order count, segment) are derived from order history on read, never
// stored.
type Customer struct {
	ID        string    `db:"id" json:"id" bson:"_id"`
	Email     string    `db:"email" json:"email" bson:"email"`
	Name      string    `db:"name" json:"name" bson:"name"`
	Phone     string    `db:"phone" json:"phone,omitempty" bson:"phone,omitempty"`
	Address   string    `db:"address" json:"address,omitempty" bson:"address,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at" bson:"updated_at"`
}

// CustomerStats carries the derived order-history rollup for one customer
type CustomerStats struct {
	TotalSpent    float64    `json:"total_spent"`
	OrderCount    int        `json:"order_count"`
	AvgOrderValue float64    `json:"avg_order_value"`
	FirstOrderAt  *time.Time `json:"first_order_at,omitempty"`
	LastOrderAt   *time.Time `json:"last_order_at,omitempty"`
	Segment       string     `json:"segment"`
}

// CustomerWithStats is the read shape for admin customer endpoints
type CustomerWithStats struct {
	Customer
	CustomerStats
}

// NewCustomer creates a new customer. Emails are stored lower-cased.
func NewCustomer(email, name, phone, address string) *Customer {
	now := GetCurrentTime()

	return &Customer{
		ID:        GenerateID("cus"),
		Email:     NormalizeEmail(email),
		Name:      name,
		Phone:     phone,
		Address:   address,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NormalizeEmail lower-cases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
