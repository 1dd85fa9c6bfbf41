package models

import (
	"time"
)

// CartItem is one product entry in a customer's cart, keyed by an opaque cart id
type CartItem struct {
	ID        string    `db:"id" json:"id" bson:"_id"`
	CartID    string    `db:"cart_id" json:"cart_id" bson:"cart_id"`
	ProductID string    `db:"product_id" json:"product_id" bson:"product_id"`
	Quantity  int       `db:"quantity" json:"quantity" bson:"quantity"`
	CreatedAt time.Time `db:"created_at" json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at" bson:"updated_at"`
}

// CartLine is a cart item joined with its product for storefront reads
type CartLine struct {
	CartItem
	ProductName string  `json:"product_name"`
	UnitPrice   float64 `json:"unit_price"`
	LineTotal   float64 `json:"line_total"`
}

// NewCartItem creates a new cart item
func NewCartItem(cartID, productID string, quantity int) *CartItem {
	now := GetCurrentTime()

	return &CartItem{
		ID:        GenerateID("crt"),
		CartID:    cartID,
		ProductID: productID,
		Quantity:  quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
