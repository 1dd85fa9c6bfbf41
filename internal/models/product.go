package models

import (
	"time"
)

// Product represents a catalog product
type Product struct {
	ID            string    `db:"id" json:"id" bson:"_id"`
	Name          string    `db:"name" json:"name" bson:"name"`
	Description   string    `db:"description" json:"description,omitempty" bson:"description,omitempty"`
	Price         float64   `db:"price" json:"price" bson:"price"`
	SalePrice     *float64  `db:"sale_price" json:"sale_price,omitempty" bson:"sale_price,omitempty"`
	Category      string    `db:"category" json:"category" bson:"category"`
	Color         string    `db:"color" json:"color" bson:"color"`
	Size          string    `db:"size" json:"size" bson:"size"`
	StockQuantity int       `db:"stock_quantity" json:"stock_quantity" bson:"stock_quantity"`
	IsFeatured    bool      `db:"is_featured" json:"is_featured" bson:"is_featured"`
	CreatedAt     time.Time `db:"created_at" json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at" bson:"updated_at"`
}

// SellingPrice is the price a unit currently sells at: sale price when set,
// list price otherwise.
func (p *Product) SellingPrice() float64 {
	if p.SalePrice != nil {
		return *p.SalePrice
	}
	return p.Price
}

// NewProduct creates a new product
func NewProduct(name, description string, price float64, category, color, size string, stockQuantity int, isFeatured bool) *Product {
	now := GetCurrentTime()

	return &Product{
		ID:            GenerateID("prd"),
		Name:          name,
		Description:   description,
		Price:         price,
		Category:      category,
		Color:         color,
		Size:          size,
		StockQuantity: stockQuantity,
		IsFeatured:    isFeatured,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Category names a product grouping referenced by Product.Category
type Category struct {
	ID        string    `db:"id" json:"id" bson:"_id"`
	Name      string    `db:"name" json:"name" bson:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at" bson:"created_at"`
}

// NewCategory creates a new category
func NewCategory(name string) *Category {
	return &Category{
		ID:        GenerateID("cat"),
		Name:      name,
		CreatedAt: GetCurrentTime(),
	}
}
