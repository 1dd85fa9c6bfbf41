package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/merchkit/storefront-api/internal/models"
	"github.com/merchkit/storefront-api/internal/store"
	"github.com/merchkit/storefront-api/pkg/apperrors"
	"github.com/merchkit/storefront-api/pkg/logger"
)

// ProductService handles catalog operations
type ProductService struct {
	store  *store.Store
	logger logger.Logger
}

// NewProductService creates a new ProductService
func NewProductService(st *store.Store, logger logger.Logger) *ProductService {
	return &ProductService{store: st, logger: logger}
}

// CreateProductInput carries the fields of a new product
type CreateProductInput struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Price         float64  `json:"price"`
	SalePrice     *float64 `json:"sale_price"`
	Category      string   `json:"category"`
	Color         string   `json:"color"`
	Size          string   `json:"size"`
	StockQuantity int      `json:"stock_quantity"`
	IsFeatured    bool     `json:"is_featured"`
}

// UpdateProductInput carries a partial product update. StockQuantity sets the
// absolute stock level; StockAdjustment applies a relative delta. The two are
// mutually exclusive.
type UpdateProductInput struct {
	Name            *string  `json:"name"`
	Description     *string  `json:"description"`
	Price           *float64 `json:"price"`
	SalePrice       *float64 `json:"sale_price"`
	ClearSalePrice  bool     `json:"clear_sale_price"`
	Category        *string  `json:"category"`
	Color           *string  `json:"color"`
	Size            *string  `json:"size"`
	StockQuantity   *int     `json:"stock_quantity"`
	StockAdjustment *int     `json:"stock_adjustment"`
	IsFeatured      *bool    `json:"is_featured"`
}

// ProductWithSales is the admin read shape for a single product
type ProductWithSales struct {
	*models.Product
	QuantitySold int     `json:"quantity_sold"`
	Revenue      float64 `json:"revenue"`
}

// CreateProduct validates and writes a new catalog product
func (s *ProductService) CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	switch {
	case input.Name == "":
		return nil, apperrors.NewValidation("VALIDATION_ERROR", "product name is required")
	case input.Price < 0:
		return nil, apperrors.NewValidation("VALIDATION_ERROR", "price must not be negative")
	case input.Category == "":
		return nil, apperrors.NewValidation("VALIDATION_ERROR", "category is required")
	case input.Color == "":
		return nil, apperrors.NewValidation("VALIDATION_ERROR", "color is required")
	case input.Size == "":
		return nil, apperrors.NewValidation("VALIDATION_ERROR", "size is required")
	case input.StockQuantity < 0:
		return nil, apperrors.NewValidation("VALIDATION_ERROR", "stock quantity must not be negative")
	}

	if input.SalePrice != nil && *input.SalePrice >= input.Price {
		return nil, apperrors.NewValidation("VALIDATION_ERROR", "sale price must be below the list price")
	}

	exists, err := s.store.Categories.ExistsByName(ctx, input.Category)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.NewNotFound("CATEGORY_NOT_FOUND", fmt.Sprintf("category %q not found", input.Category))
	}

	product := models.NewProduct(
		input.Name, input.Description, input.Price,
		input.Category, input.Color, input.Size,
		input.StockQuantity, input.IsFeatured,
	)
	product.SalePrice = input.SalePrice

	if err := s.store.Products.Create(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info("Product created", "product_id", product.ID, "category", product.Category)
	return product, nil
}

// GetProduct retrieves a product with its all-time sales rollup
func (s *ProductService) GetProduct(ctx context.Context, id string) (*ProductWithSales, error) {
	product, err := s.store.Products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NewNotFound("PRODUCT_NOT_FOUND", "product not found")
		}
		return nil, err
	}

	sales, err := s.store.Products.SalesRollup(ctx, id, nil, nil)
	if err != nil {
		return nil, err
	}

	return &ProductWithSales{
		Product:      product,
		QuantitySold: sales.QuantitySold,
		Revenue:      sales.Revenue,
	}, nil
}

// ListProducts retrieves products matching the filter plus the total count
func (s *ProductService) ListProducts(ctx context.Context, filter store.ProductFilter) ([]*models.Product, int, error) {
	return s.store.Products.List(ctx, filter)
}

// UpdateProduct applies a partial update. A stock adjustment that drains the
// product to zero emits a stock depleted event in the same unit of work.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, input UpdateProductInput) (*models.Product, error) {
	if input.StockQuantity != nil && input.StockAdjustment != nil {
		return nil, apperrors.NewValidation("VALIDATION_ERROR",
			"stockQuantity and stockAdjustment are mutually exclusive")
	}

	product, err := s.store.Products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NewNotFound("PRODUCT_NOT_FOUND", "product not found")
		}
		return nil, err
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, apperrors.NewValidation("VALIDATION_ERROR", "product name must not be empty")
		}
		product.Name = *input.Name
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Price != nil {
		if *input.Price < 0 {
			return nil, apperrors.NewValidation("VALIDATION_ERROR", "price must not be negative")
		}
		product.Price = *input.Price
	}
	if input.ClearSalePrice {
		product.SalePrice = nil
	} else if input.SalePrice != nil {
		product.SalePrice = input.SalePrice
	}
	if product.SalePrice != nil && *product.SalePrice >= product.Price {
		return nil, apperrors.NewValidation("VALIDATION_ERROR", "sale price must be below the list price")
	}
	if input.Category != nil {
		exists, err := s.store.Categories.ExistsByName(ctx, *input.Category)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, apperrors.NewNotFound("CATEGORY_NOT_FOUND", fmt.Sprintf("category %q not found", *input.Category))
		}
		product.Category = *input.Category
	}
	if input.Color != nil {
		product.Color = *input.Color
	}
	if input.Size != nil {
		product.Size = *input.Size
	}
	if input.IsFeatured != nil {
		product.IsFeatured = *input.IsFeatured
	}

	stockedOut := false
	if input.StockQuantity != nil {
		if *input.StockQuantity < 0 {
			return nil, apperrors.NewValidation("VALIDATION_ERROR", "stock quantity must not be negative")
		}
		product.StockQuantity = *input.StockQuantity
	} else if input.StockAdjustment != nil {
		adjusted := product.StockQuantity + *input.StockAdjustment
		if adjusted <= 0 && product.StockQuantity > 0 {
			stockedOut = true
		}
		if adjusted < 0 {
			adjusted = 0
		}
		product.StockQuantity = adjusted
	}

	product.UpdatedAt = models.GetCurrentTime()

	var msg *models.OutboxMessage
	if stockedOut {
		msg, err = models.NewProductStockDepletedEvent(product)
		if err != nil {
			s.logger.Error("Failed to build stock depleted event", "error", err)
			return nil, err
		}
	}

	if err := s.store.Products.Update(ctx, product, msg); err != nil {
		return nil, err
	}

	if stockedOut {
		s.logger.Warn("Product stock depleted", "product_id", product.ID, "name", product.Name)
	}
	return product, nil
}

// DeleteProduct removes a product unless any order references it
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	if _, err := s.store.Products.GetByID(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.NewNotFound("PRODUCT_NOT_FOUND", "product not found")
		}
		return err
	}

	referenced, err := s.store.Orders.HasItemsForProduct(ctx, id)
	if err != nil {
		return err
	}
	if referenced {
		return apperrors.NewGuard("PRODUCT_HAS_ORDERS", "product is referenced by existing orders")
	}

	if err := s.store.Products.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Product deleted", "product_id", id)
	return nil
}

// CreateCategory adds a category with a unique name
func (s *ProductService) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	if name == "" {
		return nil, apperrors.NewValidation("VALIDATION_ERROR", "category name is required")
	}

	category := models.NewCategory(name)
	if err := s.store.Categories.Create(ctx, category); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperrors.NewGuard("DUPLICATE_CATEGORY", "category already exists")
		}
		return nil, err
	}
	return category, nil
}

// ListCategories returns every category
func (s *ProductService) ListCategories(ctx context.Context) ([]*models.Category, error) {
	return s.store.Categories.List(ctx)
}
