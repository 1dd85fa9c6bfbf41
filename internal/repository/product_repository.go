package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/merchkit/storefront-api/internal/database"
	"github.com/merchkit/storefront-api/internal/models"
	"github.com/merchkit/storefront-api/internal/store"
	"github.com/merchkit/storefront-api/pkg/logger"
)

// lowStockThreshold is the stock quantity below which a product counts as low stock
const lowStockThreshold = 5

// ProductRepository implements store.ProductStore on Postgres
type ProductRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewProductRepository creates a new ProductRepository
func NewProductRepository(db *database.Database, logger logger.Logger) *ProductRepository {
	return &ProductRepository{
		db:     db,
		logger: logger,
	}
}

const productColumns = `id, name, description, price, sale_price, category, color, size, stock_quantity, is_featured, created_at, updated_at`

// Create inserts a new product
func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.DB.ExecContext(ctx, query,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.SalePrice,
		product.Category,
		product.Color,
		product.Size,
		product.StockQuantity,
		product.IsFeatured,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create product", "error", err, "productID", product.ID)
		return fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return nil
}

// GetByID retrieves a product by its ID
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	var product models.Product
	if err := r.db.DB.GetContext(ctx, &product, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		r.logger.Error("Failed to get product by ID", "error", err, "productID", id)
		return nil, fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return &product, nil
}

// List retrieves products matching the filter plus the total match count
func (r *ProductRepository) List(ctx context.Context, filter store.ProductFilter) ([]*models.Product, int, error) {
	var conds []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		conds = append(conds, fmt.Sprintf("(name ILIKE %s OR description ILIKE %s)", p, p))
	}
	if filter.Category != "" {
		conds = append(conds, "category = "+arg(filter.Category))
	}
	if filter.Featured != nil {
		conds = append(conds, "is_featured = "+arg(*filter.Featured))
	}
	if filter.MinPrice != nil {
		conds = append(conds, "price >= "+arg(*filter.MinPrice))
	}
	if filter.MaxPrice != nil {
		conds = append(conds, "price <= "+arg(*filter.MaxPrice))
	}
	if filter.MinStock != nil {
		conds = append(conds, "stock_quantity >= "+arg(*filter.MinStock))
	}
	if filter.MaxStock != nil {
		conds = append(conds, "stock_quantity <= "+arg(*filter.MaxStock))
	}
	if filter.LowStock {
		conds = append(conds, fmt.Sprintf("stock_quantity < %d", lowStockThreshold))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.DB.GetContext(ctx, &total, "SELECT COUNT(*) FROM products"+where, args...); err != nil {
		r.logger.Error("Failed to count products", "error", err)
		return nil, 0, fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	query := fmt.Sprintf("SELECT %s FROM products%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		productColumns, where, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	var products []*models.Product
	if err := r.db.DB.SelectContext(ctx, &products, query, args...); err != nil {
		r.logger.Error("Failed to list products", "error", err)
		return nil, 0, fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return products, total, nil
}

// Update persists the full product record, optionally writing a stock-out
// outbox message in the same transaction
func (r *ProductRepository) Update(ctx context.Context, product *models.Product, msg *models.OutboxMessage) error {
	tx, err := r.db.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}
	defer tx.Rollback()

	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, sale_price = $4, category = $5,
		    color = $6, size = $7, stock_quantity = $8, is_featured = $9, updated_at = $10
		WHERE id = $11
	`
	result, err := tx.ExecContext(ctx, query,
		product.Name,
		product.Description,
		product.Price,
		product.SalePrice,
		product.Category,
		product.Color,
		product.Size,
		product.StockQuantity,
		product.IsFeatured,
		models.GetCurrentTime(),
		product.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update product", "error", err, "productID", product.ID)
		return fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}
	if err := checkAffected(result); err != nil {
		return err
	}

	if msg != nil {
		if err := insertOutboxMessage(ctx, tx, msg); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return nil
}

// Delete deletes a product by its ID
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.DB.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete product", "error", err, "productID", id)
		return fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return checkAffected(result)
}

// SalesRollup sums quantity sold and revenue for the product over the range
func (r *ProductRepository) SalesRollup(ctx context.Context, productID string, from, to *time.Time) (store.ProductSales, error) {
	var conds []string
	args := []interface{}{productID}
	conds = append(conds, "oi.product_id = $1")

	if from != nil {
		args = append(args, *from)
		conds = append(conds, fmt.Sprintf("o.created_at >= $%d", len(args)))
	}
	if to != nil {
		args = append(args, *to)
		conds = append(conds, fmt.Sprintf("o.created_at <= $%d", len(args)))
	}

	query := `
		SELECT COALESCE(SUM(oi.quantity), 0) AS quantity_sold,
		       COALESCE(SUM(oi.quantity * oi.unit_price), 0) AS revenue
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE ` + strings.Join(conds, " AND ") + ` AND o.status != 'cancelled'
	`

	var sales store.ProductSales
	row := r.db.DB.QueryRowxContext(ctx, query, args...)
	if err := row.Scan(&sales.QuantitySold, &sales.Revenue); err != nil {
		r.logger.Error("Failed to aggregate product sales", "error", err, "productID", productID)
		return store.ProductSales{}, fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return sales, nil
}
