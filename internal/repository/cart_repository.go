package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/merchkit/storefront-api/internal/database"
	"github.com/merchkit/storefront-api/internal/models"
	"github.com/merchkit/storefront-api/internal/store"
	"github.com/merchkit/storefront-api/pkg/logger"
)

// CartRepository implements store.CartStore on Postgres
type CartRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewCartRepository creates a new CartRepository
func NewCartRepository(db *database.Database, logger logger.Logger) *CartRepository {
	return &CartRepository{
		db:     db,
		logger: logger,
	}
}

const cartColumns = `id, cart_id, product_id, quantity, created_at, updated_at`

// Add inserts a new cart item
func (r *CartRepository) Add(ctx context.Context, item *models.CartItem) error {
	query := `
		INSERT INTO cart_items (` + cartColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if _, err := r.db.DB.ExecContext(ctx, query,
		item.ID, item.CartID, item.ProductID, item.Quantity, item.CreatedAt, item.UpdatedAt,
	); err != nil {
		r.logger.Error("Failed to add cart item", "error", err, "cartID", item.CartID)
		return fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return nil
}

// Get retrieves a cart item by id
func (r *CartRepository) Get(ctx context.Context, id string) (*models.CartItem, error) {
	query := `SELECT ` + cartColumns + ` FROM cart_items WHERE id = $1`

	var item models.CartItem
	if err := r.db.DB.GetContext(ctx, &item, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return &item, nil
}

// GetByCartAndProduct finds the cart line holding a product, if any
func (r *CartRepository) GetByCartAndProduct(ctx context.Context, cartID, productID string) (*models.CartItem, error) {
	query := `SELECT ` + cartColumns + ` FROM cart_items WHERE cart_id = $1 AND product_id = $2`

	var item models.CartItem
	if err := r.db.DB.GetContext(ctx, &item, query, cartID, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return &item, nil
}

// ListByCart retrieves all items in a cart
func (r *CartRepository) ListByCart(ctx context.Context, cartID string) ([]*models.CartItem, error) {
	query := `SELECT ` + cartColumns + ` FROM cart_items WHERE cart_id = $1 ORDER BY created_at ASC`

	var items []*models.CartItem
	if err := r.db.DB.SelectContext(ctx, &items, query, cartID); err != nil {
		r.logger.Error("Failed to list cart items", "error", err, "cartID", cartID)
		return nil, fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return items, nil
}

// UpdateQuantity sets the quantity of a cart item
func (r *CartRepository) UpdateQuantity(ctx context.Context, id string, quantity int) error {
	query := `UPDATE cart_items SET quantity = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.DB.ExecContext(ctx, query, quantity, models.GetCurrentTime(), id)
	if err != nil {
		r.logger.Error("Failed to update cart item", "error", err, "cartItemID", id)
		return fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return checkAffected(result)
}

// Remove deletes a cart item
func (r *CartRepository) Remove(ctx context.Context, id string) error {
	result, err := r.db.DB.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to remove cart item", "error", err, "cartItemID", id)
		return fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return checkAffected(result)
}
