package repository

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/merchkit/storefront-api/internal/database"
	"github.com/merchkit/storefront-api/internal/models"
	"github.com/merchkit/storefront-api/internal/store"
	"github.com/merchkit/storefront-api/pkg/logger"
)

// CategoryRepository implements store.CategoryStore on Postgres
type CategoryRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewCategoryRepository creates a new CategoryRepository
func NewCategoryRepository(db *database.Database, logger logger.Logger) *CategoryRepository {
	return &CategoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new category
func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) error {
	query := `INSERT INTO categories (id, name, created_at) VALUES ($1, $2, $3)`

	_, err := r.db.DB.ExecContext(ctx, query, category.ID, category.Name, category.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		r.logger.Error("Failed to create category", "error", err, "name", category.Name)
		return fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return nil
}

// List retrieves all categories
func (r *CategoryRepository) List(ctx context.Context) ([]*models.Category, error) {
	query := `SELECT id, name, created_at FROM categories ORDER BY name ASC`

	var categories []*models.Category
	if err := r.db.DB.SelectContext(ctx, &categories, query); err != nil {
		r.logger.Error("Failed to list categories", "error", err)
		return nil, fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return categories, nil
}

// ExistsByName reports whether a category with the given name exists
func (r *CategoryRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM categories WHERE name = $1`

	if err := r.db.DB.GetContext(ctx, &count, query, name); err != nil {
		return false, fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return count > 0, nil
}

// isUniqueViolation reports whether err is a Postgres unique constraint violation
func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}
