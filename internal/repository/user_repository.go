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

// UserRepository implements store.UserStore on Postgres
type UserRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *database.Database, logger logger.Logger) *UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

const userColumns = `id, email, name, password_hash, role, created_at, updated_at`

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.DB.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.Role,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		r.logger.Error("Failed to create user", "error", err, "userID", user.ID)
		return fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return nil
}

// GetByID retrieves a user by its ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var user models.User
	if err := r.db.DB.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		r.logger.Error("Failed to get user by ID", "error", err, "userID", id)
		return nil, fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return &user, nil
}

// GetByEmail retrieves a user by lower-cased email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	var user models.User
	if err := r.db.DB.GetContext(ctx, &user, query, models.NormalizeEmail(email)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return &user, nil
}

// List retrieves users, optionally filtered by role, plus the total count
func (r *UserRepository) List(ctx context.Context, role string, limit, offset int) ([]*models.User, int, error) {
	where := ""
	var args []interface{}

	if role != "" {
		where = ` WHERE role = $1`
		args = append(args, role)
	}

	var total int
	if err := r.db.DB.GetContext(ctx, &total, "SELECT COUNT(*) FROM users"+where, args...); err != nil {
		r.logger.Error("Failed to count users", "error", err)
		return nil, 0, fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	query := fmt.Sprintf("SELECT %s FROM users%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		userColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	var users []*models.User
	if err := r.db.DB.SelectContext(ctx, &users, query, args...); err != nil {
		r.logger.Error("Failed to list users", "error", err)
		return nil, 0, fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return users, total, nil
}

// Update updates an existing user
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET email = $1, name = $2, password_hash = $3, role = $4, updated_at = $5
		WHERE id = $6
	`

	result, err := r.db.DB.ExecContext(ctx, query,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.Role,
		models.GetCurrentTime(),
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		r.logger.Error("Failed to update user", "error", err, "userID", user.ID)
		return fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return checkAffected(result)
}

// Delete deletes a user by its ID
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.DB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete user", "error", err, "userID", id)
		return fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return checkAffected(result)
}

// CountByRole counts users holding the given role
func (r *UserRepository) CountByRole(ctx context.Context, role models.Role) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM users WHERE role = $1`

	if err := r.db.DB.GetContext(ctx, &count, query, role); err != nil {
		return 0, fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return count, nil
}
