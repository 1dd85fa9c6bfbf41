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

// CustomerRepository implements store.CustomerStore on Postgres
type CustomerRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewCustomerRepository creates a new CustomerRepository
func NewCustomerRepository(db *database.Database, logger logger.Logger) *CustomerRepository {
	return &CustomerRepository{
		db:     db,
		logger: logger,
	}
}

const customerColumns = `id, email, name, phone, address, created_at, updated_at`

// Create inserts the customer and the outbox message in one transaction
func (r *CustomerRepository) Create(ctx context.Context, customer *models.Customer, msg *models.OutboxMessage) error {
	tx, err := r.db.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO customers (` + customerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = tx.ExecContext(ctx, query,
		customer.ID,
		customer.Email,
		customer.Name,
		customer.Phone,
		customer.Address,
		customer.CreatedAt,
		customer.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		r.logger.Error("Failed to create customer", "error", err, "customerID", customer.ID)
		return fmt.Errorf("%w: %v", store.ErrDatabase, err)
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

// GetByID retrieves a customer by its ID
func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`

	var customer models.Customer
	if err := r.db.DB.GetContext(ctx, &customer, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		r.logger.Error("Failed to get customer by ID", "error", err, "customerID", id)
		return nil, fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return &customer, nil
}

// GetByEmail retrieves a customer by lower-cased email
func (r *CustomerRepository) GetByEmail(ctx context.Context, email string) (*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE email = $1`

	var customer models.Customer
	if err := r.db.DB.GetContext(ctx, &customer, query, models.NormalizeEmail(email)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return &customer, nil
}

// List retrieves customers matching the optional search plus the total count
func (r *CustomerRepository) List(ctx context.Context, search string, limit, offset int) ([]*models.Customer, int, error) {
	where := ""
	var args []interface{}

	if search != "" {
		where = ` WHERE (name ILIKE $1 OR email ILIKE $1)`
		args = append(args, "%"+search+"%")
	}

	var total int
	if err := r.db.DB.GetContext(ctx, &total, "SELECT COUNT(*) FROM customers"+where, args...); err != nil {
		r.logger.Error("Failed to count customers", "error", err)
		return nil, 0, fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	query := fmt.Sprintf("SELECT %s FROM customers%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		customerColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	var customers []*models.Customer
	if err := r.db.DB.SelectContext(ctx, &customers, query, args...); err != nil {
		r.logger.Error("Failed to list customers", "error", err)
		return nil, 0, fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return customers, total, nil
}

// Update updates an existing customer
func (r *CustomerRepository) Update(ctx context.Context, customer *models.Customer) error {
	query := `
		UPDATE customers
		SET email = $1, name = $2, phone = $3, address = $4, updated_at = $5
		WHERE id = $6
	`

	result, err := r.db.DB.ExecContext(ctx, query,
		customer.Email,
		customer.Name,
		customer.Phone,
		customer.Address,
		models.GetCurrentTime(),
		customer.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		r.logger.Error("Failed to update customer", "error", err, "customerID", customer.ID)
		return fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return checkAffected(result)
}

// Delete deletes a customer by its ID
func (r *CustomerRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.DB.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete customer", "error", err, "customerID", id)
		return fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return checkAffected(result)
}
