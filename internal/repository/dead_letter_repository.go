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

// DeadLetterRepository implements store.DeadLetterStore on Postgres
type DeadLetterRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewDeadLetterRepository creates a new DeadLetterRepository
func NewDeadLetterRepository(db *database.Database, logger logger.Logger) *DeadLetterRepository {
	return &DeadLetterRepository{
		db:     db,
		logger: logger,
	}
}

const deadLetterColumns = `id, original_message_id, aggregate_type, aggregate_id, event_type, payload, error_message, retry_count, last_retry_at, status, created_at, resolved_at`

// Create parks a failed outbox message
func (r *DeadLetterRepository) Create(ctx context.Context, msg *models.DeadLetterMessage) error {
	query := `
		INSERT INTO dead_letters (id, original_message_id, aggregate_type, aggregate_id, event_type, payload, error_message, retry_count, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	if _, err := r.db.DB.ExecContext(ctx, query,
		msg.ID,
		msg.OriginalMessageID,
		msg.AggregateType,
		msg.AggregateID,
		msg.EventType,
		msg.Payload,
		msg.ErrorMessage,
		msg.RetryCount,
		msg.Status,
		msg.CreatedAt,
	); err != nil {
		r.logger.Error("Failed to create dead letter", "error", err, "originalID", msg.OriginalMessageID)
		return fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return nil
}

// GetByID retrieves a dead letter by id
func (r *DeadLetterRepository) GetByID(ctx context.Context, id string) (*models.DeadLetterMessage, error) {
	query := `SELECT ` + deadLetterColumns + ` FROM dead_letters WHERE id = $1`

	var msg models.DeadLetterMessage
	if err := r.db.DB.GetContext(ctx, &msg, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return &msg, nil
}

// List retrieves dead letters optionally filtered by status
func (r *DeadLetterRepository) List(ctx context.Context, status string, limit, offset int) ([]*models.DeadLetterMessage, error) {
	where := ""
	var args []interface{}

	if status != "" {
		where = ` WHERE status = $1`
		args = append(args, status)
	}

	query := fmt.Sprintf("SELECT %s FROM dead_letters%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		deadLetterColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	var messages []*models.DeadLetterMessage
	if err := r.db.DB.SelectContext(ctx, &messages, query, args...); err != nil {
		r.logger.Error("Failed to list dead letters", "error", err)
		return nil, fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return messages, nil
}

// GetPending retrieves pending dead letters, oldest first
func (r *DeadLetterRepository) GetPending(ctx context.Context, limit int) ([]*models.DeadLetterMessage, error) {
	query := `
		SELECT ` + deadLetterColumns + `
		FROM dead_letters
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	var messages []*models.DeadLetterMessage
	if err := r.db.DB.SelectContext(ctx, &messages, query, models.DeadLetterStatusPending, limit); err != nil {
		r.logger.Error("Failed to get pending dead letters", "error", err)
		return nil, fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return messages, nil
}

// Update persists status/retry fields of a dead letter
func (r *DeadLetterRepository) Update(ctx context.Context, msg *models.DeadLetterMessage) error {
	query := `
		UPDATE dead_letters
		SET status = $1, retry_count = $2, last_retry_at = $3, resolved_at = $4, error_message = $5
		WHERE id = $6
	`

	result, err := r.db.DB.ExecContext(ctx, query,
		msg.Status,
		msg.RetryCount,
		msg.LastRetryAt,
		msg.ResolvedAt,
		msg.ErrorMessage,
		msg.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update dead letter", "error", err, "deadLetterID", msg.ID)
		return fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return checkAffected(result)
}
