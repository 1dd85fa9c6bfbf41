package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/merchkit/storefront-api/internal/database"
	"github.com/merchkit/storefront-api/internal/models"
	"github.com/merchkit/storefront-api/internal/store"
	"github.com/merchkit/storefront-api/pkg/logger"
)

// OutboxRepository implements store.OutboxStore on Postgres
type OutboxRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewOutboxRepository creates a new OutboxRepository
func NewOutboxRepository(db *database.Database, logger logger.Logger) *OutboxRepository {
	return &OutboxRepository{
		db:     db,
		logger: logger,
	}
}

const outboxColumns = `id, aggregate_type, aggregate_id, event_type, payload, created_at, processed_at, processing_attempts, last_error, status`

// insertOutboxMessage writes an outbox row inside an existing transaction so
// the event commits with the entity change it describes.
func insertOutboxMessage(ctx context.Context, tx *sqlx.Tx, msg *models.OutboxMessage) error {
	query := `
		INSERT INTO outbox_messages (id, aggregate_type, aggregate_id, event_type, payload, created_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if _, err := tx.ExecContext(ctx, query,
		msg.ID,
		msg.AggregateType,
		msg.AggregateID,
		msg.EventType,
		msg.Payload,
		msg.CreatedAt,
		msg.Status,
	); err != nil {
		return fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return nil
}

// GetPending retrieves pending outbox messages, oldest first
func (r *OutboxRepository) GetPending(ctx context.Context, limit int) ([]*models.OutboxMessage, error) {
	query := `
		SELECT ` + outboxColumns + `
		FROM outbox_messages
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	var messages []*models.OutboxMessage
	if err := r.db.DB.SelectContext(ctx, &messages, query, models.OutboxStatusPending, limit); err != nil {
		r.logger.Error("Failed to get pending outbox messages", "error", err)
		return nil, fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return messages, nil
}

// MarkProcessing marks a message as in flight and bumps its attempt counter
func (r *OutboxRepository) MarkProcessing(ctx context.Context, id string) error {
	query := `
		UPDATE outbox_messages
		SET status = $1, processing_attempts = processing_attempts + 1
		WHERE id = $2
	`
	return r.exec(ctx, query, models.OutboxStatusProcessing, id)
}

// MarkCompleted marks a message as published
func (r *OutboxRepository) MarkCompleted(ctx context.Context, id string) error {
	query := `
		UPDATE outbox_messages
		SET status = $1, processed_at = NOW()
		WHERE id = $2
	`
	return r.exec(ctx, query, models.OutboxStatusCompleted, id)
}

// MarkFailed marks a message as permanently failed with the error that killed it
func (r *OutboxRepository) MarkFailed(ctx context.Context, id string, errorMsg string) error {
	query := `
		UPDATE outbox_messages
		SET status = $1, last_error = $2
		WHERE id = $3
	`
	return r.exec(ctx, query, models.OutboxStatusFailed, errorMsg, id)
}

// MarkPending returns a message to the pending queue (DLQ retry path)
func (r *OutboxRepository) MarkPending(ctx context.Context, id string) error {
	query := `
		UPDATE outbox_messages
		SET status = $1, last_error = NULL
		WHERE id = $2
	`
	return r.exec(ctx, query, models.OutboxStatusPending, id)
}

func (r *OutboxRepository) exec(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.DB.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Outbox update failed", "error", err)
		return fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}
	return checkAffected(result)
}
