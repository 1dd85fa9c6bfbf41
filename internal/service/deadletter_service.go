package service

import (
	"context"
	"errors"

	"github.com/merchkit/storefront-api/internal/models"
	"github.com/merchkit/storefront-api/internal/store"
	"github.com/merchkit/storefront-api/pkg/apperrors"
	"github.com/merchkit/storefront-api/pkg/logger"
)

// DeadLetterService exposes the parked-message queue to the admin API
type DeadLetterService struct {
	store  *store.Store
	logger logger.Logger
}

// NewDeadLetterService creates a new DeadLetterService
func NewDeadLetterService(st *store.Store, logger logger.Logger) *DeadLetterService {
	return &DeadLetterService{store: st, logger: logger}
}

// List retrieves dead letters, optionally narrowed to one status
func (s *DeadLetterService) List(ctx context.Context, status string, limit, offset int) ([]*models.DeadLetterMessage, error) {
	return s.store.DeadLetters.List(ctx, status, limit, offset)
}

func (s *DeadLetterService) get(ctx context.Context, id string) (*models.DeadLetterMessage, error) {
	msg, err := s.store.DeadLetters.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NewNotFound("DEAD_LETTER_NOT_FOUND", "dead letter not found")
		}
		return nil, err
	}
	return msg, nil
}

// Retry requeues a parked message for the dead letter processor
func (s *DeadLetterService) Retry(ctx context.Context, id string) (*models.DeadLetterMessage, error) {
	msg, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if msg.Status == models.DeadLetterStatusResolved || msg.Status == models.DeadLetterStatusDiscarded {
		return nil, apperrors.NewGuard("DEAD_LETTER_CLOSED", "dead letter is already closed")
	}

	msg.Status = models.DeadLetterStatusPending
	if err := s.store.DeadLetters.Update(ctx, msg); err != nil {
		return nil, err
	}

	s.logger.Info("Dead letter requeued", "dead_letter_id", msg.ID)
	return msg, nil
}

// Discard closes a parked message without republishing it
func (s *DeadLetterService) Discard(ctx context.Context, id string) (*models.DeadLetterMessage, error) {
	msg, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if msg.Status == models.DeadLetterStatusDiscarded {
		return msg, nil
	}

	now := models.GetCurrentTime()
	msg.Status = models.DeadLetterStatusDiscarded
	msg.ResolvedAt = &now
	if err := s.store.DeadLetters.Update(ctx, msg); err != nil {
		return nil, err
	}

	s.logger.Info("Dead letter discarded", "dead_letter_id", msg.ID)
	return msg, nil
}
