package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merchkit/storefront-api/internal/models"
	"github.com/merchkit/storefront-api/internal/store"
	"github.com/merchkit/storefront-api/pkg/logger"
)

type stubOutboxStore struct {
	messages []*models.OutboxMessage
}

func (s *stubOutboxStore) find(id string) *models.OutboxMessage {
	for _, msg := range s.messages {
		if msg.ID == id {
			return msg
		}
	}
	return nil
}

// GetPending returns copies, the way a real store materializes fresh rows
func (s *stubOutboxStore) GetPending(_ context.Context, limit int) ([]*models.OutboxMessage, error) {
	var pending []*models.OutboxMessage
	for _, msg := range s.messages {
		if msg.Status == models.OutboxStatusPending {
			copied := *msg
			pending = append(pending, &copied)
			if len(pending) == limit {
				break
			}
		}
	}
	return pending, nil
}

func (s *stubOutboxStore) MarkProcessing(_ context.Context, id string) error {
	msg := s.find(id)
	if msg == nil {
		return store.ErrNotFound
	}
	msg.Status = models.OutboxStatusProcessing
	msg.ProcessingAttempts++
	return nil
}

func (s *stubOutboxStore) MarkCompleted(_ context.Context, id string) error {
	msg := s.find(id)
	if msg == nil {
		return store.ErrNotFound
	}
	msg.Status = models.OutboxStatusCompleted
	return nil
}

func (s *stubOutboxStore) MarkFailed(_ context.Context, id string, errorMsg string) error {
	msg := s.find(id)
	if msg == nil {
		return store.ErrNotFound
	}
	msg.Status = models.OutboxStatusFailed
	msg.LastError = &errorMsg
	return nil
}

func (s *stubOutboxStore) MarkPending(_ context.Context, id string) error {
	msg := s.find(id)
	if msg == nil {
		return store.ErrNotFound
	}
	msg.Status = models.OutboxStatusPending
	return nil
}

type stubDeadLetterStore struct {
	parked []*models.DeadLetterMessage
}

func (s *stubDeadLetterStore) Create(_ context.Context, msg *models.DeadLetterMessage) error {
	s.parked = append(s.parked, msg)
	return nil
}

func (s *stubDeadLetterStore) GetByID(_ context.Context, id string) (*models.DeadLetterMessage, error) {
	for _, msg := range s.parked {
		if msg.ID == id {
			return msg, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *stubDeadLetterStore) List(_ context.Context, _ string, _, _ int) ([]*models.DeadLetterMessage, error) {
	return s.parked, nil
}

func (s *stubDeadLetterStore) GetPending(_ context.Context, limit int) ([]*models.DeadLetterMessage, error) {
	var pending []*models.DeadLetterMessage
	for _, msg := range s.parked {
		if msg.Status == models.DeadLetterStatusPending {
			pending = append(pending, msg)
			if len(pending) == limit {
				break
			}
		}
	}
	return pending, nil
}

func (s *stubDeadLetterStore) Update(_ context.Context, msg *models.DeadLetterMessage) error {
	for i, existing := range s.parked {
		if existing.ID == msg.ID {
			s.parked[i] = msg
			return nil
		}
	}
	return store.ErrNotFound
}

type recordingHandler struct {
	err   error
	calls int
}

func (h *recordingHandler) HandleMessage(_ context.Context, _ *models.OutboxMessage) error {
	h.calls++
	return h.err
}

func pendingMessage(eventType string) *models.OutboxMessage {
	return &models.OutboxMessage{
		ID:            models.GenerateID("obx"),
		AggregateType: "order",
		AggregateID:   "ord-test",
		EventType:     eventType,
		Payload:       []byte(`{}`),
		CreatedAt:     time.Now().UTC(),
		Status:        models.OutboxStatusPending,
	}
}

func newTestProcessor(outboxStore *stubOutboxStore, dlq *stubDeadLetterStore, maxRetries int) *Processor {
	return NewProcessor(outboxStore, dlq, ProcessorConfig{
		PollingInterval: time.Second,
		BatchSize:       10,
		MaxRetries:      maxRetries,
	}, logger.NewNopLogger())
}

func TestProcessorDeliversAndCompletes(t *testing.T) {
	outboxStore := &stubOutboxStore{messages: []*models.OutboxMessage{pendingMessage(models.EventOrderCreated)}}
	dlq := &stubDeadLetterStore{}
	handler := &recordingHandler{}

	p := newTestProcessor(outboxStore, dlq, 3)
	p.RegisterHandler(models.EventOrderCreated, handler)

	require.NoError(t, p.processBatch())
	assert.Equal(t, 1, handler.calls)
	assert.Equal(t, models.OutboxStatusCompleted, outboxStore.messages[0].Status)
	assert.Empty(t, dlq.parked)
}

func TestProcessorRequeuesUntilMaxThenParks(t *testing.T) {
	msg := pendingMessage(models.EventOrderCreated)
	outboxStore := &stubOutboxStore{messages: []*models.OutboxMessage{msg}}
	dlq := &stubDeadLetterStore{}
	handler := &recordingHandler{err: errors.New("broker down")}

	p := newTestProcessor(outboxStore, dlq, 3)
	p.RegisterHandler(models.EventOrderCreated, handler)

	// first two attempts leave the message pending for the next poll
	require.NoError(t, p.processBatch())
	assert.Equal(t, models.OutboxStatusPending, msg.Status)
	require.NoError(t, p.processBatch())
	assert.Equal(t, models.OutboxStatusPending, msg.Status)
	assert.Empty(t, dlq.parked)

	// the third attempt exhausts maxRetries and parks
	require.NoError(t, p.processBatch())
	assert.Equal(t, models.OutboxStatusFailed, msg.Status)
	require.Len(t, dlq.parked, 1)
	assert.Equal(t, msg.ID, dlq.parked[0].OriginalMessageID)
	assert.Equal(t, models.DeadLetterStatusPending, dlq.parked[0].Status)
	assert.Equal(t, 3, handler.calls)
}

func TestProcessorParksUnroutableMessages(t *testing.T) {
	msg := pendingMessage("unknown_event")
	outboxStore := &stubOutboxStore{messages: []*models.OutboxMessage{msg}}
	dlq := &stubDeadLetterStore{}

	p := newTestProcessor(outboxStore, dlq, 3)

	require.NoError(t, p.processBatch())
	assert.Equal(t, models.OutboxStatusFailed, msg.Status)
	require.Len(t, dlq.parked, 1)
}

func TestDeadLetterProcessorResolvesOnSuccess(t *testing.T) {
	parked := models.NewDeadLetterMessage(pendingMessage(models.EventOrderCreated), "broker down")
	dlq := &stubDeadLetterStore{parked: []*models.DeadLetterMessage{parked}}
	handler := &recordingHandler{}

	p := NewDeadLetterProcessor(dlq, DeadLetterProcessorConfig{
		PollingInterval: time.Second,
		BatchSize:       10,
		MaxRetries:      3,
	}, logger.NewNopLogger())
	p.RegisterHandler(models.EventOrderCreated, handler)

	require.NoError(t, p.processBatch())
	assert.Equal(t, 1, handler.calls)
	assert.Equal(t, models.DeadLetterStatusResolved, parked.Status)
	require.NotNil(t, parked.ResolvedAt)
}

func TestDeadLetterProcessorDiscardsAfterMaxRetries(t *testing.T) {
	parked := models.NewDeadLetterMessage(pendingMessage(models.EventOrderCreated), "broker down")
	dlq := &stubDeadLetterStore{parked: []*models.DeadLetterMessage{parked}}
	handler := &recordingHandler{err: errors.New("still down")}

	p := NewDeadLetterProcessor(dlq, DeadLetterProcessorConfig{
		PollingInterval: time.Second,
		BatchSize:       10,
		MaxRetries:      1,
	}, logger.NewNopLogger())
	p.RegisterHandler(models.EventOrderCreated, handler)

	require.NoError(t, p.processBatch())
	assert.Equal(t, models.DeadLetterStatusDiscarded, parked.Status)
	require.NotNil(t, parked.ResolvedAt)
}
