package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/merchkit/storefront-api/internal/models"
	"github.com/merchkit/storefront-api/internal/store"
	"github.com/merchkit/storefront-api/pkg/logger"
	"github.com/merchkit/storefront-api/pkg/retry"
)

// DeadLetterProcessor retries parked messages with exponential backoff.
// Messages that keep failing past maxRetries are discarded; admins can still
// requeue them through the API.
type DeadLetterProcessor struct {
	deadLetters     store.DeadLetterStore
	handlers        map[string]MessageHandler
	pollingInterval time.Duration
	batchSize       int
	maxRetries      int
	backoffStrategy retry.BackoffStrategy
	logger          logger.Logger
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	running         bool
	mu              sync.Mutex
}

// DeadLetterProcessorConfig holds the configuration for the DeadLetterProcessor
type DeadLetterProcessorConfig struct {
	PollingInterval time.Duration
	BatchSize       int
	MaxRetries      int
	BackoffStrategy retry.BackoffStrategy
}

// NewDeadLetterProcessor creates a new dead letter processor
func NewDeadLetterProcessor(deadLetters store.DeadLetterStore, config DeadLetterProcessorConfig, logger logger.Logger) *DeadLetterProcessor {
	ctx, cancel := context.WithCancel(context.Background())

	backoffStrategy := config.BackoffStrategy
	if backoffStrategy == nil {
		backoffStrategy = retry.NewDefaultExponentialBackoff()
	}

	return &DeadLetterProcessor{
		deadLetters:     deadLetters,
		handlers:        make(map[string]MessageHandler),
		pollingInterval: config.PollingInterval,
		batchSize:       config.BatchSize,
		maxRetries:      config.MaxRetries,
		backoffStrategy: backoffStrategy,
		logger:          logger,
		ctx:             ctx,
		cancel:          cancel,
	}
}

// RegisterHandler registers a message handler for a specific event type
func (p *DeadLetterProcessor) RegisterHandler(eventType string, handler MessageHandler) {
	p.handlers[eventType] = handler
}

// Start starts the dead letter processor
func (p *DeadLetterProcessor) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}

	p.running = true
	p.wg.Add(1)

	go func() {
		defer p.wg.Done()
		p.pollLoop()
	}()

	p.logger.Info("Dead letter processor started",
		"pollingInterval", p.pollingInterval,
		"maxRetries", p.maxRetries)
}

// Stop stops the dead letter processor
func (p *DeadLetterProcessor) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	p.cancel()
	p.wg.Wait()
	p.running = false

	p.logger.Info("Dead letter processor stopped")
}

func (p *DeadLetterProcessor) pollLoop() {
	ticker := time.NewTicker(p.pollingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			if err := p.processBatch(); err != nil {
				p.logger.Error("Failed to process dead letter batch", "error", err)
			}
		}
	}
}

func (p *DeadLetterProcessor) processBatch() error {
	ctx, cancel := context.WithTimeout(p.ctx, p.pollingInterval)
	defer cancel()

	messages, err := p.deadLetters.GetPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending dead letters: %w", err)
	}

	for _, msg := range messages {
		if !p.dueForRetry(msg) {
			continue
		}
		p.retryMessage(ctx, msg)
	}
	return nil
}

// dueForRetry applies the backoff window since the last attempt
func (p *DeadLetterProcessor) dueForRetry(msg *models.DeadLetterMessage) bool {
	if msg.LastRetryAt == nil {
		return true
	}
	wait := p.backoffStrategy.NextBackoff(msg.RetryCount + 1)
	return time.Since(*msg.LastRetryAt) >= wait
}

func (p *DeadLetterProcessor) retryMessage(ctx context.Context, msg *models.DeadLetterMessage) {
	handler, exists := p.handlers[msg.EventType]
	if !exists {
		p.logger.Error("No handler for dead letter", "deadLetterID", msg.ID, "eventType", msg.EventType)
		return
	}

	msg.Status = models.DeadLetterStatusRetrying
	if err := p.deadLetters.Update(ctx, msg); err != nil {
		p.logger.Error("Failed to mark dead letter as retrying", "error", err, "deadLetterID", msg.ID)
		return
	}

	outboxMsg := &models.OutboxMessage{
		ID:            msg.OriginalMessageID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       msg.Payload,
	}

	now := models.GetCurrentTime()
	msg.RetryCount++
	msg.LastRetryAt = &now

	if err := handler.HandleMessage(ctx, outboxMsg); err != nil {
		if msg.RetryCount >= p.maxRetries {
			msg.Status = models.DeadLetterStatusDiscarded
			msg.ResolvedAt = &now
			p.logger.Error("Dead letter discarded after exhausting retries",
				"deadLetterID", msg.ID,
				"retries", msg.RetryCount,
				"error", err)
		} else {
			msg.Status = models.DeadLetterStatusPending
			p.logger.Warn("Dead letter retry failed",
				"deadLetterID", msg.ID,
				"retries", msg.RetryCount,
				"error", err)
		}
	} else {
		msg.Status = models.DeadLetterStatusResolved
		msg.ResolvedAt = &now
		p.logger.Info("Dead letter resolved", "deadLetterID", msg.ID, "retries", msg.RetryCount)
	}

	if err := p.deadLetters.Update(ctx, msg); err != nil {
		p.logger.Error("Failed to update dead letter", "error", err, "deadLetterID", msg.ID)
	}
}
