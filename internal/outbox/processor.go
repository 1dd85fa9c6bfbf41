// Package outbox publishes transactionally written outbox messages to Kafka
// and manages the retry and dead-letter lifecycle around that.
package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/merchkit/storefront-api/internal/models"
	"github.com/merchkit/storefront-api/internal/store"
	"github.com/merchkit/storefront-api/pkg/logger"
)

// MessageHandler delivers one outbox message to its destination
type MessageHandler interface {
	HandleMessage(ctx context.Context, message *models.OutboxMessage) error
}

// Processor polls pending outbox messages and dispatches them to handlers.
// Messages that exhaust their attempts are parked in the dead letter store.
type Processor struct {
	outbox          store.OutboxStore
	deadLetters     store.DeadLetterStore
	handlers        map[string]MessageHandler
	pollingInterval time.Duration
	batchSize       int
	maxRetries      int
	logger          logger.Logger
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	running         bool
	mu              sync.Mutex
}

// ProcessorConfig holds the configuration for the Processor
type ProcessorConfig struct {
	PollingInterval time.Duration
	BatchSize       int
	MaxRetries      int
}

// NewProcessor creates a new Processor
func NewProcessor(outbox store.OutboxStore, deadLetters store.DeadLetterStore, config ProcessorConfig, logger logger.Logger) *Processor {
	ctx, cancel := context.WithCancel(context.Background())

	return &Processor{
		outbox:          outbox,
		deadLetters:     deadLetters,
		handlers:        make(map[string]MessageHandler),
		pollingInterval: config.PollingInterval,
		batchSize:       config.BatchSize,
		maxRetries:      config.MaxRetries,
		logger:          logger,
		ctx:             ctx,
		cancel:          cancel,
	}
}

// RegisterHandler registers a message handler for a specific event type
func (p *Processor) RegisterHandler(eventType string, handler MessageHandler) {
	p.handlers[eventType] = handler
}

// Start starts the outbox processor
func (p *Processor) Start() {
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

	p.logger.Info("Outbox processor started",
		"pollingInterval", p.pollingInterval,
		"batchSize", p.batchSize)
}

// Stop stops the outbox processor
func (p *Processor) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	p.cancel()
	p.wg.Wait()
	p.running = false

	p.logger.Info("Outbox processor stopped")
}

func (p *Processor) pollLoop() {
	ticker := time.NewTicker(p.pollingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			if err := p.processBatch(); err != nil {
				p.logger.Error("Failed to process outbox batch", "error", err)
			}
		}
	}
}

func (p *Processor) processBatch() error {
	ctx, cancel := context.WithTimeout(p.ctx, p.pollingInterval)
	defer cancel()

	messages, err := p.outbox.GetPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending messages: %w", err)
	}

	if len(messages) == 0 {
		return nil
	}

	p.logger.Debug("Processing outbox batch", "count", len(messages))

	for _, msg := range messages {
		if err := p.processMessage(ctx, msg); err != nil {
			p.logger.Warn("Outbox message not delivered",
				"error", err,
				"messageID", msg.ID,
				"eventType", msg.EventType)
		}
	}
	return nil
}

// processMessage attempts one delivery. A failed attempt leaves the message
// pending for the next poll; exhausting maxRetries parks it.
func (p *Processor) processMessage(ctx context.Context, msg *models.OutboxMessage) error {
	if err := p.outbox.MarkProcessing(ctx, msg.ID); err != nil {
		return fmt.Errorf("failed to mark message as processing: %w", err)
	}
	msg.ProcessingAttempts++

	handler, exists := p.handlers[msg.EventType]
	if !exists {
		errorMsg := fmt.Sprintf("no handler registered for event type: %s", msg.EventType)
		p.park(ctx, msg, errorMsg)
		return fmt.Errorf("%s", errorMsg)
	}

	if err := handler.HandleMessage(ctx, msg); err != nil {
		if msg.ProcessingAttempts >= p.maxRetries {
			p.park(ctx, msg, fmt.Sprintf("max retries reached: %s", err.Error()))
			return fmt.Errorf("message parked after %d attempts: %w", msg.ProcessingAttempts, err)
		}

		if markErr := p.outbox.MarkPending(ctx, msg.ID); markErr != nil {
			p.logger.Error("Failed to requeue message", "error", markErr, "messageID", msg.ID)
		}
		return err
	}

	if err := p.outbox.MarkCompleted(ctx, msg.ID); err != nil {
		return fmt.Errorf("failed to mark message as completed: %w", err)
	}

	p.logger.Info("Outbox message published",
		"messageID", msg.ID,
		"aggregateID", msg.AggregateID,
		"eventType", msg.EventType)
	return nil
}

// park moves a message into the dead letter store and marks it failed
func (p *Processor) park(ctx context.Context, msg *models.OutboxMessage, errorMsg string) {
	if err := p.outbox.MarkFailed(ctx, msg.ID, errorMsg); err != nil {
		p.logger.Error("Failed to mark message as failed", "error", err, "messageID", msg.ID)
	}

	deadLetter := models.NewDeadLetterMessage(msg, errorMsg)
	if err := p.deadLetters.Create(ctx, deadLetter); err != nil {
		p.logger.Error("Failed to park message in dead letter store", "error", err, "messageID", msg.ID)
		return
	}

	p.logger.Warn("Outbox message parked as dead letter",
		"messageID", msg.ID,
		"deadLetterID", deadLetter.ID,
		"eventType", msg.EventType,
		"error", errorMsg)
}
