package outbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/merchkit/storefront-api/internal/models"
	"github.com/merchkit/storefront-api/pkg/circuitbreaker"
	"github.com/merchkit/storefront-api/pkg/kafka"
	"github.com/merchkit/storefront-api/pkg/logger"
)

// ErrCircuitOpen is returned when the breaker refuses a publish attempt
var ErrCircuitOpen = errors.New("kafka circuit breaker open")

// KafkaHandler publishes outbox messages to Kafka through a circuit breaker
type KafkaHandler struct {
	producer *kafka.Producer
	breaker  *circuitbreaker.CircuitBreaker
	topic    string
	logger   logger.Logger
}

// NewKafkaHandler creates a new KafkaHandler
func NewKafkaHandler(producer *kafka.Producer, breaker *circuitbreaker.CircuitBreaker, topic string, logger logger.Logger) *KafkaHandler {
	return &KafkaHandler{
		producer: producer,
		breaker:  breaker,
		topic:    topic,
		logger:   logger,
	}
}

// HandleMessage publishes one outbox message, keyed by aggregate id so events
// for one entity stay in partition order
func (h *KafkaHandler) HandleMessage(ctx context.Context, message *models.OutboxMessage) error {
	if !h.breaker.Allow() {
		h.logger.Warn("Kafka publish refused by circuit breaker",
			"messageID", message.ID,
			"state", h.breaker.GetState().String())
		return ErrCircuitOpen
	}

	err := h.producer.SendMessage(ctx, h.topic, message.AggregateID, message.Payload)
	if err != nil {
		h.breaker.Failure()
		h.logger.Error("Failed to publish message to Kafka",
			"error", err,
			"messageID", message.ID,
			"aggregateID", message.AggregateID)
		return fmt.Errorf("failed to publish message to Kafka: %w", err)
	}

	h.breaker.Success()
	return nil
}
