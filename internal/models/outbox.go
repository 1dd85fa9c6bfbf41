package models

import (
	"time"
)

// OutboxStatus represents the status of an outbox message
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusProcessing OutboxStatus = "processing"
	OutboxStatusCompleted  OutboxStatus = "completed"
	OutboxStatusFailed     OutboxStatus = "failed"
)

// OutboxMessage is an event written in the same unit of work as the entity
// change it describes, and published asynchronously.
type OutboxMessage struct {
	ID                 string       `db:"id" json:"id" bson:"_id"`
	AggregateType      string       `db:"aggregate_type" json:"aggregate_type" bson:"aggregate_type"`
	AggregateID        string       `db:"aggregate_id" json:"aggregate_id" bson:"aggregate_id"`
	EventType          string       `db:"event_type" json:"event_type" bson:"event_type"`
	Payload            []byte       `db:"payload" json:"payload" bson:"payload"`
	CreatedAt          time.Time    `db:"created_at" json:"created_at" bson:"created_at"`
	ProcessedAt        *time.Time   `db:"processed_at" json:"processed_at,omitempty" bson:"processed_at,omitempty"`
	ProcessingAttempts int          `db:"processing_attempts" json:"processing_attempts" bson:"processing_attempts"`
	LastError          *string      `db:"last_error" json:"last_error,omitempty" bson:"last_error,omitempty"`
	Status             OutboxStatus `db:"status" json:"status" bson:"status"`
}

// DeadLetterStatus represents the status of a dead letter message
type DeadLetterStatus string

const (
	DeadLetterStatusPending   DeadLetterStatus = "pending"
	DeadLetterStatusRetrying  DeadLetterStatus = "retrying"
	DeadLetterStatusResolved  DeadLetterStatus = "resolved"
	DeadLetterStatusDiscarded DeadLetterStatus = "discarded"
)

// DeadLetterMessage is an outbox message parked after exhausting publish retries
type DeadLetterMessage struct {
	ID                string           `db:"id" json:"id" bson:"_id"`
	OriginalMessageID string           `db:"original_message_id" json:"original_message_id" bson:"original_message_id"`
	AggregateType     string           `db:"aggregate_type" json:"aggregate_type" bson:"aggregate_type"`
	AggregateID       string           `db:"aggregate_id" json:"aggregate_id" bson:"aggregate_id"`
	EventType         string           `db:"event_type" json:"event_type" bson:"event_type"`
	Payload           []byte           `db:"payload" json:"payload" bson:"payload"`
	ErrorMessage      string           `db:"error_message" json:"error_message" bson:"error_message"`
	RetryCount        int              `db:"retry_count" json:"retry_count" bson:"retry_count"`
	LastRetryAt       *time.Time       `db:"last_retry_at" json:"last_retry_at,omitempty" bson:"last_retry_at,omitempty"`
	Status            DeadLetterStatus `db:"status" json:"status" bson:"status"`
	CreatedAt         time.Time        `db:"created_at" json:"created_at" bson:"created_at"`
	ResolvedAt        *time.Time       `db:"resolved_at" json:"resolved_at,omitempty" bson:"resolved_at,omitempty"`
}

// NewDeadLetterMessage parks an outbox message with the error that killed it
func NewDeadLetterMessage(outboxMsg *OutboxMessage, errorMsg string) *DeadLetterMessage {
	return &DeadLetterMessage{
		ID:                GenerateID("dlq"),
		OriginalMessageID: outboxMsg.ID,
		AggregateType:     outboxMsg.AggregateType,
		AggregateID:       outboxMsg.AggregateID,
		EventType:         outboxMsg.EventType,
		Payload:           outboxMsg.Payload,
		ErrorMessage:      errorMsg,
		RetryCount:        0,
		Status:            DeadLetterStatusPending,
		CreatedAt:         GetCurrentTime(),
	}
}
