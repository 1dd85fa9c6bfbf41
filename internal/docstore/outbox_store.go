package docstore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/merchkit/storefront-api/internal/models"
	"github.com/merchkit/storefront-api/internal/store"
)

// OutboxStore implements store.OutboxStore on Mongo
type OutboxStore struct {
	ds *DocStore
}

func (s *OutboxStore) outbox() *mongo.Collection {
	return s.ds.db.Collection(colOutbox)
}

// GetPending retrieves the oldest pending messages up to limit
func (s *OutboxStore) GetPending(ctx context.Context, limit int) ([]*models.OutboxMessage, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := s.outbox().Find(ctx, bson.M{"status": models.OutboxStatusPending}, opts)
	if err != nil {
		return nil, mapError(err)
	}

	var messages []*models.OutboxMessage
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, mapError(err)
	}
	return messages, nil
}

func (s *OutboxStore) setStatus(ctx context.Context, id string, update bson.M) error {
	result, err := s.outbox().UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return mapError(err)
	}
	if result.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// MarkProcessing claims the message and increments its attempt counter
func (s *OutboxStore) MarkProcessing(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, bson.M{
		"$set": bson.M{"status": models.OutboxStatusProcessing},
		"$inc": bson.M{"processing_attempts": 1},
	})
}

func (s *OutboxStore) MarkCompleted(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, bson.M{
		"$set": bson.M{
			"status":       models.OutboxStatusCompleted,
			"processed_at": models.GetCurrentTime(),
		},
	})
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id string, errorMsg string) error {
	return s.setStatus(ctx, id, bson.M{
		"$set": bson.M{
			"status":     models.OutboxStatusFailed,
			"last_error": errorMsg,
		},
	})
}

// MarkPending requeues the message for another publish attempt
func (s *OutboxStore) MarkPending(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, bson.M{
		"$set":   bson.M{"status": models.OutboxStatusPending},
		"$unset": bson.M{"last_error": ""},
	})
}

// DeadLetterStore implements store.DeadLetterStore on Mongo
type DeadLetterStore struct {
	ds *DocStore
}

func (s *DeadLetterStore) deadLetters() *mongo.Collection {
	return s.ds.db.Collection(colDeadLetters)
}

func (s *DeadLetterStore) Create(ctx context.Context, msg *models.DeadLetterMessage) error {
	if _, err := s.deadLetters().InsertOne(ctx, msg); err != nil {
		return mapError(err)
	}
	return nil
}

func (s *DeadLetterStore) GetByID(ctx context.Context, id string) (*models.DeadLetterMessage, error) {
	var msg models.DeadLetterMessage
	if err := s.deadLetters().FindOne(ctx, bson.M{"_id": id}).Decode(&msg); err != nil {
		return nil, mapError(err)
	}
	return &msg, nil
}

func (s *DeadLetterStore) List(ctx context.Context, status string, limit, offset int) ([]*models.DeadLetterMessage, error) {
	query := bson.M{}
	if status != "" {
		query["status"] = status
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := s.deadLetters().Find(ctx, query, opts)
	if err != nil {
		return nil, mapError(err)
	}

	var messages []*models.DeadLetterMessage
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, mapError(err)
	}
	return messages, nil
}

// GetPending retrieves the oldest parked messages awaiting retry
func (s *DeadLetterStore) GetPending(ctx context.Context, limit int) ([]*models.DeadLetterMessage, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := s.deadLetters().Find(ctx, bson.M{"status": models.DeadLetterStatusPending}, opts)
	if err != nil {
		return nil, mapError(err)
	}

	var messages []*models.DeadLetterMessage
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, mapError(err)
	}
	return messages, nil
}

func (s *DeadLetterStore) Update(ctx context.Context, msg *models.DeadLetterMessage) error {
	result, err := s.deadLetters().ReplaceOne(ctx, bson.M{"_id": msg.ID}, msg)
	if err != nil {
		return mapError(err)
	}
	if result.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
