package docstore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/merchkit/storefront-api/internal/models"
	"github.com/merchkit/storefront-api/internal/store"
)

// CustomerStore implements store.CustomerStore on Mongo
type CustomerStore struct {
	ds *DocStore
}

func (s *CustomerStore) customers() *mongo.Collection {
	return s.ds.db.Collection(colCustomers)
}

// Create writes the customer and the outbox message in one transaction
func (s *CustomerStore) Create(ctx context.Context, customer *models.Customer, msg *models.OutboxMessage) error {
	if msg == nil {
		if _, err := s.customers().InsertOne(ctx, customer); err != nil {
			return mapError(err)
		}
		return nil
	}

	return s.ds.withTx(ctx, func(sessCtx mongo.SessionContext) error {
		if _, err := s.customers().InsertOne(sessCtx, customer); err != nil {
			return mapError(err)
		}
		if _, err := s.ds.db.Collection(colOutbox).InsertOne(sessCtx, msg); err != nil {
			return mapError(err)
		}
		return nil
	})
}

func (s *CustomerStore) GetByID(ctx context.Context, id string) (*models.Customer, error) {
	var customer models.Customer
	if err := s.customers().FindOne(ctx, bson.M{"_id": id}).Decode(&customer); err != nil {
		return nil, mapError(err)
	}
	return &customer, nil
}

func (s *CustomerStore) GetByEmail(ctx context.Context, email string) (*models.Customer, error) {
	var customer models.Customer
	if err := s.customers().FindOne(ctx, bson.M{"email": models.NormalizeEmail(email)}).Decode(&customer); err != nil {
		return nil, mapError(err)
	}
	return &customer, nil
}

// List retrieves customers matching the search plus the total match count
func (s *CustomerStore) List(ctx context.Context, search string, limit, offset int) ([]*models.Customer, int, error) {
	query := bson.M{}
	if search != "" {
		regex := bson.M{"$regex": search, "$options": "i"}
		query["$or"] = bson.A{
			bson.M{"name": regex},
			bson.M{"email": regex},
		}
	}

	total, err := s.customers().CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, mapError(err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := s.customers().Find(ctx, query, opts)
	if err != nil {
		return nil, 0, mapError(err)
	}

	var customers []*models.Customer
	if err := cursor.All(ctx, &customers); err != nil {
		return nil, 0, mapError(err)
	}

	return customers, int(total), nil
}

func (s *CustomerStore) Update(ctx context.Context, customer *models.Customer) error {
	result, err := s.customers().ReplaceOne(ctx, bson.M{"_id": customer.ID}, customer)
	if err != nil {
		return mapError(err)
	}
	if result.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *CustomerStore) Delete(ctx context.Context, id string) error {
	result, err := s.customers().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapError(err)
	}
	if result.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
