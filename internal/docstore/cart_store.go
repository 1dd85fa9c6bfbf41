package docstore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/merchkit/storefront-api/internal/models"
	"github.com/merchkit/storefront-api/internal/store"
)

// CartStore implements store.CartStore on Mongo
type CartStore struct {
	ds *DocStore
}

func (s *CartStore) items() *mongo.Collection {
	return s.ds.db.Collection(colCartItems)
}

func (s *CartStore) Add(ctx context.Context, item *models.CartItem) error {
	if _, err := s.items().InsertOne(ctx, item); err != nil {
		return mapError(err)
	}
	return nil
}

func (s *CartStore) Get(ctx context.Context, id string) (*models.CartItem, error) {
	var item models.CartItem
	if err := s.items().FindOne(ctx, bson.M{"_id": id}).Decode(&item); err != nil {
		return nil, mapError(err)
	}
	return &item, nil
}

func (s *CartStore) GetByCartAndProduct(ctx context.Context, cartID, productID string) (*models.CartItem, error) {
	var item models.CartItem
	filter := bson.M{"cart_id": cartID, "product_id": productID}
	if err := s.items().FindOne(ctx, filter).Decode(&item); err != nil {
		return nil, mapError(err)
	}
	return &item, nil
}

func (s *CartStore) ListByCart(ctx context.Context, cartID string) ([]*models.CartItem, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := s.items().Find(ctx, bson.M{"cart_id": cartID}, opts)
	if err != nil {
		return nil, mapError(err)
	}

	var items []*models.CartItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, mapError(err)
	}
	return items, nil
}

func (s *CartStore) UpdateQuantity(ctx context.Context, id string, quantity int) error {
	result, err := s.items().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"quantity":   quantity,
		"updated_at": models.GetCurrentTime(),
	}})
	if err != nil {
		return mapError(err)
	}
	if result.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *CartStore) Remove(ctx context.Context, id string) error {
	result, err := s.items().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapError(err)
	}
	if result.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
