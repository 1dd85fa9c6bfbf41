package docstore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/merchkit/storefront-api/internal/models"
	"github.com/merchkit/storefront-api/internal/store"
)

// UserStore implements store.UserStore on Mongo
type UserStore struct {
	ds *DocStore
}

func (s *UserStore) users() *mongo.Collection {
	return s.ds.db.Collection(colUsers)
}

func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	if _, err := s.users().InsertOne(ctx, user); err != nil {
		return mapError(err)
	}
	return nil
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.users().FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.users().FindOne(ctx, bson.M{"email": models.NormalizeEmail(email)}).Decode(&user); err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

// List retrieves users, optionally narrowed to one role
func (s *UserStore) List(ctx context.Context, role string, limit, offset int) ([]*models.User, int, error) {
	query := bson.M{}
	if role != "" {
		query["role"] = role
	}

	total, err := s.users().CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, mapError(err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := s.users().Find(ctx, query, opts)
	if err != nil {
		return nil, 0, mapError(err)
	}

	var users []*models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, 0, mapError(err)
	}

	return users, int(total), nil
}

func (s *UserStore) Update(ctx context.Context, user *models.User) error {
	result, err := s.users().ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		return mapError(err)
	}
	if result.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *UserStore) Delete(ctx context.Context, id string) error {
	result, err := s.users().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapError(err)
	}
	if result.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *UserStore) CountByRole(ctx context.Context, role models.Role) (int, error) {
	count, err := s.users().CountDocuments(ctx, bson.M{"role": string(role)})
	if err != nil {
		return 0, mapError(err)
	}
	return int(count), nil
}
