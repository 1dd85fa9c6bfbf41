package docstore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/merchkit/storefront-api/internal/models"
)

// SettingStore implements store.SettingStore on Mongo, keyed by setting key
type SettingStore struct {
	ds *DocStore
}

func (s *SettingStore) settings() *mongo.Collection {
	return s.ds.db.Collection(colSettings)
}

func (s *SettingStore) Get(ctx context.Context, key string) (*models.Setting, error) {
	var setting models.Setting
	if err := s.settings().FindOne(ctx, bson.M{"_id": key}).Decode(&setting); err != nil {
		return nil, mapError(err)
	}
	return &setting, nil
}

func (s *SettingStore) List(ctx context.Context) ([]*models.Setting, error) {
	cursor, err := s.settings().Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, mapError(err)
	}

	var settings []*models.Setting
	if err := cursor.All(ctx, &settings); err != nil {
		return nil, mapError(err)
	}
	return settings, nil
}

// Put upserts the setting value
func (s *SettingStore) Put(ctx context.Context, setting *models.Setting) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := s.settings().ReplaceOne(ctx, bson.M{"_id": setting.Key}, setting, opts); err != nil {
		return mapError(err)
	}
	return nil
}

// MetricStore implements store.MetricStore on Mongo
type MetricStore struct {
	ds *DocStore
}

func (s *MetricStore) metrics() *mongo.Collection {
	return s.ds.db.Collection(colMetrics)
}

func (s *MetricStore) Append(ctx context.Context, point *models.MetricPoint) error {
	if _, err := s.metrics().InsertOne(ctx, point); err != nil {
		return mapError(err)
	}
	return nil
}

func (s *MetricStore) Range(ctx context.Context, name string, from, to time.Time) ([]*models.MetricPoint, error) {
	query := bson.M{
		"name": name,
		"date": bson.M{"$gte": from, "$lte": to},
	}

	cursor, err := s.metrics().Find(ctx, query, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, mapError(err)
	}

	var points []*models.MetricPoint
	if err := cursor.All(ctx, &points); err != nil {
		return nil, mapError(err)
	}
	return points, nil
}
