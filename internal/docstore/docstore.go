// Package docstore implements the store interfaces on MongoDB. Orders are
// stored as single documents embedding their items and timeline; multi-entity
// writes run inside session transactions.
package docstore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/merchkit/storefront-api/internal/config"
	"github.com/merchkit/storefront-api/internal/store"
	"github.com/merchkit/storefront-api/pkg/logger"
)

// Collection names
const (
	colOrders      = "orders"
	colProducts    = "products"
	colCategories  = "categories"
	colCustomers   = "customers"
	colUsers       = "users"
	colSettings    = "settings"
	colMetrics     = "metrics"
	colCartItems   = "cart_items"
	colOutbox      = "outbox_messages"
	colDeadLetters = "dead_letters"
)

// DocStore wraps the Mongo client and database handles
type DocStore struct {
	client *mongo.Client
	db     *mongo.Database
	logger logger.Logger
}

// Connect opens the Mongo connection and verifies it
func Connect(ctx context.Context, cfg *config.Config, logger logger.Logger) (*DocStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	logger.Info("Connected to document store", "database", cfg.Mongo.Database)

	return &DocStore{
		client: client,
		db:     client.Database(cfg.Mongo.Database),
		logger: logger,
	}, nil
}

// Close disconnects the client
func (d *DocStore) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

// EnsureIndexes creates the unique and query indexes the stores rely on
func (d *DocStore) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)

	indexes := []struct {
		col  string
		keys bson.D
		opts *options.IndexOptions
	}{
		{colCustomers, bson.D{{Key: "email", Value: 1}}, unique},
		{colUsers, bson.D{{Key: "email", Value: 1}}, unique},
		{colCategories, bson.D{{Key: "name", Value: 1}}, unique},
		{colOrders, bson.D{{Key: "status", Value: 1}}, nil},
		{colOrders, bson.D{{Key: "customer_email", Value: 1}}, nil},
		{colOrders, bson.D{{Key: "created_at", Value: 1}}, nil},
		{colOutbox, bson.D{{Key: "status", Value: 1}}, nil},
		{colDeadLetters, bson.D{{Key: "status", Value: 1}}, nil},
		{colMetrics, bson.D{{Key: "name", Value: 1}, {Key: "date", Value: 1}}, nil},
		{colCartItems, bson.D{{Key: "cart_id", Value: 1}}, nil},
	}

	for _, idx := range indexes {
		model := mongo.IndexModel{Keys: idx.keys, Options: idx.opts}
		if _, err := d.db.Collection(idx.col).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", idx.col, err)
		}
	}

	d.logger.Info("Document store indexes ensured")
	return nil
}

// withTx runs fn inside a session transaction
func (d *DocStore) withTx(ctx context.Context, fn func(sessCtx mongo.SessionContext) error) error {
	session, err := d.client.StartSession()
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		if err := fn(sessCtx); err != nil {
			return nil, err
		}
		return nil, nil
	})

	return err
}

// mapError normalizes driver errors onto the store sentinels
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if err == mongo.ErrNoDocuments {
		return store.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrDuplicate
	}
	return fmt.Errorf("%w: %v", store.ErrDatabase, err)
}

// NewStore bundles the Mongo implementations of every store interface
func (d *DocStore) NewStore() *store.Store {
	return &store.Store{
		Orders:      &OrderStore{d},
		Products:    &ProductStore{d},
		Categories:  &CategoryStore{d},
		Customers:   &CustomerStore{d},
		Users:       &UserStore{d},
		Settings:    &SettingStore{d},
		Metrics:     &MetricStore{d},
		Carts:       &CartStore{d},
		Outbox:      &OutboxStore{d},
		DeadLetters: &DeadLetterStore{d},
		Analytics:   &AnalyticsStore{d},
	}
}
