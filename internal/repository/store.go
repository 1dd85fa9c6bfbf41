package repository

import (
	"github.com/merchkit/storefront-api/internal/database"
	"github.com/merchkit/storefront-api/internal/store"
	"github.com/merchkit/storefront-api/pkg/logger"
)

// NewStore bundles the Postgres implementations of every store interface
func NewStore(db *database.Database, logger logger.Logger) *store.Store {
	return &store.Store{
		Orders:      NewOrderRepository(db, logger),
		Products:    NewProductRepository(db, logger),
		Categories:  NewCategoryRepository(db, logger),
		Customers:   NewCustomerRepository(db, logger),
		Users:       NewUserRepository(db, logger),
		Settings:    NewSettingRepository(db, logger),
		Metrics:     NewMetricRepository(db, logger),
		Carts:       NewCartRepository(db, logger),
		Outbox:      NewOutboxRepository(db, logger),
		DeadLetters: NewDeadLetterRepository(db, logger),
		Analytics:   NewAnalyticsRepository(db, logger),
	}
}
