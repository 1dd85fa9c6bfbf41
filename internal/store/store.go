// Package store defines the backend-neutral persistence interfaces. Both the
// Postgres repositories and the Mongo document stores implement them; services
// depend only on these interfaces.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/merchkit/storefront-api/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
	ErrDatabase  = errors.New("database error")
)

// OrderFilter narrows order listings
type OrderFilter struct {
	Search    string // matches id, customer name, customer email
	Status    string
	From      *time.Time
	To        *time.Time
	MinAmount *float64
	MaxAmount *float64
	SortBy    string // created_at | total_amount
	SortDesc  bool
	Limit     int
	Offset    int
}

// OrderStatusStat is one row of the optional order list statistics block
type OrderStatusStat struct {
	Status  string  `json:"status"`
	Count   int     `json:"count"`
	Revenue float64 `json:"revenue"`
}

// OrderStore persists orders with their items and timeline. Multi-entity
// writes are atomic within each method.
type OrderStore interface {
	// Create writes the order, its items and the outbox message in one
	// unit of work. msg may be nil.
	Create(ctx context.Context, order *models.Order, msg *models.OutboxMessage) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetMany(ctx context.Context, ids []string) ([]*models.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]*models.Order, int, error)
	Stats(ctx context.Context, filter OrderFilter) ([]OrderStatusStat, error)
	// UpdateContact corrects phone/shipping address only
	UpdateContact(ctx context.Context, id, phone, address string) error
	// UpdateStatus writes the new status, the timeline entry and the outbox
	// message in one unit of work
	UpdateStatus(ctx context.Context, order *models.Order, entry *models.TimelineEntry, msg *models.OutboxMessage) error
	// BulkUpdateStatus applies pre-validated transitions atomically: either
	// every order is written or none is
	BulkUpdateStatus(ctx context.Context, orders []*models.Order, entries []*models.TimelineEntry, msgs []*models.OutboxMessage) error
	// Delete removes the order cascading items and timeline in one unit of work
	Delete(ctx context.Context, id string) error
	// HasItemsForProduct reports whether any order item references the product
	HasItemsForProduct(ctx context.Context, productID string) (bool, error)
	// CountForCustomerEmail counts orders attributed to the email
	CountForCustomerEmail(ctx context.Context, email string) (int, error)
	// ListForCustomerEmail returns the order history for a customer
	ListForCustomerEmail(ctx context.Context, email string) ([]*models.Order, error)
	// RollupForCustomerEmail aggregates spend/count/first/last over
	// non-cancelled orders
	RollupForCustomerEmail(ctx context.Context, email string) (CustomerRollup, error)
}

// CustomerRollup is the raw order-history aggregate for one customer
type CustomerRollup struct {
	TotalSpent   float64
	OrderCount   int
	FirstOrderAt *time.Time
	LastOrderAt  *time.Time
}

// ProductFilter narrows product listings
type ProductFilter struct {
	Search      string
	Category    string
	Featured    *bool
	MinPrice    *float64
	MaxPrice    *float64
	MinStock    *int
	MaxStock    *int
	LowStock    bool // stock below the low-stock threshold
	Limit       int
	Offset      int
}

// ProductSales is the sales rollup for one product
type ProductSales struct {
	QuantitySold int     `json:"quantity_sold"`
	Revenue      float64 `json:"revenue"`
}

// ProductStore persists catalog products
type ProductStore interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id string) (*models.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]*models.Product, int, error)
	// Update persists the full product record, optionally with a stock-out
	// outbox message in the same unit of work. msg may be nil.
	Update(ctx context.Context, product *models.Product, msg *models.OutboxMessage) error
	Delete(ctx context.Context, id string) error
	// SalesRollup sums quantity and revenue from order items over the range
	SalesRollup(ctx context.Context, productID string, from, to *time.Time) (ProductSales, error)
}

// CategoryStore persists product categories
type CategoryStore interface {
	Create(ctx context.Context, category *models.Category) error
	List(ctx context.Context) ([]*models.Category, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
}

// CustomerStore persists customers
type CustomerStore interface {
	// Create writes the customer and the outbox message in one unit of
	// work. msg may be nil.
	Create(ctx context.Context, customer *models.Customer, msg *models.OutboxMessage) error
	GetByID(ctx context.Context, id string) (*models.Customer, error)
	GetByEmail(ctx context.Context, email string) (*models.Customer, error)
	List(ctx context.Context, search string, limit, offset int) ([]*models.Customer, int, error)
	Update(ctx context.Context, customer *models.Customer) error
	Delete(ctx context.Context, id string) error
}

// UserStore persists back-office users
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, role string, limit, offset int) ([]*models.User, int, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	CountByRole(ctx context.Context, role models.Role) (int, error)
}

// SettingStore persists raw setting values
type SettingStore interface {
	Get(ctx context.Context, key string) (*models.Setting, error)
	List(ctx context.Context) ([]*models.Setting, error)
	Put(ctx context.Context, setting *models.Setting) error
}

// MetricStore is the append-only metric time series
type MetricStore interface {
	Append(ctx context.Context, point *models.MetricPoint) error
	Range(ctx context.Context, name string, from, to time.Time) ([]*models.MetricPoint, error)
}

// CartStore persists cart items
type CartStore interface {
	Add(ctx context.Context, item *models.CartItem) error
	Get(ctx context.Context, id string) (*models.CartItem, error)
	GetByCartAndProduct(ctx context.Context, cartID, productID string) (*models.CartItem, error)
	ListByCart(ctx context.Context, cartID string) ([]*models.CartItem, error)
	UpdateQuantity(ctx context.Context, id string, quantity int) error
	Remove(ctx context.Context, id string) error
}

// OutboxStore persists outbox messages for the publisher
type OutboxStore interface {
	GetPending(ctx context.Context, limit int) ([]*models.OutboxMessage, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, errorMsg string) error
	MarkPending(ctx context.Context, id string) error
}

// DeadLetterStore persists parked outbox messages
type DeadLetterStore interface {
	Create(ctx context.Context, msg *models.DeadLetterMessage) error
	GetByID(ctx context.Context, id string) (*models.DeadLetterMessage, error)
	List(ctx context.Context, status string, limit, offset int) ([]*models.DeadLetterMessage, error)
	GetPending(ctx context.Context, limit int) ([]*models.DeadLetterMessage, error)
	Update(ctx context.Context, msg *models.DeadLetterMessage) error
}

// DayPoint is one day of the revenue/orders series, as stored (gap-filling is
// done by the aggregator)
type DayPoint struct {
	Date    time.Time
	Revenue float64
	Orders  int
}

// TopProduct is one row of the top-products-by-revenue query
type TopProduct struct {
	ProductID    string
	Name         string
	QuantitySold int
	Revenue      float64
}

// ProductPerformance is one row of the product analytics listing
type ProductPerformance struct {
	ProductID    string
	Name         string
	Category     string
	Price        float64
	SalePrice    *float64
	Stock        int
	QuantitySold int
	Revenue      float64
}

// AnalyticsStore runs the aggregate queries behind the analytics endpoints.
// Revenue aggregates exclude cancelled orders.
type AnalyticsStore interface {
	RevenueTotals(ctx context.Context, from, to *time.Time) (revenue float64, orders int, err error)
	CustomersCreated(ctx context.Context, from, to *time.Time) (int, error)
	ProductsCount(ctx context.Context) (int, error)
	DailySeries(ctx context.Context, from, to *time.Time) ([]DayPoint, error)
	TopProducts(ctx context.Context, from, to *time.Time, limit int) ([]TopProduct, error)
	StatusCounts(ctx context.Context, from, to *time.Time) (map[string]int, error)
	ProductPerformance(ctx context.Context, from, to *time.Time) ([]ProductPerformance, error)
}

// Store bundles every per-entity store a backend provides
type Store struct {
	Orders      OrderStore
	Products    ProductStore
	Categories  CategoryStore
	Customers   CustomerStore
	Users       UserStore
	Settings    SettingStore
	Metrics     MetricStore
	Carts       CartStore
	Outbox      OutboxStore
	DeadLetters DeadLetterStore
	Analytics   AnalyticsStore
}
