package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/merchkit/storefront-api/internal/models"
	"github.com/merchkit/storefront-api/internal/store"
)

// newFakeStore builds a fully in-memory store bundle for service tests
func newFakeStore() (*store.Store, *fakeState) {
	state := &fakeState{
		orders:      make(map[string]*models.Order),
		products:    make(map[string]*models.Product),
		categories:  make(map[string]*models.Category),
		customers:   make(map[string]*models.Customer),
		users:       make(map[string]*models.User),
		settings:    make(map[string]*models.Setting),
		cartItems:   make(map[string]*models.CartItem),
		deadLetters: make(map[string]*models.DeadLetterMessage),
		failSetting: make(map[string]bool),
	}
	return &store.Store{
		Orders:      &fakeOrderStore{state},
		Products:    &fakeProductStore{state},
		Categories:  &fakeCategoryStore{state},
		Customers:   &fakeCustomerStore{state},
		Users:       &fakeUserStore{state},
		Settings:    &fakeSettingStore{state},
		Metrics:     &fakeMetricStore{state},
		Carts:       &fakeCartStore{state},
		Outbox:      &fakeOutboxStore{state},
		DeadLetters: &fakeDeadLetterStore{state},
		Analytics:   &fakeAnalyticsStore{state},
	}, state
}

type fakeState struct {
	orders      map[string]*models.Order
	products    map[string]*models.Product
	categories  map[string]*models.Category
	customers   map[string]*models.Customer
	users       map[string]*models.User
	settings    map[string]*models.Setting
	metrics     []*models.MetricPoint
	cartItems   map[string]*models.CartItem
	outbox      []*models.OutboxMessage
	deadLetters map[string]*models.DeadLetterMessage

	failSetting    map[string]bool // Put on these keys errors
	analyticsCalls int             // every AnalyticsStore method increments
}

type fakeOrderStore struct{ s *fakeState }

func (f *fakeOrderStore) Create(_ context.Context, order *models.Order, msg *models.OutboxMessage) error {
	f.s.orders[order.ID] = order
	if msg != nil {
		f.s.outbox = append(f.s.outbox, msg)
	}
	return nil
}

func (f *fakeOrderStore) GetByID(_ context.Context, id string) (*models.Order, error) {
	order, ok := f.s.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return order, nil
}

func (f *fakeOrderStore) GetMany(_ context.Context, ids []string) ([]*models.Order, error) {
	var orders []*models.Order
	for _, id := range ids {
		if order, ok := f.s.orders[id]; ok {
			orders = append(orders, order)
		}
	}
	return orders, nil
}

func (f *fakeOrderStore) List(_ context.Context, filter store.OrderFilter) ([]*models.Order, int, error) {
	var orders []*models.Order
	for _, order := range f.s.orders {
		if filter.Status != "" && string(order.Status) != filter.Status {
			continue
		}
		orders = append(orders, order)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
	return orders, len(orders), nil
}

func (f *fakeOrderStore) Stats(_ context.Context, _ store.OrderFilter) ([]store.OrderStatusStat, error) {
	byStatus := make(map[string]*store.OrderStatusStat)
	for _, order := range f.s.orders {
		stat, ok := byStatus[string(order.Status)]
		if !ok {
			stat = &store.OrderStatusStat{Status: string(order.Status)}
			byStatus[string(order.Status)] = stat
		}
		stat.Count++
		stat.Revenue += order.TotalAmount
	}
	var stats []store.OrderStatusStat
	for _, stat := range byStatus {
		stats = append(stats, *stat)
	}
	return stats, nil
}

func (f *fakeOrderStore) UpdateContact(_ context.Context, id, phone, address string) error {
	order, ok := f.s.orders[id]
	if !ok {
		return store.ErrNotFound
	}
	order.CustomerPhone = phone
	order.ShippingAddress = address
	return nil
}

func (f *fakeOrderStore) UpdateStatus(_ context.Context, order *models.Order, entry *models.TimelineEntry, msg *models.OutboxMessage) error {
	stored, ok := f.s.orders[order.ID]
	if !ok {
		return store.ErrNotFound
	}
	stored.Status = order.Status
	stored.UpdatedAt = order.UpdatedAt
	if entry != nil {
		stored.Timeline = append(stored.Timeline, entry)
	}
	if msg != nil {
		f.s.outbox = append(f.s.outbox, msg)
	}
	return nil
}

func (f *fakeOrderStore) BulkUpdateStatus(ctx context.Context, orders []*models.Order, entries []*models.TimelineEntry, msgs []*models.OutboxMessage) error {
	for i, order := range orders {
		var entry *models.TimelineEntry
		if i < len(entries) {
			entry = entries[i]
		}
		var msg *models.OutboxMessage
		if i < len(msgs) {
			msg = msgs[i]
		}
		if err := f.UpdateStatus(ctx, order, entry, msg); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeOrderStore) Delete(_ context.Context, id string) error {
	if _, ok := f.s.orders[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.s.orders, id)
	return nil
}

func (f *fakeOrderStore) HasItemsForProduct(_ context.Context, productID string) (bool, error) {
	for _, order := range f.s.orders {
		for _, item := range order.Items {
			if item.ProductID == productID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (f *fakeOrderStore) CountForCustomerEmail(_ context.Context, email string) (int, error) {
	count := 0
	for _, order := range f.s.orders {
		if order.CustomerEmail == email {
			count++
		}
	}
	return count, nil
}

func (f *fakeOrderStore) ListForCustomerEmail(_ context.Context, email string) ([]*models.Order, error) {
	var orders []*models.Order
	for _, order := range f.s.orders {
		if order.CustomerEmail == email {
			orders = append(orders, order)
		}
	}
	return orders, nil
}

func (f *fakeOrderStore) RollupForCustomerEmail(_ context.Context, email string) (store.CustomerRollup, error) {
	var rollup store.CustomerRollup
	for _, order := range f.s.orders {
		if order.CustomerEmail != email || order.Status == models.OrderStatusCancelled {
			continue
		}
		rollup.TotalSpent += order.TotalAmount
		rollup.OrderCount++
		created := order.CreatedAt
		if rollup.FirstOrderAt == nil || created.Before(*rollup.FirstOrderAt) {
			rollup.FirstOrderAt = &created
		}
		if rollup.LastOrderAt == nil || created.After(*rollup.LastOrderAt) {
			rollup.LastOrderAt = &created
		}
	}
	return rollup, nil
}

type fakeProductStore struct{ s *fakeState }

func (f *fakeProductStore) Create(_ context.Context, product *models.Product) error {
	f.s.products[product.ID] = product
	return nil
}

func (f *fakeProductStore) GetByID(_ context.Context, id string) (*models.Product, error) {
	product, ok := f.s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return product, nil
}

func (f *fakeProductStore) List(_ context.Context, filter store.ProductFilter) ([]*models.Product, int, error) {
	var products []*models.Product
	for _, product := range f.s.products {
		if filter.Category != "" && product.Category != filter.Category {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(product.Name), strings.ToLower(filter.Search)) {
			continue
		}
		products = append(products, product)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, len(products), nil
}

func (f *fakeProductStore) Update(_ context.Context, product *models.Product, msg *models.OutboxMessage) error {
	if _, ok := f.s.products[product.ID]; !ok {
		return store.ErrNotFound
	}
	f.s.products[product.ID] = product
	if msg != nil {
		f.s.outbox = append(f.s.outbox, msg)
	}
	return nil
}

func (f *fakeProductStore) Delete(_ context.Context, id string) error {
	if _, ok := f.s.products[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.s.products, id)
	return nil
}

func (f *fakeProductStore) SalesRollup(_ context.Context, productID string, _, _ *time.Time) (store.ProductSales, error) {
	var sales store.ProductSales
	for _, order := range f.s.orders {
		if order.Status == models.OrderStatusCancelled {
			continue
		}
		for _, item := range order.Items {
			if item.ProductID == productID {
				sales.QuantitySold += item.Quantity
				sales.Revenue += float64(item.Quantity) * item.UnitPrice
			}
		}
	}
	return sales, nil
}

type fakeCategoryStore struct{ s *fakeState }

func (f *fakeCategoryStore) Create(_ context.Context, category *models.Category) error {
	for _, existing := range f.s.categories {
		if existing.Name == category.Name {
			return store.ErrDuplicate
		}
	}
	f.s.categories[category.ID] = category
	return nil
}

func (f *fakeCategoryStore) List(_ context.Context) ([]*models.Category, error) {
	var categories []*models.Category
	for _, category := range f.s.categories {
		categories = append(categories, category)
	}
	return categories, nil
}

func (f *fakeCategoryStore) ExistsByName(_ context.Context, name string) (bool, error) {
	for _, category := range f.s.categories {
		if category.Name == name {
			return true, nil
		}
	}
	return false, nil
}

type fakeCustomerStore struct{ s *fakeState }

func (f *fakeCustomerStore) Create(_ context.Context, customer *models.Customer, msg *models.OutboxMessage) error {
	for _, existing := range f.s.customers {
		if existing.Email == customer.Email {
			return store.ErrDuplicate
		}
	}
	f.s.customers[customer.ID] = customer
	if msg != nil {
		f.s.outbox = append(f.s.outbox, msg)
	}
	return nil
}

func (f *fakeCustomerStore) GetByID(_ context.Context, id string) (*models.Customer, error) {
	customer, ok := f.s.customers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return customer, nil
}

func (f *fakeCustomerStore) GetByEmail(_ context.Context, email string) (*models.Customer, error) {
	for _, customer := range f.s.customers {
		if customer.Email == email {
			return customer, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeCustomerStore) List(_ context.Context, search string, _, _ int) ([]*models.Customer, int, error) {
	var customers []*models.Customer
	for _, customer := range f.s.customers {
		if search != "" && !strings.Contains(strings.ToLower(customer.Name), strings.ToLower(search)) {
			continue
		}
		customers = append(customers, customer)
	}
	sort.Slice(customers, func(i, j int) bool { return customers[i].ID < customers[j].ID })
	return customers, len(customers), nil
}

func (f *fakeCustomerStore) Update(_ context.Context, customer *models.Customer) error {
	if _, ok := f.s.customers[customer.ID]; !ok {
		return store.ErrNotFound
	}
	for _, existing := range f.s.customers {
		if existing.ID != customer.ID && existing.Email == customer.Email {
			return store.ErrDuplicate
		}
	}
	f.s.customers[customer.ID] = customer
	return nil
}

func (f *fakeCustomerStore) Delete(_ context.Context, id string) error {
	if _, ok := f.s.customers[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.s.customers, id)
	return nil
}

type fakeUserStore struct{ s *fakeState }

func (f *fakeUserStore) Create(_ context.Context, user *models.User) error {
	for _, existing := range f.s.users {
		if existing.Email == user.Email {
			return store.ErrDuplicate
		}
	}
	f.s.users[user.ID] = user
	return nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id string) (*models.User, error) {
	user, ok := f.s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, user := range f.s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeUserStore) List(_ context.Context, role string, _, _ int) ([]*models.User, int, error) {
	var users []*models.User
	for _, user := range f.s.users {
		if role != "" && string(user.Role) != role {
			continue
		}
		users = append(users, user)
	}
	return users, len(users), nil
}

func (f *fakeUserStore) Update(_ context.Context, user *models.User) error {
	if _, ok := f.s.users[user.ID]; !ok {
		return store.ErrNotFound
	}
	f.s.users[user.ID] = user
	return nil
}

func (f *fakeUserStore) Delete(_ context.Context, id string) error {
	if _, ok := f.s.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.s.users, id)
	return nil
}

func (f *fakeUserStore) CountByRole(_ context.Context, role models.Role) (int, error) {
	count := 0
	for _, user := range f.s.users {
		if user.Role == role {
			count++
		}
	}
	return count, nil
}

type fakeSettingStore struct{ s *fakeState }

func (f *fakeSettingStore) Get(_ context.Context, key string) (*models.Setting, error) {
	setting, ok := f.s.settings[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return setting, nil
}

func (f *fakeSettingStore) List(_ context.Context) ([]*models.Setting, error) {
	var settings []*models.Setting
	for _, setting := range f.s.settings {
		settings = append(settings, setting)
	}
	return settings, nil
}

func (f *fakeSettingStore) Put(_ context.Context, setting *models.Setting) error {
	if f.s.failSetting[setting.Key] {
		return fmt.Errorf("%w: write refused", store.ErrDatabase)
	}
	f.s.settings[setting.Key] = setting
	return nil
}

type fakeMetricStore struct{ s *fakeState }

func (f *fakeMetricStore) Append(_ context.Context, point *models.MetricPoint) error {
	f.s.metrics = append(f.s.metrics, point)
	return nil
}

func (f *fakeMetricStore) Range(_ context.Context, name string, from, to time.Time) ([]*models.MetricPoint, error) {
	var points []*models.MetricPoint
	for _, point := range f.s.metrics {
		if point.Name == name && !point.Date.Before(from) && !point.Date.After(to) {
			points = append(points, point)
		}
	}
	return points, nil
}

type fakeCartStore struct{ s *fakeState }

func (f *fakeCartStore) Add(_ context.Context, item *models.CartItem) error {
	f.s.cartItems[item.ID] = item
	return nil
}

func (f *fakeCartStore) Get(_ context.Context, id string) (*models.CartItem, error) {
	item, ok := f.s.cartItems[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return item, nil
}

func (f *fakeCartStore) GetByCartAndProduct(_ context.Context, cartID, productID string) (*models.CartItem, error) {
	for _, item := range f.s.cartItems {
		if item.CartID == cartID && item.ProductID == productID {
			return item, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeCartStore) ListByCart(_ context.Context, cartID string) ([]*models.CartItem, error) {
	var items []*models.CartItem
	for _, item := range f.s.cartItems {
		if item.CartID == cartID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (f *fakeCartStore) UpdateQuantity(_ context.Context, id string, quantity int) error {
	item, ok := f.s.cartItems[id]
	if !ok {
		return store.ErrNotFound
	}
	item.Quantity = quantity
	return nil
}

func (f *fakeCartStore) Remove(_ context.Context, id string) error {
	if _, ok := f.s.cartItems[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.s.cartItems, id)
	return nil
}

type fakeOutboxStore struct{ s *fakeState }

func (f *fakeOutboxStore) GetPending(_ context.Context, limit int) ([]*models.OutboxMessage, error) {
	var pending []*models.OutboxMessage
	for _, msg := range f.s.outbox {
		if msg.Status == models.OutboxStatusPending {
			pending = append(pending, msg)
			if len(pending) == limit {
				break
			}
		}
	}
	return pending, nil
}

func (f *fakeOutboxStore) find(id string) (*models.OutboxMessage, error) {
	for _, msg := range f.s.outbox {
		if msg.ID == id {
			return msg, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeOutboxStore) MarkProcessing(_ context.Context, id string) error {
	msg, err := f.find(id)
	if err != nil {
		return err
	}
	msg.Status = models.OutboxStatusProcessing
	msg.ProcessingAttempts++
	return nil
}

func (f *fakeOutboxStore) MarkCompleted(_ context.Context, id string) error {
	msg, err := f.find(id)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	msg.Status = models.OutboxStatusCompleted
	msg.ProcessedAt = &now
	return nil
}

func (f *fakeOutboxStore) MarkFailed(_ context.Context, id string, errorMsg string) error {
	msg, err := f.find(id)
	if err != nil {
		return err
	}
	msg.Status = models.OutboxStatusFailed
	msg.LastError = &errorMsg
	return nil
}

func (f *fakeOutboxStore) MarkPending(_ context.Context, id string) error {
	msg, err := f.find(id)
	if err != nil {
		return err
	}
	msg.Status = models.OutboxStatusPending
	msg.LastError = nil
	return nil
}

type fakeDeadLetterStore struct{ s *fakeState }

func (f *fakeDeadLetterStore) Create(_ context.Context, msg *models.DeadLetterMessage) error {
	f.s.deadLetters[msg.ID] = msg
	return nil
}

func (f *fakeDeadLetterStore) GetByID(_ context.Context, id string) (*models.DeadLetterMessage, error) {
	msg, ok := f.s.deadLetters[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return msg, nil
}

func (f *fakeDeadLetterStore) List(_ context.Context, status string, _, _ int) ([]*models.DeadLetterMessage, error) {
	var messages []*models.DeadLetterMessage
	for _, msg := range f.s.deadLetters {
		if status != "" && string(msg.Status) != status {
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (f *fakeDeadLetterStore) GetPending(_ context.Context, limit int) ([]*models.DeadLetterMessage, error) {
	var pending []*models.DeadLetterMessage
	for _, msg := range f.s.deadLetters {
		if msg.Status == models.DeadLetterStatusPending {
			pending = append(pending, msg)
			if len(pending) == limit {
				break
			}
		}
	}
	return pending, nil
}

func (f *fakeDeadLetterStore) Update(_ context.Context, msg *models.DeadLetterMessage) error {
	if _, ok := f.s.deadLetters[msg.ID]; !ok {
		return store.ErrNotFound
	}
	f.s.deadLetters[msg.ID] = msg
	return nil
}

type fakeAnalyticsStore struct{ s *fakeState }

func (f *fakeAnalyticsStore) RevenueTotals(_ context.Context, from, to *time.Time) (float64, int, error) {
	f.s.analyticsCalls++
	var revenue float64
	orders := 0
	for _, order := range f.s.orders {
		if order.Status == models.OrderStatusCancelled {
			continue
		}
		if from != nil && order.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && order.CreatedAt.After(*to) {
			continue
		}
		revenue += order.TotalAmount
		orders++
	}
	return revenue, orders, nil
}

func (f *fakeAnalyticsStore) CustomersCreated(_ context.Context, from, to *time.Time) (int, error) {
	f.s.analyticsCalls++
	count := 0
	for _, customer := range f.s.customers {
		if from != nil && customer.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && customer.CreatedAt.After(*to) {
			continue
		}
		count++
	}
	return count, nil
}

func (f *fakeAnalyticsStore) ProductsCount(_ context.Context) (int, error) {
	f.s.analyticsCalls++
	return len(f.s.products), nil
}

func (f *fakeAnalyticsStore) DailySeries(_ context.Context, from, to *time.Time) ([]store.DayPoint, error) {
	f.s.analyticsCalls++
	byDay := make(map[time.Time]*store.DayPoint)
	for _, order := range f.s.orders {
		if order.Status == models.OrderStatusCancelled {
			continue
		}
		if from != nil && order.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && order.CreatedAt.After(*to) {
			continue
		}
		day := order.CreatedAt.UTC().Truncate(24 * time.Hour)
		point, ok := byDay[day]
		if !ok {
			point = &store.DayPoint{Date: day}
			byDay[day] = point
		}
		point.Revenue += order.TotalAmount
		point.Orders++
	}
	var points []store.DayPoint
	for _, point := range byDay {
		points = append(points, *point)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, nil
}

func (f *fakeAnalyticsStore) TopProducts(_ context.Context, from, to *time.Time, limit int) ([]store.TopProduct, error) {
	f.s.analyticsCalls++
	byProduct := make(map[string]*store.TopProduct)
	for _, order := range f.s.orders {
		if order.Status == models.OrderStatusCancelled {
			continue
		}
		if from != nil && order.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && order.CreatedAt.After(*to) {
			continue
		}
		for _, item := range order.Items {
			top, ok := byProduct[item.ProductID]
			if !ok {
				top = &store.TopProduct{ProductID: item.ProductID}
				if product, exists := f.s.products[item.ProductID]; exists {
					top.Name = product.Name
				}
				byProduct[item.ProductID] = top
			}
			top.QuantitySold += item.Quantity
			top.Revenue += float64(item.Quantity) * item.UnitPrice
		}
	}
	var top []store.TopProduct
	for _, row := range byProduct {
		top = append(top, *row)
	}
	sort.Slice(top, func(i, j int) bool { return top[i].Revenue > top[j].Revenue })
	if len(top) > limit {
		top = top[:limit]
	}
	return top, nil
}

func (f *fakeAnalyticsStore) StatusCounts(_ context.Context, from, to *time.Time) (map[string]int, error) {
	f.s.analyticsCalls++
	counts := make(map[string]int)
	for _, order := range f.s.orders {
		if from != nil && order.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && order.CreatedAt.After(*to) {
			continue
		}
		counts[string(order.Status)]++
	}
	return counts, nil
}

func (f *fakeAnalyticsStore) ProductPerformance(_ context.Context, from, to *time.Time) ([]store.ProductPerformance, error) {
	f.s.analyticsCalls++
	var perf []store.ProductPerformance
	for _, product := range f.s.products {
		row := store.ProductPerformance{
			ProductID: product.ID,
			Name:      product.Name,
			Category:  product.Category,
			Price:     product.Price,
			SalePrice: product.SalePrice,
			Stock:     product.StockQuantity,
		}
		for _, order := range f.s.orders {
			if order.Status == models.OrderStatusCancelled {
				continue
			}
			if from != nil && order.CreatedAt.Before(*from) {
				continue
			}
			if to != nil && order.CreatedAt.After(*to) {
				continue
			}
			for _, item := range order.Items {
				if item.ProductID == product.ID {
					row.QuantitySold += item.Quantity
					row.Revenue += float64(item.Quantity) * item.UnitPrice
				}
			}
		}
		perf = append(perf, row)
	}
	sort.Slice(perf, func(i, j int) bool { return perf[i].ProductID < perf[j].ProductID })
	return perf, nil
}
