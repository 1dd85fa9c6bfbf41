package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merchkit/storefront-api/internal/models"
	"github.com/merchkit/storefront-api/pkg/apperrors"
	"github.com/merchkit/storefront-api/pkg/logger"
)

func TestResolveWindowRejectsGranularityBeforeQuerying(t *testing.T) {
	st, state := newFakeStore()
	svc := NewAnalyticsService(st, nil, logger.NewNopLogger())

	_, _, err := svc.ResolveWindow("", "", "7d", "hourly")
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "INVALID_GRANULARITY", appErr.Code)
	assert.Equal(t, 400, appErr.StatusCode)
	assert.Zero(t, state.analyticsCalls)
}

func TestBuildReportExcludesCancelledRevenue(t *testing.T) {
	st, state := newFakeStore()
	svc := NewAnalyticsService(st, nil, logger.NewNopLogger())

	seedOrder(state, "a@b.co", 100, models.OrderStatusDelivered)
	seedOrder(state, "a@b.co", 40, models.OrderStatusPending)
	seedOrder(state, "a@b.co", 999, models.OrderStatusCancelled)

	period, granularity, err := svc.ResolveWindow("", "", "all", "daily")
	require.NoError(t, err)

	report, err := svc.BuildReport(context.Background(), period, granularity)
	require.NoError(t, err)

	assert.Equal(t, 140.0, report.Overview.Revenue.Value)
	assert.Equal(t, 2.0, report.Overview.Orders.Value)
	assert.Equal(t, 70.0, report.Overview.AvgOrderValue.Value)
	// no prior window data means zero growth, not a division blowup
	assert.Equal(t, 0.0, report.Overview.Revenue.Growth)

	// the breakdown still counts cancelled orders
	total := 0
	for _, slice := range report.Breakdown {
		total += slice.Count
	}
	assert.Equal(t, 3, total)
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.data[key]
	return value, ok
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.sets++
}

func TestDashboardServedFromCache(t *testing.T) {
	st, state := newFakeStore()
	cache := &memoryCache{data: make(map[string][]byte)}
	svc := NewAnalyticsService(st, cache, logger.NewNopLogger())

	seedOrder(state, "a@b.co", 100, models.OrderStatusDelivered)

	period, granularity, err := svc.ResolveWindow("", "", "all", "daily")
	require.NoError(t, err)

	first, err := svc.Dashboard(context.Background(), period, granularity)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)
	callsAfterMiss := state.analyticsCalls

	second, err := svc.Dashboard(context.Background(), period, granularity)
	require.NoError(t, err)
	assert.Equal(t, first.Overview.Revenue.Value, second.Overview.Revenue.Value)
	// the hit never touched the store
	assert.Equal(t, callsAfterMiss, state.analyticsCalls)
}

func TestProductsAnalyticsFigures(t *testing.T) {
	st, state := newFakeStore()
	svc := NewAnalyticsService(st, nil, logger.NewNopLogger())

	product := seedProduct(state, "Hoodie", 100, 10)
	salePrice := 60.0
	product.SalePrice = &salePrice
	order := seedOrder(state, "a@b.co", 500, models.OrderStatusDelivered)
	order.Items = append(order.Items, models.NewOrderItem(order.ID, product.ID, 5, 100, "M", "black"))

	period, _, err := svc.ResolveWindow("", "", "30d", "daily")
	require.NoError(t, err)

	rows, err := svc.ProductsAnalytics(context.Background(), period)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, 5, row.QuantitySold)
	assert.Equal(t, 500.0, row.Revenue)
	// cost is the sale price, so margin = (100 - 60) / 100
	assert.Equal(t, 40.0, row.Margin)
	assert.Equal(t, 0.5, row.Turnover)
	assert.Equal(t, 60.0, row.DaysToSell)
}

func TestProductMarginWithoutSalePrice(t *testing.T) {
	st, state := newFakeStore()
	svc := NewAnalyticsService(st, nil, logger.NewNopLogger())

	seedProduct(state, "Beanie", 100, 10)

	period, _, err := svc.ResolveWindow("", "", "30d", "daily")
	require.NoError(t, err)

	rows, err := svc.ProductsAnalytics(context.Background(), period)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	// cost falls back to the list price when no sale price is set
	assert.Equal(t, 0.0, rows[0].Margin)
}
