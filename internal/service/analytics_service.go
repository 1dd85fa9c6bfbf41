package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/merchkit/storefront-api/internal/analytics"
	"github.com/merchkit/storefront-api/internal/models"
	"github.com/merchkit/storefront-api/internal/store"
	"github.com/merchkit/storefront-api/pkg/apperrors"
	"github.com/merchkit/storefront-api/pkg/logger"
)

// SnapshotCache caches serialized dashboard snapshots. A nil cache disables
// caching entirely.
type SnapshotCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
}

// AnalyticsService runs the aggregate reporting queries
type AnalyticsService struct {
	store  *store.Store
	cache  SnapshotCache
	logger logger.Logger
	now    func() time.Time
}

// NewAnalyticsService creates a new AnalyticsService. cache may be nil.
func NewAnalyticsService(st *store.Store, cache SnapshotCache, logger logger.Logger) *AnalyticsService {
	return &AnalyticsService{store: st, cache: cache, logger: logger, now: models.GetCurrentTime}
}

// OverviewMetric is one headline figure with growth vs the prior window
type OverviewMetric struct {
	Value  float64 `json:"value"`
	Growth float64 `json:"growth"`
}

// Overview is the dashboard headline block
type Overview struct {
	Revenue       OverviewMetric `json:"revenue"`
	Orders        OverviewMetric `json:"orders"`
	Customers     OverviewMetric `json:"customers"`
	AvgOrderValue OverviewMetric `json:"avg_order_value"`
	Products      int            `json:"products"`
}

// TopProductRow is one top seller with growth vs the prior window
type TopProductRow struct {
	ProductID    string  `json:"product_id"`
	Name         string  `json:"name"`
	QuantitySold int     `json:"quantity_sold"`
	Revenue      float64 `json:"revenue"`
	Growth       float64 `json:"growth"`
}

// Report is the full analytics payload
type Report struct {
	Overview    Overview                `json:"overview"`
	Series      []analytics.SeriesPoint `json:"series"`
	TopProducts []TopProductRow         `json:"top_products"`
	Breakdown   []analytics.StatusSlice `json:"status_breakdown"`
}

// ProductReportRow is one product with profitability and turnover figures
type ProductReportRow struct {
	ProductID    string   `json:"product_id"`
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	Price        float64  `json:"price"`
	SalePrice    *float64 `json:"sale_price,omitempty"`
	Stock        int      `json:"stock"`
	QuantitySold int      `json:"quantity_sold"`
	Revenue      float64  `json:"revenue"`
	Margin       float64  `json:"margin"`
	Turnover     float64  `json:"turnover"`
	DaysToSell   float64  `json:"days_to_sell"`
}

// OrdersReport is the orders analytics payload
type OrdersReport struct {
	Series    []analytics.SeriesPoint `json:"series"`
	Breakdown []analytics.StatusSlice `json:"status_breakdown"`
	Stats     []store.OrderStatusStat `json:"stats"`
}

var breakdownStatuses = []string{
	string(models.OrderStatusPending),
	string(models.OrderStatusProcessing),
	string(models.OrderStatusShipped),
	string(models.OrderStatusDelivered),
	string(models.OrderStatusCancelled),
}

// ResolveWindow parses the period/granularity query inputs. An invalid
// granularity is rejected before any store access.
func (s *AnalyticsService) ResolveWindow(fromStr, toStr, period, granularity string) (analytics.Period, analytics.Granularity, error) {
	g := analytics.GranularityDaily
	if granularity != "" {
		if !analytics.ValidGranularity(granularity) {
			return analytics.Period{}, "", apperrors.NewValidation("INVALID_GRANULARITY",
				fmt.Sprintf("unknown granularity %q", granularity))
		}
		g = analytics.Granularity(granularity)
	}
	return analytics.ParsePeriod(fromStr, toStr, period, s.now()), g, nil
}

type overviewTotals struct {
	revenue   float64
	orders    int
	customers int
	products  int
}

// fetchTotals dispatches the overview sub-queries concurrently and joins them
func (s *AnalyticsService) fetchTotals(ctx context.Context, p analytics.Period) (overviewTotals, error) {
	var (
		totals overviewTotals
		wg     sync.WaitGroup
		mu     sync.Mutex
		first  error
	)

	fail := func(err error) {
		mu.Lock()
		if first == nil {
			first = err
		}
		mu.Unlock()
	}

	wg.Add(3)
	go func() {
		defer wg.Done()
		revenue, orders, err := s.store.Analytics.RevenueTotals(ctx, p.From, p.To)
		if err != nil {
			fail(err)
			return
		}
		mu.Lock()
		totals.revenue = revenue
		totals.orders = orders
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		customers, err := s.store.Analytics.CustomersCreated(ctx, p.From, p.To)
		if err != nil {
			fail(err)
			return
		}
		mu.Lock()
		totals.customers = customers
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		products, err := s.store.Analytics.ProductsCount(ctx)
		if err != nil {
			fail(err)
			return
		}
		mu.Lock()
		totals.products = products
		mu.Unlock()
	}()
	wg.Wait()

	return totals, first
}

func (s *AnalyticsService) buildOverview(ctx context.Context, p analytics.Period) (Overview, error) {
	current, err := s.fetchTotals(ctx, p)
	if err != nil {
		return Overview{}, err
	}

	var prior overviewTotals
	if prev := p.Previous(); prev.From != nil {
		prior, err = s.fetchTotals(ctx, prev)
		if err != nil {
			return Overview{}, err
		}
	}

	currentAOV := 0.0
	if current.orders > 0 {
		currentAOV = current.revenue / float64(current.orders)
	}
	priorAOV := 0.0
	if prior.orders > 0 {
		priorAOV = prior.revenue / float64(prior.orders)
	}

	return Overview{
		Revenue:       OverviewMetric{Value: analytics.Round2(current.revenue), Growth: analytics.Growth(current.revenue, prior.revenue)},
		Orders:        OverviewMetric{Value: float64(current.orders), Growth: analytics.Growth(float64(current.orders), float64(prior.orders))},
		Customers:     OverviewMetric{Value: float64(current.customers), Growth: analytics.Growth(float64(current.customers), float64(prior.customers))},
		AvgOrderValue: OverviewMetric{Value: analytics.Round2(currentAOV), Growth: analytics.Growth(currentAOV, priorAOV)},
		Products:      current.products,
	}, nil
}

func (s *AnalyticsService) buildTopProducts(ctx context.Context, p analytics.Period, limit int) ([]TopProductRow, error) {
	top, err := s.store.Analytics.TopProducts(ctx, p.From, p.To, limit)
	if err != nil {
		return nil, err
	}

	priorRevenue := make(map[string]float64)
	if prev := p.Previous(); prev.From != nil {
		priorTop, err := s.store.Analytics.TopProducts(ctx, prev.From, prev.To, limit)
		if err != nil {
			return nil, err
		}
		for _, row := range priorTop {
			priorRevenue[row.ProductID] = row.Revenue
		}
	}

	rows := make([]TopProductRow, 0, len(top))
	for _, row := range top {
		rows = append(rows, TopProductRow{
			ProductID:    row.ProductID,
			Name:         row.Name,
			QuantitySold: row.QuantitySold,
			Revenue:      analytics.Round2(row.Revenue),
			Growth:       analytics.Growth(row.Revenue, priorRevenue[row.ProductID]),
		})
	}
	return rows, nil
}

const topProductsLimit = 5

// BuildReport assembles the full analytics payload for the window
func (s *AnalyticsService) BuildReport(ctx context.Context, p analytics.Period, g analytics.Granularity) (*Report, error) {
	overview, err := s.buildOverview(ctx, p)
	if err != nil {
		return nil, err
	}

	days, err := s.store.Analytics.DailySeries(ctx, p.From, p.To)
	if err != nil {
		return nil, err
	}

	top, err := s.buildTopProducts(ctx, p, topProductsLimit)
	if err != nil {
		return nil, err
	}

	counts, err := s.store.Analytics.StatusCounts(ctx, p.From, p.To)
	if err != nil {
		return nil, err
	}

	return &Report{
		Overview:    overview,
		Series:      analytics.FillSeries(days, p, g),
		TopProducts: top,
		Breakdown:   analytics.StatusBreakdown(counts, breakdownStatuses),
	}, nil
}

// Dashboard returns the cached report snapshot for the window, building and
// caching it on a miss
func (s *AnalyticsService) Dashboard(ctx context.Context, p analytics.Period, g analytics.Granularity) (*Report, error) {
	key := dashboardCacheKey(p, g)

	if s.cache != nil {
		if data, ok := s.cache.Get(ctx, key); ok {
			var report Report
			if err := json.Unmarshal(data, &report); err == nil {
				s.logger.Debug("Dashboard served from cache", "key", key)
				return &report, nil
			}
		}
	}

	report, err := s.BuildReport(ctx, p, g)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(report); err == nil {
			s.cache.Set(ctx, key, data)
		}
	}
	return report, nil
}

func dashboardCacheKey(p analytics.Period, g analytics.Granularity) string {
	from, to := "all", "all"
	if p.From != nil {
		from = p.From.Format("2006-01-02")
	}
	if p.To != nil {
		to = p.To.Format("2006-01-02")
	}
	return fmt.Sprintf("analytics:dashboard:%s:%s:%s", from, to, g)
}

// OrdersAnalytics assembles the order-focused payload
func (s *AnalyticsService) OrdersAnalytics(ctx context.Context, p analytics.Period, g analytics.Granularity) (*OrdersReport, error) {
	days, err := s.store.Analytics.DailySeries(ctx, p.From, p.To)
	if err != nil {
		return nil, err
	}

	counts, err := s.store.Analytics.StatusCounts(ctx, p.From, p.To)
	if err != nil {
		return nil, err
	}

	stats, err := s.store.Orders.Stats(ctx, store.OrderFilter{From: p.From, To: p.To})
	if err != nil {
		return nil, err
	}

	return &OrdersReport{
		Series:    analytics.FillSeries(days, p, g),
		Breakdown: analytics.StatusBreakdown(counts, breakdownStatuses),
		Stats:     stats,
	}, nil
}

// ProductsAnalytics lists every product with profitability and turnover
func (s *AnalyticsService) ProductsAnalytics(ctx context.Context, p analytics.Period) ([]ProductReportRow, error) {
	perf, err := s.store.Analytics.ProductPerformance(ctx, p.From, p.To)
	if err != nil {
		return nil, err
	}

	days := p.Days()
	rows := make([]ProductReportRow, 0, len(perf))
	for _, item := range perf {
		// cost is the discounted price when one is set; a product sold at
		// list price reports zero margin
		cost := item.Price
		if item.SalePrice != nil {
			cost = *item.SalePrice
		}

		turnover := analytics.Turnover(item.QuantitySold, item.Stock)
		rows = append(rows, ProductReportRow{
			ProductID:    item.ProductID,
			Name:         item.Name,
			Category:     item.Category,
			Price:        item.Price,
			SalePrice:    item.SalePrice,
			Stock:        item.Stock,
			QuantitySold: item.QuantitySold,
			Revenue:      analytics.Round2(item.Revenue),
			Margin:       analytics.Margin(item.Price, cost),
			Turnover:     analytics.Round2(turnover),
			DaysToSell:   analytics.DaysToSell(days, turnover),
		})
	}
	return rows, nil
}
