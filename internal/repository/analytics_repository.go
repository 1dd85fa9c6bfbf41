package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/merchkit/storefront-api/internal/database"
	"github.com/merchkit/storefront-api/internal/store"
	"github.com/merchkit/storefront-api/pkg/logger"
)

// AnalyticsRepository implements store.AnalyticsStore on Postgres. Revenue
// aggregates exclude cancelled orders.
type AnalyticsRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewAnalyticsRepository creates a new AnalyticsRepository
func NewAnalyticsRepository(db *database.Database, logger logger.Logger) *AnalyticsRepository {
	return &AnalyticsRepository{
		db:     db,
		logger: logger,
	}
}

// rangeWhere builds the optional created_at bounds for the given column
func rangeWhere(col string, from, to *time.Time, args *[]interface{}) []string {
	var conds []string
	if from != nil {
		*args = append(*args, *from)
		conds = append(conds, fmt.Sprintf("%s >= $%d", col, len(*args)))
	}
	if to != nil {
		*args = append(*args, *to)
		conds = append(conds, fmt.Sprintf("%s <= $%d", col, len(*args)))
	}
	return conds
}

// RevenueTotals sums revenue and order count over the range
func (r *AnalyticsRepository) RevenueTotals(ctx context.Context, from, to *time.Time) (float64, int, error) {
	var args []interface{}
	conds := append([]string{"status != 'cancelled'"}, rangeWhere("created_at", from, to, &args)...)

	query := `
		SELECT COALESCE(SUM(total_amount), 0), COUNT(*)
		FROM orders
		WHERE ` + strings.Join(conds, " AND ")

	var revenue float64
	var orders int
	row := r.db.DB.QueryRowxContext(ctx, query, args...)
	if err := row.Scan(&revenue, &orders); err != nil {
		r.logger.Error("Failed to aggregate revenue totals", "error", err)
		return 0, 0, fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return revenue, orders, nil
}

// CustomersCreated counts customers created within the range
func (r *AnalyticsRepository) CustomersCreated(ctx context.Context, from, to *time.Time) (int, error) {
	var args []interface{}
	conds := rangeWhere("created_at", from, to, &args)

	query := `SELECT COUNT(*) FROM customers`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}

	var count int
	if err := r.db.DB.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.Error("Failed to count customers", "error", err)
		return 0, fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return count, nil
}

// ProductsCount counts all products
func (r *AnalyticsRepository) ProductsCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.DB.GetContext(ctx, &count, `SELECT COUNT(*) FROM products`); err != nil {
		return 0, fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}
	return count, nil
}

// DailySeries returns revenue and order count per day that had orders. Days
// without orders are absent; the aggregator fills the gaps.
func (r *AnalyticsRepository) DailySeries(ctx context.Context, from, to *time.Time) ([]store.DayPoint, error) {
	var args []interface{}
	conds := append([]string{"status != 'cancelled'"}, rangeWhere("created_at", from, to, &args)...)

	query := `
		SELECT DATE_TRUNC('day', created_at) AS day,
		       COALESCE(SUM(total_amount), 0) AS revenue,
		       COUNT(*) AS orders
		FROM orders
		WHERE ` + strings.Join(conds, " AND ") + `
		GROUP BY day
		ORDER BY day ASC
	`

	rows, err := r.db.DB.QueryxContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query daily series", "error", err)
		return nil, fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}
	defer rows.Close()

	var points []store.DayPoint
	for rows.Next() {
		var p store.DayPoint
		if err := rows.Scan(&p.Date, &p.Revenue, &p.Orders); err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrDatabase, err)
		}
		points = append(points, p)
	}

	return points, rows.Err()
}

// TopProducts returns the highest-revenue products in the range
func (r *AnalyticsRepository) TopProducts(ctx context.Context, from, to *time.Time, limit int) ([]store.TopProduct, error) {
	var args []interface{}
	conds := append([]string{"o.status != 'cancelled'"}, rangeWhere("o.created_at", from, to, &args)...)

	args = append(args, limit)
	query := `
		SELECT oi.product_id,
		       COALESCE(MAX(p.name), '') AS name,
		       COALESCE(SUM(oi.quantity), 0) AS quantity_sold,
		       COALESCE(SUM(oi.quantity * oi.unit_price), 0) AS revenue
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE ` + strings.Join(conds, " AND ") + `
		GROUP BY oi.product_id
		ORDER BY revenue DESC
		LIMIT $` + fmt.Sprintf("%d", len(args))

	rows, err := r.db.DB.QueryxContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query top products", "error", err)
		return nil, fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}
	defer rows.Close()

	var top []store.TopProduct
	for rows.Next() {
		var t store.TopProduct
		if err := rows.Scan(&t.ProductID, &t.Name, &t.QuantitySold, &t.Revenue); err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrDatabase, err)
		}
		top = append(top, t)
	}

	return top, rows.Err()
}

// StatusCounts counts orders per status over the range
func (r *AnalyticsRepository) StatusCounts(ctx context.Context, from, to *time.Time) (map[string]int, error) {
	var args []interface{}
	conds := rangeWhere("created_at", from, to, &args)

	query := `SELECT status, COUNT(*) FROM orders`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` GROUP BY status`

	rows, err := r.db.DB.QueryxContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query status counts", "error", err)
		return nil, fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrDatabase, err)
		}
		counts[status] = count
	}

	return counts, rows.Err()
}

// ProductPerformance lists every product with its sales totals over the range
func (r *AnalyticsRepository) ProductPerformance(ctx context.Context, from, to *time.Time) ([]store.ProductPerformance, error) {
	var args []interface{}
	conds := append([]string{"o.status != 'cancelled'"}, rangeWhere("o.created_at", from, to, &args)...)

	query := `
		SELECT p.id, p.name, p.category, p.price, p.sale_price, p.stock_quantity,
		       COALESCE(s.quantity_sold, 0) AS quantity_sold,
		       COALESCE(s.revenue, 0) AS revenue
		FROM products p
		LEFT JOIN (
			SELECT oi.product_id,
			       SUM(oi.quantity) AS quantity_sold,
			       SUM(oi.quantity * oi.unit_price) AS revenue
			FROM order_items oi
			JOIN orders o ON o.id = oi.order_id
			WHERE ` + strings.Join(conds, " AND ") + `
			GROUP BY oi.product_id
		) s ON s.product_id = p.id
		ORDER BY revenue DESC
	`

	rows, err := r.db.DB.QueryxContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query product performance", "error", err)
		return nil, fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}
	defer rows.Close()

	var perf []store.ProductPerformance
	for rows.Next() {
		var p store.ProductPerformance
		if err := rows.Scan(&p.ProductID, &p.Name, &p.Category, &p.Price, &p.SalePrice, &p.Stock, &p.QuantitySold, &p.Revenue); err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrDatabase, err)
		}
		perf = append(perf, p)
	}

	return perf, rows.Err()
}
