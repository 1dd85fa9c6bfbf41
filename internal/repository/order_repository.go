package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/merchkit/storefront-api/internal/database"
	"github.com/merchkit/storefront-api/internal/models"
	"github.com/merchkit/storefront-api/internal/store"
	"github.com/merchkit/storefront-api/pkg/logger"
)

// OrderRepository implements store.OrderStore on Postgres
type OrderRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewOrderRepository creates a new OrderRepository
func NewOrderRepository(db *database.Database, logger logger.Logger) *OrderRepository {
	return &OrderRepository{
		db:     db,
		logger: logger,
	}
}

const orderColumns = `id, customer_name, customer_email, customer_phone, shipping_address, total_amount, status, created_at, updated_at`

// Create inserts the order, its items and the outbox message in one transaction
func (r *OrderRepository) Create(ctx context.Context, order *models.Order, msg *models.OutboxMessage) error {
	tx, err := r.db.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = tx.ExecContext(ctx, query,
		order.ID,
		order.CustomerName,
		order.CustomerEmail,
		order.CustomerPhone,
		order.ShippingAddress,
		order.TotalAmount,
		order.Status,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create order", "error", err, "orderID", order.ID)
		return fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	for _, item := range order.Items {
		if err := insertOrderItem(ctx, tx, item); err != nil {
			return err
		}
	}

	for _, entry := range order.Timeline {
		if err := insertTimelineEntry(ctx, tx, entry); err != nil {
			return err
		}
	}

	if msg != nil {
		if err := insertOutboxMessage(ctx, tx, msg); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return nil
}

func insertOrderItem(ctx context.Context, tx *sqlx.Tx, item *models.OrderItem) error {
	query := `
		INSERT INTO order_items (id, order_id, product_id, quantity, unit_price, size, color)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := tx.ExecContext(ctx, query,
		item.ID, item.OrderID, item.ProductID, item.Quantity, item.UnitPrice, item.Size, item.Color,
	); err != nil {
		return fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}
	return nil
}

func insertTimelineEntry(ctx context.Context, tx *sqlx.Tx, entry *models.TimelineEntry) error {
	query := `
		INSERT INTO order_timeline (id, order_id, message, created_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := tx.ExecContext(ctx, query,
		entry.ID, entry.OrderID, entry.Message, entry.CreatedAt,
	); err != nil {
		return fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}
	return nil
}

// GetByID retrieves an order with its items and timeline
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	var order models.Order
	if err := r.db.DB.GetContext(ctx, &order, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		r.logger.Error("Failed to get order by ID", "error", err, "orderID", id)
		return nil, fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	if err := r.attachDetails(ctx, &order); err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *OrderRepository) attachDetails(ctx context.Context, order *models.Order) error {
	itemsQuery := `
		SELECT id, order_id, product_id, quantity, unit_price, size, color
		FROM order_items WHERE order_id = $1
	`
	if err := r.db.DB.SelectContext(ctx, &order.Items, itemsQuery, order.ID); err != nil {
		return fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	timelineQuery := `
		SELECT id, order_id, message, created_at
		FROM order_timeline WHERE order_id = $1
		ORDER BY created_at ASC
	`
	if err := r.db.DB.SelectContext(ctx, &order.Timeline, timelineQuery, order.ID); err != nil {
		return fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return nil
}

// GetMany retrieves orders by id, without items
func (r *OrderRepository) GetMany(ctx context.Context, ids []string) ([]*models.Order, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT `+orderColumns+` FROM orders WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}
	query = r.db.DB.Rebind(query)

	var orders []*models.Order
	if err := r.db.DB.SelectContext(ctx, &orders, query, args...); err != nil {
		r.logger.Error("Failed to get orders by ids", "error", err)
		return nil, fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return orders, nil
}

func buildOrderWhere(filter store.OrderFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		conds = append(conds, fmt.Sprintf("(id ILIKE %s OR customer_name ILIKE %s OR customer_email ILIKE %s)", p, p, p))
	}
	if filter.Status != "" {
		conds = append(conds, "status = "+arg(filter.Status))
	}
	if filter.From != nil {
		conds = append(conds, "created_at >= "+arg(*filter.From))
	}
	if filter.To != nil {
		conds = append(conds, "created_at <= "+arg(*filter.To))
	}
	if filter.MinAmount != nil {
		conds = append(conds, "total_amount >= "+arg(*filter.MinAmount))
	}
	if filter.MaxAmount != nil {
		conds = append(conds, "total_amount <= "+arg(*filter.MaxAmount))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List retrieves orders matching the filter plus the total match count
func (r *OrderRepository) List(ctx context.Context, filter store.OrderFilter) ([]*models.Order, int, error) {
	where, args := buildOrderWhere(filter)

	var total int
	if err := r.db.DB.GetContext(ctx, &total, "SELECT COUNT(*) FROM orders"+where, args...); err != nil {
		r.logger.Error("Failed to count orders", "error", err)
		return nil, 0, fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	sortCol := "created_at"
	if filter.SortBy == "total_amount" {
		sortCol = "total_amount"
	}
	dir := "ASC"
	if filter.SortDesc {
		dir = "DESC"
	}

	query := fmt.Sprintf("SELECT %s FROM orders%s ORDER BY %s %s LIMIT $%d OFFSET $%d",
		orderColumns, where, sortCol, dir, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	var orders []*models.Order
	if err := r.db.DB.SelectContext(ctx, &orders, query, args...); err != nil {
		r.logger.Error("Failed to list orders", "error", err)
		return nil, 0, fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return orders, total, nil
}

// Stats aggregates count and revenue per status over the filtered set
func (r *OrderRepository) Stats(ctx context.Context, filter store.OrderFilter) ([]store.OrderStatusStat, error) {
	where, args := buildOrderWhere(filter)

	query := `
		SELECT status, COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS revenue
		FROM orders` + where + `
		GROUP BY status
	`

	rows, err := r.db.DB.QueryxContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to aggregate order stats", "error", err)
		return nil, fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}
	defer rows.Close()

	var stats []store.OrderStatusStat
	for rows.Next() {
		var s store.OrderStatusStat
		if err := rows.Scan(&s.Status, &s.Count, &s.Revenue); err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrDatabase, err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// UpdateContact corrects the order's phone and shipping address
func (r *OrderRepository) UpdateContact(ctx context.Context, id, phone, address string) error {
	query := `
		UPDATE orders
		SET customer_phone = $1, shipping_address = $2, updated_at = $3
		WHERE id = $4
	`
	result, err := r.db.DB.ExecContext(ctx, query, phone, address, models.GetCurrentTime(), id)
	if err != nil {
		r.logger.Error("Failed to update order contact", "error", err, "orderID", id)
		return fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return checkAffected(result)
}

// UpdateStatus writes the transition, timeline entry and outbox message atomically
func (r *OrderRepository) UpdateStatus(ctx context.Context, order *models.Order, entry *models.TimelineEntry, msg *models.OutboxMessage) error {
	tx, err := r.db.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}
	defer tx.Rollback()

	if err := updateStatusInTx(ctx, tx, order, entry, msg); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return nil
}

func updateStatusInTx(ctx context.Context, tx *sqlx.Tx, order *models.Order, entry *models.TimelineEntry, msg *models.OutboxMessage) error {
	query := `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`

	result, err := tx.ExecContext(ctx, query, order.Status, order.UpdatedAt, order.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}
	if err := checkAffected(result); err != nil {
		return err
	}

	if entry != nil {
		if err := insertTimelineEntry(ctx, tx, entry); err != nil {
			return err
		}
	}

	if msg != nil {
		if err := insertOutboxMessage(ctx, tx, msg); err != nil {
			return err
		}
	}

	return nil
}

// BulkUpdateStatus applies every transition in one transaction; any failure
// rolls the whole batch back
func (r *OrderRepository) BulkUpdateStatus(ctx context.Context, orders []*models.Order, entries []*models.TimelineEntry, msgs []*models.OutboxMessage) error {
	tx, err := r.db.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}
	defer tx.Rollback()

	for i, order := range orders {
		var entry *models.TimelineEntry
		if i < len(entries) {
			entry = entries[i]
		}
		var msg *models.OutboxMessage
		if i < len(msgs) {
			msg = msgs[i]
		}

		if err := updateStatusInTx(ctx, tx, order, entry, msg); err != nil {
			r.logger.Error("Bulk status update failed, rolling back", "error", err, "orderID", order.ID)
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return nil
}

// Delete removes the order and cascades items and timeline in one transaction
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
		return fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM order_timeline WHERE order_id = $1`, id); err != nil {
		return fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete order", "error", err, "orderID", id)
		return fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}
	if err := checkAffected(result); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return nil
}

// HasItemsForProduct reports whether any order item references the product
func (r *OrderRepository) HasItemsForProduct(ctx context.Context, productID string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM order_items WHERE product_id = $1`

	if err := r.db.DB.GetContext(ctx, &count, query, productID); err != nil {
		r.logger.Error("Failed to count order items for product", "error", err, "productID", productID)
		return false, fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return count > 0, nil
}

// CountForCustomerEmail counts the orders attributed to the email
func (r *OrderRepository) CountForCustomerEmail(ctx context.Context, email string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM orders WHERE customer_email = $1`

	if err := r.db.DB.GetContext(ctx, &count, query, email); err != nil {
		return 0, fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return count, nil
}

// ListForCustomerEmail returns the order history for a customer, newest first
func (r *OrderRepository) ListForCustomerEmail(ctx context.Context, email string) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE customer_email = $1 ORDER BY created_at DESC`

	var orders []*models.Order
	if err := r.db.DB.SelectContext(ctx, &orders, query, email); err != nil {
		r.logger.Error("Failed to list orders for customer", "error", err, "email", email)
		return nil, fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return orders, nil
}

// RollupForCustomerEmail aggregates spend and order dates over non-cancelled orders
func (r *OrderRepository) RollupForCustomerEmail(ctx context.Context, email string) (store.CustomerRollup, error) {
	query := `
		SELECT COALESCE(SUM(total_amount), 0) AS total_spent,
		       COUNT(*) AS order_count,
		       MIN(created_at) AS first_order_at,
		       MAX(created_at) AS last_order_at
		FROM orders
		WHERE customer_email = $1 AND status != 'cancelled'
	`

	var rollup store.CustomerRollup
	row := r.db.DB.QueryRowxContext(ctx, query, email)
	if err := row.Scan(&rollup.TotalSpent, &rollup.OrderCount, &rollup.FirstOrderAt, &rollup.LastOrderAt); err != nil {
		r.logger.Error("Failed to aggregate customer rollup", "error", err, "email", email)
		return store.CustomerRollup{}, fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return rollup, nil
}

func checkAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}
	if rowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}
