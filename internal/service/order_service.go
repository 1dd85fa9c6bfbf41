package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/merchkit/storefront-api/internal/models"
	"github.com/merchkit/storefront-api/internal/store"
	"github.com/merchkit/storefront-api/pkg/apperrors"
	"github.com/merchkit/storefront-api/pkg/logger"
)

// OrderService handles order lifecycle operations
type OrderService struct {
	store  *store.Store
	logger logger.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(st *store.Store, logger logger.Logger) *OrderService {
	return &OrderService{store: st, logger: logger}
}

// CreateOrderItemInput is one requested line of a new order
type CreateOrderItemInput struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

// CreateOrderInput carries the fields of a new order request
type CreateOrderInput struct {
	CustomerName    string                 `json:"customer_name"`
	CustomerEmail   string                 `json:"customer_email"`
	CustomerPhone   string                 `json:"customer_phone"`
	ShippingAddress string                 `json:"shipping_address"`
	TotalAmount     float64                `json:"total_amount"`
	Items           []CreateOrderItemInput `json:"items"`
}

// CreateOrder validates the request, snapshots item prices and writes the
// order with its outbox event in one unit of work
func (s *OrderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.CustomerName == "" {
		return nil, apperrors.NewValidation("VALIDATION_ERROR", "customer name is required")
	}
	if input.CustomerEmail == "" {
		return nil, apperrors.NewValidation("VALIDATION_ERROR", "customer email is required")
	}
	if !validEmail(input.CustomerEmail) {
		return nil, apperrors.NewValidation("VALIDATION_ERROR", "customer email is invalid")
	}
	if input.TotalAmount < 0 {
		return nil, apperrors.NewValidation("VALIDATION_ERROR", "total amount must not be negative")
	}

	order := models.NewOrder(
		input.CustomerName,
		models.NormalizeEmail(input.CustomerEmail),
		input.CustomerPhone,
		input.ShippingAddress,
		input.TotalAmount,
	)

	for _, item := range input.Items {
		if item.Quantity < 1 {
			return nil, apperrors.NewValidation("VALIDATION_ERROR", "item quantity must be at least 1")
		}

		product, err := s.store.Products.GetByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, apperrors.NewNotFound("PRODUCT_NOT_FOUND", fmt.Sprintf("product %s not found", item.ProductID))
			}
			return nil, err
		}

		order.Items = append(order.Items, models.NewOrderItem(
			order.ID, product.ID, item.Quantity, product.SellingPrice(), item.Size, item.Color,
		))
	}

	order.Timeline = append(order.Timeline, models.NewTimelineEntry(order.ID, "Order created"))

	msg, err := models.NewOrderCreatedEvent(order)
	if err != nil {
		s.logger.Error("Failed to build order created event", "error", err)
		return nil, err
	}

	if err := s.store.Orders.Create(ctx, order, msg); err != nil {
		return nil, err
	}

	s.logger.Info("Order created", "order_id", order.ID, "items", len(order.Items))
	return order, nil
}

// GetOrder retrieves an order with its items and timeline
func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	order, err := s.store.Orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NewNotFound("ORDER_NOT_FOUND", "order not found")
		}
		return nil, err
	}
	return order, nil
}

// ListOrders retrieves orders matching the filter, with the total match count
// and optionally the per-status stats block
func (s *OrderService) ListOrders(ctx context.Context, filter store.OrderFilter, withStats bool) ([]*models.Order, int, []store.OrderStatusStat, error) {
	orders, total, err := s.store.Orders.List(ctx, filter)
	if err != nil {
		return nil, 0, nil, err
	}

	var stats []store.OrderStatusStat
	if withStats {
		stats, err = s.store.Orders.Stats(ctx, filter)
		if err != nil {
			return nil, 0, nil, err
		}
	}
	return orders, total, stats, nil
}

// UpdateContact corrects the order's phone and shipping address
func (s *OrderService) UpdateContact(ctx context.Context, id, phone, address string) (*models.Order, error) {
	if err := s.store.Orders.UpdateContact(ctx, id, phone, address); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NewNotFound("ORDER_NOT_FOUND", "order not found")
		}
		return nil, err
	}
	return s.GetOrder(ctx, id)
}

// UpdateStatus applies one status transition, appending the timeline entry
// and the outbox event in the same unit of work
func (s *OrderService) UpdateStatus(ctx context.Context, id, status string) (*models.Order, error) {
	if !models.ValidOrderStatus(status) {
		return nil, apperrors.NewValidation("INVALID_STATUS", fmt.Sprintf("unknown order status %q", status))
	}

	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	target := models.OrderStatus(status)
	if !models.CanTransition(order.Status, target) {
		return nil, apperrors.NewGuard("INVALID_TRANSITION",
			fmt.Sprintf("cannot transition order from %s to %s", order.Status, target))
	}

	oldStatus := order.Status
	order.Status = target
	order.UpdatedAt = models.GetCurrentTime()

	entry := models.NewTimelineEntry(order.ID, fmt.Sprintf("Status updated to %s", target))

	msg, err := models.NewOrderStatusChangedEvent(order, oldStatus)
	if err != nil {
		s.logger.Error("Failed to build status changed event", "error", err)
		return nil, err
	}

	if err := s.store.Orders.UpdateStatus(ctx, order, entry, msg); err != nil {
		return nil, err
	}

	order.Timeline = append(order.Timeline, entry)
	s.logger.Info("Order status updated", "order_id", order.ID, "from", oldStatus, "to", target)
	return order, nil
}

// BulkUpdateStatus moves every order to the target status. The whole batch is
// validated before any write; one bad order rejects the entire request.
func (s *OrderService) BulkUpdateStatus(ctx context.Context, ids []string, status string) ([]*models.Order, error) {
	if len(ids) == 0 {
		return nil, apperrors.NewValidation("VALIDATION_ERROR", "order ids are required")
	}
	if !models.ValidOrderStatus(status) {
		return nil, apperrors.NewValidation("INVALID_STATUS", fmt.Sprintf("unknown order status %q", status))
	}
	target := models.OrderStatus(status)

	orders, err := s.store.Orders.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	found := make(map[string]*models.Order, len(orders))
	for _, order := range orders {
		found[order.ID] = order
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return nil, apperrors.NewNotFound("ORDER_NOT_FOUND", fmt.Sprintf("order %s not found", id))
		}
	}
	for _, order := range orders {
		if !models.CanTransition(order.Status, target) {
			return nil, apperrors.NewGuard("INVALID_TRANSITION",
				fmt.Sprintf("cannot transition order %s from %s to %s", order.ID, order.Status, target))
		}
	}

	now := models.GetCurrentTime()
	entries := make([]*models.TimelineEntry, 0, len(orders))
	msgs := make([]*models.OutboxMessage, 0, len(orders))
	for _, order := range orders {
		oldStatus := order.Status
		order.Status = target
		order.UpdatedAt = now

		entries = append(entries, models.NewTimelineEntry(order.ID, fmt.Sprintf("Status updated to %s", target)))

		msg, err := models.NewOrderStatusChangedEvent(order, oldStatus)
		if err != nil {
			s.logger.Error("Failed to build status changed event", "error", err)
			return nil, err
		}
		msgs = append(msgs, msg)
	}

	if err := s.store.Orders.BulkUpdateStatus(ctx, orders, entries, msgs); err != nil {
		return nil, err
	}

	s.logger.Info("Bulk order status update applied", "count", len(orders), "to", target)
	return orders, nil
}

// DeleteOrder removes the order, its items and timeline
func (s *OrderService) DeleteOrder(ctx context.Context, id string) error {
	if err := s.store.Orders.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.NewNotFound("ORDER_NOT_FOUND", "order not found")
		}
		return err
	}

	s.logger.Info("Order deleted", "order_id", id)
	return nil
}
