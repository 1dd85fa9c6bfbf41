package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merchkit/storefront-api/internal/models"
	"github.com/merchkit/storefront-api/internal/store"
	"github.com/merchkit/storefront-api/pkg/apperrors"
	"github.com/merchkit/storefront-api/pkg/logger"
)

func seedProduct(state *fakeState, name string, price float64, stock int) *models.Product {
	product := models.NewProduct(name, "", price, "apparel", "black", "M", stock, false)
	state.products[product.ID] = product
	return product
}

func seedOrder(state *fakeState, email string, amount float64, status models.OrderStatus) *models.Order {
	order := models.NewOrder("Test Customer", email, "", "", amount)
	order.Status = status
	state.orders[order.ID] = order
	return order
}

func TestCreateOrderValidation(t *testing.T) {
	st, _ := newFakeStore()
	svc := NewOrderService(st, logger.NewNopLogger())

	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{CustomerEmail: "a@b.co"})
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, 400, appErr.StatusCode)

	_, err = svc.CreateOrder(context.Background(), CreateOrderInput{CustomerName: "A", CustomerEmail: "not-an-email"})
	appErr, ok = apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestCreateOrderSnapshotsPricesAndWritesOutbox(t *testing.T) {
	st, state := newFakeStore()
	svc := NewOrderService(st, logger.NewNopLogger())

	product := seedProduct(state, "Hoodie", 80, 10)
	sale := 60.0
	product.SalePrice = &sale

	order, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerName:  "Dana",
		CustomerEmail: "Dana@Example.com",
		TotalAmount:   120,
		Items: []CreateOrderItemInput{
			{ProductID: product.ID, Quantity: 2, Size: "M"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, "dana@example.com", order.CustomerEmail)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 60.0, order.Items[0].UnitPrice)

	// a later price change must not affect the snapshot
	product.Price = 200

	require.Len(t, state.outbox, 1)
	assert.Equal(t, models.EventOrderCreated, state.outbox[0].EventType)
	assert.Equal(t, order.ID, state.outbox[0].AggregateID)
	assert.Equal(t, models.OutboxStatusPending, state.outbox[0].Status)
}

func TestUpdateStatusTransitions(t *testing.T) {
	st, state := newFakeStore()
	svc := NewOrderService(st, logger.NewNopLogger())

	order := seedOrder(state, "a@b.co", 50, models.OrderStatusPending)

	updated, err := svc.UpdateStatus(context.Background(), order.ID, "processing")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusProcessing, updated.Status)
	require.NotEmpty(t, updated.Timeline)
	assert.Equal(t, "Status updated to processing", updated.Timeline[len(updated.Timeline)-1].Message)

	// skipping straight to delivered is not allowed
	_, err = svc.UpdateStatus(context.Background(), order.ID, "delivered")
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "INVALID_TRANSITION", appErr.Code)

	// terminal states reject every move
	order.Status = models.OrderStatusDelivered
	_, err = svc.UpdateStatus(context.Background(), order.ID, "cancelled")
	appErr, ok = apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "INVALID_TRANSITION", appErr.Code)

	_, err = svc.UpdateStatus(context.Background(), "ord-missing", "processing")
	appErr, ok = apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "ORDER_NOT_FOUND", appErr.Code)

	_, err = svc.UpdateStatus(context.Background(), order.ID, "teleported")
	appErr, ok = apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "INVALID_STATUS", appErr.Code)
}

func TestBulkUpdateStatusAllOrNothing(t *testing.T) {
	st, state := newFakeStore()
	svc := NewOrderService(st, logger.NewNopLogger())

	first := seedOrder(state, "a@b.co", 10, models.OrderStatusPending)
	second := seedOrder(state, "a@b.co", 20, models.OrderStatusDelivered)

	// one invalid transition rejects the whole batch
	_, err := svc.BulkUpdateStatus(context.Background(), []string{first.ID, second.ID}, "processing")
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "INVALID_TRANSITION", appErr.Code)
	assert.Equal(t, models.OrderStatusPending, state.orders[first.ID].Status)

	// a missing id rejects the whole batch
	_, err = svc.BulkUpdateStatus(context.Background(), []string{first.ID, "ord-missing"}, "processing")
	appErr, ok = apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "ORDER_NOT_FOUND", appErr.Code)
	assert.Equal(t, models.OrderStatusPending, state.orders[first.ID].Status)

	third := seedOrder(state, "a@b.co", 30, models.OrderStatusPending)
	updated, err := svc.BulkUpdateStatus(context.Background(), []string{first.ID, third.ID}, "processing")
	require.NoError(t, err)
	assert.Len(t, updated, 2)
	assert.Equal(t, models.OrderStatusProcessing, state.orders[first.ID].Status)
	assert.Equal(t, models.OrderStatusProcessing, state.orders[third.ID].Status)

	// each transition carries its own outbox event
	events := 0
	for _, msg := range state.outbox {
		if msg.EventType == models.EventOrderStatusChanged {
			events++
		}
	}
	assert.Equal(t, 2, events)
}

func TestListOrdersStatsOptional(t *testing.T) {
	st, state := newFakeStore()
	svc := NewOrderService(st, logger.NewNopLogger())

	seedOrder(state, "a@b.co", 10, models.OrderStatusPending)
	seedOrder(state, "a@b.co", 30, models.OrderStatusPending)

	_, total, stats, err := svc.ListOrders(context.Background(), store.OrderFilter{}, false)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Nil(t, stats)

	_, _, stats, err = svc.ListOrders(context.Background(), store.OrderFilter{}, true)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 40.0, stats[0].Revenue)
}
