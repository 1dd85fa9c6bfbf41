package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merchkit/storefront-api/internal/models"
	"github.com/merchkit/storefront-api/pkg/apperrors"
	"github.com/merchkit/storefront-api/pkg/logger"
)

func TestCreateCustomerDuplicateEmail(t *testing.T) {
	st, state := newFakeStore()
	svc := NewCustomerService(st, logger.NewNopLogger())

	customer, err := svc.CreateCustomer(context.Background(), CustomerInput{Name: "Dana", Email: "Dana@Example.com"})
	require.NoError(t, err)
	assert.Equal(t, "dana@example.com", customer.Email)
	require.Len(t, state.outbox, 1)
	assert.Equal(t, models.EventCustomerCreated, state.outbox[0].EventType)

	// duplicate detection is case-insensitive through normalization
	_, err = svc.CreateCustomer(context.Background(), CustomerInput{Name: "Other", Email: "DANA@example.com"})
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "DUPLICATE_EMAIL", appErr.Code)
	assert.Equal(t, 400, appErr.StatusCode)
}

func TestCustomerStatsDerivedOnRead(t *testing.T) {
	st, state := newFakeStore()
	svc := NewCustomerService(st, logger.NewNopLogger())

	customer, err := svc.CreateCustomer(context.Background(), CustomerInput{Name: "Dana", Email: "dana@example.com"})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		seedOrder(state, customer.Email, 120, models.OrderStatusDelivered)
	}
	// cancelled orders never count toward spend or segment
	seedOrder(state, customer.Email, 5000, models.OrderStatusCancelled)

	detail, err := svc.GetCustomer(context.Background(), customer.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, detail.OrderCount)
	assert.Equal(t, 600.0, detail.TotalSpent)
	assert.Equal(t, 120.0, detail.AvgOrderValue)
	assert.Equal(t, "vip", detail.Segment)
	assert.Len(t, detail.Orders, 6)
	require.NotNil(t, detail.FirstOrderAt)

	listed, total, err := svc.ListCustomers(context.Background(), "", 50, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, listed, 1)
	assert.Equal(t, "vip", listed[0].Segment)
}

func TestCustomerWithNoOrdersIsNew(t *testing.T) {
	st, _ := newFakeStore()
	svc := NewCustomerService(st, logger.NewNopLogger())

	customer, err := svc.CreateCustomer(context.Background(), CustomerInput{Name: "Lee", Email: "lee@example.com"})
	require.NoError(t, err)

	detail, err := svc.GetCustomer(context.Background(), customer.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", detail.Segment)
	assert.Equal(t, 0.0, detail.AvgOrderValue)
}

func TestDeleteCustomerGuardedByOrders(t *testing.T) {
	st, state := newFakeStore()
	svc := NewCustomerService(st, logger.NewNopLogger())

	customer, err := svc.CreateCustomer(context.Background(), CustomerInput{Name: "Dana", Email: "dana@example.com"})
	require.NoError(t, err)
	seedOrder(state, customer.Email, 10, models.OrderStatusPending)

	err = svc.DeleteCustomer(context.Background(), customer.ID)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "CUSTOMER_HAS_ORDERS", appErr.Code)

	clean, err := svc.CreateCustomer(context.Background(), CustomerInput{Name: "Lee", Email: "lee@example.com"})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteCustomer(context.Background(), clean.ID))
}
