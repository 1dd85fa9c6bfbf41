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

func seedCategory(state *fakeState, name string) *models.Category {
	category := models.NewCategory(name)
	state.categories[category.ID] = category
	return category
}

func TestCreateProductRequiresCategory(t *testing.T) {
	st, state := newFakeStore()
	svc := NewProductService(st, logger.NewNopLogger())

	_, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Name: "Hoodie", Price: 50, Category: "apparel", Color: "black", Size: "M",
	})
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "CATEGORY_NOT_FOUND", appErr.Code)

	seedCategory(state, "apparel")
	product, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Name: "Hoodie", Price: 50, Category: "apparel", Color: "black", Size: "M", StockQuantity: 3,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, product.ID)
}

func TestUpdateProductStockRules(t *testing.T) {
	st, state := newFakeStore()
	svc := NewProductService(st, logger.NewNopLogger())
	seedCategory(state, "apparel")
	product := seedProduct(state, "Hoodie", 50, 4)

	abs, adj := 10, -2
	_, err := svc.UpdateProduct(context.Background(), product.ID, UpdateProductInput{
		StockQuantity: &abs, StockAdjustment: &adj,
	})
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)

	updated, err := svc.UpdateProduct(context.Background(), product.ID, UpdateProductInput{StockAdjustment: &adj})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.StockQuantity)

	// draining past zero clamps and emits the stock-out event
	drain := -7
	updated, err = svc.UpdateProduct(context.Background(), product.ID, UpdateProductInput{StockAdjustment: &drain})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.StockQuantity)
	require.Len(t, state.outbox, 1)
	assert.Equal(t, models.EventProductStockDepleted, state.outbox[0].EventType)

	// adjusting an already-empty product does not emit again
	again := -1
	updated, err = svc.UpdateProduct(context.Background(), product.ID, UpdateProductInput{StockAdjustment: &again})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.StockQuantity)
	assert.Len(t, state.outbox, 1)
}

func TestUpdateProductSalePriceBound(t *testing.T) {
	st, state := newFakeStore()
	svc := NewProductService(st, logger.NewNopLogger())
	product := seedProduct(state, "Hoodie", 50, 4)

	high := 50.0
	_, err := svc.UpdateProduct(context.Background(), product.ID, UpdateProductInput{SalePrice: &high})
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)

	ok1 := 35.0
	updated, err := svc.UpdateProduct(context.Background(), product.ID, UpdateProductInput{SalePrice: &ok1})
	require.NoError(t, err)
	assert.Equal(t, 35.0, updated.SellingPrice())
}

func TestDeleteProductGuardedByOrders(t *testing.T) {
	st, state := newFakeStore()
	svc := NewProductService(st, logger.NewNopLogger())
	product := seedProduct(state, "Hoodie", 50, 4)

	order := seedOrder(state, "a@b.co", 50, models.OrderStatusPending)
	order.Items = append(order.Items, models.NewOrderItem(order.ID, product.ID, 1, 50, "M", "black"))

	err := svc.DeleteProduct(context.Background(), product.ID)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "PRODUCT_HAS_ORDERS", appErr.Code)
	assert.Equal(t, 400, appErr.StatusCode)

	unreferenced := seedProduct(state, "Cap", 20, 2)
	require.NoError(t, svc.DeleteProduct(context.Background(), unreferenced.ID))
}

func TestCreateCategoryUniqueName(t *testing.T) {
	st, _ := newFakeStore()
	svc := NewProductService(st, logger.NewNopLogger())

	_, err := svc.CreateCategory(context.Background(), "apparel")
	require.NoError(t, err)

	_, err = svc.CreateCategory(context.Background(), "apparel")
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "DUPLICATE_CATEGORY", appErr.Code)
}
