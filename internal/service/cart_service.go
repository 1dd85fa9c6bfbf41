package service

import (
	"context"
	"errors"

	"github.com/merchkit/storefront-api/internal/models"
	"github.com/merchkit/storefront-api/internal/store"
	"github.com/merchkit/storefront-api/pkg/apperrors"
	"github.com/merchkit/storefront-api/pkg/logger"
)

// CartService handles storefront cart items
type CartService struct {
	store  *store.Store
	logger logger.Logger
}

// NewCartService creates a new CartService
func NewCartService(st *store.Store, logger logger.Logger) *CartService {
	return &CartService{store: st, logger: logger}
}

// AddCartItemInput carries an add-to-cart request
type AddCartItemInput struct {
	CartID    string `json:"cart_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// AddItem puts a product in the cart. Adding a product already in the cart
// bumps its quantity instead of creating a second line.
func (s *CartService) AddItem(ctx context.Context, input AddCartItemInput) (*models.CartItem, error) {
	if input.CartID == "" {
		return nil, apperrors.NewValidation("VALIDATION_ERROR", "cart id is required")
	}
	if input.Quantity < 1 {
		return nil, apperrors.NewValidation("INVALID_QUANTITY", "quantity must be at least 1")
	}

	if _, err := s.store.Products.GetByID(ctx, input.ProductID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NewNotFound("PRODUCT_NOT_FOUND", "product not found")
		}
		return nil, err
	}

	existing, err := s.store.Carts.GetByCartAndProduct(ctx, input.CartID, input.ProductID)
	if err == nil {
		existing.Quantity += input.Quantity
		if err := s.store.Carts.UpdateQuantity(ctx, existing.ID, existing.Quantity); err != nil {
			return nil, err
		}
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	item := models.NewCartItem(input.CartID, input.ProductID, input.Quantity)
	if err := s.store.Carts.Add(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// ListItems returns the cart's lines joined with product name and price
func (s *CartService) ListItems(ctx context.Context, cartID string) ([]*models.CartLine, error) {
	if cartID == "" {
		return nil, apperrors.NewValidation("VALIDATION_ERROR", "cart id is required")
	}

	items, err := s.store.Carts.ListByCart(ctx, cartID)
	if err != nil {
		return nil, err
	}

	lines := make([]*models.CartLine, 0, len(items))
	for _, item := range items {
		line := &models.CartLine{CartItem: *item}

		product, err := s.store.Products.GetByID(ctx, item.ProductID)
		if err == nil {
			line.ProductName = product.Name
			line.UnitPrice = product.SellingPrice()
			line.LineTotal = line.UnitPrice * float64(item.Quantity)
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}

		lines = append(lines, line)
	}
	return lines, nil
}

// UpdateQuantity sets a cart line's quantity
func (s *CartService) UpdateQuantity(ctx context.Context, id string, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, apperrors.NewValidation("INVALID_QUANTITY", "quantity must be at least 1")
	}

	if err := s.store.Carts.UpdateQuantity(ctx, id, quantity); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NewNotFound("CART_ITEM_NOT_FOUND", "cart item not found")
		}
		return nil, err
	}
	return s.store.Carts.Get(ctx, id)
}

// RemoveItem deletes a cart line
func (s *CartService) RemoveItem(ctx context.Context, id string) error {
	if err := s.store.Carts.Remove(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.NewNotFound("CART_ITEM_NOT_FOUND", "cart item not found")
		}
		return err
	}
	return nil
}
