package service

import (
	"context"
	"errors"

	"github.com/merchkit/storefront-api/internal/models"
	"github.com/merchkit/storefront-api/internal/segment"
	"github.com/merchkit/storefront-api/internal/store"
	"github.com/merchkit/storefront-api/pkg/apperrors"
	"github.com/merchkit/storefront-api/pkg/logger"
)

// CustomerService handles customer operations. Segment and spend figures are
// derived from order history on every read.
type CustomerService struct {
	store  *store.Store
	logger logger.Logger
}

// NewCustomerService creates a new CustomerService
func NewCustomerService(st *store.Store, logger logger.Logger) *CustomerService {
	return &CustomerService{store: st, logger: logger}
}

// CustomerInput carries the writable customer fields
type CustomerInput struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// CustomerDetail is the fetch-by-id read shape: stats plus order history
type CustomerDetail struct {
	models.CustomerWithStats
	Orders []*models.Order `json:"orders"`
}

func (s *CustomerService) statsFor(ctx context.Context, email string) (models.CustomerStats, error) {
	rollup, err := s.store.Orders.RollupForCustomerEmail(ctx, email)
	if err != nil {
		return models.CustomerStats{}, err
	}

	return models.CustomerStats{
		TotalSpent:    rollup.TotalSpent,
		OrderCount:    rollup.OrderCount,
		AvgOrderValue: segment.AvgOrderValue(rollup.OrderCount, rollup.TotalSpent),
		FirstOrderAt:  rollup.FirstOrderAt,
		LastOrderAt:   rollup.LastOrderAt,
		Segment:       string(segment.Classify(rollup.OrderCount, rollup.TotalSpent)),
	}, nil
}

// CreateCustomer validates and writes a new customer with its outbox event
func (s *CustomerService) CreateCustomer(ctx context.Context, input CustomerInput) (*models.Customer, error) {
	if input.Name == "" {
		return nil, apperrors.NewValidation("VALIDATION_ERROR", "customer name is required")
	}
	if input.Email == "" {
		return nil, apperrors.NewValidation("VALIDATION_ERROR", "customer email is required")
	}
	if !validEmail(input.Email) {
		return nil, apperrors.NewValidation("VALIDATION_ERROR", "customer email is invalid")
	}

	customer := models.NewCustomer(input.Email, input.Name, input.Phone, input.Address)

	msg, err := models.NewCustomerCreatedEvent(customer)
	if err != nil {
		s.logger.Error("Failed to build customer created event", "error", err)
		return nil, err
	}

	if err := s.store.Customers.Create(ctx, customer, msg); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperrors.NewGuard("DUPLICATE_EMAIL", "a customer with this email already exists")
		}
		return nil, err
	}

	s.logger.Info("Customer created", "customer_id", customer.ID)
	return customer, nil
}

// GetCustomer retrieves a customer with derived stats and order history
func (s *CustomerService) GetCustomer(ctx context.Context, id string) (*CustomerDetail, error) {
	customer, err := s.store.Customers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NewNotFound("CUSTOMER_NOT_FOUND", "customer not found")
		}
		return nil, err
	}

	stats, err := s.statsFor(ctx, customer.Email)
	if err != nil {
		return nil, err
	}

	orders, err := s.store.Orders.ListForCustomerEmail(ctx, customer.Email)
	if err != nil {
		return nil, err
	}

	return &CustomerDetail{
		CustomerWithStats: models.CustomerWithStats{Customer: *customer, CustomerStats: stats},
		Orders:            orders,
	}, nil
}

// ListCustomers retrieves customers with derived stats, plus the total count
func (s *CustomerService) ListCustomers(ctx context.Context, search string, limit, offset int) ([]*models.CustomerWithStats, int, error) {
	customers, total, err := s.store.Customers.List(ctx, search, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	enriched := make([]*models.CustomerWithStats, 0, len(customers))
	for _, customer := range customers {
		stats, err := s.statsFor(ctx, customer.Email)
		if err != nil {
			return nil, 0, err
		}
		enriched = append(enriched, &models.CustomerWithStats{Customer: *customer, CustomerStats: stats})
	}
	return enriched, total, nil
}

// UpdateCustomer applies a partial update to name/phone/address/email
func (s *CustomerService) UpdateCustomer(ctx context.Context, id string, input CustomerInput) (*models.Customer, error) {
	customer, err := s.store.Customers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NewNotFound("CUSTOMER_NOT_FOUND", "customer not found")
		}
		return nil, err
	}

	if input.Email != "" {
		if !validEmail(input.Email) {
			return nil, apperrors.NewValidation("VALIDATION_ERROR", "customer email is invalid")
		}
		customer.Email = models.NormalizeEmail(input.Email)
	}
	if input.Name != "" {
		customer.Name = input.Name
	}
	if input.Phone != "" {
		customer.Phone = input.Phone
	}
	if input.Address != "" {
		customer.Address = input.Address
	}
	customer.UpdatedAt = models.GetCurrentTime()

	if err := s.store.Customers.Update(ctx, customer); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperrors.NewGuard("DUPLICATE_EMAIL", "a customer with this email already exists")
		}
		return nil, err
	}
	return customer, nil
}

// DeleteCustomer removes a customer unless they have orders
func (s *CustomerService) DeleteCustomer(ctx context.Context, id string) error {
	customer, err := s.store.Customers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.NewNotFound("CUSTOMER_NOT_FOUND", "customer not found")
		}
		return err
	}

	count, err := s.store.Orders.CountForCustomerEmail(ctx, customer.Email)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperrors.NewGuard("CUSTOMER_HAS_ORDERS", "customer has existing orders")
	}

	if err := s.store.Customers.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Customer deleted", "customer_id", id)
	return nil
}
