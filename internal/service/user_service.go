package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/merchkit/storefront-api/internal/models"
	"github.com/merchkit/storefront-api/internal/store"
	"github.com/merchkit/storefront-api/pkg/apperrors"
	"github.com/merchkit/storefront-api/pkg/logger"
)

// UserService handles back-office user accounts
type UserService struct {
	store  *store.Store
	logger logger.Logger
}

// NewUserService creates a new UserService
func NewUserService(st *store.Store, logger logger.Logger) *UserService {
	return &UserService{store: st, logger: logger}
}

// CreateUserInput carries the fields of a new user
type CreateUserInput struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// UpdateUserInput carries a partial user update
type UpdateUserInput struct {
	Name     *string `json:"name"`
	Role     *string `json:"role"`
	Password *string `json:"password"`
}

const minPasswordLength = 8

// CreateUser validates, hashes the password and writes a new user
func (s *UserService) CreateUser(ctx context.Context, input CreateUserInput) (*models.User, error) {
	if input.Name == "" {
		return nil, apperrors.NewValidation("VALIDATION_ERROR", "user name is required")
	}
	if input.Email == "" || !validEmail(input.Email) {
		return nil, apperrors.NewValidation("VALIDATION_ERROR", "a valid email is required")
	}
	if len(input.Password) < minPasswordLength {
		return nil, apperrors.NewValidation("VALIDATION_ERROR",
			fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if !models.ValidRole(input.Role) {
		return nil, apperrors.NewValidation("INVALID_ROLE", fmt.Sprintf("unknown role %q", input.Role))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := models.NewUser(input.Email, input.Name, string(hash), models.Role(input.Role))

	if err := s.store.Users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperrors.NewGuard("DUPLICATE_EMAIL", "a user with this email already exists")
		}
		return nil, err
	}

	s.logger.Info("User created", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// GetUser retrieves a user by id
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.store.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NewNotFound("USER_NOT_FOUND", "user not found")
		}
		return nil, err
	}
	return user, nil
}

// ListUsers retrieves users, optionally narrowed to one role
func (s *UserService) ListUsers(ctx context.Context, role string, limit, offset int) ([]*models.User, int, error) {
	if role != "" && !models.ValidRole(role) {
		return nil, 0, apperrors.NewValidation("INVALID_ROLE", fmt.Sprintf("unknown role %q", role))
	}
	return s.store.Users.List(ctx, role, limit, offset)
}

// isLastAdmin reports whether the user is the only admin account left
func (s *UserService) isLastAdmin(ctx context.Context, user *models.User) (bool, error) {
	if user.Role != models.RoleAdmin {
		return false, nil
	}
	count, err := s.store.Users.CountByRole(ctx, models.RoleAdmin)
	if err != nil {
		return false, err
	}
	return count <= 1, nil
}

// UpdateUser applies a partial update. Demoting the sole remaining admin is
// blocked, as is an unknown role.
func (s *UserService) UpdateUser(ctx context.Context, id string, input UpdateUserInput) (*models.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Role != nil {
		if !models.ValidRole(*input.Role) {
			return nil, apperrors.NewValidation("INVALID_ROLE", fmt.Sprintf("unknown role %q", *input.Role))
		}
		if models.Role(*input.Role) != models.RoleAdmin {
			last, err := s.isLastAdmin(ctx, user)
			if err != nil {
				return nil, err
			}
			if last {
				return nil, apperrors.NewGuard("LAST_ADMIN", "cannot demote the last remaining admin")
			}
		}
		user.Role = models.Role(*input.Role)
	}
	if input.Name != nil {
		if *input.Name == "" {
			return nil, apperrors.NewValidation("VALIDATION_ERROR", "user name must not be empty")
		}
		user.Name = *input.Name
	}
	if input.Password != nil {
		if len(*input.Password) < minPasswordLength {
			return nil, apperrors.NewValidation("VALIDATION_ERROR",
				fmt.Sprintf("password must be at least %d characters", minPasswordLength))
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = string(hash)
	}
	user.UpdatedAt = models.GetCurrentTime()

	if err := s.store.Users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes a user unless they are the last remaining admin
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}

	last, err := s.isLastAdmin(ctx, user)
	if err != nil {
		return err
	}
	if last {
		return apperrors.NewGuard("LAST_ADMIN", "cannot delete the last remaining admin")
	}

	if err := s.store.Users.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("User deleted", "user_id", id)
	return nil
}
