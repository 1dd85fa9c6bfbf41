package service

import (
	"context"
	"errors"
	"time"

	"github.com/merchkit/storefront-api/internal/models"
	"github.com/merchkit/storefront-api/internal/settings"
	"github.com/merchkit/storefront-api/internal/store"
	"github.com/merchkit/storefront-api/pkg/apperrors"
	"github.com/merchkit/storefront-api/pkg/logger"
)

// SettingsService combines the typed registry with the setting store
type SettingsService struct {
	registry *settings.Registry
	store    *store.Store
	logger   logger.Logger
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(registry *settings.Registry, st *store.Store, logger logger.Logger) *SettingsService {
	return &SettingsService{registry: registry, store: st, logger: logger}
}

// SettingValue is the read shape of one setting
type SettingValue struct {
	Key       string      `json:"key"`
	Type      string      `json:"type"`
	Category  string      `json:"category"`
	Value     interface{} `json:"value"`
	IsDefault bool        `json:"is_default"`
	UpdatedAt *time.Time  `json:"updated_at,omitempty"`
}

// BatchOutcome is the result of a batch settings write. ValidationErrors set
// means nothing was written. Partial set means writes started and some keys
// failed on the store.
type BatchOutcome struct {
	ValidationErrors map[string]string `json:"validation_errors,omitempty"`
	Results          map[string]string `json:"results,omitempty"`
	Partial          bool              `json:"-"`
}

func (s *SettingsService) resolve(ctx context.Context, def settings.Definition) (*SettingValue, error) {
	value := &SettingValue{
		Key:      def.Key,
		Type:     string(def.Type),
		Category: def.Category,
	}

	stored, err := s.store.Settings.Get(ctx, def.Key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			value.Value = s.registry.Coerce(def, def.Default)
			value.IsDefault = true
			return value, nil
		}
		return nil, err
	}

	value.Value = s.registry.Coerce(def, stored.Value)
	updatedAt := stored.UpdatedAt
	value.UpdatedAt = &updatedAt
	return value, nil
}

// GetSetting resolves one key, falling back to its default
func (s *SettingsService) GetSetting(ctx context.Context, key string) (*SettingValue, error) {
	def, ok := s.registry.Lookup(key)
	if !ok {
		return nil, apperrors.NewNotFound("SETTING_NOT_FOUND", "unknown setting key")
	}
	return s.resolve(ctx, def)
}

// ListSettings resolves every known key, optionally narrowed to one category
func (s *SettingsService) ListSettings(ctx context.Context, category string) ([]*SettingValue, error) {
	defs := s.registry.Definitions()
	if category != "" {
		defs = s.registry.ByCategory(category)
	}

	values := make([]*SettingValue, 0, len(defs))
	for _, def := range defs {
		value, err := s.resolve(ctx, def)
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, nil
}

// PutSettings applies a batch update. Every key is validated before any write;
// one invalid key rejects the whole batch with a per-key error map. Once
// writes begin, a store failure yields a partial outcome with per-key results.
func (s *SettingsService) PutSettings(ctx context.Context, updates map[string]string) (*BatchOutcome, error) {
	if len(updates) == 0 {
		return nil, apperrors.NewValidation("VALIDATION_ERROR", "no settings provided")
	}

	validationErrors := make(map[string]string)
	for key, raw := range updates {
		if err := s.registry.Validate(key, raw); err != nil {
			validationErrors[key] = err.Error()
		}
	}
	if len(validationErrors) > 0 {
		return &BatchOutcome{ValidationErrors: validationErrors}, nil
	}

	results := make(map[string]string, len(updates))
	failed := false
	for key, raw := range updates {
		setting := &models.Setting{Key: key, Value: raw, UpdatedAt: models.GetCurrentTime()}
		if err := s.store.Settings.Put(ctx, setting); err != nil {
			s.logger.Error("Failed to persist setting", "key", key, "error", err)
			results[key] = "failed"
			failed = true
			continue
		}
		results[key] = "ok"
	}

	return &BatchOutcome{Results: results, Partial: failed}, nil
}
