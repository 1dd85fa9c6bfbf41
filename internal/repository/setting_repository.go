package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/merchkit/storefront-api/internal/database"
	"github.com/merchkit/storefront-api/internal/models"
	"github.com/merchkit/storefront-api/internal/store"
	"github.com/merchkit/storefront-api/pkg/logger"
)

// SettingRepository implements store.SettingStore on Postgres
type SettingRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewSettingRepository creates a new SettingRepository
func NewSettingRepository(db *database.Database, logger logger.Logger) *SettingRepository {
	return &SettingRepository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves a stored setting by key
func (r *SettingRepository) Get(ctx context.Context, key string) (*models.Setting, error) {
	query := `SELECT key, value, updated_at FROM settings WHERE key = $1`

	var setting models.Setting
	if err := r.db.DB.GetContext(ctx, &setting, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		r.logger.Error("Failed to get setting", "error", err, "key", key)
		return nil, fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return &setting, nil
}

// List retrieves all stored settings
func (r *SettingRepository) List(ctx context.Context) ([]*models.Setting, error) {
	query := `SELECT key, value, updated_at FROM settings ORDER BY key ASC`

	var settings []*models.Setting
	if err := r.db.DB.SelectContext(ctx, &settings, query); err != nil {
		r.logger.Error("Failed to list settings", "error", err)
		return nil, fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return settings, nil
}

// Put upserts a setting value
func (r *SettingRepository) Put(ctx context.Context, setting *models.Setting) error {
	query := `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.DB.ExecContext(ctx, query, setting.Key, setting.Value, models.GetCurrentTime()); err != nil {
		r.logger.Error("Failed to put setting", "error", err, "key", setting.Key)
		return fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return nil
}

// MetricRepository implements store.MetricStore on Postgres
type MetricRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewMetricRepository creates a new MetricRepository
func NewMetricRepository(db *database.Database, logger logger.Logger) *MetricRepository {
	return &MetricRepository{
		db:     db,
		logger: logger,
	}
}

// Append adds one point to the metric time series
func (r *MetricRepository) Append(ctx context.Context, point *models.MetricPoint) error {
	query := `
		INSERT INTO metrics (id, name, value, date, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if _, err := r.db.DB.ExecContext(ctx, query,
		point.ID, point.Name, point.Value, point.Date, point.CreatedAt,
	); err != nil {
		r.logger.Error("Failed to append metric point", "error", err, "name", point.Name)
		return fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return nil
}

// Range retrieves metric points for a name within [from, to]
func (r *MetricRepository) Range(ctx context.Context, name string, from, to time.Time) ([]*models.MetricPoint, error) {
	query := `
		SELECT id, name, value, date, created_at
		FROM metrics
		WHERE name = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC
	`

	var points []*models.MetricPoint
	if err := r.db.DB.SelectContext(ctx, &points, query, name, from, to); err != nil {
		r.logger.Error("Failed to query metric range", "error", err, "name", name)
		return nil, fmt.Errorf("%w: %v", store.ErrDatabase, err)
	}

	return points, nil
}
