package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merchkit/storefront-api/internal/settings"
	"github.com/merchkit/storefront-api/pkg/apperrors"
	"github.com/merchkit/storefront-api/pkg/logger"
)

func newSettingsService() (*SettingsService, *fakeState) {
	st, state := newFakeStore()
	return NewSettingsService(settings.NewRegistry(), st, logger.NewNopLogger()), state
}

func TestGetSettingFallsBackToDefault(t *testing.T) {
	svc, _ := newSettingsService()

	value, err := svc.GetSetting(context.Background(), "setting_store_name")
	require.NoError(t, err)
	assert.True(t, value.IsDefault)
	assert.Equal(t, "My Store", value.Value)
	assert.Nil(t, value.UpdatedAt)

	_, err = svc.GetSetting(context.Background(), "setting_bogus")
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "SETTING_NOT_FOUND", appErr.Code)
	assert.Equal(t, 404, appErr.StatusCode)
}

func TestPutSettingsFailClosedOnValidation(t *testing.T) {
	svc, state := newSettingsService()

	outcome, err := svc.PutSettings(context.Background(), map[string]string{
		"setting_store_name": "Acme",
		"setting_tax_rate":   "not-a-number",
		"setting_currency":   "BTC",
	})
	require.NoError(t, err)
	require.Len(t, outcome.ValidationErrors, 2)
	assert.Contains(t, outcome.ValidationErrors, "setting_tax_rate")
	assert.Contains(t, outcome.ValidationErrors, "setting_currency")

	// nothing was written, including the valid key
	assert.Empty(t, state.settings)
}

func TestPutSettingsWritesAndCoercesTypes(t *testing.T) {
	svc, _ := newSettingsService()

	outcome, err := svc.PutSettings(context.Background(), map[string]string{
		"setting_tax_rate":         "8.25",
		"setting_maintenance_mode": "true",
	})
	require.NoError(t, err)
	assert.Empty(t, outcome.ValidationErrors)
	assert.False(t, outcome.Partial)
	assert.Equal(t, "ok", outcome.Results["setting_tax_rate"])

	tax, err := svc.GetSetting(context.Background(), "setting_tax_rate")
	require.NoError(t, err)
	assert.False(t, tax.IsDefault)
	assert.Equal(t, 8.25, tax.Value)
	require.NotNil(t, tax.UpdatedAt)

	maintenance, err := svc.GetSetting(context.Background(), "setting_maintenance_mode")
	require.NoError(t, err)
	assert.Equal(t, true, maintenance.Value)
}

func TestPutSettingsPartialOnStoreFailure(t *testing.T) {
	svc, state := newSettingsService()
	state.failSetting["setting_theme"] = true

	outcome, err := svc.PutSettings(context.Background(), map[string]string{
		"setting_store_name": "Acme",
		"setting_theme":      "dark",
	})
	require.NoError(t, err)
	assert.True(t, outcome.Partial)
	assert.Equal(t, "ok", outcome.Results["setting_store_name"])
	assert.Equal(t, "failed", outcome.Results["setting_theme"])
	assert.Contains(t, state.settings, "setting_store_name")
}

func TestListSettingsByCategory(t *testing.T) {
	svc, _ := newSettingsService()

	all, err := svc.ListSettings(context.Background(), "")
	require.NoError(t, err)
	assert.Greater(t, len(all), 5)

	checkout, err := svc.ListSettings(context.Background(), "checkout")
	require.NoError(t, err)
	require.NotEmpty(t, checkout)
	for _, value := range checkout {
		assert.Equal(t, "checkout", value.Category)
	}
}
