package settings

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name    string
		key     string
		value   string
		wantErr bool
	}{
		{"unknown key", "setting_bogus", "x", true},
		{"valid string", "setting_store_name", "Acme Outfitters", false},
		{"required string empty", "setting_store_name", "", true},
		{"optional string empty", "setting_store_description", "", false},
		{"string too long", "setting_order_id_pattern", "ORD-" + strings.Repeat("x", 50), true},
		{"valid number", "setting_tax_rate", "8.25", false},
		{"number not numeric", "setting_tax_rate", "eight", true},
		{"number below min", "setting_tax_rate", "-1", true},
		{"number above max", "setting_tax_rate", "101", true},
		{"valid boolean", "setting_maintenance_mode", "false", false},
		{"boolean not boolean", "setting_maintenance_mode", "maybe", true},
		{"valid email", "setting_support_email", "help@acme.test", false},
		{"invalid email", "setting_support_email", "not-an-email", true},
		{"valid enum", "setting_currency", "EUR", false},
		{"enum not member", "setting_currency", "BTC", true},
		{"valid json", "setting_social_links", `{"twitter":"https://x.com/acme"}`, false},
		{"invalid json", "setting_social_links", `{"twitter":`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Validate(tt.key, tt.value)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCoerce(t *testing.T) {
	r := NewRegistry()

	num, ok := r.Lookup("setting_tax_rate")
	require.True(t, ok)
	assert.Equal(t, 8.25, r.Coerce(num, "8.25"))

	boolean, ok := r.Lookup("setting_maintenance_mode")
	require.True(t, ok)
	assert.Equal(t, true, r.Coerce(boolean, "true"))

	js, ok := r.Lookup("setting_social_links")
	require.True(t, ok)
	assert.Equal(t, map[string]interface{}{"a": "b"}, r.Coerce(js, `{"a":"b"}`))

	str, ok := r.Lookup("setting_store_name")
	require.True(t, ok)
	assert.Equal(t, "Acme", r.Coerce(str, "Acme"))

	// malformed stored values fall back to the raw string
	assert.Equal(t, "oops", r.Coerce(num, "oops"))
}

func TestByCategory(t *testing.T) {
	r := NewRegistry()

	checkout := r.ByCategory("checkout")
	require.NotEmpty(t, checkout)
	for _, def := range checkout {
		assert.Equal(t, "checkout", def.Category)
	}

	assert.Empty(t, r.ByCategory("nonexistent"))
}
