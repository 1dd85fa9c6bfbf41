// Package settings defines the typed settings registry: the closed catalog of
// setting keys, their types, constraints and defaults. Values are persisted as
// raw strings; this package owns coercion and validation.
package settings

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
)

// Type declares how a setting value is parsed and validated
type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeBoolean Type = "boolean"
	TypeEmail   Type = "email"
	TypeJSON    Type = "json"
	TypeEnum    Type = "enum"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Definition is one entry of the settings catalog
type Definition struct {
	Key       string
	Type      Type
	Category  string
	Default   string
	Required  bool
	MaxLength int      // strings and emails, 0 means unlimited
	Min       *float64 // numbers
	Max       *float64
	Enum      []string // enum membership
	Pattern   *regexp.Regexp
}

func ptr(f float64) *float64 { return &f }

// catalog is the closed set of known settings. Keys outside it are rejected.
var catalog = []Definition{
	{Key: "setting_store_name", Type: TypeString, Category: "general", Default: "My Store", Required: true, MaxLength: 120},
	{Key: "setting_store_description", Type: TypeString, Category: "general", Default: "", MaxLength: 500},
	{Key: "setting_support_email", Type: TypeEmail, Category: "general", Default: "support@example.com", Required: true},
	{Key: "setting_currency", Type: TypeEnum, Category: "general", Default: "USD", Enum: []string{"USD", "EUR", "GBP", "CAD", "AUD"}},
	{Key: "setting_tax_rate", Type: TypeNumber, Category: "checkout", Default: "0", Min: ptr(0), Max: ptr(100)},
	{Key: "setting_free_shipping_threshold", Type: TypeNumber, Category: "checkout", Default: "75", Min: ptr(0)},
	{Key: "setting_shipping_flat_rate", Type: TypeNumber, Category: "checkout", Default: "5.99", Min: ptr(0)},
	{Key: "setting_orders_per_page", Type: TypeNumber, Category: "admin", Default: "20", Min: ptr(1), Max: ptr(100)},
	{Key: "setting_low_stock_alerts", Type: TypeBoolean, Category: "admin", Default: "true"},
	{Key: "setting_maintenance_mode", Type: TypeBoolean, Category: "general", Default: "false"},
	{Key: "setting_theme", Type: TypeEnum, Category: "appearance", Default: "light", Enum: []string{"light", "dark", "system"}},
	{Key: "setting_social_links", Type: TypeJSON, Category: "appearance", Default: "{}"},
	{Key: "setting_order_id_pattern", Type: TypeString, Category: "admin", Default: "", Pattern: regexp.MustCompile(`^[A-Za-z0-9#-]*$`), MaxLength: 40},
}

// Registry indexes the catalog by key
type Registry struct {
	defs  map[string]Definition
	order []string
}

// NewRegistry builds the registry from the built-in catalog
func NewRegistry() *Registry {
	r := &Registry{defs: make(map[string]Definition, len(catalog))}
	for _, def := range catalog {
		r.defs[def.Key] = def
		r.order = append(r.order, def.Key)
	}
	return r
}

// Lookup retrieves the definition for a key
func (r *Registry) Lookup(key string) (Definition, bool) {
	def, ok := r.defs[key]
	return def, ok
}

// Definitions returns every definition in catalog order
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0, len(r.order))
	for _, key := range r.order {
		defs = append(defs, r.defs[key])
	}
	return defs
}

// ByCategory returns the definitions in one category, in catalog order
func (r *Registry) ByCategory(category string) []Definition {
	var defs []Definition
	for _, key := range r.order {
		if def := r.defs[key]; def.Category == category {
			defs = append(defs, def)
		}
	}
	return defs
}

// Validate checks a raw value against the key's definition. The returned
// error message is safe to surface per key in a batch response.
func (r *Registry) Validate(key, raw string) error {
	def, ok := r.defs[key]
	if !ok {
		return fmt.Errorf("unknown setting key")
	}

	if raw == "" {
		if def.Required {
			return fmt.Errorf("value is required")
		}
		return nil
	}

	switch def.Type {
	case TypeString:
		if def.MaxLength > 0 && len(raw) > def.MaxLength {
			return fmt.Errorf("value exceeds maximum length of %d", def.MaxLength)
		}
		if def.Pattern != nil && !def.Pattern.MatchString(raw) {
			return fmt.Errorf("value does not match required pattern")
		}
	case TypeNumber:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("value must be a number")
		}
		if def.Min != nil && n < *def.Min {
			return fmt.Errorf("value must be at least %g", *def.Min)
		}
		if def.Max != nil && n > *def.Max {
			return fmt.Errorf("value must be at most %g", *def.Max)
		}
	case TypeBoolean:
		if raw != "true" && raw != "false" {
			return fmt.Errorf("value must be true or false")
		}
	case TypeEmail:
		if def.MaxLength > 0 && len(raw) > def.MaxLength {
			return fmt.Errorf("value exceeds maximum length of %d", def.MaxLength)
		}
		if !emailPattern.MatchString(raw) {
			return fmt.Errorf("value must be a valid email address")
		}
	case TypeJSON:
		if !json.Valid([]byte(raw)) {
			return fmt.Errorf("value must be valid JSON")
		}
	case TypeEnum:
		for _, allowed := range def.Enum {
			if raw == allowed {
				return nil
			}
		}
		return fmt.Errorf("value must be one of %v", def.Enum)
	}

	return nil
}

// Coerce parses a raw stored value into its declared Go type. Invalid stored
// values fall back to the raw string rather than erroring a read.
func (r *Registry) Coerce(def Definition, raw string) interface{} {
	switch def.Type {
	case TypeNumber:
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return n
		}
	case TypeBoolean:
		if b, err := strconv.ParseBool(raw); err == nil {
			return b
		}
	case TypeJSON:
		var v interface{}
		if err := json.Unmarshal([]byte(raw), &v); err == nil {
			return v
		}
	}
	return raw
}
