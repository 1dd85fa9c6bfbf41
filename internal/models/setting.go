package models

import (
	"time"
)

// Setting is one stored configuration value. Typing and validation live in the
// settings registry; the store only sees raw strings.
type Setting struct {
	Key       string    `db:"key" json:"key" bson:"_id"`
	Value     string    `db:"value" json:"value" bson:"value"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at" bson:"updated_at"`
}

// MetricPoint is one entry in the append-only metric time series. Stored in
// its own table/collection, apart from settings.
type MetricPoint struct {
	ID        string    `db:"id" json:"id" bson:"_id"`
	Name      string    `db:"name" json:"name" bson:"name"`
	Value     float64   `db:"value" json:"value" bson:"value"`
	Date      time.Time `db:"date" json:"date" bson:"date"`
	CreatedAt time.Time `db:"created_at" json:"created_at" bson:"created_at"`
}

// NewMetricPoint creates a metric point dated to the given day
func NewMetricPoint(name string, value float64, date time.Time) *MetricPoint {
	return &MetricPoint{
		ID:        GenerateID("mtr"),
		Name:      name,
		Value:     value,
		Date:      date.UTC().Truncate(24 * time.Hour),
		CreatedAt: GetCurrentTime(),
	}
}
