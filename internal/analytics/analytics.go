// Package analytics holds the pure computations behind the analytics
// endpoints: period parsing, growth, bucketed series fill, margins and
// inventory turnover. Everything here is store-free and unit-testable.
package analytics

import (
	"math"
	"time"

	"github.com/merchkit/storefront-api/internal/store"
)

// Granularity buckets the time series
type Granularity string

const (
	GranularityDaily   Granularity = "daily"
	GranularityWeekly  Granularity = "weekly"
	GranularityMonthly Granularity = "monthly"
)

// ValidGranularity reports whether s names a known granularity
func ValidGranularity(s string) bool {
	switch Granularity(s) {
	case GranularityDaily, GranularityWeekly, GranularityMonthly:
		return true
	}
	return false
}

// Period is a resolved reporting window. From/To are nil for all time.
type Period struct {
	From *time.Time
	To   *time.Time
}

// ParsePeriod resolves explicit from/to RFC 3339 values or a named period
// (7d, 30d, 90d, all). Anything unrecognized means all time.
func ParsePeriod(fromStr, toStr, period string, now time.Time) Period {
	if fromStr != "" || toStr != "" {
		var p Period
		if t, err := time.Parse(time.RFC3339, fromStr); err == nil {
			t = t.UTC()
			p.From = &t
		}
		if t, err := time.Parse(time.RFC3339, toStr); err == nil {
			t = t.UTC()
			p.To = &t
		}
		if p.From != nil || p.To != nil {
			return p
		}
	}

	var days int
	switch period {
	case "7d":
		days = 7
	case "30d":
		days = 30
	case "90d":
		days = 90
	default:
		return Period{}
	}

	to := now.UTC()
	from := to.AddDate(0, 0, -days)
	return Period{From: &from, To: &to}
}

// Previous returns the equal-length window immediately before p. A window
// without bounds has no meaningful prior period.
func (p Period) Previous() Period {
	if p.From == nil || p.To == nil {
		return Period{}
	}
	length := p.To.Sub(*p.From)
	prevTo := p.From.Add(-time.Nanosecond)
	prevFrom := prevTo.Add(-length)
	return Period{From: &prevFrom, To: &prevTo}
}

// Days is the window length in whole days, at least 1
func (p Period) Days() int {
	if p.From == nil || p.To == nil {
		return 1
	}
	days := int(p.To.Sub(*p.From).Hours() / 24)
	if days < 1 {
		return 1
	}
	return days
}

// Growth is the percentage change from prior to current, 0 when prior is 0
func Growth(current, prior float64) float64 {
	if prior == 0 {
		return 0
	}
	return Round2((current - prior) / prior * 100)
}

// Round2 rounds to two decimal places
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Margin is the profit percentage of the selling price, 0 when sell is 0
func Margin(sell, cost float64) float64 {
	if sell == 0 {
		return 0
	}
	return Round2((sell - cost) / sell * 100)
}

// Turnover is units sold per unit of stock on hand. Stock is floored at 1 so
// out-of-stock products still report their sales velocity.
func Turnover(sold, stock int) float64 {
	s := stock
	if s < 1 {
		s = 1
	}
	return float64(sold) / float64(s)
}

// DaysToSell estimates days to clear current stock at the period's sales
// rate, 0 when nothing sold
func DaysToSell(periodDays int, turnover float64) float64 {
	if turnover == 0 {
		return 0
	}
	return Round2(float64(periodDays) / turnover)
}

// SeriesPoint is one zero-filled bucket of the revenue series
type SeriesPoint struct {
	Date    time.Time `json:"date"`
	Revenue float64   `json:"revenue"`
	Orders  int       `json:"orders"`
}

// bucketStart truncates t to the start of its bucket
func bucketStart(t time.Time, g Granularity) time.Time {
	t = t.UTC()
	switch g {
	case GranularityWeekly:
		day := t.Truncate(24 * time.Hour)
		offset := (int(day.Weekday()) + 6) % 7 // weeks start Monday
		return day.AddDate(0, 0, -offset)
	case GranularityMonthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return t.Truncate(24 * time.Hour)
	}
}

func nextBucket(t time.Time, g Granularity) time.Time {
	switch g {
	case GranularityWeekly:
		return t.AddDate(0, 0, 7)
	case GranularityMonthly:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

// FillSeries rolls the per-day store points into granularity buckets and
// zero-fills every bucket of the window. With an unbounded window the range
// is taken from the data itself.
func FillSeries(points []store.DayPoint, p Period, g Granularity) []SeriesPoint {
	from, to := p.From, p.To
	if from == nil || to == nil {
		if len(points) == 0 {
			return []SeriesPoint{}
		}
		first := points[0].Date
		last := points[len(points)-1].Date
		if from == nil {
			from = &first
		}
		if to == nil {
			last = last.Add(time.Nanosecond)
			to = &last
		}
	}

	totals := make(map[time.Time]*SeriesPoint)
	for _, pt := range points {
		key := bucketStart(pt.Date, g)
		if b, ok := totals[key]; ok {
			b.Revenue += pt.Revenue
			b.Orders += pt.Orders
		} else {
			totals[key] = &SeriesPoint{Date: key, Revenue: pt.Revenue, Orders: pt.Orders}
		}
	}

	series := []SeriesPoint{}
	for cur := bucketStart(*from, g); !cur.After(*to); cur = nextBucket(cur, g) {
		if b, ok := totals[cur]; ok {
			series = append(series, *b)
		} else {
			series = append(series, SeriesPoint{Date: cur})
		}
	}
	return series
}

// StatusSlice is one entry of the status breakdown
type StatusSlice struct {
	Status     string  `json:"status"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// StatusBreakdown converts per-status counts into ordered slices with
// two-decimal percentages. statuses fixes the output order and includes
// zero rows.
func StatusBreakdown(counts map[string]int, statuses []string) []StatusSlice {
	total := 0
	for _, c := range counts {
		total += c
	}

	slices := make([]StatusSlice, 0, len(statuses))
	for _, status := range statuses {
		count := counts[status]
		pct := 0.0
		if total > 0 {
			pct = Round2(float64(count) / float64(total) * 100)
		}
		slices = append(slices, StatusSlice{Status: status, Count: count, Percentage: pct})
	}
	return slices
}
