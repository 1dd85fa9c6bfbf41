package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merchkit/storefront-api/internal/store"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParsePeriod(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	p := ParsePeriod("", "", "7d", now)
	require.NotNil(t, p.From)
	require.NotNil(t, p.To)
	assert.Equal(t, now.AddDate(0, 0, -7), *p.From)
	assert.Equal(t, now, *p.To)

	p = ParsePeriod("", "", "all", now)
	assert.Nil(t, p.From)
	assert.Nil(t, p.To)

	// unrecognized period means all time
	p = ParsePeriod("", "", "14d", now)
	assert.Nil(t, p.From)
	assert.Nil(t, p.To)

	p = ParsePeriod("2026-01-01T00:00:00Z", "2026-02-01T00:00:00Z", "", now)
	require.NotNil(t, p.From)
	require.NotNil(t, p.To)
	assert.Equal(t, day(2026, 1, 1), *p.From)
	assert.Equal(t, day(2026, 2, 1), *p.To)

	// malformed explicit bounds fall back to the named period
	p = ParsePeriod("yesterday", "", "30d", now)
	require.NotNil(t, p.From)
	assert.Equal(t, now.AddDate(0, 0, -30), *p.From)
}

func TestPeriodPrevious(t *testing.T) {
	from := day(2026, 3, 8)
	to := day(2026, 3, 15)
	p := Period{From: &from, To: &to}

	prev := p.Previous()
	require.NotNil(t, prev.From)
	require.NotNil(t, prev.To)
	assert.True(t, prev.To.Before(from))
	assert.Equal(t, p.To.Sub(*p.From), prev.To.Sub(*prev.From))

	assert.Nil(t, Period{}.Previous().From)
}

func TestGrowth(t *testing.T) {
	assert.Equal(t, 0.0, Growth(100, 0))
	assert.Equal(t, 25.0, Growth(125, 100))
	assert.Equal(t, -50.0, Growth(50, 100))
	assert.Equal(t, 33.33, Growth(400, 300))
}

func TestValidGranularity(t *testing.T) {
	assert.True(t, ValidGranularity("daily"))
	assert.True(t, ValidGranularity("weekly"))
	assert.True(t, ValidGranularity("monthly"))
	assert.False(t, ValidGranularity("hourly"))
	assert.False(t, ValidGranularity(""))
}

func TestMargin(t *testing.T) {
	assert.Equal(t, 0.0, Margin(0, 10))
	assert.Equal(t, 50.0, Margin(100, 50))
	assert.Equal(t, 33.33, Margin(30, 20))
}

func TestTurnoverAndDaysToSell(t *testing.T) {
	assert.Equal(t, 2.0, Turnover(20, 10))
	// zero stock floors at 1
	assert.Equal(t, 5.0, Turnover(5, 0))
	assert.Equal(t, 0.0, Turnover(0, 10))

	assert.Equal(t, 15.0, DaysToSell(30, 2))
	assert.Equal(t, 0.0, DaysToSell(30, 0))
}

func TestFillSeriesDaily(t *testing.T) {
	from := day(2026, 3, 1)
	to := day(2026, 3, 5)
	points := []store.DayPoint{
		{Date: day(2026, 3, 2), Revenue: 100, Orders: 2},
		{Date: day(2026, 3, 4), Revenue: 50, Orders: 1},
	}

	series := FillSeries(points, Period{From: &from, To: &to}, GranularityDaily)
	require.Len(t, series, 5)
	assert.Equal(t, 0.0, series[0].Revenue)
	assert.Equal(t, 100.0, series[1].Revenue)
	assert.Equal(t, 2, series[1].Orders)
	assert.Equal(t, 0.0, series[2].Revenue)
	assert.Equal(t, 50.0, series[3].Revenue)
	assert.Equal(t, 0.0, series[4].Revenue)
}

func TestFillSeriesWeekly(t *testing.T) {
	from := day(2026, 3, 2) // a Monday
	to := day(2026, 3, 15)
	points := []store.DayPoint{
		{Date: day(2026, 3, 3), Revenue: 10, Orders: 1},
		{Date: day(2026, 3, 6), Revenue: 20, Orders: 1},
		{Date: day(2026, 3, 10), Revenue: 40, Orders: 2},
	}

	series := FillSeries(points, Period{From: &from, To: &to}, GranularityWeekly)
	require.Len(t, series, 2)
	assert.Equal(t, day(2026, 3, 2), series[0].Date)
	assert.Equal(t, 30.0, series[0].Revenue)
	assert.Equal(t, 2, series[0].Orders)
	assert.Equal(t, day(2026, 3, 9), series[1].Date)
	assert.Equal(t, 40.0, series[1].Revenue)
}

func TestFillSeriesMonthly(t *testing.T) {
	from := day(2026, 1, 15)
	to := day(2026, 3, 10)
	points := []store.DayPoint{
		{Date: day(2026, 1, 20), Revenue: 100, Orders: 1},
		{Date: day(2026, 3, 1), Revenue: 300, Orders: 3},
	}

	series := FillSeries(points, Period{From: &from, To: &to}, GranularityMonthly)
	require.Len(t, series, 3)
	assert.Equal(t, 100.0, series[0].Revenue)
	assert.Equal(t, 0.0, series[1].Revenue)
	assert.Equal(t, 300.0, series[2].Revenue)
}

func TestFillSeriesUnboundedUsesData(t *testing.T) {
	points := []store.DayPoint{
		{Date: day(2026, 2, 1), Revenue: 10, Orders: 1},
		{Date: day(2026, 2, 3), Revenue: 30, Orders: 1},
	}

	series := FillSeries(points, Period{}, GranularityDaily)
	require.Len(t, series, 3)
	assert.Equal(t, 10.0, series[0].Revenue)
	assert.Equal(t, 0.0, series[1].Revenue)
	assert.Equal(t, 30.0, series[2].Revenue)

	assert.Empty(t, FillSeries(nil, Period{}, GranularityDaily))
}

func TestStatusBreakdown(t *testing.T) {
	counts := map[string]int{"pending": 1, "delivered": 2}
	statuses := []string{"pending", "processing", "shipped", "delivered", "cancelled"}

	slices := StatusBreakdown(counts, statuses)
	require.Len(t, slices, 5)
	assert.Equal(t, 33.33, slices[0].Percentage)
	assert.Equal(t, 0, slices[1].Count)
	assert.Equal(t, 0.0, slices[1].Percentage)
	assert.Equal(t, 66.67, slices[3].Percentage)

	empty := StatusBreakdown(map[string]int{}, statuses)
	for _, s := range empty {
		assert.Equal(t, 0.0, s.Percentage)
	}
}
