package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		orderCount int
		totalSpent float64
		want       Segment
	}{
		{"no orders", 0, 0, SegmentNew},
		{"no orders with recorded spend", 0, 250, SegmentNew},
		{"no orders with vip-level spend", 0, 5000, SegmentNew},
		{"single small order", 1, 20, SegmentActive},
		{"two small orders", 2, 150, SegmentActive},
		{"three orders qualifies loyal", 3, 90, SegmentLoyal},
		{"high spend qualifies loyal", 1, 200, SegmentLoyal},
		{"five orders but low spend stays loyal", 5, 400, SegmentLoyal},
		{"high spend but few orders stays loyal", 2, 900, SegmentLoyal},
		{"vip needs both thresholds", 5, 500, SegmentVIP},
		{"well past vip", 12, 3400.50, SegmentVIP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.orderCount, tt.totalSpent))
		})
	}
}

func TestAvgOrderValue(t *testing.T) {
	assert.Equal(t, 0.0, AvgOrderValue(0, 0))
	assert.Equal(t, 0.0, AvgOrderValue(0, 500))
	assert.InDelta(t, 62.5, AvgOrderValue(4, 250), 0.001)
}
