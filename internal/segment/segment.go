// Package segment classifies customers by order history. Segments are
// computed on read and never stored.
package segment

// Segment names a customer tier
type Segment string

const (
	SegmentVIP    Segment = "vip"
	SegmentLoyal  Segment = "loyal"
	SegmentActive Segment = "active"
	SegmentNew    Segment = "new"
)

// Classify maps a customer's order count and lifetime spend to a segment.
// Rules are checked top down; the first match wins.
func Classify(orderCount int, totalSpent float64) Segment {
	switch {
	// no orders always means new, whatever the spend field says
	case orderCount == 0:
		return SegmentNew
	case orderCount >= 5 && totalSpent >= 500:
		return SegmentVIP
	case orderCount >= 3 || totalSpent >= 200:
		return SegmentLoyal
	default:
		return SegmentActive
	}
}

// AvgOrderValue is total spend over order count, 0 when there are no orders
func AvgOrderValue(orderCount int, totalSpent float64) float64 {
	if orderCount == 0 {
		return 0
	}
	return totalSpent / float64(orderCount)
}
