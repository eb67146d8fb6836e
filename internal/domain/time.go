package domain

import (
	"math"
	"time"
)

const (
	secondsPerDay = 24 * 60 * 60
	dayNanos      = float64(24 * time.Hour)
)

// ConvertIntTime converts a day offset from the Unix epoch to a UTC timestamp.
// The offset is applied in seconds, so dates centuries away stay exact.
func ConvertIntTime(days int64) time.Time {
	return time.Unix(days*secondsPerDay, 0).UTC()
}

// ConvertDays is ConvertIntTime for fractional day offsets, rounded to the
// nearest nanosecond.
func ConvertDays(days float64) time.Time {
	whole, frac := math.Modf(days)
	return ConvertIntTime(int64(whole)).Add(time.Duration(math.Round(frac * dayNanos)))
}

// ConvertIntTimes converts a slice of day offsets.
func ConvertIntTimes(days []int64) []time.Time {
	out := make([]time.Time, len(days))
	for i, d := range days {
		out[i] = ConvertIntTime(d)
	}
	return out
}
