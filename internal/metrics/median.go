package metrics

import (
	"time"

	"github.com/montanaflynn/stats"
)

const day = 24 * time.Hour

// MedianAge returns the median age in days of items created at the given
// times, measured at asOf. It returns false when there are no items.
func MedianAge(created []time.Time, asOf time.Time) (float64, bool) {
	if len(created) == 0 {
		return 0, false
	}
	ages := make(stats.Float64Data, len(created))
	for i, t := range created {
		ages[i] = Days(asOf.Sub(t))
	}
	median, err := stats.Median(ages)
	if err != nil {
		return 0, false
	}
	return median, true
}

// Days converts a duration to fractional days.
func Days(d time.Duration) float64 {
	return d.Hours() / 24
}

func optional(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}
