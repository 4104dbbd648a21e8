package metrics

import (
	"time"

	"github.com/naka-gawa/craft-stats/internal/domain"
)

// BuildSnapshot reduces a chronological time-series log to its latest state.
// The instantaneous fields are copied from the last point as they are; the
// closed counts are summed over the points dated within lookback of now, so a
// stale log shows up as missing closures instead of a shifted window.
// It returns false for an empty log.
func BuildSnapshot(points []domain.TimeSeriesPoint, now time.Time, lookback time.Duration) (domain.Snapshot, bool) {
	if len(points) == 0 {
		return domain.Snapshot{}, false
	}
	last := points[len(points)-1]
	snapshot := domain.Snapshot{
		OpenIssues:     last.OpenIssues,
		OpenPRs:        last.OpenPRs,
		MedianIssueAge: last.IssueAge,
		MedianPRAge:    last.PRAge,
	}

	cutoff := now.Add(-lookback)
	for _, p := range points {
		if !p.Date.After(cutoff) || p.Date.After(now) {
			continue
		}
		snapshot.ClosedIssuesYear += p.Closed
		snapshot.ClosedPRsYear += p.ClosedPRs
	}
	return snapshot, true
}
