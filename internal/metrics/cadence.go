package metrics

import (
	"sort"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/naka-gawa/craft-stats/internal/domain"
)

// BuildCadence summarizes the release history of a project as of now.
func BuildCadence(releases []domain.Release, now time.Time, lookback time.Duration) domain.ReleaseCadence {
	var cadence domain.ReleaseCadence
	if len(releases) == 0 {
		return cadence
	}

	sorted := make([]domain.Release, len(releases))
	copy(sorted, releases)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].PublishedAt.Before(sorted[j].PublishedAt)
	})

	last := sorted[len(sorted)-1]
	cadence.LatestTag = last.TagName
	since := Days(now.Sub(last.PublishedAt))
	cadence.DaysSinceRelease = &since

	cutoff := now.Add(-lookback)
	gaps := make(stats.Float64Data, 0, len(sorted)-1)
	for i, r := range sorted {
		if r.PublishedAt.After(cutoff) && !r.PublishedAt.After(now) {
			cadence.ReleasesYear++
		}
		if i > 0 {
			gaps = append(gaps, Days(r.PublishedAt.Sub(sorted[i-1].PublishedAt)))
		}
	}
	if len(gaps) > 0 {
		if median, err := stats.Median(gaps); err == nil {
			cadence.MedianDaysBetween = &median
		}
	}
	return cadence
}
