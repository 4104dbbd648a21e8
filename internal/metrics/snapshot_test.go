package metrics

import (
	"testing"
	"time"

	"github.com/naka-gawa/craft-stats/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const year = 365 * 24 * time.Hour

func ptr(v float64) *float64 { return &v }

func TestBuildSnapshot_EmptyLog(t *testing.T) {
	_, ok := BuildSnapshot(nil, time.Now(), year)
	assert.False(t, ok)
}

func TestBuildSnapshot_TrailingYearBoundary(t *testing.T) {
	now := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	testCases := []struct {
		name     string
		daysAgo  int
		expected int
	}{
		{name: "366 days ago is excluded", daysAgo: 366, expected: 0},
		{name: "365 days ago is excluded", daysAgo: 365, expected: 0},
		{name: "364 days ago is included", daysAgo: 364, expected: 1},
		{name: "today is included", daysAgo: 0, expected: 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			points := []domain.TimeSeriesPoint{
				{Date: now.AddDate(0, 0, -tc.daysAgo), Closed: 1, ClosedPRs: 1},
				{Date: now.AddDate(0, 0, 1), Closed: 5, ClosedPRs: 5},
			}
			snapshot, ok := BuildSnapshot(points, now, year)
			require.True(t, ok)
			assert.Equal(t, tc.expected, snapshot.ClosedIssuesYear)
			assert.Equal(t, tc.expected, snapshot.ClosedPRsYear)
		})
	}
}

func TestBuildSnapshot_AnchoredToNowNotLastPoint(t *testing.T) {
	// the log stopped 200 days ago; closures older than a year from now must not count
	now := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	points := []domain.TimeSeriesPoint{
		{Date: now.AddDate(0, 0, -500), Closed: 3},
		{Date: now.AddDate(0, 0, -300), Closed: 2},
		{Date: now.AddDate(0, 0, -200), Closed: 1, OpenIssues: 9},
	}

	snapshot, ok := BuildSnapshot(points, now, year)

	require.True(t, ok)
	assert.Equal(t, 3, snapshot.ClosedIssuesYear)
	assert.Equal(t, 9, snapshot.OpenIssues)
}

func TestBuildSnapshot_InstantaneousFieldsFromLastPoint(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	var points []domain.TimeSeriesPoint
	for i := 30; i >= 0; i-- {
		points = append(points, domain.TimeSeriesPoint{
			Date:       StartOfDay(now).AddDate(0, 0, -i),
			OpenIssues: 100 + i*3,
			OpenPRs:    i % 4,
			IssueAge:   ptr(float64(i)),
		})
	}
	points[len(points)-1].OpenIssues = 17
	points[len(points)-1].OpenPRs = 2
	points[len(points)-1].IssueAge = ptr(42.5)
	points[len(points)-1].PRAge = nil

	snapshot, ok := BuildSnapshot(points, now, year)

	require.True(t, ok)
	assert.Equal(t, 17, snapshot.OpenIssues)
	assert.Equal(t, 2, snapshot.OpenPRs)
	require.NotNil(t, snapshot.MedianIssueAge)
	assert.Equal(t, 42.5, *snapshot.MedianIssueAge)
	assert.Nil(t, snapshot.MedianPRAge)
}
