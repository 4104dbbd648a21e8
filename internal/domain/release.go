package domain

import "time"

// ReleaseBranchInfo describes the release state of a tracked branch.
type ReleaseBranchInfo struct {
	App             string
	Branch          string
	LatestTag       string
	CommitsSinceTag int
}

// Release is a published GitHub release.
type Release struct {
	TagName     string
	PublishedAt time.Time
}

// ReleaseCadence summarizes how often a project publishes releases.
type ReleaseCadence struct {
	LatestTag         string   `json:"latest_tag"`
	ReleasesYear      int      `json:"releases_year"`
	DaysSinceRelease  *float64 `json:"days_since_release"`
	MedianDaysBetween *float64 `json:"median_days_between"`
}
