// Package domain contains the core data structures of the application.
package domain

import "time"

// DateLayout is the layout of the date column in time-series files.
const DateLayout = "2006-01-02"

// TimeSeriesPoint holds one day's issue and pull request metrics for a project.
// Points are appended to a per-project log and never rewritten.
type TimeSeriesPoint struct {
	Date       time.Time
	OpenIssues int
	Opened     int
	Closed     int
	OpenPRs    int
	OpenedPRs  int
	ClosedPRs  int
	IssueAge   *float64
	PRAge      *float64
}

// Day returns the point's date formatted for storage.
func (p TimeSeriesPoint) Day() string {
	return p.Date.Format(DateLayout)
}

// Snapshot is the latest aggregate state of a project.
// It is a cache of the time-series log and is never read back as input.
type Snapshot struct {
	OpenIssues       int      `json:"open_issues"`
	OpenPRs          int      `json:"open_prs"`
	MedianIssueAge   *float64 `json:"median_issue_age"`
	MedianPRAge      *float64 `json:"median_pr_age"`
	ClosedIssuesYear int      `json:"closed_issues_year"`
	ClosedPRsYear    int      `json:"closed_prs_year"`
}

// ProjectList is the set of projects the renderer iterates over.
type ProjectList struct {
	Projects []string `json:"projects"`
}
