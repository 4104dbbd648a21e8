package metrics

import (
	"time"

	"github.com/naka-gawa/craft-stats/internal/domain"
)

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// BuildPoint derives the time-series point of one calendar day from the
// cached issue history. The day is observed at its end, or at now when the
// day has not ended yet. Opened and closed counts cover the observed part of
// the day.
func BuildPoint(issues []domain.Issue, date, now time.Time) domain.TimeSeriesPoint {
	start := StartOfDay(date)
	asOf := start.Add(day)
	if now.Before(asOf) {
		asOf = now
	}

	point := domain.TimeSeriesPoint{Date: start}
	var issueDates, prDates []time.Time
	for _, issue := range issues {
		isPR := issue.Kind == domain.KindPullRequest
		if within(issue.Opened, start, asOf) {
			if isPR {
				point.OpenedPRs++
			} else {
				point.Opened++
			}
		}
		if issue.Closed != nil && within(*issue.Closed, start, asOf) {
			if isPR {
				point.ClosedPRs++
			} else {
				point.Closed++
			}
		}
		if !issue.IsOpen(asOf) {
			continue
		}
		if isPR {
			point.OpenPRs++
			prDates = append(prDates, issue.Opened)
		} else {
			point.OpenIssues++
			issueDates = append(issueDates, issue.Opened)
		}
	}
	point.IssueAge = optional(MedianAge(issueDates, asOf))
	point.PRAge = optional(MedianAge(prDates, asOf))
	return point
}

func within(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}

// MissingDays lists the completed calendar days after last, up to the day
// before today. Points are immutable, so a day is only logged once it has
// ended. When last is zero the list starts at start. Dates before start are
// never returned.
func MissingDays(last, start, today time.Time) []time.Time {
	from := StartOfDay(start)
	if !last.IsZero() {
		if next := StartOfDay(last).Add(day); next.After(from) {
			from = next
		}
	}
	to := StartOfDay(today).Add(-day)
	var days []time.Time
	for d := from; !d.After(to); d = d.Add(day) {
		days = append(days, d)
	}
	return days
}
