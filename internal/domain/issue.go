package domain

import (
	"fmt"
	"time"
)

// IssueKind distinguishes issues from pull requests.
type IssueKind string

const (
	KindIssue       IssueKind = "issue"
	KindPullRequest IssueKind = "pr"
)

// Issue is the cached state of a single GitHub issue or pull request.
type Issue struct {
	Number int        `yaml:"number" validate:"gt=0"`
	Kind   IssueKind  `yaml:"type" validate:"oneof=issue pr"`
	Opened time.Time  `yaml:"date_opened" validate:"required"`
	Closed *time.Time `yaml:"date_closed,omitempty"`
}

// IsOpen reports whether the issue was open at t.
func (i Issue) IsOpen(t time.Time) bool {
	return i.Opened.Before(t) && (i.Closed == nil || !i.Closed.Before(t))
}

func (i Issue) String() string {
	s := fmt.Sprintf("type: %s opened: %s", i.Kind, i.Opened.Format(time.RFC3339))
	if i.Closed != nil {
		s += fmt.Sprintf(" closed: %s", i.Closed.Format(time.RFC3339))
	}
	return s
}

// IssueCache is the persisted issue history of one project. RefreshedAt is
// the time of the last full download, UpdatedAt of the last incremental one.
type IssueCache struct {
	Project     string        `yaml:"project"`
	RefreshedAt time.Time     `yaml:"refreshed_at"`
	UpdatedAt   time.Time     `yaml:"updated_at"`
	Issues      map[int]Issue `yaml:"issues"`
}

// Merge replaces cached issues with the given ones, keyed by number.
func (c *IssueCache) Merge(issues []Issue) {
	if c.Issues == nil {
		c.Issues = make(map[int]Issue, len(issues))
	}
	for _, issue := range issues {
		c.Issues[issue.Number] = issue
	}
}

// List returns the cached issues in no particular order.
func (c *IssueCache) List() []Issue {
	out := make([]Issue, 0, len(c.Issues))
	for _, issue := range c.Issues {
		out = append(out, issue)
	}
	return out
}
