package usecase

import (
	"context"
	"log/slog"

	"github.com/naka-gawa/craft-stats/internal/domain"
	"github.com/naka-gawa/craft-stats/internal/gateway"
)

// LaunchpadCollector appends the daily bug status counts of the projects
// still tracked on Launchpad.
type LaunchpadCollector struct {
	tracker gateway.BugTracker
	logger  *slog.Logger
}

// NewLaunchpadCollector creates a new LaunchpadCollector instance.
func NewLaunchpadCollector(tracker gateway.BugTracker, logger *slog.Logger) *LaunchpadCollector {
	return &LaunchpadCollector{tracker: tracker, logger: logger}
}

// Collect records one row per project and day. Failing projects are skipped.
func (c *LaunchpadCollector) Collect(ctx context.Context, run *Run) error {
	for _, project := range run.Config.Launchpad {
		counts, err := c.tracker.CountBugs(ctx, project)
		if err != nil {
			c.logger.Error("skipping project", "project", project, "err", err)
			continue
		}
		written, err := run.Store.AppendLaunchpad(project, domain.LaunchpadPoint{Timestamp: run.Now, Counts: counts})
		if err != nil {
			c.logger.Error("skipping project", "project", project, "err", err)
			continue
		}
		if !written {
			c.logger.Info("launchpad counts already recorded today", "project", project)
			continue
		}
		c.logger.Info("recorded launchpad counts", "project", project)
	}
	return ctx.Err()
}
