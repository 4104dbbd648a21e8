package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/naka-gawa/craft-stats/internal/domain"
	"github.com/naka-gawa/craft-stats/internal/gateway"
	"github.com/naka-gawa/craft-stats/internal/metrics"
	"github.com/naka-gawa/craft-stats/internal/store"
)

// IssueCollector keeps the issue caches and time-series logs of the tracked
// projects up to date and derives their snapshots.
type IssueCollector struct {
	fetcher gateway.Fetcher
	logger  *slog.Logger

	// OnProjectDone is called after each project, successful or not.
	OnProjectDone func(project domain.Project)
}

// NewIssueCollector creates a new IssueCollector instance.
func NewIssueCollector(fetcher gateway.Fetcher, logger *slog.Logger) *IssueCollector {
	return &IssueCollector{
		fetcher: fetcher,
		logger:  logger,
	}
}

// Collect updates the given projects, then rebuilds the all-projects log,
// the snapshot table and the project list from what is on disk.
func (c *IssueCollector) Collect(ctx context.Context, run *Run, projects []domain.Project) error {
	c.logger.Info("collecting issues", "projects", len(projects), "workers", run.Config.Workers)
	forEachProject(ctx, run.Config.Workers, projects, c.logger, c.OnProjectDone, func(ctx context.Context, project domain.Project) error {
		return c.collectProject(ctx, run, project)
	})
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := c.appendAll(run); err != nil {
		c.logger.Error("skipping all-projects series", "err", err)
	}
	if err := c.writeSnapshots(run); err != nil {
		return err
	}
	return errors.Wrap(
		run.Store.WriteJSON(store.ProjectsFile, domain.ProjectList{Projects: run.Config.Projects}),
		"failed to write project list",
	)
}

func (c *IssueCollector) collectProject(ctx context.Context, run *Run, project domain.Project) error {
	cache, err := run.Store.ReadIssueCache(project.Name)
	if err != nil {
		return err
	}
	if err := c.refresh(ctx, run, project, cache); err != nil {
		return err
	}
	if err := run.Store.WriteIssueCache(cache); err != nil {
		return errors.Wrapf(err, "failed to save issue cache of %s", project.Name)
	}
	added, err := appendMissingDays(run, project.Name, cache.List())
	if err != nil {
		return err
	}
	c.logger.Info("collected issues", "project", project.Name, "issues", len(cache.Issues), "points", added)
	return nil
}

// refresh downloads the full issue history when the cache is older than the
// refresh interval, and only the items updated since the last download otherwise.
func (c *IssueCollector) refresh(ctx context.Context, run *Run, project domain.Project, cache *domain.IssueCache) error {
	interval := time.Duration(run.Config.Issues.RefreshIntervalDays) * 24 * time.Hour
	full := cache.RefreshedAt.IsZero() || run.Now.Sub(cache.RefreshedAt) >= interval

	var since time.Time
	if !full {
		since = cache.UpdatedAt
	}
	issues, err := c.fetcher.FetchIssues(ctx, project, since)
	if err != nil {
		return errors.Wrapf(err, "failed to fetch issues of %s", project.Name)
	}

	if full {
		cache.Issues = map[int]domain.Issue{}
		cache.RefreshedAt = run.Now
	}
	cache.Merge(issues)
	cache.UpdatedAt = run.Now
	c.logger.Debug("refreshed issue cache", "project", project.Name, "full", full, "fetched", len(issues))
	return nil
}

// appendMissingDays appends one point per completed day not yet in the
// project's log, from the configured start date (or today) up to yesterday.
func appendMissingDays(run *Run, project string, issues []domain.Issue) (int, error) {
	logged, err := run.Store.ReadSeries(project)
	if err != nil && !errors.Is(err, store.ErrNoData) {
		return 0, errors.Wrapf(err, "failed to read series of %s", project)
	}
	start := run.Config.Start()
	if start.IsZero() {
		start = run.Now
	}

	days := metrics.MissingDays(store.LastDay(logged), start, run.Now)
	points := make([]domain.TimeSeriesPoint, 0, len(days))
	for _, d := range days {
		points = append(points, metrics.BuildPoint(issues, d, run.Now))
	}
	if err := run.Store.AppendSeries(project, points); err != nil {
		return 0, errors.Wrapf(err, "failed to append series of %s", project)
	}
	return len(points), nil
}

// appendAll extends the all-projects log from the union of every configured
// project's cache.
func (c *IssueCollector) appendAll(run *Run) error {
	var issues []domain.Issue
	for _, name := range run.Config.Projects {
		cache, err := run.Store.ReadIssueCache(name)
		if err != nil {
			return err
		}
		issues = append(issues, cache.List()...)
	}
	added, err := appendMissingDays(run, store.AllProjects, issues)
	if err != nil {
		return err
	}
	c.logger.Info("collected issues", "project", store.AllProjects, "issues", len(issues), "points", added)
	return nil
}

// writeSnapshots derives the snapshot of every project with a log, plus the
// all-projects aggregate. Projects without a log are left out.
func (c *IssueCollector) writeSnapshots(run *Run) error {
	snapshots := map[string]domain.Snapshot{}
	names := append([]string{store.AllProjects}, run.Config.Projects...)
	for _, name := range names {
		points, err := run.Store.ReadSeries(name)
		if err != nil {
			if !errors.Is(err, store.ErrNoData) {
				c.logger.Warn("skipping snapshot", "project", name, "err", err)
			}
			continue
		}
		if snapshot, ok := metrics.BuildSnapshot(points, run.Now, run.Config.Lookback()); ok {
			snapshots[name] = snapshot
		}
	}
	return errors.Wrap(run.Store.WriteJSON(store.SnapshotFile, snapshots), "failed to write snapshots")
}
