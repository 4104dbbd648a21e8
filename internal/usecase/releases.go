package usecase

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pkg/errors"

	"github.com/naka-gawa/craft-stats/internal/domain"
	"github.com/naka-gawa/craft-stats/internal/gateway"
	"github.com/naka-gawa/craft-stats/internal/metrics"
	"github.com/naka-gawa/craft-stats/internal/store"
)

// ReleaseCollector records the latest tag of every tracked application branch
// and the release cadence of every project.
type ReleaseCollector struct {
	fetcher gateway.Fetcher
	repos   gateway.Repositories
	logger  *slog.Logger
}

// NewReleaseCollector creates a new ReleaseCollector instance.
func NewReleaseCollector(fetcher gateway.Fetcher, repos gateway.Repositories, logger *slog.Logger) *ReleaseCollector {
	return &ReleaseCollector{
		fetcher: fetcher,
		repos:   repos,
		logger:  logger,
	}
}

// Collect writes the release table and the cadence table. A table for which
// every lookup failed is not written, so the previous one stays in place.
func (c *ReleaseCollector) Collect(ctx context.Context, run *Run) error {
	infos := c.collectBranches(ctx, run)
	if len(infos) == 0 {
		c.logger.Warn("keeping previous release table", "reason", "no branch could be described")
	} else {
		if err := run.Store.WriteReleases(infos); err != nil {
			return errors.Wrap(err, "failed to write release table")
		}
		c.logger.Info("wrote release table", "branches", len(infos))
	}

	projects, err := run.Config.SelectProjects(nil)
	if err != nil {
		return err
	}
	cadences := c.collectCadences(ctx, run, projects)
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(cadences) == 0 {
		c.logger.Warn("keeping previous release cadence", "reason", "no project releases could be fetched")
		return nil
	}
	if err := run.Store.WriteJSON(store.CadenceFile, cadences); err != nil {
		return errors.Wrap(err, "failed to write release cadence")
	}
	c.logger.Info("wrote release cadence", "projects", len(cadences))
	return nil
}

func (c *ReleaseCollector) collectBranches(ctx context.Context, run *Run) []domain.ReleaseBranchInfo {
	var infos []domain.ReleaseBranchInfo
	for _, app := range run.Config.Applications {
		for _, branch := range trackedBranches(ctx, c.repos, app, c.logger) {
			tag, commits, err := c.repos.DescribeBranch(ctx, branch.Owner, branch.Name, branch.Branch)
			if err != nil {
				c.logger.Warn("skipping branch", "app", app.Name, "branch", branch.Branch, "err", err)
				continue
			}
			c.logger.Debug("described branch", "app", app.Name, "branch", branch.Branch, "tag", tag, "commits", commits)
			infos = append(infos, domain.ReleaseBranchInfo{
				App:             app.Name,
				Branch:          branch.Branch,
				LatestTag:       tag,
				CommitsSinceTag: commits,
			})
		}
	}
	return infos
}

func (c *ReleaseCollector) collectCadences(ctx context.Context, run *Run, projects []domain.Project) map[string]domain.ReleaseCadence {
	var mu sync.Mutex
	cadences := make(map[string]domain.ReleaseCadence, len(projects))
	forEachProject(ctx, run.Config.Workers, projects, c.logger, nil, func(ctx context.Context, project domain.Project) error {
		releases, err := c.fetcher.FetchReleases(ctx, project)
		if err != nil {
			return err
		}
		cadence := metrics.BuildCadence(releases, run.Now, run.Config.Lookback())
		mu.Lock()
		cadences[project.Name] = cadence
		mu.Unlock()
		return nil
	})
	return cadences
}
