package usecase

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/naka-gawa/craft-stats/internal/domain"
	"github.com/naka-gawa/craft-stats/internal/gateway"
	"github.com/naka-gawa/craft-stats/internal/metrics"
	"github.com/naka-gawa/craft-stats/internal/store"
)

// DependencyCollector compares the library versions pinned by every tracked
// application branch with the released versions of those libraries.
type DependencyCollector struct {
	fetcher  gateway.Fetcher
	repos    gateway.Repositories
	versions gateway.VersionSource
	logger   *slog.Logger
}

// NewDependencyCollector creates a new DependencyCollector instance.
func NewDependencyCollector(fetcher gateway.Fetcher, repos gateway.Repositories, versions gateway.VersionSource, logger *slog.Logger) *DependencyCollector {
	return &DependencyCollector{
		fetcher:  fetcher,
		repos:    repos,
		versions: versions,
		logger:   logger,
	}
}

// Collect builds the dependency table and writes it to the data directory.
// Libraries, applications and branches that fail are logged and left out. A
// library whose versions could not be fetched has no record in any branch.
func (c *DependencyCollector) Collect(ctx context.Context, run *Run) (*domain.DependencyTable, error) {
	cfg := run.Config
	table := &domain.DependencyTable{
		Libs:   cfg.Libraries,
		Latest: make(map[string]string, len(cfg.Libraries)),
		Apps:   map[string]map[string]domain.DependencyRecord{},
	}

	released := make(map[string][]string, len(cfg.Libraries))
	for _, lib := range cfg.Libraries {
		versions, err := run.LibraryVersions(ctx, c.versions, lib)
		if err != nil {
			c.logger.Warn("skipping library versions", "library", lib, "err", err)
			continue
		}
		released[lib] = versions
		table.Latest[lib] = metrics.Latest(versions)
		c.logger.Info("latest library version", "library", lib, "version", table.Latest[lib])
	}

	for _, app := range cfg.Applications {
		for _, branch := range trackedBranches(ctx, c.repos, app, c.logger) {
			records, err := c.collectBranch(ctx, branch, cfg.Libraries, released)
			if err != nil {
				c.logger.Warn("skipping branch", "app", app.Name, "branch", branch.Branch, "err", err)
				continue
			}
			table.Apps[branch.String()] = records
		}
	}

	if err := run.Store.WriteJSON(store.DependenciesFile, table); err != nil {
		return nil, errors.Wrap(err, "failed to write dependency table")
	}
	c.logger.Info("wrote dependency table", "apps", len(table.Apps), "libraries", len(table.Libs))
	return table, nil
}

func (c *DependencyCollector) collectBranch(ctx context.Context, branch domain.ApplicationBranch, libs []string, released map[string][]string) (map[string]domain.DependencyRecord, error) {
	content, err := c.fetcher.FetchFile(ctx, branch.Owner, branch.Name, branch.Branch, gateway.RequirementsFile)
	if err != nil {
		return nil, err
	}
	pinned := gateway.ParseRequirements(string(content))

	line := metrics.LineSeries
	if branch.IsDefault() {
		line = metrics.LineAll
	}

	records := map[string]domain.DependencyRecord{}
	for _, lib := range libs {
		declared, ok := pinned[gateway.NormalizeName(lib)]
		if !ok {
			continue
		}
		versions, ok := released[lib]
		if !ok {
			continue
		}
		freshness, err := metrics.CompareVersions(declared, versions, line)
		if err != nil && declared != gateway.UnknownVersion {
			c.logger.Warn("cannot compare library version", "app", branch.String(), "library", lib, "err", err)
		}
		series, _ := metrics.Series(declared)
		records[lib] = domain.DependencyRecord{
			Series:   series,
			Version:  freshness.Version,
			Latest:   freshness.Latest,
			Outdated: freshness.Outdated,
		}
	}
	c.logger.Debug("collected branch dependencies", "app", branch.String(), "libraries", len(records))
	return records, nil
}
