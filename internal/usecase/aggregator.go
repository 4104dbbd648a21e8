// Package usecase contains the collectors that fetch data from the gateways,
// derive metrics and persist them in the data directory.
package usecase

import (
	"context"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/naka-gawa/craft-stats/internal/config"
	"github.com/naka-gawa/craft-stats/internal/domain"
	"github.com/naka-gawa/craft-stats/internal/gateway"
	"github.com/naka-gawa/craft-stats/internal/store"
)

// Run is the state shared by the collectors of one invocation. It is created
// by each command and dropped when the command returns.
type Run struct {
	Now    time.Time
	Config *config.Config
	Store  *store.Store

	versions *lru.Cache[string, []string]
}

// NewRun creates the per-run state. now is the collection time of every
// point and snapshot written by the run.
func NewRun(cfg *config.Config, st *store.Store, now time.Time) (*Run, error) {
	versions, err := lru.New[string, []string](max(len(cfg.Libraries), 1))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create version cache")
	}
	return &Run{Now: now.UTC(), Config: cfg, Store: st, versions: versions}, nil
}

// LibraryVersions returns the released versions of a library, asking source
// at most once per run.
func (r *Run) LibraryVersions(ctx context.Context, source gateway.VersionSource, library string) ([]string, error) {
	if versions, ok := r.versions.Get(library); ok {
		return versions, nil
	}
	versions, err := source.FetchVersions(ctx, library)
	if err != nil {
		return nil, err
	}
	r.versions.Add(library, versions)
	return versions, nil
}

// forEachProject runs fn for every project on a pool of workers. A failing
// project is logged and does not cancel the others; done is called after each
// project when set.
func forEachProject(ctx context.Context, workers int, projects []domain.Project, logger *slog.Logger, done func(domain.Project), fn func(context.Context, domain.Project) error) {
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(max(workers, 1))
	for _, project := range projects {
		eg.Go(func() error {
			if err := fn(egCtx, project); err != nil {
				logger.Error("skipping project", "project", project.Name, "err", err)
			}
			if done != nil {
				done(project)
			}
			return nil
		})
	}
	_ = eg.Wait()
}
