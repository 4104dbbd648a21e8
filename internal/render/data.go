// Package render turns the files written by the collectors into a static
// site and terminal tables. A missing or malformed file only removes the part
// of the output built from it.
package render

import (
	"log/slog"

	"github.com/pkg/errors"

	"github.com/naka-gawa/craft-stats/internal/domain"
	"github.com/naka-gawa/craft-stats/internal/store"
)

// Data is everything the renderers read from the data directory.
// Nil fields mean the corresponding file was missing or unreadable.
type Data struct {
	Projects     []string
	Snapshots    map[string]domain.Snapshot
	Dependencies *domain.DependencyTable
	Releases     []domain.ReleaseBranchInfo
	Cadences     map[string]domain.ReleaseCadence
	Series       map[string][]domain.TimeSeriesPoint
}

// Load reads the data directory. It never fails: unreadable files are logged
// and left out.
func Load(st *store.Store, logger *slog.Logger) *Data {
	data := &Data{Series: map[string][]domain.TimeSeriesPoint{}}

	var list domain.ProjectList
	if tolerate(logger, store.ProjectsFile, st.ReadJSON(store.ProjectsFile, &list)) {
		data.Projects = list.Projects
	}

	var snapshots map[string]domain.Snapshot
	if tolerate(logger, store.SnapshotFile, st.ReadJSON(store.SnapshotFile, &snapshots)) {
		data.Snapshots = snapshots
	}

	var deps domain.DependencyTable
	if tolerate(logger, store.DependenciesFile, st.ReadJSON(store.DependenciesFile, &deps)) {
		data.Dependencies = &deps
	}

	releases, err := st.ReadReleases()
	if tolerate(logger, store.ReleasesFile, err) {
		data.Releases = releases
	}

	var cadences map[string]domain.ReleaseCadence
	if tolerate(logger, store.CadenceFile, st.ReadJSON(store.CadenceFile, &cadences)) {
		data.Cadences = cadences
	}

	for _, project := range append([]string{store.AllProjects}, data.Projects...) {
		points, err := st.ReadSeries(project)
		if tolerate(logger, store.SeriesFile(project), err) && len(points) > 0 {
			data.Series[project] = points
		}
	}
	return data
}

func tolerate(logger *slog.Logger, name string, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, store.ErrNoData):
		logger.Debug("data file missing", "file", name)
	default:
		logger.Warn("ignoring unreadable data file", "file", name, "err", err)
	}
	return false
}
