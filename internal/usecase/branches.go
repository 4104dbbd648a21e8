package usecase

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/naka-gawa/craft-stats/internal/config"
	"github.com/naka-gawa/craft-stats/internal/domain"
	"github.com/naka-gawa/craft-stats/internal/gateway"
)

// HotfixPrefix prefixes the maintenance branches of an application.
const HotfixPrefix = "hotfix/"

type hotfix struct {
	name    string
	version string
}

// LatestPerMajor selects the newest hotfix/<major>.<minor> branch of every
// major version, ordered by version. Branches older than minVersion are
// dropped when it is set.
func LatestPerMajor(branches []string, minVersion string) []string {
	floor, hasMin := config.ParseMajorMinor(minVersion)

	latest := map[string]hotfix{}
	for _, name := range branches {
		suffix, ok := strings.CutPrefix(name, HotfixPrefix)
		if !ok {
			continue
		}
		version, ok := config.ParseMajorMinor(suffix)
		if !ok {
			continue
		}
		if hasMin && semver.Compare(version, floor) < 0 {
			continue
		}
		major := semver.Major(version)
		if cur, ok := latest[major]; !ok || semver.Compare(version, cur.version) > 0 {
			latest[major] = hotfix{name: name, version: version}
		}
	}

	selected := make([]hotfix, 0, len(latest))
	for _, h := range latest {
		selected = append(selected, h)
	}
	sort.Slice(selected, func(i, j int) bool {
		return semver.Compare(selected[i].version, selected[j].version) < 0
	})
	names := make([]string, 0, len(selected))
	for _, h := range selected {
		names = append(names, h.name)
	}
	return names
}

// trackedBranches lists main followed by the selected hotfix branches of an
// application. When the branches cannot be listed only main is tracked.
func trackedBranches(ctx context.Context, repos gateway.Repositories, app config.Application, logger *slog.Logger) []domain.ApplicationBranch {
	tracked := []domain.ApplicationBranch{{Name: app.Name, Branch: domain.DefaultBranch, Owner: app.Owner}}
	branches, err := repos.ListBranches(ctx, app.Owner, app.Name)
	if err != nil {
		logger.Warn("tracking main only", "app", app.Name, "err", err)
		return tracked
	}
	for _, branch := range LatestPerMajor(branches, app.MinHotfix) {
		tracked = append(tracked, domain.ApplicationBranch{Name: app.Name, Branch: branch, Owner: app.Owner})
	}
	return tracked
}
