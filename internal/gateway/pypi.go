package gateway

import (
	"context"
	"log/slog"
	"net/url"
	"sort"

	"github.com/pkg/errors"
)

// DefaultPyPIURL is the base URL of the PyPI JSON API.
const DefaultPyPIURL = "https://pypi.org/pypi"

// VersionSource lists the released versions of a library.
type VersionSource interface {
	FetchVersions(ctx context.Context, library string) ([]string, error)
}

// PyPIGateway lists library releases from the PyPI JSON API.
type PyPIGateway struct {
	client  *jsonClient
	baseURL string
}

type pypiProject struct {
	Releases map[string][]struct {
		Yanked bool `json:"yanked"`
	} `json:"releases"`
}

// NewPyPIGateway creates a PyPI gateway for the API at baseURL.
func NewPyPIGateway(baseURL string, retry RetryPolicy, logger *slog.Logger) *PyPIGateway {
	return &PyPIGateway{
		client:  newJSONClient(5, 5, retry, logger),
		baseURL: baseURL,
	}
}

// FetchVersions returns every installable version of library: releases with
// at least one file that has not been yanked.
func (g *PyPIGateway) FetchVersions(ctx context.Context, library string) ([]string, error) {
	var project pypiProject
	if err := g.client.getJSON(ctx, g.baseURL+"/"+url.PathEscape(library)+"/json", &project); err != nil {
		return nil, errors.Wrapf(err, "failed to fetch releases of %s from PyPI", library)
	}
	if project.Releases == nil {
		return nil, errors.Errorf("PyPI response for %s has no releases", library)
	}

	versions := make([]string, 0, len(project.Releases))
	for version, files := range project.Releases {
		for _, f := range files {
			if !f.Yanked {
				versions = append(versions, version)
				break
			}
		}
	}
	sort.Strings(versions)
	g.client.logger.Debug("fetched library versions", "library", library, "versions", len(versions))
	return versions, nil
}
