package gateway

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/pkg/errors"

	"github.com/naka-gawa/craft-stats/internal/domain"
)

// DefaultLaunchpadURL is the base URL of the Launchpad web service.
const DefaultLaunchpadURL = "https://api.launchpad.net/1.0"

// BugTracker counts a project's bugs per status.
type BugTracker interface {
	CountBugs(ctx context.Context, project string) (map[string]int, error)
}

// LaunchpadGateway reads bug task counts anonymously from Launchpad.
type LaunchpadGateway struct {
	client  *jsonClient
	baseURL string
}

// NewLaunchpadGateway creates a Launchpad gateway for the API at baseURL.
func NewLaunchpadGateway(baseURL string, retry RetryPolicy, logger *slog.Logger) *LaunchpadGateway {
	return &LaunchpadGateway{
		client:  newJSONClient(2, 2, retry, logger),
		baseURL: baseURL,
	}
}

// CountBugs returns the number of bug tasks of project in each Launchpad status.
func (g *LaunchpadGateway) CountBugs(ctx context.Context, project string) (map[string]int, error) {
	counts := make(map[string]int, len(domain.LaunchpadStatuses))
	for _, status := range domain.LaunchpadStatuses {
		q := url.Values{}
		q.Set("ws.op", "searchTasks")
		q.Set("ws.show", "total_size")
		q.Set("status", status)

		var total int
		u := g.baseURL + "/" + url.PathEscape(project) + "?" + q.Encode()
		if err := g.client.getJSON(ctx, u, &total); err != nil {
			return nil, errors.Wrapf(err, "failed to count %q bugs of %s", status, project)
		}
		if total < 0 {
			return nil, errors.Errorf("negative %q bug count for %s", status, project)
		}
		counts[status] = total
		g.client.logger.Debug("counted launchpad bugs", "project", project, "status", status, "count", total)
	}
	return counts, nil
}
