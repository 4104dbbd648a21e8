// Package gateway provides access to the external services the collectors
// read from: the GitHub REST and GraphQL APIs, PyPI, Launchpad and git remotes.
package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/go-github/v62/github"
	"github.com/pkg/errors"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"

	"github.com/naka-gawa/craft-stats/internal/domain"
)

// ErrNotFound is returned when a repository file does not exist.
var ErrNotFound = errors.New("not found")

// Fetcher defines the behavior of a gateway for fetching information from GitHub.
type Fetcher interface {
	FetchIssues(ctx context.Context, project domain.Project, since time.Time) ([]domain.Issue, error)
	FetchFile(ctx context.Context, owner, repo, ref, path string) ([]byte, error)
	FetchReleases(ctx context.Context, project domain.Project) ([]domain.Release, error)
}

// GitHubGateway is the concrete implementation of the Fetcher interface.
type GitHubGateway struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	retry         RetryPolicy
	validate      *validator.Validate
	logger        *slog.Logger
}

// releasesQuery pages through the published releases of a repository, newest first.
type releasesQuery struct {
	Repository struct {
		Releases struct {
			PageInfo struct {
				HasNextPage bool
				EndCursor   githubv4.String
			}
			Nodes []struct {
				TagName      string
				PublishedAt  *githubv4.DateTime
				IsDraft      bool
				IsPrerelease bool
			}
		} `graphql:"releases(first: 100, after: $cursor, orderBy: {field: CREATED_AT, direction: DESC})"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
func NewGitHubGateway(token string, retry RetryPolicy, logger *slog.Logger) (*GitHubGateway, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(1*time.Hour, nil))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create rate limit waiter")
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: ts,
		},
	}
	return newGitHubGateway(github.NewClient(httpClient), githubv4.NewClient(httpClient), retry, logger), nil
}

func newGitHubGateway(rest *github.Client, graphql *githubv4.Client, retry RetryPolicy, logger *slog.Logger) *GitHubGateway {
	return &GitHubGateway{
		restClient:    rest,
		graphqlClient: graphql,
		retry:         retry,
		validate:      validator.New(),
		logger:        logger,
	}
}

// FetchIssues lists the issues and pull requests of a project updated since
// the given time, or all of them when since is zero. Items that fail
// validation are logged and dropped.
func (g *GitHubGateway) FetchIssues(ctx context.Context, project domain.Project, since time.Time) ([]domain.Issue, error) {
	g.logger.Debug("fetching issues", "project", project.FullName(), "since", since)
	opts := &github.IssueListByRepoOptions{
		State:       "all",
		Sort:        "updated",
		Direction:   "asc",
		Since:       since,
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var issues []domain.Issue
	for {
		var (
			page []*github.Issue
			resp *github.Response
		)
		err := g.retry.Do(ctx, g.logger, "list issues of "+project.FullName(), func() error {
			var err error
			page, resp, err = g.restClient.Issues.ListByRepo(ctx, project.Owner, project.Name, opts)
			return err
		})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to list issues with REST API")
		}
		for _, item := range page {
			issue, err := g.toIssue(item)
			if err != nil {
				g.logger.Warn("skipping invalid issue", "project", project.FullName(), "number", item.GetNumber(), "err", err)
				continue
			}
			issues = append(issues, issue)
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
		g.logger.Debug("fetching next page of issues", "project", project.FullName(), "page", resp.NextPage)
	}
	g.logger.Debug("fetched issues", "project", project.FullName(), "count", len(issues))
	return issues, nil
}

// toIssue converts an API issue into a validated domain issue.
func (g *GitHubGateway) toIssue(item *github.Issue) (domain.Issue, error) {
	issue := domain.Issue{
		Number: item.GetNumber(),
		Kind:   domain.KindIssue,
		Opened: item.GetCreatedAt().Time,
	}
	if item.IsPullRequest() {
		issue.Kind = domain.KindPullRequest
	}
	if item.ClosedAt != nil {
		closed := item.GetClosedAt().Time
		issue.Closed = &closed
	}
	if err := g.validate.Struct(issue); err != nil {
		return issue, err
	}
	if issue.Closed != nil && issue.Closed.Before(issue.Opened) {
		return issue, errors.Errorf("closed at %s before opened at %s", issue.Closed, issue.Opened)
	}
	return issue, nil
}

// FetchFile returns the content of a file at the given ref.
func (g *GitHubGateway) FetchFile(ctx context.Context, owner, repo, ref, path string) ([]byte, error) {
	var file *github.RepositoryContent
	err := g.retry.Do(ctx, g.logger, "get "+path+" of "+owner+"/"+repo+"@"+ref, func() error {
		var err error
		file, _, _, err = g.restClient.Repositories.GetContents(ctx, owner, repo, path, &github.RepositoryContentGetOptions{Ref: ref})
		return err
	})
	if err != nil {
		var respErr *github.ErrorResponse
		if errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.StatusCode == http.StatusNotFound {
			return nil, errors.Wrapf(ErrNotFound, "%s in %s/%s@%s", path, owner, repo, ref)
		}
		return nil, errors.Wrapf(err, "failed to get %s with REST API", path)
	}
	if file == nil {
		return nil, errors.Errorf("%s in %s/%s@%s is not a file", path, owner, repo, ref)
	}
	content, err := file.GetContent()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", path)
	}
	return []byte(content), nil
}

// FetchReleases returns the published, non pre-release releases of a project.
func (g *GitHubGateway) FetchReleases(ctx context.Context, project domain.Project) ([]domain.Release, error) {
	variables := map[string]interface{}{
		"owner":  githubv4.String(project.Owner),
		"name":   githubv4.String(project.Name),
		"cursor": (*githubv4.String)(nil),
	}

	var releases []domain.Release
	for {
		var q releasesQuery
		err := g.retry.Do(ctx, g.logger, "query releases of "+project.FullName(), func() error {
			return g.graphqlClient.Query(ctx, &q, variables)
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to execute GraphQL query for releases")
		}
		for _, node := range q.Repository.Releases.Nodes {
			if node.IsDraft || node.IsPrerelease || node.PublishedAt == nil || node.TagName == "" {
				continue
			}
			releases = append(releases, domain.Release{TagName: node.TagName, PublishedAt: node.PublishedAt.Time})
		}
		if !q.Repository.Releases.PageInfo.HasNextPage {
			break
		}
		variables["cursor"] = githubv4.NewString(q.Repository.Releases.PageInfo.EndCursor)
		g.logger.Debug("fetching next page of releases", "project", project.FullName())
	}
	g.logger.Debug("fetched releases", "project", project.FullName(), "count", len(releases))
	return releases, nil
}
