package gateway

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/pkg/errors"
	"github.com/shurcooL/githubv4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naka-gawa/craft-stats/internal/domain"
)

var testRetry = RetryPolicy{Attempts: 3, Backoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// setupTestGateway creates a GitHubGateway that communicates with a mock HTTP server.
func setupTestGateway(t *testing.T, handler http.Handler) (*GitHubGateway, *httptest.Server) {
	server := httptest.NewServer(handler)

	restClient := github.NewClient(server.Client())
	baseURL, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	restClient.BaseURL = baseURL

	graphqlClient := githubv4.NewEnterpriseClient(server.URL, server.Client())

	return newGitHubGateway(restClient, graphqlClient, testRetry, discardLogger()), server
}

func TestGitHubGateway_FetchIssues(t *testing.T) {
	project := domain.Project{Owner: "canonical", Name: "snapcraft"}

	t.Run("pages through issues and tells pull requests apart", func(t *testing.T) {
		var serverURL string
		handler := func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/repos/canonical/snapcraft/issues", r.URL.Path)
			assert.Equal(t, "all", r.URL.Query().Get("state"))
			switch r.URL.Query().Get("page") {
			case "":
				w.Header().Set("Link", fmt.Sprintf(`<%s/repos/canonical/snapcraft/issues?page=2>; rel="next"`, serverURL))
				fmt.Fprint(w, `[{"number":1,"created_at":"2024-01-01T10:00:00Z","closed_at":"2024-01-03T10:00:00Z"}]`)
			case "2":
				fmt.Fprint(w, `[{"number":2,"created_at":"2024-01-02T10:00:00Z","pull_request":{"url":"x"}}]`)
			default:
				t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
			}
		}
		gateway, server := setupTestGateway(t, http.HandlerFunc(handler))
		defer server.Close()
		serverURL = server.URL

		issues, err := gateway.FetchIssues(context.Background(), project, time.Time{})
		require.NoError(t, err)
		require.Len(t, issues, 2)

		assert.Equal(t, 1, issues[0].Number)
		assert.Equal(t, domain.KindIssue, issues[0].Kind)
		require.NotNil(t, issues[0].Closed)
		assert.Equal(t, time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC), issues[0].Closed.UTC())

		assert.Equal(t, 2, issues[1].Number)
		assert.Equal(t, domain.KindPullRequest, issues[1].Kind)
		assert.Nil(t, issues[1].Closed)
	})

	t.Run("drops items that fail validation", func(t *testing.T) {
		handler := func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `[
				{"number":1,"created_at":"2024-01-05T00:00:00Z","closed_at":"2024-01-01T00:00:00Z"},
				{"number":2},
				{"number":3,"created_at":"2024-01-05T00:00:00Z"}
			]`)
		}
		gateway, server := setupTestGateway(t, http.HandlerFunc(handler))
		defer server.Close()

		issues, err := gateway.FetchIssues(context.Background(), project, time.Time{})
		require.NoError(t, err)
		require.Len(t, issues, 1)
		assert.Equal(t, 3, issues[0].Number)
	})

	t.Run("retries server errors", func(t *testing.T) {
		var calls atomic.Int32
		handler := func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				fmt.Fprint(w, `{"message":"Bad Gateway"}`)
				return
			}
			fmt.Fprint(w, `[]`)
		}
		gateway, server := setupTestGateway(t, http.HandlerFunc(handler))
		defer server.Close()

		issues, err := gateway.FetchIssues(context.Background(), project, time.Time{})
		require.NoError(t, err)
		assert.Empty(t, issues)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("error case - not retried", func(t *testing.T) {
		var calls atomic.Int32
		handler := func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnprocessableEntity)
			fmt.Fprint(w, `{"message":"Validation Failed"}`)
		}
		gateway, server := setupTestGateway(t, http.HandlerFunc(handler))
		defer server.Close()

		_, err := gateway.FetchIssues(context.Background(), project, time.Time{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to list issues with REST API")
		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestGitHubGateway_FetchFile(t *testing.T) {
	testCases := []struct {
		name        string
		handlerFunc func(w http.ResponseWriter, r *http.Request)
		expected    string
		expectErr   error
	}{
		{
			name: "happy path - decodes file content",
			handlerFunc: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/repos/canonical/snapcraft/contents/requirements.txt", r.URL.Path)
				assert.Equal(t, "hotfix/8.0", r.URL.Query().Get("ref"))
				content := base64.StdEncoding.EncodeToString([]byte("craft-cli==2.5.1\n"))
				fmt.Fprintf(w, `{"type":"file","encoding":"base64","content":%q}`, content)
			},
			expected: "craft-cli==2.5.1\n",
		},
		{
			name: "missing file",
			handlerFunc: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"message":"Not Found"}`)
			},
			expectErr: ErrNotFound,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gateway, server := setupTestGateway(t, http.HandlerFunc(tc.handlerFunc))
			defer server.Close()

			content, err := gateway.FetchFile(context.Background(), "canonical", "snapcraft", "hotfix/8.0", RequirementsFile)
			if tc.expectErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tc.expectErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, string(content))
		})
	}
}

func TestGitHubGateway_FetchReleases(t *testing.T) {
	testCases := []struct {
		name           string
		responses      []string
		expected       []domain.Release
		expectError    bool
		expectedErrMsg string
	}{
		{
			name: "happy path - skips drafts and pre-releases across pages",
			responses: []string{
				`{"data":{"repository":{"releases":{"pageInfo":{"hasNextPage":true,"endCursor":"c1"},"nodes":[
					{"tagName":"8.1.0","publishedAt":"2024-03-01T00:00:00Z","isDraft":false,"isPrerelease":false},
					{"tagName":"8.1.0rc1","publishedAt":"2024-02-20T00:00:00Z","isDraft":false,"isPrerelease":true},
					{"tagName":"8.2.0","publishedAt":null,"isDraft":true,"isPrerelease":false}]}}}}`,
				`{"data":{"repository":{"releases":{"pageInfo":{"hasNextPage":false,"endCursor":"c2"},"nodes":[
					{"tagName":"8.0.0","publishedAt":"2024-01-01T00:00:00Z","isDraft":false,"isPrerelease":false}]}}}}`,
			},
			expected: []domain.Release{
				{TagName: "8.1.0", PublishedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
				{TagName: "8.0.0", PublishedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
			},
		},
		{
			name:           "error case",
			responses:      []string{`{"errors":[{"message":"Something went wrong"}]}`},
			expectError:    true,
			expectedErrMsg: "failed to execute GraphQL query for releases",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var calls atomic.Int32
			handler := func(w http.ResponseWriter, r *http.Request) {
				body, err := io.ReadAll(r.Body)
				require.NoError(t, err)
				assert.Contains(t, string(body), "releases(first: 100")

				n := int(calls.Add(1)) - 1
				require.Less(t, n, len(tc.responses))
				if n > 0 {
					assert.Contains(t, string(body), `"cursor":"c1"`)
				}
				fmt.Fprint(w, tc.responses[n])
			}
			gateway, server := setupTestGateway(t, http.HandlerFunc(handler))
			defer server.Close()

			releases, err := gateway.FetchReleases(context.Background(), domain.Project{Owner: "canonical", Name: "snapcraft"})
			if tc.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tc.expectedErrMsg)
				return
			}
			require.NoError(t, err)
			require.Len(t, releases, len(tc.expected))
			for i := range tc.expected {
				assert.Equal(t, tc.expected[i].TagName, releases[i].TagName)
				assert.True(t, tc.expected[i].PublishedAt.Equal(releases[i].PublishedAt))
			}
		})
	}
}
