package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/naka-gawa/craft-stats/internal/domain"
	"github.com/naka-gawa/craft-stats/internal/gateway"
	"github.com/naka-gawa/craft-stats/internal/store"
)

func TestDependencyCollector_Collect(t *testing.T) {
	versions := new(mockVersionSource)
	versions.On("FetchVersions", mock.Anything, "craft-cli").Return([]string{"2.5.0", "2.5.1", "2.6.0", "3.0.0rc1"}, nil).Once()
	versions.On("FetchVersions", mock.Anything, "craft-parts").Return(nil, errors.New("pypi down")).Once()

	repos := new(mockRepositories)
	repos.On("ListBranches", mock.Anything, "canonical", "snapcraft").
		Return([]string{"main", "hotfix/6.9", "hotfix/7.1", "hotfix/7.5", "hotfix/8.0", "feature/x"}, nil)

	fetcher := new(mockFetcher)
	fetcher.On("FetchFile", mock.Anything, "canonical", "snapcraft", "main", gateway.RequirementsFile).
		Return([]byte("craft-cli==2.5.0\ncraft_parts==1.0.0\nrequests==2.31.0\n"), nil)
	fetcher.On("FetchFile", mock.Anything, "canonical", "snapcraft", "hotfix/7.5", gateway.RequirementsFile).
		Return([]byte("craft-cli==2.5.1\ncraft-parts>=1\n"), nil)
	fetcher.On("FetchFile", mock.Anything, "canonical", "snapcraft", "hotfix/8.0", gateway.RequirementsFile).
		Return(nil, gateway.ErrNotFound)

	st := store.New(t.TempDir())
	collector := NewDependencyCollector(fetcher, repos, versions, discardLogger())
	table, err := collector.Collect(context.Background(), newTestRun(t, st, time.Now()))
	require.NoError(t, err)

	expected := &domain.DependencyTable{
		Libs:   []string{"craft-cli", "craft-parts"},
		Latest: map[string]string{"craft-cli": "2.6.0"},
		Apps: map[string]map[string]domain.DependencyRecord{
			"snapcraft/main": {
				"craft-cli": {Series: "2.5", Version: "2.5.0", Latest: "2.6.0", Outdated: true},
			},
			"snapcraft/hotfix/7.5": {
				"craft-cli": {Series: "2.5", Version: "2.5.1", Latest: "2.5.1", Outdated: false},
			},
		},
	}
	assert.Equal(t, expected, table)

	var written domain.DependencyTable
	require.NoError(t, st.ReadJSON(store.DependenciesFile, &written))
	assert.Equal(t, *expected, written)

	versions.AssertExpectations(t)
	fetcher.AssertExpectations(t)
}

func TestDependencyCollector_LibraryWithoutVersionsHasNoRecords(t *testing.T) {
	versions := new(mockVersionSource)
	versions.On("FetchVersions", mock.Anything, "craft-cli").Return([]string{"2.5.0"}, nil)
	versions.On("FetchVersions", mock.Anything, "craft-parts").Return(nil, errors.New("pypi down"))

	repos := new(mockRepositories)
	repos.On("ListBranches", mock.Anything, "canonical", "snapcraft").Return([]string{"main"}, nil)

	fetcher := new(mockFetcher)
	fetcher.On("FetchFile", mock.Anything, "canonical", "snapcraft", "main", gateway.RequirementsFile).
		Return([]byte("craft-cli==2.5.0\ncraft-parts==1.0.0\ncraft-parts-extra==1\n"), nil)

	collector := NewDependencyCollector(fetcher, repos, versions, discardLogger())
	table, err := collector.Collect(context.Background(), newTestRun(t, store.New(t.TempDir()), time.Now()))
	require.NoError(t, err)

	require.Contains(t, table.Apps, "snapcraft/main")
	assert.Contains(t, table.Apps["snapcraft/main"], "craft-cli")
	assert.NotContains(t, table.Apps["snapcraft/main"], "craft-parts")
	assert.NotContains(t, table.Latest, "craft-parts")
}
