package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/naka-gawa/craft-stats/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func age(v float64) *float64 { return &v }

func TestStore_JSONRoundTrip(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "data"))
	in := map[string]domain.Snapshot{"snapcraft": {OpenIssues: 3, MedianIssueAge: age(1.5)}}

	require.NoError(t, s.WriteJSON(SnapshotFile, in))

	var out map[string]domain.Snapshot
	require.NoError(t, s.ReadJSON(SnapshotFile, &out))
	assert.Equal(t, in, out)

	raw, err := os.ReadFile(s.Path(SnapshotFile))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"median_pr_age": null`)
}

func TestStore_ReadMissing(t *testing.T) {
	s := New(t.TempDir())

	var out map[string]any
	assert.ErrorIs(t, s.ReadJSON(SnapshotFile, &out), ErrNoData)

	_, err := s.ReadSeries("nothing")
	assert.ErrorIs(t, err, ErrNoData)
}

func TestStore_WriteFileLeavesNoTemporaryFiles(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	require.NoError(t, s.WriteFile("a.txt", []byte("one")))
	require.NoError(t, s.WriteFile("a.txt", []byte("two")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	data, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestSeriesFile(t *testing.T) {
	assert.Equal(t, "all-projects-github.csv", SeriesFile(AllProjects))
	assert.Equal(t, "craft-cli-github.csv", SeriesFile("craft-cli"))
}

func TestStore_AppendSeries(t *testing.T) {
	s := New(t.TempDir())

	first := []domain.TimeSeriesPoint{
		{Date: day(1), OpenIssues: 4, Opened: 1, OpenPRs: 2, IssueAge: age(3.3)},
		{Date: day(2), OpenIssues: 3, Closed: 1, OpenPRs: 2, ClosedPRs: 1, IssueAge: age(4), PRAge: age(0.5)},
	}
	require.NoError(t, s.AppendSeries("proj", first))
	before, err := os.ReadFile(s.Path(SeriesFile("proj")))
	require.NoError(t, err)
	assert.Equal(t,
		"date,issues,opened,closed,prs,prs_opened,prs_closed,issue_age,pr_age\n"+
			"2024-03-01,4,1,0,2,0,0,3.3,\n"+
			"2024-03-02,3,0,1,2,0,1,4.0,0.5\n",
		string(before))

	require.NoError(t, s.AppendSeries("proj", []domain.TimeSeriesPoint{{Date: day(3), OpenIssues: 5}}))
	after, err := os.ReadFile(s.Path(SeriesFile("proj")))
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after[:len(before)]), "logged rows are never rewritten")

	points, err := s.ReadSeries("proj")
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, day(3), points[2].Date)
	assert.Equal(t, 5, points[2].OpenIssues)
	assert.Nil(t, points[0].PRAge)
	assert.Equal(t, 0.5, *points[1].PRAge)
}

func TestStore_AppendSeriesRejectsLoggedDays(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, s.AppendSeries("proj", []domain.TimeSeriesPoint{{Date: day(2)}}))

	err := s.AppendSeries("proj", []domain.TimeSeriesPoint{{Date: day(2), OpenIssues: 9}})
	assert.Error(t, err)
	err = s.AppendSeries("proj", []domain.TimeSeriesPoint{{Date: day(1)}})
	assert.Error(t, err)

	points, err := s.ReadSeries("proj")
	require.NoError(t, err)
	assert.Len(t, points, 1)
	assert.Zero(t, points[0].OpenIssues)
}

func TestStore_ReadSeriesMalformed(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, s.WriteFile(SeriesFile("proj"), []byte("date,issues\n2024-03-01,x\n")))

	_, err := s.ReadSeries("proj")
	assert.Error(t, err)
}

func TestStore_IssueCache(t *testing.T) {
	s := New(t.TempDir())

	empty, err := s.ReadIssueCache("proj")
	require.NoError(t, err)
	assert.Empty(t, empty.Issues)

	closed := day(5)
	cache := &domain.IssueCache{Project: "proj", RefreshedAt: day(6)}
	cache.Merge([]domain.Issue{
		{Number: 1, Kind: domain.KindIssue, Opened: day(1)},
		{Number: 2, Kind: domain.KindPullRequest, Opened: day(2), Closed: &closed},
	})
	require.NoError(t, s.WriteIssueCache(cache))

	loaded, err := s.ReadIssueCache("proj")
	require.NoError(t, err)
	assert.Equal(t, "proj", loaded.Project)
	assert.True(t, day(6).Equal(loaded.RefreshedAt))
	require.Len(t, loaded.Issues, 2)
	assert.Equal(t, domain.KindPullRequest, loaded.Issues[2].Kind)
	require.NotNil(t, loaded.Issues[2].Closed)
	assert.True(t, closed.Equal(*loaded.Issues[2].Closed))
	assert.Nil(t, loaded.Issues[1].Closed)
}

func TestStore_Releases(t *testing.T) {
	s := New(t.TempDir())
	infos := []domain.ReleaseBranchInfo{
		{App: "snapcraft", Branch: "main", LatestTag: "8.14.0", CommitsSinceTag: 57},
		{App: "charmcraft", Branch: "hotfix/4.1", LatestTag: "4.1.0", CommitsSinceTag: 0},
	}
	require.NoError(t, s.WriteReleases(infos))

	raw, err := os.ReadFile(s.Path(ReleasesFile))
	require.NoError(t, err)
	assert.Equal(t, "app,branch,latest tag,commits since tag\nsnapcraft,main,8.14.0,57\ncharmcraft,hotfix/4.1,4.1.0,0\n", string(raw))

	loaded, err := s.ReadReleases()
	require.NoError(t, err)
	assert.Equal(t, infos, loaded)
}

func TestStore_AppendLaunchpad(t *testing.T) {
	s := New(t.TempDir())
	morning := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	ok, err := s.AppendLaunchpad("snapcraft", domain.LaunchpadPoint{Timestamp: morning, Counts: map[string]int{"New": 3, "Triaged": 1}})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.AppendLaunchpad("snapcraft", domain.LaunchpadPoint{Timestamp: morning.Add(6 * time.Hour), Counts: map[string]int{"New": 4}})
	require.NoError(t, err)
	assert.False(t, ok, "one row per day")

	ok, err = s.AppendLaunchpad("snapcraft", domain.LaunchpadPoint{Timestamp: morning.Add(24 * time.Hour), Counts: map[string]int{"New": 4}})
	require.NoError(t, err)
	assert.True(t, ok)

	raw, err := os.ReadFile(s.Path(LaunchpadFile("snapcraft")))
	require.NoError(t, err)
	assert.Equal(t,
		"timestamp,New,Incomplete,Opinion,Invalid,Won't Fix,Expired,Confirmed,Triaged,In Progress,Fix Committed,Fix Released,Does Not Exist\n"+
			"2024-03-01T08:00:00Z,3,0,0,0,0,0,0,1,0,0,0,0\n"+
			"2024-03-02T08:00:00Z,4,0,0,0,0,0,0,0,0,0,0,0\n",
		string(raw))
}
