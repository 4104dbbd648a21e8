package store

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/naka-gawa/craft-stats/internal/domain"
)

// ReleasesHeader is the header row of the releases file.
var ReleasesHeader = []string{"app", "branch", "latest tag", "commits since tag"}

// WriteReleases replaces the releases file.
func (s *Store) WriteReleases(infos []domain.ReleaseBranchInfo) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(ReleasesHeader); err != nil {
		return errors.Wrap(err, "could not write header")
	}
	for _, info := range infos {
		row := []string{info.App, info.Branch, info.LatestTag, strconv.Itoa(info.CommitsSinceTag)}
		if err := w.Write(row); err != nil {
			return errors.Wrap(err, "could not encode release info")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrap(err, "could not encode releases")
	}
	return s.WriteFile(ReleasesFile, buf.Bytes())
}

// ReadReleases loads the releases file.
func (s *Store) ReadReleases() ([]domain.ReleaseBranchInfo, error) {
	data, err := s.ReadFile(ReleasesFile)
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = len(ReleasesHeader)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "could not parse %s", ReleasesFile)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	infos := make([]domain.ReleaseBranchInfo, 0, len(rows)-1)
	for _, row := range rows[1:] {
		commits, err := strconv.Atoi(row[3])
		if err != nil {
			return nil, errors.Wrapf(err, "invalid commit count for %s/%s", row[0], row[1])
		}
		infos = append(infos, domain.ReleaseBranchInfo{App: row[0], Branch: row[1], LatestTag: row[2], CommitsSinceTag: commits})
	}
	return infos, nil
}

// LaunchpadFile returns the Launchpad bug count file name of a project.
func LaunchpadFile(project string) string {
	return project + "-launchpad.csv"
}

const launchpadTimeLayout = time.RFC3339

// AppendLaunchpad appends a row of bug counts to the Launchpad log of a
// project. It returns false without writing when the log already holds a row
// for the same UTC day.
func (s *Store) AppendLaunchpad(project string, point domain.LaunchpadPoint) (bool, error) {
	name := LaunchpadFile(project)
	existing, err := s.ReadFile(name)
	if err != nil && !errors.Is(err, ErrNoData) {
		return false, err
	}

	if len(existing) > 0 {
		rows, err := csv.NewReader(bytes.NewReader(existing)).ReadAll()
		if err != nil {
			return false, errors.Wrapf(err, "refusing to append to malformed %s", name)
		}
		if len(rows) > 1 {
			last, err := time.Parse(launchpadTimeLayout, rows[len(rows)-1][0])
			if err == nil && last.UTC().Format(domain.DateLayout) == point.Timestamp.UTC().Format(domain.DateLayout) {
				return false, nil
			}
		}
	}

	buf := bytes.NewBuffer(existing)
	if len(existing) > 0 && existing[len(existing)-1] != '\n' {
		buf.WriteByte('\n')
	}
	w := csv.NewWriter(buf)
	if len(existing) == 0 {
		if err := w.Write(append([]string{"timestamp"}, domain.LaunchpadStatuses...)); err != nil {
			return false, errors.Wrap(err, "could not write header")
		}
	}
	row := []string{point.Timestamp.UTC().Format(launchpadTimeLayout)}
	for _, status := range domain.LaunchpadStatuses {
		row = append(row, strconv.Itoa(point.Counts[status]))
	}
	if err := w.Write(row); err != nil {
		return false, errors.Wrap(err, "could not encode launchpad counts")
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return false, errors.Wrap(err, "could not encode launchpad counts")
	}
	return true, s.WriteFile(name, buf.Bytes())
}
