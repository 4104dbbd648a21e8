package store

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/naka-gawa/craft-stats/internal/domain"
)

// SeriesHeader is the header row of a time-series file.
var SeriesHeader = []string{"date", "issues", "opened", "closed", "prs", "prs_opened", "prs_closed", "issue_age", "pr_age"}

// SeriesFile returns the time-series file name of a project.
func SeriesFile(project string) string {
	if project == AllProjects {
		return "all-projects-github.csv"
	}
	return project + "-github.csv"
}

// ReadSeries loads the time-series log of a project in file order.
func (s *Store) ReadSeries(project string) ([]domain.TimeSeriesPoint, error) {
	data, err := s.ReadFile(SeriesFile(project))
	if err != nil {
		return nil, err
	}
	return parseSeries(data)
}

// AppendSeries appends points to the time-series log of a project. Existing
// rows are kept byte for byte; points that are not strictly after the last
// logged day are rejected, so a day is never written twice.
func (s *Store) AppendSeries(project string, points []domain.TimeSeriesPoint) error {
	if len(points) == 0 {
		return nil
	}
	name := SeriesFile(project)

	existing, err := s.ReadFile(name)
	if err != nil && !errors.Is(err, ErrNoData) {
		return err
	}
	logged, err := parseSeries(existing)
	if err != nil {
		return errors.Wrapf(err, "refusing to append to malformed %s", name)
	}

	var last time.Time
	if len(logged) > 0 {
		last = logged[len(logged)-1].Date
	}

	buf := bytes.NewBuffer(existing)
	if len(existing) > 0 && existing[len(existing)-1] != '\n' {
		buf.WriteByte('\n')
	}
	w := csv.NewWriter(buf)
	if len(existing) == 0 {
		if err := w.Write(SeriesHeader); err != nil {
			return errors.Wrap(err, "could not write header")
		}
	}
	for _, p := range points {
		if !p.Date.After(last) {
			return errors.Errorf("point for %s is not after the last logged day %s", p.Day(), last.Format(domain.DateLayout))
		}
		last = p.Date
		if err := w.Write(seriesRow(p)); err != nil {
			return errors.Wrap(err, "could not encode point")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrap(err, "could not encode points")
	}
	return s.WriteFile(name, buf.Bytes())
}

func seriesRow(p domain.TimeSeriesPoint) []string {
	return []string{
		p.Day(),
		strconv.Itoa(p.OpenIssues),
		strconv.Itoa(p.Opened),
		strconv.Itoa(p.Closed),
		strconv.Itoa(p.OpenPRs),
		strconv.Itoa(p.OpenedPRs),
		strconv.Itoa(p.ClosedPRs),
		formatAge(p.IssueAge),
		formatAge(p.PRAge),
	}
}

func formatAge(age *float64) string {
	if age == nil {
		return ""
	}
	return strconv.FormatFloat(*age, 'f', 1, 64)
}

func parseAge(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseSeries(data []byte) ([]domain.TimeSeriesPoint, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = len(SeriesHeader)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "could not parse time series")
	}

	points := make([]domain.TimeSeriesPoint, 0, len(rows)-1)
	for i, row := range rows[1:] {
		p, err := parseSeriesRow(row)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", i+2)
		}
		points = append(points, p)
	}
	return points, nil
}

func parseSeriesRow(row []string) (domain.TimeSeriesPoint, error) {
	var p domain.TimeSeriesPoint
	date, err := time.Parse(domain.DateLayout, row[0])
	if err != nil {
		return p, errors.Wrap(err, "invalid date")
	}
	p.Date = date

	counts := []*int{&p.OpenIssues, &p.Opened, &p.Closed, &p.OpenPRs, &p.OpenedPRs, &p.ClosedPRs}
	for i, dst := range counts {
		v, err := strconv.Atoi(row[i+1])
		if err != nil {
			return p, errors.Wrapf(err, "invalid %s", SeriesHeader[i+1])
		}
		*dst = v
	}
	if p.IssueAge, err = parseAge(row[7]); err != nil {
		return p, errors.Wrap(err, "invalid issue_age")
	}
	if p.PRAge, err = parseAge(row[8]); err != nil {
		return p, errors.Wrap(err, "invalid pr_age")
	}
	return p, nil
}

// LastDay returns the date of the last point, or the zero time for an empty log.
func LastDay(points []domain.TimeSeriesPoint) time.Time {
	if len(points) == 0 {
		return time.Time{}
	}
	return points[len(points)-1].Date
}
