package render

import (
	"bytes"
	"html/template"
	"log/slog"
	"os"
	"sort"
	"strconv"

	"github.com/pkg/errors"

	"github.com/naka-gawa/craft-stats/internal/domain"
	"github.com/naka-gawa/craft-stats/internal/store"
)

// IndexFile is the landing page of the rendered site.
const IndexFile = "index.html"

// Renderer writes the static site into its output directory.
type Renderer struct {
	out     *store.Store
	windows Windows
	logger  *slog.Logger
}

// NewRenderer creates a renderer writing into outputDir.
func NewRenderer(outputDir string, windows Windows, logger *slog.Logger) *Renderer {
	return &Renderer{out: store.New(outputDir), windows: windows, logger: logger}
}

// ChartFile returns the chart page name of a project.
func ChartFile(project string) string {
	return project + ".html"
}

// Render writes the index page and one chart page per project with a time series.
func (r *Renderer) Render(data *Data) error {
	if err := os.MkdirAll(r.out.Dir(), 0o755); err != nil {
		return errors.Wrapf(err, "could not create %s", r.out.Dir())
	}

	charted := map[string]bool{}
	for _, project := range sortedKeys(data.Series) {
		var buf bytes.Buffer
		if err := writeProjectCharts(&buf, project, data.Series[project], r.windows); err != nil {
			r.logger.Warn("skipping charts", "project", project, "err", err)
			continue
		}
		if err := r.out.WriteFile(ChartFile(project), buf.Bytes()); err != nil {
			return err
		}
		charted[project] = true
	}

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, newIndex(data, charted)); err != nil {
		return errors.Wrap(err, "could not render index page")
	}
	if err := r.out.WriteFile(IndexFile, buf.Bytes()); err != nil {
		return err
	}
	r.logger.Info("rendered site", "dir", r.out.Dir(), "charts", len(charted))
	return nil
}

type snapshotRow struct {
	Project string
	Chart   string
	domain.Snapshot
}

type dependencyRow struct {
	App     string
	Records []*domain.DependencyRecord
}

type index struct {
	Snapshots    []snapshotRow
	Libs         []string
	Latest       map[string]string
	Dependencies []dependencyRow
	Releases     []domain.ReleaseBranchInfo
	Cadences     []cadenceRow
}

type cadenceRow struct {
	Project string
	domain.ReleaseCadence
}

func newIndex(data *Data, charted map[string]bool) index {
	var idx index

	for _, project := range snapshotOrder(data) {
		snapshot, ok := data.Snapshots[project]
		if !ok {
			continue
		}
		row := snapshotRow{Project: project, Snapshot: snapshot}
		if charted[project] {
			row.Chart = ChartFile(project)
		}
		idx.Snapshots = append(idx.Snapshots, row)
	}

	if deps := data.Dependencies; deps != nil {
		idx.Libs = deps.Libs
		idx.Latest = deps.Latest
		for _, app := range sortedKeys(deps.Apps) {
			row := dependencyRow{App: app}
			for _, lib := range deps.Libs {
				if record, ok := deps.Apps[app][lib]; ok {
					row.Records = append(row.Records, &record)
				} else {
					row.Records = append(row.Records, nil)
				}
			}
			idx.Dependencies = append(idx.Dependencies, row)
		}
	}

	idx.Releases = data.Releases
	for _, project := range sortedKeys(data.Cadences) {
		idx.Cadences = append(idx.Cadences, cadenceRow{Project: project, ReleaseCadence: data.Cadences[project]})
	}
	return idx
}

// snapshotOrder lists the projects of the project list first, then any other
// snapshot, with the all-projects aggregate last.
func snapshotOrder(data *Data) []string {
	seen := map[string]bool{store.AllProjects: true}
	var order []string
	for _, p := range data.Projects {
		if !seen[p] {
			seen[p] = true
			order = append(order, p)
		}
	}
	for _, p := range sortedKeys(data.Snapshots) {
		if !seen[p] {
			seen[p] = true
			order = append(order, p)
		}
	}
	return append(order, store.AllProjects)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatAge(age *float64) string {
	if age == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*age, 'f', 1, 64)
}

var indexTemplate = template.Must(template.New(IndexFile).Funcs(template.FuncMap{
	"age": formatAge,
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>craft-stats</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; margin-bottom: 2em; }
th, td { border: 1px solid #ccc; padding: 0.3em 0.6em; text-align: right; }
th:first-child, td:first-child { text-align: left; }
td.outdated { background: #fdd; }
td.current { background: #dfd; }
</style>
</head>
<body>
<h1>craft-stats</h1>
{{- if .Snapshots}}
<h2>Issues and pull requests</h2>
<table>
<tr><th>project</th><th>open issues</th><th>open PRs</th><th>median issue age</th><th>median PR age</th><th>issues closed (year)</th><th>PRs closed (year)</th></tr>
{{- range .Snapshots}}
<tr><td>{{if .Chart}}<a href="{{.Chart}}">{{.Project}}</a>{{else}}{{.Project}}{{end}}</td><td>{{.OpenIssues}}</td><td>{{.OpenPRs}}</td><td>{{age .MedianIssueAge}}</td><td>{{age .MedianPRAge}}</td><td>{{.ClosedIssuesYear}}</td><td>{{.ClosedPRsYear}}</td></tr>
{{- end}}
</table>
{{- end}}
{{- if .Dependencies}}
<h2>Dependencies</h2>
<table>
<tr><th>application</th>{{range .Libs}}<th>{{.}}</th>{{end}}</tr>
<tr><td>latest</td>{{range .Libs}}<td>{{index $.Latest .}}</td>{{end}}</tr>
{{- range .Dependencies}}
<tr><td>{{.App}}</td>{{range .Records}}{{if .}}<td class="{{if .Outdated}}outdated{{else}}current{{end}}">{{.Version}}</td>{{else}}<td></td>{{end}}{{end}}</tr>
{{- end}}
</table>
{{- end}}
{{- if .Releases}}
<h2>Releases</h2>
<table>
<tr><th>application</th><th>branch</th><th>latest tag</th><th>commits since tag</th></tr>
{{- range .Releases}}
<tr><td>{{.App}}</td><td>{{.Branch}}</td><td>{{.LatestTag}}</td><td>{{.CommitsSinceTag}}</td></tr>
{{- end}}
</table>
{{- end}}
{{- if .Cadences}}
<h2>Release cadence</h2>
<table>
<tr><th>project</th><th>latest release</th><th>releases (year)</th><th>days since release</th><th>median days between releases</th></tr>
{{- range .Cadences}}
<tr><td>{{.Project}}</td><td>{{.LatestTag}}</td><td>{{.ReleasesYear}}</td><td>{{age .DaysSinceRelease}}</td><td>{{age .MedianDaysBetween}}</td></tr>
{{- end}}
</table>
{{- end}}
</body>
</html>
`
