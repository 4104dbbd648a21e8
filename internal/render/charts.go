package render

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/naka-gawa/craft-stats/internal/domain"
	"github.com/naka-gawa/craft-stats/internal/metrics"
)

// Windows are the rolling window sizes applied to the charts.
type Windows struct {
	Average int
	Sum     int
}

// writeProjectCharts renders the chart page of one project's time series.
func writeProjectCharts(w io.Writer, project string, points []domain.TimeSeriesPoint, windows Windows) error {
	dates := make([]string, len(points))
	var issues, prs, closed, closedPRs, opened, openedPRs []int
	issueAges := make([]opts.LineData, len(points))
	prAges := make([]opts.LineData, len(points))
	for i, p := range points {
		dates[i] = p.Day()
		issues = append(issues, p.OpenIssues)
		prs = append(prs, p.OpenPRs)
		opened = append(opened, p.Opened)
		closed = append(closed, p.Closed)
		openedPRs = append(openedPRs, p.OpenedPRs)
		closedPRs = append(closedPRs, p.ClosedPRs)
		issueAges[i] = ageData(p.IssueAge)
		prAges[i] = ageData(p.PRAge)
	}

	open := newLine(project+": open issues and pull requests", dates)
	open.AddSeries("issues", lineData(issues)).
		AddSeries("issues (average)", lineData(metrics.RollingAverage(issues, windows.Average))).
		AddSeries("pull requests", lineData(prs)).
		AddSeries("pull requests (average)", lineData(metrics.RollingAverage(prs, windows.Average)))

	flow := charts.NewBar()
	flow.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: project + ": opened and closed", Subtitle: "trailing window sums"}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
	)
	flow.SetXAxis(dates).
		AddSeries("issues opened", barData(metrics.RollingSum(opened, windows.Sum))).
		AddSeries("issues closed", barData(metrics.RollingSum(closed, windows.Sum))).
		AddSeries("pull requests opened", barData(metrics.RollingSum(openedPRs, windows.Sum))).
		AddSeries("pull requests closed", barData(metrics.RollingSum(closedPRs, windows.Sum)))

	age := newLine(project+": median age in days", dates)
	age.AddSeries("issues", issueAges).
		AddSeries("pull requests", prAges)

	page := components.NewPage()
	page.AddCharts(open, flow, age)
	return page.Render(w)
}

func newLine(title string, dates []string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
	)
	line.SetXAxis(dates)
	return line
}

func lineData(values []int) []opts.LineData {
	out := make([]opts.LineData, len(values))
	for i, v := range values {
		out[i] = opts.LineData{Value: v}
	}
	return out
}

func barData(values []int) []opts.BarData {
	out := make([]opts.BarData, len(values))
	for i, v := range values {
		out[i] = opts.BarData{Value: v}
	}
	return out
}

// ageData leaves a gap in the line for days without open items.
func ageData(age *float64) opts.LineData {
	if age == nil {
		return opts.LineData{Value: "-"}
	}
	return opts.LineData{Value: *age}
}
