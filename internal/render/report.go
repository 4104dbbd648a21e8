package render

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// WriteReport prints the snapshot, dependency, release and cadence tables
// for a terminal. Sections without data are left out.
func WriteReport(w io.Writer, data *Data) {
	idx := newIndex(data, nil)

	if len(idx.Snapshots) > 0 {
		tw := newTable(w, "Issues and pull requests")
		tw.AppendHeader(table.Row{"Project", "Open issues", "Open PRs", "Median issue age", "Median PR age", "Issues closed (year)", "PRs closed (year)"})
		for _, s := range idx.Snapshots {
			tw.AppendRow(table.Row{s.Project, s.OpenIssues, s.OpenPRs, formatAge(s.MedianIssueAge), formatAge(s.MedianPRAge), s.ClosedIssuesYear, s.ClosedPRsYear})
		}
		tw.Render()
	}

	if len(idx.Dependencies) > 0 {
		tw := newTable(w, "Dependencies")
		header := table.Row{"Application"}
		latest := table.Row{"latest"}
		for _, lib := range idx.Libs {
			header = append(header, lib)
			latest = append(latest, idx.Latest[lib])
		}
		tw.AppendHeader(header)
		tw.AppendRow(latest)
		tw.AppendSeparator()
		for _, dep := range idx.Dependencies {
			row := table.Row{dep.App}
			for _, record := range dep.Records {
				switch {
				case record == nil:
					row = append(row, "")
				case record.Outdated:
					row = append(row, text.FgRed.Sprint(record.Version))
				default:
					row = append(row, record.Version)
				}
			}
			tw.AppendRow(row)
		}
		tw.Render()
	}

	if len(idx.Releases) > 0 {
		tw := newTable(w, "Releases")
		tw.AppendHeader(table.Row{"Application", "Branch", "Latest tag", "Commits since tag"})
		for _, r := range idx.Releases {
			tw.AppendRow(table.Row{r.App, r.Branch, r.LatestTag, r.CommitsSinceTag})
		}
		tw.Render()
	}

	if len(idx.Cadences) > 0 {
		tw := newTable(w, "Release cadence")
		tw.AppendHeader(table.Row{"Project", "Latest release", "Releases (year)", "Days since release", "Median days between"})
		for _, c := range idx.Cadences {
			tw.AppendRow(table.Row{c.Project, c.LatestTag, c.ReleasesYear, formatAge(c.DaysSinceRelease), formatAge(c.MedianDaysBetween)})
		}
		tw.Render()
	}
}

func newTable(w io.Writer, title string) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetTitle(title)
	tw.SetStyle(table.StyleLight)
	return tw
}
