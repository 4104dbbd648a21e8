package cmd

import (
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/naka-gawa/craft-stats/internal/domain"
	"github.com/naka-gawa/craft-stats/internal/gateway"
	"github.com/naka-gawa/craft-stats/internal/usecase"
)

var issuesCmd = &cobra.Command{
	Use:   "issues",
	Short: "Collect issue and pull request history from GitHub",
	Long: `Updates the issue cache of every project, appends one point per missing
day to its time series, and rewrites the snapshot and project list.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		names, _ := cmd.Flags().GetStringSlice("project")
		projects, err := cfg.SelectProjects(names)
		if err != nil {
			return err
		}
		github, _, err := newGitHubGateway()
		if err != nil {
			return err
		}
		run, err := newRun()
		if err != nil {
			return err
		}

		collector := usecase.NewIssueCollector(github, logger)
		if progress, _ := cmd.Flags().GetBool("progress"); progress {
			bar := progressbar.NewOptions(len(projects),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionSetDescription("issues"),
				progressbar.OptionShowCount(),
			)
			collector.OnProjectDone = func(domain.Project) { _ = bar.Add(1) }
			defer bar.Finish()
		}
		return collector.Collect(cmd.Context(), run, projects)
	},
}

var dependenciesCmd = &cobra.Command{
	Use:   "dependencies",
	Short: "Compare the library versions pinned by each application branch with PyPI",
	RunE: func(cmd *cobra.Command, args []string) error {
		github, token, err := newGitHubGateway()
		if err != nil {
			return err
		}
		run, err := newRun()
		if err != nil {
			return err
		}
		collector := usecase.NewDependencyCollector(
			github,
			gateway.NewGitGateway(gateway.DefaultGitURL, token, logger),
			gateway.NewPyPIGateway(gateway.DefaultPyPIURL, retryPolicy(), logger),
			logger,
		)
		_, err = collector.Collect(cmd.Context(), run)
		return err
	},
}

var releasesCmd = &cobra.Command{
	Use:   "releases",
	Short: "Record the latest tag of each application branch and the release cadence of each project",
	RunE: func(cmd *cobra.Command, args []string) error {
		github, token, err := newGitHubGateway()
		if err != nil {
			return err
		}
		run, err := newRun()
		if err != nil {
			return err
		}
		collector := usecase.NewReleaseCollector(github, gateway.NewGitGateway(gateway.DefaultGitURL, token, logger), logger)
		return collector.Collect(cmd.Context(), run)
	},
}

var launchpadCmd = &cobra.Command{
	Use:   "launchpad",
	Short: "Append the daily bug status counts of the projects tracked on Launchpad",
	RunE: func(cmd *cobra.Command, args []string) error {
		run, err := newRun()
		if err != nil {
			return err
		}
		collector := usecase.NewLaunchpadCollector(gateway.NewLaunchpadGateway(gateway.DefaultLaunchpadURL, retryPolicy(), logger), logger)
		return collector.Collect(cmd.Context(), run)
	},
}

func init() {
	rootCmd.AddCommand(issuesCmd, dependenciesCmd, releasesCmd, launchpadCmd)
	issuesCmd.Flags().StringSliceP("project", "p", nil, "Only collect the given project (repeatable)")
	issuesCmd.Flags().Bool("progress", false, "Show a progress bar on stderr")
}
