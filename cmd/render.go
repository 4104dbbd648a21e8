package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/naka-gawa/craft-stats/internal/render"
	"github.com/naka-gawa/craft-stats/internal/store"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the data directory into a static site",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("output-dir")
		if out == "" {
			out = cfg.Render.OutputDir
		}
		data := render.Load(store.New(cfg.DataDir), logger)
		renderer := render.NewRenderer(out, render.Windows{Average: cfg.Render.AverageWindow, Sum: cfg.Render.SumWindow}, logger)
		return renderer.Render(data)
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the data directory as tables",
	Run: func(cmd *cobra.Command, args []string) {
		render.WriteReport(os.Stdout, render.Load(store.New(cfg.DataDir), logger))
	},
}

func init() {
	rootCmd.AddCommand(renderCmd, reportCmd)
	renderCmd.Flags().StringP("output-dir", "o", "", "Override the output directory of the configuration file")
}
