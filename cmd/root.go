// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/naka-gawa/craft-stats/internal/config"
	"github.com/naka-gawa/craft-stats/internal/gateway"
	"github.com/naka-gawa/craft-stats/internal/store"
	"github.com/naka-gawa/craft-stats/internal/usecase"
)

var (
	logger *slog.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:          "craft-stats",
	Short:        "Collect and render statistics about the craft projects.",
	SilenceUsage: true,
	Long: `craft-stats collects issue, dependency and release data of a fixed set
of GitHub projects into a data directory, and renders that directory into a
static page. It is meant to be run once a day by an external scheduler.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return errors.Wrap(err, "could not load .env")
		}

		level, _ := cmd.Flags().GetString("log-level")
		logger = newLogger(level)

		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		if dataDir, _ := cmd.Flags().GetString("data-dir"); dataDir != "" {
			loaded.DataDir = dataDir
		}
		cfg = loaded
		logger.Debug("loaded config", "file", path, "data-dir", cfg.DataDir, "projects", len(cfg.Projects))
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", config.DefaultFile, "Path of the configuration file")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "Set the log level. Options: debug, info, warn, error")
	rootCmd.PersistentFlags().String("data-dir", "", "Override the data directory of the configuration file")
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      l,
		TimeFormat: time.Kitchen,
		AddSource:  true,
	}))
}

// newRun creates the state of one collector run anchored at the current time.
func newRun() (*usecase.Run, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "could not create data directory %s", cfg.DataDir)
	}
	return usecase.NewRun(cfg, store.New(cfg.DataDir), time.Now())
}

func retryPolicy() gateway.RetryPolicy {
	return gateway.RetryPolicy{
		Attempts:   cfg.Retry.Attempts,
		Backoff:    cfg.Retry.Backoff,
		MaxBackoff: cfg.Retry.MaxBackoff,
	}
}

// newGitHubGateway reads the token and builds the GitHub gateway. A missing
// token fails before any API call.
func newGitHubGateway() (*gateway.GitHubGateway, string, error) {
	token, err := config.LoadToken()
	if err != nil {
		return nil, "", err
	}
	github, err := gateway.NewGitHubGateway(token, retryPolicy(), logger)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to create GitHub gateway")
	}
	return github, token, nil
}
