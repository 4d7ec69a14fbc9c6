// Package cmd implements the CLI commands for novelpipe using Cobra.
package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "novelpipe",
	Short: "novelpipe: crawl a web novel into an e-book",
	Long: `novelpipe downloads the chapters listed on a web novel's table-of-contents
page, caches every page on disk, extracts the chapter text and packages it
as an EPUB (or Markdown, JSON, PDF).

Usage:
  novelpipe <url> [flags]
  novelpipe build <url> [flags]`,
	Args:          cobra.MaximumNArgs(1),
	RunE:          runBuild,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	addBuildFlags(rootCmd.Flags())
	rootCmd.PersistentFlags().String("config", "", "Config file (default: ./novelpipe.{yaml,json,toml} if present)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
}

// newLogger returns a colored slog logger writing to stderr.
func newLogger(level slog.Level) *slog.Logger {
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}

// Execute runs the root command. Ctrl-C cancels the crawl.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		newLogger(slog.LevelInfo).Error("novelpipe failed", "err", err)
		stop()
		os.Exit(1)
	}
}
