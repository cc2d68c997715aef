// Package cmd provides CLI commands for pinmap.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func setupLogger() {
	logLevel := strings.ToUpper(os.Getenv("LOG_LEVEL"))
	if logLevel == "" {
		logLevel = "INFO"
	}

	var level slog.Level
	switch logLevel {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "WARN", "WARNING":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := slog.NewTextHandler(os.Stderr, opts)
	logger := slog.New(handler)

	slog.SetDefault(logger)
}

var rootCmd = &cobra.Command{
	Use:   "pinmap",
	Short: "Build map pins from a personal academic dataset",
	Long: `Pinmap resolves geographic coordinates for the entries of a personal
academic dataset (work experience, talks, projects, publications) and emits
a static set of map pins for display. It also normalizes a BibTeX export and
merges it into the same dataset.

Resolution chains through an organization registry (ROR), scholarly metadata
indexes (OpenAlex, Crossref), and a geocoder (Nominatim), with on-disk caches
so repeated runs avoid repeated network calls.

Examples:
  pinmap build --content content.json --output collab-pins.json
  pinmap build --jitter --jitter-radius 25
  pinmap bib normalize -i citations.bib -o citations.normalized.bib
  pinmap bib merge --bib citations.bib --content content.json`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	setupLogger()
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(bibCmd)
}
