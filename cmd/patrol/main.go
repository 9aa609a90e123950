package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/patrol/internal/challenge"
	"github.com/alfredjeanlab/patrol/internal/config"
	"github.com/alfredjeanlab/patrol/internal/miner"
	"github.com/alfredjeanlab/patrol/internal/ui"
)

var (
	jsonOutput  bool
	noColor     bool
	serverURL   string
	serverToken string
)

var rootCmd = &cobra.Command{
	Use:           "patrol <command>",
	Short:         "Audit miners' claims about chain ownership and transfers",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor || !ui.ShouldUseColor() {
			ui.ForceNoColor()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("PATROL_SERVER", ""), "query a running validator's HTTP API instead of the database")
	rootCmd.PersistentFlags().StringVar(&serverToken, "token", os.Getenv("PATROL_AUTH_TOKEN"), "bearer token for --server")

	rootCmd.AddGroup(
		&cobra.Group{ID: "validator", Title: "Validator:"},
		&cobra.Group{ID: "views", Title: "Views:"},
	)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(scoresCmd)
	rootCmd.AddCommand(weightsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(statusCmd)
}

// newLogger builds the process logger on stderr.
func newLogger(format string) *slog.Logger {
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

// loadRoster returns the configured miner roster: inline JSON first, then a
// file reread before every batch.
func loadRoster(cfg *config.Config) (challenge.Roster, error) {
	switch {
	case cfg.MinersJSON != "":
		miners, err := miner.ParseRoster([]byte(cfg.MinersJSON))
		if err != nil {
			return nil, fmt.Errorf("PATROL_MINERS_JSON: %w", err)
		}
		return miner.StaticRoster(miners), nil
	case cfg.MinersFile != "":
		return miner.FileRoster{Path: cfg.MinersFile}, nil
	default:
		return nil, errors.New("a miner roster is required: set PATROL_MINERS_JSON or PATROL_MINERS_FILE")
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
