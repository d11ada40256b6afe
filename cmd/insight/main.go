// Package main provides the CLI entry point for the insight telemetry client.
//
// insight submits behavioral feedback events to the analytics service, keeps
// per-user A/B variant assignments sticky across runs, and retries failed
// submissions from a durable queue.
//
// # Basic Usage
//
// Submit a match acceptance:
//
//	insight submit match-accept --user u1 --task t1 --score 82 --confidence 0.9
//
// Show the user's variant for an experiment:
//
//	insight variant --user u1 --experiment match_score_threshold
//
// Drain the retry queue once:
//
//	insight flush
//
// Run the background daemon (periodic flush plus scheduled calibration pulls):
//
//	insight daemon --config insight.yaml
//
// # Environment Variables
//
//   - INSIGHT_CONFIG: Path to configuration file (default: insight.yaml)
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information - populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// This is separated from main() to facilitate testing.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "insight",
		Short:        "insight - experimentation and feedback telemetry client",
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildSubmitCmd(),
		buildVariantCmd(),
		buildProfileCmd(),
		buildCalibrationCmd(),
		buildQueueCmd(),
		buildDaemonCmd(),
	)

	return rootCmd
}

func resolveConfigPath(path string) string {
	if path != "" {
		return path
	}
	if env := os.Getenv("INSIGHT_CONFIG"); env != "" {
		return env
	}
	return ""
}
