// Package main provides the CLI entry point for the insight telemetry client.
//
// commands.go contains all cobra command definitions and their flag
// configurations. Each command builder creates a command and wires it to its
// handler in handlers.go.
package main

import (
	"github.com/spf13/cobra"
)

// =============================================================================
// Submit Commands
// =============================================================================

// buildSubmitCmd creates the "submit" command group for feedback events.
func buildSubmitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a feedback event",
	}
	cmd.AddCommand(
		buildSubmitMatchAcceptCmd(),
		buildSubmitMatchRejectCmd(),
		buildSubmitCompletionCmd(),
		buildSubmitTradeCmd(),
	)
	return cmd
}

func buildSubmitMatchAcceptCmd() *cobra.Command {
	var (
		configPath string
		userID     string
		taskID     string
		score      float64
		confidence float64
	)
	cmd := &cobra.Command{
		Use:     "match-accept",
		Short:   "Report that the user accepted an AI-proposed match",
		Example: `  insight submit match-accept --user u1 --task t1 --score 82 --confidence 0.9`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmitMatchAccept(cmd.Context(), configPath, userID, taskID, score, confidence)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	cmd.Flags().StringVar(&userID, "user", "", "User identifier")
	cmd.Flags().StringVar(&taskID, "task", "", "Task identifier")
	cmd.Flags().Float64Var(&score, "score", 0, "Match score the AI produced")
	cmd.Flags().Float64Var(&confidence, "confidence", 0, "AI confidence in the match")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("task")
	return cmd
}

func buildSubmitMatchRejectCmd() *cobra.Command {
	var (
		configPath string
		userID     string
		taskID     string
		score      float64
		reason     string
	)
	cmd := &cobra.Command{
		Use:   "match-reject",
		Short: "Report that the user declined an AI-proposed match",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmitMatchReject(cmd.Context(), configPath, userID, taskID, score, reason)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	cmd.Flags().StringVar(&userID, "user", "", "User identifier")
	cmd.Flags().StringVar(&taskID, "task", "", "Task identifier")
	cmd.Flags().Float64Var(&score, "score", 0, "Match score the AI produced")
	cmd.Flags().StringVar(&reason, "reason", "", "Why the user rejected the match")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("task")
	return cmd
}

func buildSubmitCompletionCmd() *cobra.Command {
	var (
		configPath  string
		userID      string
		taskID      string
		rating      int
		actualPrice float64
		pricingFair bool
	)
	cmd := &cobra.Command{
		Use:   "completion",
		Short: "Report a completed task with its outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmitCompletion(cmd.Context(), configPath, userID, taskID, rating, actualPrice, pricingFair)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	cmd.Flags().StringVar(&userID, "user", "", "User identifier")
	cmd.Flags().StringVar(&taskID, "task", "", "Task identifier")
	cmd.Flags().IntVar(&rating, "rating", 0, "User rating 1-5")
	cmd.Flags().Float64Var(&actualPrice, "price", 0, "Final price paid")
	cmd.Flags().BoolVar(&pricingFair, "pricing-fair", true, "Whether the user judged the pricing fair")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("task")
	return cmd
}

func buildSubmitTradeCmd() *cobra.Command {
	var (
		configPath  string
		userID      string
		tradeID     string
		pricingFair bool
	)
	cmd := &cobra.Command{
		Use:   "trade",
		Short: "Report a completed skill-trade",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmitTrade(cmd.Context(), configPath, userID, tradeID, pricingFair)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	cmd.Flags().StringVar(&userID, "user", "", "User identifier")
	cmd.Flags().StringVar(&tradeID, "trade", "", "Trade identifier")
	cmd.Flags().BoolVar(&pricingFair, "pricing-fair", true, "Whether the user judged the pricing fair")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("trade")
	return cmd
}

// =============================================================================
// Experiment Commands
// =============================================================================

// buildVariantCmd creates the "variant" command that resolves (and if needed
// assigns) the user's variant for an experiment.
func buildVariantCmd() *cobra.Command {
	var (
		configPath   string
		userID       string
		experimentID string
	)
	cmd := &cobra.Command{
		Use:     "variant",
		Short:   "Show the user's assigned variant for an experiment",
		Example: `  insight variant --user u1 --experiment match_score_threshold`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVariant(cmd.Context(), configPath, userID, experimentID)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	cmd.Flags().StringVar(&userID, "user", "", "User identifier")
	cmd.Flags().StringVar(&experimentID, "experiment", "", "Experiment identifier")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("experiment")
	return cmd
}

// =============================================================================
// Fetch Commands
// =============================================================================

func buildProfileCmd() *cobra.Command {
	var (
		configPath string
		userID     string
	)
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Fetch the AI-learned profile for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfile(cmd.Context(), configPath, userID)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	cmd.Flags().StringVar(&userID, "user", "", "User identifier")
	cmd.MarkFlagRequired("user")
	return cmd
}

func buildCalibrationCmd() *cobra.Command {
	var (
		configPath string
		metric     string
	)
	cmd := &cobra.Command{
		Use:   "calibration",
		Short: "Fetch server-computed calibration metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCalibration(cmd.Context(), configPath, metric)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	cmd.Flags().StringVar(&metric, "metric", "", "Filter to a single metric name")
	return cmd
}

// =============================================================================
// Queue Commands
// =============================================================================

// buildQueueCmd creates the "queue" command group for the retry queue.
func buildQueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and drain the feedback retry queue",
	}
	cmd.AddCommand(buildQueueStatusCmd(), buildQueueFlushCmd())
	return cmd
}

func buildQueueStatusCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show pending queue entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueueStatus(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	return cmd
}

func buildQueueFlushCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "flush",
		Short: "Drain the retry queue once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueueFlush(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	return cmd
}

// =============================================================================
// Daemon Command
// =============================================================================

// buildDaemonCmd creates the "daemon" command that runs the background flush
// loop and scheduled calibration pulls until interrupted.
func buildDaemonCmd() *cobra.Command {
	var (
		configPath          string
		calibrationSchedule string
	)
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the background retry flusher and calibration poller",
		Long: `Run until interrupted. The retry queue is flushed on its configured
interval, and calibration metrics are pulled on a cron schedule.

Graceful shutdown is handled on SIGINT/SIGTERM signals.`,
		Example: `  # Flush every 30s, pull calibration hourly
  insight daemon --config insight.yaml --calibration-schedule "@hourly"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), configPath, calibrationSchedule)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	cmd.Flags().StringVar(&calibrationSchedule, "calibration-schedule", "@hourly",
		"Cron schedule for calibration metric pulls")
	return cmd
}
