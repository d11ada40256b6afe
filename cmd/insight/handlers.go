// handlers.go contains the run* functions behind each cobra command.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/hustlexp/insight/pkg/models"
)

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func reportResult(result models.SubmitResult) error {
	if err := printJSON(result); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("submission failed: %s", result.Error)
	}
	return nil
}

func runSubmitMatchAccept(ctx context.Context, configPath, userID, taskID string, score, confidence float64) error {
	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()
	return reportResult(a.facade.SubmitMatchAcceptance(ctx, userID, taskID, score, confidence))
}

func runSubmitMatchReject(ctx context.Context, configPath, userID, taskID string, score float64, reason string) error {
	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()
	return reportResult(a.facade.SubmitMatchRejection(ctx, userID, taskID, score, reason))
}

func runSubmitCompletion(ctx context.Context, configPath, userID, taskID string, rating int, actualPrice float64, pricingFair bool) error {
	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()
	return reportResult(a.facade.SubmitTaskCompletion(ctx, models.CompletionFeedback{
		UserID:      userID,
		TaskID:      taskID,
		Rating:      rating,
		ActualPrice: actualPrice,
		PricingFair: pricingFair,
	}))
}

func runSubmitTrade(ctx context.Context, configPath, userID, tradeID string, pricingFair bool) error {
	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()
	return reportResult(a.facade.SubmitTradeCompletion(ctx, models.TradeFeedback{
		UserID:      userID,
		TradeID:     tradeID,
		PricingFair: pricingFair,
	}))
}

func runVariant(ctx context.Context, configPath, userID, experimentID string) error {
	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	variant := a.experiments.GetVariant(ctx, userID, experimentID)
	return printJSON(map[string]string{
		"userId":       userID,
		"experimentId": experimentID,
		"variant":      variant,
	})
}

func runProfile(ctx context.Context, configPath, userID string) error {
	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	profile, err := a.fetcher.FetchAIProfile(ctx, userID)
	if err != nil {
		return err
	}
	if profile == nil {
		return fmt.Errorf("no profile available for %s", userID)
	}
	return printJSON(profile)
}

func runCalibration(ctx context.Context, configPath, metric string) error {
	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	metrics := a.fetcher.FetchCalibration(ctx, metric)
	return printJSON(metrics)
}

func runQueueStatus(ctx context.Context, configPath string) error {
	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	queue := a.client.Queue()
	length, err := queue.Len(ctx)
	if err != nil {
		return err
	}
	status := map[string]any{"pending": length}
	if head, err := queue.Peek(ctx); err == nil && head != nil {
		status["head"] = map[string]any{
			"id":         head.ID,
			"kind":       head.Kind,
			"attempts":   head.Attempts,
			"enqueuedAt": head.EnqueuedAt,
		}
	}
	return printJSON(status)
}

func runQueueFlush(ctx context.Context, configPath string) error {
	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	delivered, err := a.client.Queue().Flush(ctx)
	if err != nil {
		return err
	}
	remaining, err := a.client.Queue().Len(ctx)
	if err != nil {
		return err
	}
	return printJSON(map[string]int{"delivered": delivered, "remaining": remaining})
}

func runDaemon(ctx context.Context, configPath, calibrationSchedule string) error {
	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue := a.client.Queue()
	queue.Start(ctx)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(calibrationSchedule, func() {
		metrics := a.fetcher.FetchCalibration(context.Background(), "")
		a.logger.Info("calibration pull complete", "metrics", len(metrics))
	}); err != nil {
		return fmt.Errorf("invalid calibration schedule %q: %w", calibrationSchedule, err)
	}
	scheduler.Start()

	a.logger.Info("daemon started",
		"flushInterval", a.cfg.Queue.FlushInterval,
		"calibrationSchedule", calibrationSchedule,
	)

	<-ctx.Done()
	a.logger.Info("shutting down")

	cronCtx := scheduler.Stop()
	<-cronCtx.Done()
	return queue.Stop(context.Background())
}
