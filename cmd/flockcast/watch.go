package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/flockcast/internal/logger"
	"github.com/rewired-gh/flockcast/internal/models"
	"github.com/rewired-gh/flockcast/internal/monitor"
	"github.com/rewired-gh/flockcast/internal/storage"
	"github.com/rewired-gh/flockcast/internal/telegram"
)

// watchCmd periodically forecasts every active lot and alerts on the worst
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Periodically forecast active lots and send alerts",
	Long: `Run as a service: every watch.interval forecast every active lot, rank the
lots with CRITICAL or IMPORTANT recommendations by projected efficiency and
send the top watch.top_k to Telegram. A lot is not re-sent within
watch.cooldown unless its CRITICAL findings change.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch()
	},
}

func runWatch() error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(store)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			logger.Info("Shutdown signal received, cleaning up...")
			cancel()
		case <-ctx.Done():
		}
	}()

	f, cleanup, err := newForecaster(ctx, store)
	if err != nil {
		return err
	}
	defer cleanup()

	mon := monitor.New(store, f)

	var telegramClient *telegram.Client
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			return fmt.Errorf("failed to initialize Telegram client: %w", err)
		}
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	logger.Info("Starting watch service (interval: %v, cooldown: %v, top_k: %d, peers: %s)",
		cfg.Watch.Interval, cfg.Watch.Cooldown, cfg.Watch.TopK, cfg.Peers.Source)

	ticker := time.NewTicker(cfg.Watch.Interval)
	defer ticker.Stop()

	consecutiveFailures := 0

	handleCycleResult := func(err error) {
		if err != nil {
			consecutiveFailures++
			logger.Error("Watch cycle failed: %v", err)
			if consecutiveFailures == 1 && telegramClient != nil {
				if sendErr := telegramClient.SendError(err); sendErr != nil {
					logger.Warn("Failed to send error notification to Telegram: %v", sendErr)
				}
			}
			return
		}
		if consecutiveFailures > 0 && telegramClient != nil {
			if sendErr := telegramClient.SendRecovery(consecutiveFailures); sendErr != nil {
				logger.Warn("Failed to send recovery notification to Telegram: %v", sendErr)
			}
		}
		consecutiveFailures = 0
	}

	// Run initial cycle immediately
	logger.Debug("Running initial watch cycle")
	handleCycleResult(runWatchCycle(ctx, store, mon, telegramClient))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Service stopped")
			return nil

		case <-ticker.C:
			logger.Debug("Starting scheduled watch cycle")
			handleCycleResult(runWatchCycle(ctx, store, mon, telegramClient))
		}
	}
}

func runWatchCycle(
	ctx context.Context,
	store *storage.Storage,
	mon *monitor.Monitor,
	telegramClient *telegram.Client,
) error {
	startTime := time.Now()

	lots, err := store.ListLots(ctx, "", true)
	if err != nil {
		return fmt.Errorf("failed to list lots: %w", err)
	}

	alerts, forecastErrors, err := mon.Run(ctx, lots)
	if err != nil {
		return fmt.Errorf("failed to forecast lots: %w", err)
	}
	for _, fErr := range forecastErrors {
		logger.Warn("Failed to forecast lot %s: %v", fErr.LotID, fErr.Err)
	}
	logger.Info("Forecast %d of %d active lots", len(alerts), len(lots))

	if len(lots) > 0 && len(alerts) == 0 && len(forecastErrors) > 0 {
		return fmt.Errorf("every lot failed to forecast, first error: %w", forecastErrors[0])
	}

	ranked := monitor.RankAlerts(alerts, cfg.Watch.TopK)
	ranked = mon.FilterRecentlySent(ranked, cfg.Watch.Cooldown)

	if len(ranked) == 0 {
		logger.Info("No lots need attention this cycle")
	} else {
		for _, a := range ranked {
			logger.Info("Lot %s needs attention: efficiency %.1f, critical=%t",
				a.Lot.ID, a.Forecast.ProjectedEfficiency, a.Forecast.HasSeverity(models.SeverityCritical))
		}

		if telegramClient != nil {
			if err := telegramClient.Send(ranked); err != nil {
				logger.Error("Failed to send Telegram notification: %v", err)
			} else {
				logger.Info("Sent Telegram notification with %d lots", len(ranked))
				mon.RecordNotified(ranked)
			}
		} else {
			logger.Debug("Alerts found but Telegram notifications disabled")
		}
	}

	logger.Info("Watch cycle completed in %v", time.Since(startTime))
	return nil
}
