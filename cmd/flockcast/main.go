// Command flockcast records poultry lot data and forecasts each lot's final
// weight, mortality, profitability and efficiency.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/flockcast/internal/config"
	"github.com/rewired-gh/flockcast/internal/forecast"
	"github.com/rewired-gh/flockcast/internal/logger"
	"github.com/rewired-gh/flockcast/internal/peers"
	"github.com/rewired-gh/flockcast/internal/storage"
)

var (
	configPath string
	cfg        *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "flockcast",
	Short: "Forecast performance of poultry lots",
	Long: `flockcast keeps weighings, mortality, expenses and sales of poultry lots
in a local database and projects each lot to its target sale age.

Data entry:  lot, weigh, mortality, expense, sale
Analysis:    forecast, chart, peers, export
Service:     watch`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		logger.Init(cfg.Logging.Level, cfg.Logging.Format)
		if configPath != "" {
			logger.Debug("Configuration loaded from %s", configPath)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (defaults and FLOCKCAST_* env when empty)")

	rootCmd.AddCommand(lotCmd)
	rootCmd.AddCommand(weighCmd)
	rootCmd.AddCommand(mortalityCmd)
	rootCmd.AddCommand(expenseCmd)
	rootCmd.AddCommand(saleCmd)
	rootCmd.AddCommand(forecastCmd)
	rootCmd.AddCommand(chartCmd)
	rootCmd.AddCommand(peersCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openStore opens the configured sqlite database. The caller closes it.
func openStore() (*storage.Storage, error) {
	store, err := storage.New(cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return store, nil
}

func closeStore(store *storage.Storage) {
	if err := store.Close(); err != nil {
		logger.Error("Failed to close storage: %v", err)
	}
}

// buildPeerProvider assembles the configured peer source, optionally behind a
// redis cache, always behind the timeout guard. Returns nil when peers are
// disabled. The returned cleanup func must be called.
func buildPeerProvider(ctx context.Context, store *storage.Storage) (forecast.PeerAverageProvider, func()) {
	noop := func() {}

	var p peers.Provider
	switch cfg.Peers.Source {
	case config.PeerSourceStore:
		p = peers.NewStoreProvider(store)
	case config.PeerSourceHTTP:
		p = peers.NewHTTPProvider(cfg.Peers.BaseURL, cfg.Peers.Timeout, peers.ClientConfig{})
	default:
		logger.Debug("Peer comparison disabled")
		return nil, noop
	}

	cleanup := noop
	if cfg.Peers.RedisAddr != "" {
		kv, err := peers.NewRedisKV(ctx, cfg.Peers.RedisAddr, cfg.Peers.RedisPassword, cfg.Peers.RedisDB)
		if err != nil {
			logger.Warn("Peer cache unavailable, continuing without it: %v", err)
		} else {
			p = peers.NewRedisCache(p, kv, cfg.Peers.CacheTTL)
			cleanup = func() {
				if err := kv.Close(); err != nil {
					logger.Warn("Failed to close redis: %v", err)
				}
			}
		}
	}

	return peers.NewGuarded(p, cfg.Peers.Timeout, cfg.Peers.Retries), cleanup
}

// newForecaster builds a forecaster from the configured business tables.
func newForecaster(ctx context.Context, store *storage.Storage) (*forecast.Forecaster, func(), error) {
	provider, cleanup := buildPeerProvider(ctx, store)
	f, err := forecast.New(cfg.Forecast.Tables(), provider)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return f, cleanup, nil
}
