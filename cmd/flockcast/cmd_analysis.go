package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/flockcast/internal/models"
	"github.com/rewired-gh/flockcast/internal/report"
)

var (
	asJSON  bool
	outPath string
)

// forecastCmd projects a lot to its target age
var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Forecast a lot's final weight, mortality and profitability",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore(store)

		f, cleanup, err := newForecaster(ctx, store)
		if err != nil {
			return err
		}
		defer cleanup()

		in, err := store.LoadForecastInput(ctx, lotID)
		if err != nil {
			return err
		}
		fc, err := f.Forecast(ctx, in.Lot, in.Samples, in.Events, in.CumulativeExpense)
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(fc)
		}
		fmt.Fprint(cmd.OutOrStdout(), report.Summary(in.Lot, fc))
		return nil
	},
}

// chartCmd renders the growth chart of a lot to HTML
var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Render a lot's growth chart as HTML",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore(store)

		f, cleanup, err := newForecaster(ctx, store)
		if err != nil {
			return err
		}
		defer cleanup()

		in, err := store.LoadForecastInput(ctx, lotID)
		if err != nil {
			return err
		}
		fc, err := f.Forecast(ctx, in.Lot, in.Samples, in.Events, in.CumulativeExpense)
		if err != nil {
			return err
		}

		path := outPath
		if path == "" {
			path = filepath.Join(cfg.Storage.ExportDir, in.Lot.ID+".html")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		out, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create chart file: %w", err)
		}
		defer out.Close()

		if err := report.RenderChart(out, in.Lot, in.Samples, fc); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

// peersCmd prints the peer averages of a category
var peersCmd = &cobra.Command{
	Use:   "peers",
	Short: "Show peer averages for a category",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		category, err := models.ParseCategory(lotCategory)
		if err != nil {
			return err
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore(store)

		provider, cleanup := buildPeerProvider(ctx, store)
		defer cleanup()
		if provider == nil {
			return fmt.Errorf("peer comparison is disabled (peers.source=%s)", cfg.Peers.Source)
		}

		avg, err := provider.PeerAverages(ctx, category)
		if err != nil {
			return err
		}
		if avg == nil || avg.SampleSize == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No peer data for %s\n", category)
			return nil
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(avg)
	},
}

// exportCmd dumps a lot and all of its records to JSON
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a lot and its records as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore(store)

		path := outPath
		if path == "" {
			path = filepath.Join(cfg.Storage.ExportDir, lotID+".json")
		}
		if err := store.ExportLot(cmd.Context(), lotID, path); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	forecastCmd.Flags().StringVar(&lotID, "lot", "", "Lot ID")
	forecastCmd.Flags().BoolVar(&asJSON, "json", false, "Print the forecast as JSON")
	mustMark(forecastCmd, "lot")

	chartCmd.Flags().StringVar(&lotID, "lot", "", "Lot ID")
	chartCmd.Flags().StringVarP(&outPath, "out", "o", "", "Output HTML file (default <export_dir>/<lot>.html)")
	mustMark(chartCmd, "lot")

	peersCmd.Flags().StringVar(&lotCategory, "category", "", "GROWER, BROILER or LAYER")
	mustMark(peersCmd, "category")

	exportCmd.Flags().StringVar(&lotID, "lot", "", "Lot ID")
	exportCmd.Flags().StringVarP(&outPath, "out", "o", "", "Output JSON file (default <export_dir>/<lot>.json)")
	mustMark(exportCmd, "lot")
}
