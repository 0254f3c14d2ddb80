package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rewired-gh/flockcast/internal/models"
)

// ExportFile is the JSON document written by ExportLot.
type ExportFile struct {
	Version      string                  `json:"version"`
	ExportedAt   time.Time               `json:"exported_at"`
	Lot          models.Lot              `json:"lot"`
	Weighings    []models.WeightSample   `json:"weighings"`
	Mortality    []models.MortalityEvent `json:"mortality"`
	TotalExpense float64                 `json:"total_expense"`
	TotalSales   float64                 `json:"total_sales"`
}

// ExportLot writes a lot and all of its records to path as JSON.
// The file is written to a temp file first and renamed into place.
func (s *Storage) ExportLot(ctx context.Context, lotID, path string) error {
	in, err := s.LoadForecastInput(ctx, lotID)
	if err != nil {
		return err
	}
	sales, err := s.TotalSales(ctx, lotID)
	if err != nil {
		return err
	}

	data := ExportFile{
		Version:      "1.0",
		ExportedAt:   time.Now(),
		Lot:          in.Lot,
		Weighings:    in.Samples,
		Mortality:    in.Events,
		TotalExpense: in.CumulativeExpense,
		TotalSales:   sales,
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal export: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, jsonData, 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath) // Clean up temp file on rename failure
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}
