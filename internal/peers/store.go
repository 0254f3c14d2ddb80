package peers

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/rewired-gh/flockcast/internal/forecast"
	"github.com/rewired-gh/flockcast/internal/models"
)

// LotSource is the slice of storage the StoreProvider reads.
type LotSource interface {
	ListLots(ctx context.Context, category models.Category, activeOnly bool) ([]models.Lot, error)
	GetWeightSamples(ctx context.Context, lotID string) ([]models.WeightSample, error)
	TotalExpense(ctx context.Context, lotID string) (float64, error)
	TotalSales(ctx context.Context, lotID string) (float64, error)
}

// StoreProvider computes peer averages from the local lot store. Lots with
// neither a weighing nor a sale are skipped.
//
//	AvgAge, AvgWeight   age and weight of each lot's latest weighing
//	AvgMortalityRate    deaths as a percentage of the initial count
//	AvgGrowthRate       fitted weight-trend slope, lots with a trained fit only
//	AvgMarginPercent    (sales − expenses) / sales × 100, lots with sales only
type StoreProvider struct {
	src LotSource
}

// NewStoreProvider creates a provider over src.
func NewStoreProvider(src LotSource) *StoreProvider {
	return &StoreProvider{src: src}
}

// PeerAverages implements Provider. SampleSize is 0 when no lot of the
// category has data.
func (p *StoreProvider) PeerAverages(ctx context.Context, category models.Category) (*models.PeerAverages, error) {
	lots, err := p.src.ListLots(ctx, category, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s lots: %w", category, err)
	}

	var ages, weights, mortality, growth, margins []float64
	for _, lot := range lots {
		samples, err := p.src.GetWeightSamples(ctx, lot.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to read weighings of lot %s: %w", lot.ID, err)
		}
		sales, err := p.src.TotalSales(ctx, lot.ID)
		if err != nil {
			return nil, err
		}
		if len(samples) == 0 && sales <= 0 {
			continue
		}

		mortality = append(mortality, forecast.SafeDivide(float64(lot.Deaths()), float64(lot.InitialCount), 0)*100)

		trend := forecast.FitWeightTrend(samples)
		if trend.Samples > 0 {
			ages = append(ages, float64(trend.LastAge))
			weights = append(weights, trend.LastWeight)
		}
		if trend.Trained {
			growth = append(growth, trend.GrowthRate())
		}

		if sales > 0 {
			expense, err := p.src.TotalExpense(ctx, lot.ID)
			if err != nil {
				return nil, err
			}
			margins = append(margins, (sales-expense)/sales*100)
		}
	}

	return &models.PeerAverages{
		Category:         category,
		SampleSize:       len(mortality),
		AvgAge:           mean(ages),
		AvgWeight:        mean(weights),
		AvgMortalityRate: mean(mortality),
		AvgGrowthRate:    mean(growth),
		AvgMarginPercent: mean(margins),
	}, nil
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}
