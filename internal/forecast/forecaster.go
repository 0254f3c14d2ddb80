// Package forecast projects the outcome of a poultry lot from its history.
//
// Four small estimators are fitted from scratch on every call:
//
//	WeightTrend     OLS of average weight on age; slope is the growth rate
//	MortalityTrend  deaths per day of age plus categorical risk factors
//	ProfitModel     revenue from a category price table against projected expense
//	Forecaster      runs the three for the category target age and derives
//	                recommendations, an optimal harvest date and an efficiency score
//
// Arithmetic degeneracies (no samples, zero denominators) never fail: they
// produce zero values with zero or low confidence. Only malformed input at
// the Forecast entry point returns an error, wrapping ErrInvalidInput.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rewired-gh/flockcast/internal/logger"
	"github.com/rewired-gh/flockcast/internal/models"
)

// ErrInvalidInput is wrapped by every precondition failure of Forecast.
var ErrInvalidInput = errors.New("invalid forecast input")

// PeerAverageProvider supplies comparative metrics for lots of a category.
// Implementations may be slow or fail; the forecaster treats any error as
// "no comparison available".
type PeerAverageProvider interface {
	PeerAverages(ctx context.Context, category models.Category) (*models.PeerAverages, error)
}

// Forecaster assembles a complete forecast for one lot.
// It holds no mutable state and is safe for concurrent use.
type Forecaster struct {
	tables Tables
	peers  PeerAverageProvider
	now    func() time.Time
}

// Option configures a Forecaster.
type Option func(*Forecaster)

// WithClock overrides the time source used to compute the current age.
func WithClock(now func() time.Time) Option {
	return func(f *Forecaster) {
		f.now = now
	}
}

// New creates a Forecaster. peers may be nil.
func New(tables Tables, peers PeerAverageProvider, opts ...Option) (*Forecaster, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("invalid forecast tables: %w", err)
	}
	f := &Forecaster{
		tables: tables,
		peers:  peers,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Forecast projects final weight, mortality, profitability, recommendations,
// harvest date and efficiency for lot. cumulativeExpense is the total cost
// booked so far.
func (f *Forecaster) Forecast(
	ctx context.Context,
	lot models.Lot,
	samples []models.WeightSample,
	events []models.MortalityEvent,
	cumulativeExpense float64,
) (*models.Forecast, error) {
	now := f.now()
	if err := f.validate(lot, samples, events, cumulativeExpense, now); err != nil {
		return nil, err
	}
	table, err := f.tables.Category(lot.Category)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	currentAge := DaysBetween(lot.BirthDate, now)
	targetAge := table.TargetAge
	daysRemaining := max(0, targetAge-currentAge)

	weight := FitWeightTrend(samples)
	finalWeight, weightConf := weight.Predict(targetAge)

	mortality := FitMortalityTrend(lot.InitialCount, lot.CurrentCount, currentAge, events, lot.Category, f.tables.Thresholds)
	expected, mortalityConf := mortality.Predict(daysRemaining)
	expected = math.Min(expected, float64(lot.CurrentCount))
	finalCount := float64(lot.CurrentCount) - expected

	projectedExpense := cumulativeExpense * f.tables.ExpenseGrowth
	profitModel := FitProfitability(lot.Category, cumulativeExpense, weight.LastWeight*float64(lot.CurrentCount), table)
	profit := profitModel.Predict(finalWeight, finalCount, projectedExpense)

	logger.Debug("forecast lot=%s age=%d target=%d slope=%.4f r2=%.3f daily_mortality=%.3f roi=%.1f",
		lot.ID, currentAge, targetAge, weight.Slope, weight.RSquared, mortality.DailyRate, profit.ROIPercent)

	peers := f.peerAverages(ctx, lot.Category)

	projectedMortalityPct := SafeDivide(float64(lot.InitialCount)-finalCount, float64(lot.InitialCount), 0) * 100

	recs := recommend(ruleInput{
		weightTrained:    weight.Trained,
		growthRate:       weight.GrowthRate(),
		riskFactors:      mortality.RiskFactors,
		roiPercent:       profit.ROIPercent,
		marginPercent:    SafeDivide(profit.NetProfit, profit.EstimatedRevenue, 0) * 100,
		daysRemaining:    daysRemaining,
		currentWeight:    weight.LastWeight,
		targetWeight:     finalWeight,
		mortalityPercent: mortality.CumulativeRate * 100,
		peers:            peers,
	}, f.tables.Thresholds)

	return &models.Forecast{
		LotID:       lot.ID,
		Category:    lot.Category,
		GeneratedAt: now,
		CurrentAge:  currentAge,
		TargetAge:   targetAge,
		GrowthRate:  weight.GrowthRate(),
		FinalWeight: models.WeightPrediction{
			Value:       finalWeight,
			Confidence:  Clamp(weightConf, 0, 1),
			DaysToReach: daysRemaining,
		},
		ExpectedMortality: models.MortalityPrediction{
			Value:       expected,
			Confidence:  Clamp(mortalityConf, 0, 1),
			RiskFactors: mortality.RiskFactors,
		},
		ProjectedFinalCount: finalCount,
		Profitability:       profit,
		CostPerKgObserved:   profitModel.CostPerKgObserved,
		Recommendations:     recs,
		OptimalHarvestDate:  lot.BirthDate.AddDate(0, 0, targetAge),
		ProjectedEfficiency: Efficiency(f.tables.Efficiency, finalWeight, targetAge, projectedMortalityPct, profit.ROIPercent),
		PeerComparison:      peers,
	}, nil
}

// Efficiency blends weight attainment, cycle time, survival and ROI into a
// score within [0,100]. mortalityPercent and roiPercent are percentages.
func Efficiency(w EfficiencyWeights, finalWeight float64, targetAge int, mortalityPercent, roiPercent float64) float64 {
	weightScore := math.Min(1, SafeDivide(finalWeight, w.WeightCap, 0))
	cycleScore := math.Min(1, SafeDivide(w.CycleReference, float64(targetAge), 0))
	survivalScore := math.Max(0, 1-mortalityPercent/100)
	roiScore := math.Min(1, math.Max(0, roiPercent/100))

	score := 100 * (w.Weight*weightScore + w.CycleTime*cycleScore + w.Survival*survivalScore + w.ROI*roiScore)
	return Clamp(score, 0, 100)
}

func (f *Forecaster) peerAverages(ctx context.Context, category models.Category) *models.PeerAverages {
	if f.peers == nil {
		return nil
	}
	avg, err := f.peers.PeerAverages(ctx, category)
	if err != nil {
		logger.Warn("peer averages unavailable for %s: %v", category, err)
		return nil
	}
	if avg == nil || avg.SampleSize == 0 {
		return nil
	}
	return avg
}

func (f *Forecaster) validate(lot models.Lot, samples []models.WeightSample, events []models.MortalityEvent, expense float64, now time.Time) error {
	if err := lot.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if DaysBetween(lot.BirthDate, now) < 0 {
		return fmt.Errorf("%w: lot %s birth date is in the future", ErrInvalidInput, lot.ID)
	}
	if expense < 0 || math.IsNaN(expense) || math.IsInf(expense, 0) {
		return fmt.Errorf("%w: cumulative expense must be a non-negative number", ErrInvalidInput)
	}
	for i := range samples {
		if err := samples[i].Validate(); err != nil {
			return fmt.Errorf("%w: weight sample %d: %v", ErrInvalidInput, i, err)
		}
	}
	for i := range events {
		if err := events[i].Validate(); err != nil {
			return fmt.Errorf("%w: mortality event %d: %v", ErrInvalidInput, i, err)
		}
	}
	return nil
}
