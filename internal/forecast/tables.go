package forecast

import (
	"fmt"

	"github.com/rewired-gh/flockcast/internal/models"
)

// CategoryTable holds the per-category business rules.
type CategoryTable struct {
	// TargetAge is the age in days at which the lot is expected to be sold.
	TargetAge int
	// PricePerKg is the assumed sale price per kg of live weight.
	PricePerKg float64
}

// EfficiencyWeights parameterise the blended 0-100 efficiency score:
//
//	100 × (Weight·min(1, finalWeight/WeightCap)
//	     + CycleTime·min(1, CycleReference/targetAge)
//	     + Survival·max(0, 1 − mortalityRate/100)
//	     + ROI·min(1, max(0, roi/100)))
type EfficiencyWeights struct {
	Weight         float64
	CycleTime      float64
	Survival       float64
	ROI            float64
	WeightCap      float64
	CycleReference float64
}

// Thresholds drive risk detection and recommendation rules.
type Thresholds struct {
	MinGrowthRate      float64 // kg/day
	TargetROIPercent   float64
	NearTargetDays     int
	NearTargetRatio    float64
	HighMortalityRate  float64 // fraction of initial count
	RisingDailyRate    float64 // birds/day
	GrowerCriticalAge  int
	BroilerAdvancedAge int
	PeerGrowthRatio    float64
	PeerMortalityRatio float64
	PeerMarginGap      float64 // percentage points
}

// Tables is the injectable business configuration of the forecaster.
type Tables struct {
	Categories    map[models.Category]CategoryTable
	ExpenseGrowth float64
	Efficiency    EfficiencyWeights
	Thresholds    Thresholds
}

// Default efficiency weights and caps.
const (
	DefaultWeightShare    = 0.3
	DefaultCycleShare     = 0.2
	DefaultSurvivalShare  = 0.3
	DefaultROIShare       = 0.2
	DefaultWeightCapKg    = 2.5
	DefaultCycleReference = 50.0
)

// DefaultTables returns the rules the forecaster ships with.
func DefaultTables() Tables {
	return Tables{
		Categories: map[models.Category]CategoryTable{
			models.CategoryGrower:  {TargetAge: 42, PricePerKg: 1.80},
			models.CategoryBroiler: {TargetAge: 45, PricePerKg: 2.20},
			models.CategoryLayer:   {TargetAge: 140, PricePerKg: 1.50},
		},
		ExpenseGrowth: 1.5,
		Efficiency: EfficiencyWeights{
			Weight:         DefaultWeightShare,
			CycleTime:      DefaultCycleShare,
			Survival:       DefaultSurvivalShare,
			ROI:            DefaultROIShare,
			WeightCap:      DefaultWeightCapKg,
			CycleReference: DefaultCycleReference,
		},
		Thresholds: Thresholds{
			MinGrowthRate:      0.04,
			TargetROIPercent:   15,
			NearTargetDays:     7,
			NearTargetRatio:    0.9,
			HighMortalityRate:  0.10,
			RisingDailyRate:    0.5,
			GrowerCriticalAge:  35,
			BroilerAdvancedAge: 42,
			PeerGrowthRatio:    0.9,
			PeerMortalityRatio: 1.2,
			PeerMarginGap:      5,
		},
	}
}

// Category returns the table entry for c.
func (t Tables) Category(c models.Category) (CategoryTable, error) {
	ct, ok := t.Categories[c]
	if !ok {
		return CategoryTable{}, fmt.Errorf("no business table for category %q", c)
	}
	return ct, nil
}

// Validate checks the tables are usable.
func (t Tables) Validate() error {
	for _, c := range models.Categories {
		ct, ok := t.Categories[c]
		if !ok {
			return fmt.Errorf("missing table for category %s", c)
		}
		if ct.TargetAge <= 0 {
			return fmt.Errorf("target age for %s must be positive", c)
		}
		if ct.PricePerKg < 0 {
			return fmt.Errorf("price per kg for %s must not be negative", c)
		}
	}
	if t.ExpenseGrowth < 1 {
		return fmt.Errorf("expense growth multiplier must be >= 1")
	}
	e := t.Efficiency
	if e.Weight < 0 || e.CycleTime < 0 || e.Survival < 0 || e.ROI < 0 {
		return fmt.Errorf("efficiency weights must not be negative")
	}
	if sum := e.Weight + e.CycleTime + e.Survival + e.ROI; sum > 1.0000001 {
		return fmt.Errorf("efficiency weights must sum to at most 1, got %.3f", sum)
	}
	if e.WeightCap <= 0 || e.CycleReference <= 0 {
		return fmt.Errorf("efficiency caps must be positive")
	}
	return t.Thresholds.Validate()
}

// Validate checks the thresholds are within their meaningful ranges.
func (th Thresholds) Validate() error {
	if th.NearTargetRatio <= 0 || th.NearTargetRatio > 1 {
		return fmt.Errorf("near target ratio must be in (0, 1]")
	}
	if th.HighMortalityRate < 0 || th.HighMortalityRate > 1 {
		return fmt.Errorf("high mortality rate must be between 0.0 and 1.0")
	}
	if th.NearTargetDays < 0 {
		return fmt.Errorf("near target days must not be negative")
	}
	if th.MinGrowthRate < 0 || th.RisingDailyRate < 0 {
		return fmt.Errorf("growth and daily mortality thresholds must not be negative")
	}
	if th.PeerGrowthRatio < 0 || th.PeerMortalityRatio < 0 || th.PeerMarginGap < 0 {
		return fmt.Errorf("peer comparison thresholds must not be negative")
	}
	return nil
}
