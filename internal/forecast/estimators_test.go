package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/flockcast/internal/models"
)

func samples(pairs ...float64) []models.WeightSample {
	out := make([]models.WeightSample, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, models.WeightSample{AgeInDays: int(pairs[i]), AverageWeight: pairs[i+1]})
	}
	return out
}

func TestWeightTrend_TwoPointExtrapolation(t *testing.T) {
	m := FitWeightTrend(samples(10, 0.5, 20, 1.0))
	require.True(t, m.Trained)

	w, conf := m.Predict(30)
	assert.InDelta(t, 1.5, w, 1e-9)
	assert.InDelta(t, 1.0, conf, 1e-9)
	assert.InDelta(t, 0.05, m.GrowthRate(), 1e-12)
}

func TestWeightTrend_Deterministic(t *testing.T) {
	in := samples(7, 0.21, 14, 0.48, 21, 0.83, 28, 1.32, 35, 1.79)
	a := FitWeightTrend(in)
	b := FitWeightTrend(in)
	assert.Equal(t, a, b)
}

func TestWeightTrend_OrderIndependent(t *testing.T) {
	base := samples(7, 0.21, 14, 0.48, 21, 0.83, 21, 0.80, 28, 1.32, 35, 1.79)
	want := FitWeightTrend(base)

	perms := [][]int{
		{5, 4, 3, 2, 1, 0},
		{2, 0, 5, 3, 1, 4},
		{3, 2, 1, 0, 5, 4},
	}
	for _, p := range perms {
		shuffled := make([]models.WeightSample, len(base))
		for i, j := range p {
			shuffled[i] = base[j]
		}
		got := FitWeightTrend(shuffled)
		assert.Equal(t, want, got, "permutation %v", p)
	}
}

func TestWeightTrend_NonNegativePrediction(t *testing.T) {
	// Declining weights extrapolate below zero.
	m := FitWeightTrend(samples(10, 2.0, 20, 1.0))
	for _, age := range []int{0, 30, 40, 100, 1000} {
		w, _ := m.Predict(age)
		assert.GreaterOrEqual(t, w, 0.0, "age %d", age)
	}
	w, _ := m.Predict(1000)
	assert.Equal(t, 0.0, w)
}

func TestWeightTrend_Degenerate(t *testing.T) {
	tests := []struct {
		name string
		in   []models.WeightSample
	}{
		{"no samples", nil},
		{"one sample", samples(12, 0.6)},
		{"same age repeated", samples(12, 0.6, 12, 0.7)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := FitWeightTrend(tt.in)
			assert.False(t, m.Trained)
			for _, age := range []int{0, 12, 42} {
				w, conf := m.Predict(age)
				assert.Equal(t, 0.0, w)
				assert.Equal(t, 0.0, conf)
			}
			assert.Equal(t, 0.0, m.GrowthRate())
		})
	}
}

func TestWeightTrend_ConfidenceClamped(t *testing.T) {
	tests := []struct {
		name string
		in   []models.WeightSample
	}{
		{"noisy", samples(1, 1.0, 2, 0.2, 3, 1.4, 4, 0.1, 5, 1.2)},
		{"flat weights", samples(5, 1.0, 10, 1.0, 15, 1.0)},
		{"perfect line", samples(5, 0.25, 10, 0.5, 15, 0.75)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := FitWeightTrend(tt.in)
			_, conf := m.Predict(20)
			assert.GreaterOrEqual(t, conf, 0.0)
			assert.LessOrEqual(t, conf, 1.0)
		})
	}
}

func TestWeightTrend_LastSample(t *testing.T) {
	m := FitWeightTrend(samples(20, 1.0, 5, 0.2, 12, 0.6))
	assert.Equal(t, 20, m.LastAge)
	assert.Equal(t, 1.0, m.LastWeight)
}

func TestMortalityTrend_ScenarioB(t *testing.T) {
	th := DefaultTables().Thresholds
	m := FitMortalityTrend(100, 90, 30, nil, models.CategoryGrower, th)

	assert.InDelta(t, 10.0/30.0, m.DailyRate, 1e-12)
	assert.NotContains(t, m.RiskFactors, RiskHighHistoricalMortality, "10% is not strictly above the 10% threshold")
	assert.Empty(t, m.RiskFactors)

	mortality, conf := m.Predict(12)
	assert.InDelta(t, 4.0, mortality, 1e-9)
	assert.Equal(t, 0.8, conf)
}

func TestMortalityTrend_RiskFactors(t *testing.T) {
	th := DefaultTables().Thresholds
	tests := []struct {
		name     string
		initial  int
		current  int
		age      int
		category models.Category
		want     []string
		wantConf float64
	}{
		{
			name: "healthy broiler", initial: 1000, current: 990, age: 30, category: models.CategoryBroiler,
			want: []string{}, wantConf: 0.8,
		},
		{
			name: "high historical mortality", initial: 100, current: 89, age: 30, category: models.CategoryLayer,
			want: []string{RiskHighHistoricalMortality}, wantConf: 0.6,
		},
		{
			name: "rising trend and high historical", initial: 100, current: 70, age: 20, category: models.CategoryLayer,
			want: []string{RiskHighHistoricalMortality, RiskRisingMortalityTrend}, wantConf: 0.6,
		},
		{
			name: "grower past critical age", initial: 100, current: 99, age: 36, category: models.CategoryGrower,
			want: []string{RiskCriticalGrowerAge}, wantConf: 0.6,
		},
		{
			name: "grower at 35 days is fine", initial: 100, current: 99, age: 35, category: models.CategoryGrower,
			want: []string{}, wantConf: 0.8,
		},
		{
			name: "broiler past advanced age", initial: 1000, current: 999, age: 43, category: models.CategoryBroiler,
			want: []string{RiskAdvancedBroilerAge}, wantConf: 0.6,
		},
		{
			name: "three factors", initial: 100, current: 40, age: 50, category: models.CategoryBroiler,
			want:     []string{RiskHighHistoricalMortality, RiskRisingMortalityTrend, RiskAdvancedBroilerAge},
			wantConf: 0.4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := FitMortalityTrend(tt.initial, tt.current, tt.age, nil, tt.category, th)
			assert.Equal(t, tt.want, m.RiskFactors)
			_, conf := m.Predict(10)
			assert.Equal(t, tt.wantConf, conf)
		})
	}
}

func TestMortalityTrend_ZeroAge(t *testing.T) {
	m := FitMortalityTrend(100, 95, 0, nil, models.CategoryBroiler, DefaultTables().Thresholds)
	assert.Equal(t, 0.0, m.DailyRate)
	mortality, _ := m.Predict(45)
	assert.Equal(t, 0.0, mortality)
}

func TestMortalityTrend_RecordedDeaths(t *testing.T) {
	events := []models.MortalityEvent{{Count: 3}, {Count: 4}}
	m := FitMortalityTrend(100, 93, 10, events, models.CategoryBroiler, DefaultTables().Thresholds)
	assert.Equal(t, 7, m.Deaths)
	assert.Equal(t, 7, m.RecordedDeaths)
}

func TestProfitability(t *testing.T) {
	table := CategoryTable{TargetAge: 45, PricePerKg: 2.0}

	m := FitProfitability(models.CategoryBroiler, 500, 250, table)
	assert.Equal(t, 2.0, m.CostPerKgObserved)

	p := m.Predict(2.5, 100, 400)
	assert.InDelta(t, 500.0, p.EstimatedRevenue, 1e-9)
	assert.InDelta(t, 100.0, p.NetProfit, 1e-9)
	assert.InDelta(t, 25.0, p.ROIPercent, 1e-9)
	assert.Equal(t, MarketPriceConfidence, p.Confidence)
}

func TestProfitability_ZeroDenominators(t *testing.T) {
	m := FitProfitability(models.CategoryGrower, 300, 0, CategoryTable{PricePerKg: 1.8})
	assert.Equal(t, 0.0, m.CostPerKgObserved)

	p := m.Predict(2.0, 10, 0)
	assert.Equal(t, 0.0, p.ROIPercent)
	assert.InDelta(t, 36.0, p.NetProfit, 1e-9)
}

func TestProfitability_ObservedCostDoesNotChangeProjection(t *testing.T) {
	table := CategoryTable{PricePerKg: 2.2}
	cheap := FitProfitability(models.CategoryBroiler, 100, 1000, table).Predict(2.4, 500, 900)
	costly := FitProfitability(models.CategoryBroiler, 5000, 1000, table).Predict(2.4, 500, 900)
	assert.Equal(t, cheap, costly)
}
