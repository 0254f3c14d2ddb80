package forecast

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/rewired-gh/flockcast/internal/models"
)

// WeightTrend is an ordinary least-squares fit of average weight against age.
// The zero value is the untrained model: it predicts 0 kg with 0 confidence.
type WeightTrend struct {
	Slope      float64 // kg gained per day
	Intercept  float64
	RSquared   float64 // clamped to [0,1]
	Samples    int
	Trained    bool
	LastAge    int     // age of the oldest-aged sample
	LastWeight float64 // weight at LastAge; 0 without samples
}

// FitWeightTrend sorts the samples by age and regresses weight on age.
// At least two distinct ages are required to train; fewer leave the model
// untrained without error.
func FitWeightTrend(samples []models.WeightSample) WeightTrend {
	sorted := make([]models.WeightSample, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].AgeInDays != sorted[j].AgeInDays {
			return sorted[i].AgeInDays < sorted[j].AgeInDays
		}
		return sorted[i].AverageWeight < sorted[j].AverageWeight
	})

	m := WeightTrend{Samples: len(sorted)}
	if len(sorted) == 0 {
		return m
	}
	last := sorted[len(sorted)-1]
	m.LastAge = last.AgeInDays
	m.LastWeight = last.AverageWeight

	if sorted[0].AgeInDays == last.AgeInDays {
		return m
	}

	xs := make([]float64, len(sorted))
	ys := make([]float64, len(sorted))
	for i, s := range sorted {
		xs[i] = float64(s.AgeInDays)
		ys[i] = s.AverageWeight
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	if math.IsNaN(alpha) || math.IsNaN(beta) {
		return m
	}

	m.Intercept = alpha
	m.Slope = beta
	// RSquared is NaN when every weight is identical; treat as unexplained.
	m.RSquared = Clamp(stat.RSquared(xs, ys, nil, alpha, beta), 0, 1)
	m.Trained = true
	return m
}

// Predict returns the projected weight at age, floored at zero, and the fit's R².
func (m WeightTrend) Predict(age int) (weight, confidence float64) {
	if !m.Trained {
		return 0, 0
	}
	w := m.Slope*float64(age) + m.Intercept
	return math.Max(0, w), m.RSquared
}

// GrowthRate is the fitted daily weight gain in kg/day; 0 when untrained.
func (m WeightTrend) GrowthRate() float64 {
	if !m.Trained {
		return 0
	}
	return m.Slope
}
