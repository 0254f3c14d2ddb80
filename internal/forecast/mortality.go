package forecast

import (
	"math"

	"github.com/rewired-gh/flockcast/internal/logger"
	"github.com/rewired-gh/flockcast/internal/models"
)

// Risk factor labels reported by the mortality estimator.
const (
	RiskHighHistoricalMortality = "high historical mortality"
	RiskRisingMortalityTrend    = "rising mortality trend"
	RiskCriticalGrowerAge       = "critical age for grower stage"
	RiskAdvancedBroilerAge      = "advanced age for broiler stage"
)

// Mortality confidence steps, by number of detected risk factors.
const (
	mortalityConfidenceNoRisk   = 0.8
	mortalityConfidenceSomeRisk = 0.6
	mortalityConfidenceHighRisk = 0.4
)

// MortalityTrend is an age-normalised daily death rate plus categorical risk flags.
type MortalityTrend struct {
	DailyRate      float64 // birds lost per day of age
	CumulativeRate float64 // deaths / initial count
	Deaths         int
	RecordedDeaths int // sum of recorded mortality events
	RiskFactors    []string
}

// FitMortalityTrend derives the daily mortality rate and detects risk factors.
func FitMortalityTrend(initialCount, currentCount, ageInDays int, events []models.MortalityEvent, category models.Category, th Thresholds) MortalityTrend {
	deaths := initialCount - currentCount
	m := MortalityTrend{
		Deaths:         deaths,
		RecordedDeaths: models.TotalDeaths(events),
		DailyRate:      SafeDivide(float64(deaths), float64(ageInDays), 0),
		CumulativeRate: SafeDivide(float64(deaths), float64(initialCount), 0),
		RiskFactors:    []string{},
	}
	if m.RecordedDeaths != deaths {
		logger.Debug("mortality: head count implies %d deaths but %d were recorded", deaths, m.RecordedDeaths)
	}

	if m.CumulativeRate > th.HighMortalityRate {
		m.RiskFactors = append(m.RiskFactors, RiskHighHistoricalMortality)
	}
	if m.DailyRate > th.RisingDailyRate {
		m.RiskFactors = append(m.RiskFactors, RiskRisingMortalityTrend)
	}
	if category == models.CategoryGrower && ageInDays > th.GrowerCriticalAge {
		m.RiskFactors = append(m.RiskFactors, RiskCriticalGrowerAge)
	}
	if category == models.CategoryBroiler && ageInDays > th.BroilerAdvancedAge {
		m.RiskFactors = append(m.RiskFactors, RiskAdvancedBroilerAge)
	}
	return m
}

// Predict returns the expected additional deaths over futureDays and a
// categorical confidence driven by the number of risk factors.
func (m MortalityTrend) Predict(futureDays int) (mortality, confidence float64) {
	mortality = math.Max(0, m.DailyRate*float64(futureDays))

	switch n := len(m.RiskFactors); {
	case n == 0:
		confidence = mortalityConfidenceNoRisk
	case n <= 2:
		confidence = mortalityConfidenceSomeRisk
	default:
		confidence = mortalityConfidenceHighRisk
	}
	return mortality, confidence
}
