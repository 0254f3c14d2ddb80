package models

import "time"

// Severity ranks a recommendation.
type Severity string

const (
	SeverityCritical   Severity = "CRITICAL"
	SeverityImportant  Severity = "IMPORTANT"
	SeveritySuggestion Severity = "SUGGESTION"
)

// Recommendation is a qualitative action derived from forecast thresholds.
type Recommendation struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Action   string   `json:"action"`
}

// WeightPrediction is the projected average weight at the target age.
type WeightPrediction struct {
	Value       float64 `json:"value"`
	Confidence  float64 `json:"confidence"`
	DaysToReach int     `json:"days_to_reach"`
}

// MortalityPrediction is the expected additional head count lost before harvest.
type MortalityPrediction struct {
	Value       float64  `json:"value"`
	Confidence  float64  `json:"confidence"`
	RiskFactors []string `json:"risk_factors"`
}

// ProfitPrediction is the projected economics of the lot at harvest.
type ProfitPrediction struct {
	EstimatedRevenue float64 `json:"estimated_revenue"`
	NetProfit        float64 `json:"net_profit"`
	ROIPercent       float64 `json:"roi_percent"`
	Confidence       float64 `json:"confidence"`
}

// PeerAverages are aggregate metrics over other lots of the same category.
// A zero SampleSize means no comparison is available.
type PeerAverages struct {
	Category         Category `json:"category"`
	SampleSize       int      `json:"sample_size"`
	AvgAge           float64  `json:"avg_age"`
	AvgWeight        float64  `json:"avg_weight"`
	AvgMortalityRate float64  `json:"avg_mortality_rate"`
	AvgGrowthRate    float64  `json:"avg_growth_rate"`
	AvgMarginPercent float64  `json:"avg_margin_percent"`
}

// Forecast is the full output of one forecasting run for a lot.
// It is built fresh on every call and never persisted.
type Forecast struct {
	LotID               string              `json:"lot_id"`
	Category            Category            `json:"category"`
	GeneratedAt         time.Time           `json:"generated_at"`
	CurrentAge          int                 `json:"current_age"`
	TargetAge           int                 `json:"target_age"`
	GrowthRate          float64             `json:"growth_rate"`
	FinalWeight         WeightPrediction    `json:"final_weight"`
	ExpectedMortality   MortalityPrediction `json:"expected_mortality"`
	ProjectedFinalCount float64             `json:"projected_final_count"`
	Profitability       ProfitPrediction    `json:"profitability"`
	CostPerKgObserved   float64             `json:"cost_per_kg_observed"`
	Recommendations     []Recommendation    `json:"recommendations"`
	OptimalHarvestDate  time.Time           `json:"optimal_harvest_date"`
	ProjectedEfficiency float64             `json:"projected_efficiency"`
	PeerComparison      *PeerAverages       `json:"peer_comparison,omitempty"`
}

// HasSeverity reports whether any recommendation carries the given severity.
func (f *Forecast) HasSeverity(s Severity) bool {
	for _, r := range f.Recommendations {
		if r.Severity == s {
			return true
		}
	}
	return false
}

// LotAlert pairs a lot with the forecast that triggered attention.
type LotAlert struct {
	Lot      Lot       `json:"lot"`
	Forecast *Forecast `json:"forecast"`
}
