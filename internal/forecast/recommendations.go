package forecast

import "github.com/rewired-gh/flockcast/internal/models"

// Recommendation texts. Each rule is independent; all that match are emitted.
const (
	MsgLowGrowth     = "Growth rate below average"
	ActLowGrowth     = "Review feed program"
	MsgMortalityRisk = "Mortality risk factors detected"
	ActMortalityRisk = "Apply preventive sanitary measures"
	MsgLowROI        = "ROI below target"
	ActLowROI        = "Optimize feed costs"
	MsgNearTarget    = "Near target weight"
	ActNearTarget    = "Consider advancing sale"
	MsgGoodOverall   = "Good overall performance"
	ActGoodOverall   = "Keep current management practices"

	MsgPeerGrowth    = "Growth rate below peer average"
	ActPeerGrowth    = "Compare feed conversion with peer lots"
	MsgPeerMortality = "Mortality above peer average"
	ActPeerMortality = "Review biosecurity against peer lots"
	MsgPeerMargin    = "Projected margin below peer average"
	ActPeerMargin    = "Review sale price and cost structure"
)

// ruleInput is everything the recommendation rules look at.
type ruleInput struct {
	weightTrained    bool
	growthRate       float64
	riskFactors      []string
	roiPercent       float64
	marginPercent    float64
	daysRemaining    int
	currentWeight    float64
	targetWeight     float64
	mortalityPercent float64 // cumulative deaths as % of initial count
	peers            *models.PeerAverages
}

func recommend(in ruleInput, th Thresholds) []models.Recommendation {
	recs := []models.Recommendation{}
	add := func(s models.Severity, msg, action string) {
		recs = append(recs, models.Recommendation{Severity: s, Message: msg, Action: action})
	}

	if in.weightTrained && in.growthRate < th.MinGrowthRate {
		add(models.SeverityImportant, MsgLowGrowth, ActLowGrowth)
	}
	if len(in.riskFactors) > 0 {
		add(models.SeverityCritical, MsgMortalityRisk, ActMortalityRisk)
	}
	if in.roiPercent < th.TargetROIPercent {
		add(models.SeverityImportant, MsgLowROI, ActLowROI)
	}
	if in.weightTrained && in.targetWeight > 0 &&
		in.daysRemaining < th.NearTargetDays && in.currentWeight >= th.NearTargetRatio*in.targetWeight {
		add(models.SeveritySuggestion, MsgNearTarget, ActNearTarget)
	}

	if p := in.peers; p != nil && p.SampleSize > 0 {
		if in.weightTrained && p.AvgGrowthRate > 0 && in.growthRate < th.PeerGrowthRatio*p.AvgGrowthRate {
			add(models.SeveritySuggestion, MsgPeerGrowth, ActPeerGrowth)
		}
		if p.AvgMortalityRate > 0 && in.mortalityPercent > th.PeerMortalityRatio*p.AvgMortalityRate {
			add(models.SeverityImportant, MsgPeerMortality, ActPeerMortality)
		}
		if p.AvgMarginPercent != 0 && in.marginPercent < p.AvgMarginPercent-th.PeerMarginGap {
			add(models.SeveritySuggestion, MsgPeerMargin, ActPeerMargin)
		}
	}

	if len(recs) == 0 {
		add(models.SeveritySuggestion, MsgGoodOverall, ActGoodOverall)
	}
	return recs
}
