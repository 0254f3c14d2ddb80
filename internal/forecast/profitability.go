package forecast

import "github.com/rewired-gh/flockcast/internal/models"

// MarketPriceConfidence is the fixed confidence attached to profitability
// projections. It reflects sale-price uncertainty and is not fitted from data.
const MarketPriceConfidence = 0.7

// ProfitModel projects revenue from the category price table.
type ProfitModel struct {
	Category   models.Category
	PricePerKg float64
	// CostPerKgObserved is reported for context only; the projection uses
	// the price table and the projected expense, not the observed unit cost.
	CostPerKgObserved float64
}

// FitProfitability records the observed unit cost and looks up the sale price.
func FitProfitability(category models.Category, cumulativeExpense, totalWeightObserved float64, table CategoryTable) ProfitModel {
	return ProfitModel{
		Category:          category,
		PricePerKg:        table.PricePerKg,
		CostPerKgObserved: SafeDivide(cumulativeExpense, totalWeightObserved, 0),
	}
}

// Predict projects revenue, net profit and ROI for the lot at harvest.
func (m ProfitModel) Predict(finalWeight, finalCount, totalExpense float64) models.ProfitPrediction {
	revenue := finalWeight * finalCount * m.PricePerKg
	net := revenue - totalExpense
	return models.ProfitPrediction{
		EstimatedRevenue: revenue,
		NetProfit:        net,
		ROIPercent:       SafeDivide(net, totalExpense, 0) * 100,
		Confidence:       MarketPriceConfidence,
	}
}
