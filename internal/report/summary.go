package report

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rewired-gh/flockcast/internal/models"
)

// money rounds a currency amount to cents for display.
func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func percent(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(1) + "%"
}

// Summary renders a fixed-width text report of a forecast.
func Summary(lot models.Lot, f *models.Forecast) string {
	var b strings.Builder
	row := func(label, value string) {
		fmt.Fprintf(&b, "  %-24s %s\n", label, value)
	}

	name := lot.Name
	if name == "" {
		name = lot.ID
	}
	fmt.Fprintf(&b, "%s (%s, %s)\n", name, lot.Category, lot.ID)
	row("Age", fmt.Sprintf("%d / %d days", f.CurrentAge, f.TargetAge))
	row("Head count", fmt.Sprintf("%d of %d", lot.CurrentCount, lot.InitialCount))
	row("Harvest date", f.OptimalHarvestDate.Format("2006-01-02"))
	row("Growth rate", fmt.Sprintf("%.4f kg/day", f.GrowthRate))
	row("Final weight", fmt.Sprintf("%.3f kg (confidence %.2f)", f.FinalWeight.Value, f.FinalWeight.Confidence))
	row("Expected mortality", fmt.Sprintf("%.1f birds (confidence %.2f)", f.ExpectedMortality.Value, f.ExpectedMortality.Confidence))
	if len(f.ExpectedMortality.RiskFactors) > 0 {
		row("Risk factors", strings.Join(f.ExpectedMortality.RiskFactors, "; "))
	}
	row("Final count", fmt.Sprintf("%.1f", f.ProjectedFinalCount))
	row("Revenue", money(f.Profitability.EstimatedRevenue))
	row("Net profit", money(f.Profitability.NetProfit))
	row("ROI", percent(f.Profitability.ROIPercent))
	row("Cost per kg (observed)", money(f.CostPerKgObserved))
	row("Efficiency", decimal.NewFromFloat(f.ProjectedEfficiency).StringFixed(1)+" / 100")

	if p := f.PeerComparison; p != nil {
		row("Peers", fmt.Sprintf("%d lots: growth %.4f kg/day, mortality %s, margin %s",
			p.SampleSize, p.AvgGrowthRate, percent(p.AvgMortalityRate), percent(p.AvgMarginPercent)))
	}

	b.WriteString("Recommendations\n")
	for _, r := range f.Recommendations {
		fmt.Fprintf(&b, "  [%-10s] %s: %s\n", r.Severity, r.Message, r.Action)
	}
	return b.String()
}
