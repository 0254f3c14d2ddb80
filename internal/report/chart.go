// Package report renders forecasts for people: an HTML growth chart and a
// plain-text summary.
package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/rewired-gh/flockcast/internal/forecast"
	"github.com/rewired-gh/flockcast/internal/models"
)

// missing is how echarts expects an absent point in a series.
const missing = "-"

// RenderChart writes an HTML line chart of the observed weighings of lot and
// the fitted weight trend from day 0 to the target age. f may be nil, in which
// case the chart stops at the last weighing.
func RenderChart(w io.Writer, lot models.Lot, samples []models.WeightSample, f *models.Forecast) error {
	trend := forecast.FitWeightTrend(samples)

	lastAge := trend.LastAge
	if f != nil && f.TargetAge > lastAge {
		lastAge = f.TargetAge
	}

	observed := make(map[int]float64, len(samples))
	for _, s := range samples {
		observed[s.AgeInDays] = s.AverageWeight
	}

	ages := make([]int, 0, lastAge+1)
	observedData := make([]opts.LineData, 0, lastAge+1)
	trendData := make([]opts.LineData, 0, lastAge+1)
	for age := 0; age <= lastAge; age++ {
		ages = append(ages, age)

		if v, ok := observed[age]; ok {
			observedData = append(observedData, opts.LineData{Value: v})
		} else {
			observedData = append(observedData, opts.LineData{Value: missing})
		}

		if trend.Trained {
			v, _ := trend.Predict(age)
			trendData = append(trendData, opts.LineData{Value: round3(v)})
		} else {
			trendData = append(trendData, opts.LineData{Value: missing})
		}
	}

	name := lot.Name
	if name == "" {
		name = lot.ID
	}
	subtitle := fmt.Sprintf("%s · %d weighings", lot.Category, len(samples))
	if f != nil {
		subtitle += fmt.Sprintf(" · projected %.2f kg at day %d (confidence %.0f%%)",
			f.FinalWeight.Value, f.TargetAge, f.FinalWeight.Confidence*100)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Growth of " + name,
			Width:     "900px",
			Height:    "500px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    name,
			Subtitle: subtitle,
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "age (days)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "avg weight (kg)"}),
	)

	line.SetXAxis(ages).
		AddSeries("Observed", observedData,
			charts.WithLineChartOpts(opts.LineChart{ConnectNulls: opts.Bool(true), ShowSymbol: opts.Bool(true)})).
		AddSeries("Trend", trendData)

	if err := line.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

func round3(v float64) float64 {
	return float64(int64(v*1000+0.5)) / 1000
}
