// Package monitor runs the forecaster across every active lot and decides
// which lots deserve attention.
//
// A lot becomes an alert candidate when its forecast carries at least one
// CRITICAL or IMPORTANT recommendation. Candidates are ranked worst-first by
// projected efficiency so the lots most in need of intervention lead the
// notification. A cooldown keeps the same lot from being re-sent every cycle
// unless its set of CRITICAL findings changes.
package monitor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rewired-gh/flockcast/internal/logger"
	"github.com/rewired-gh/flockcast/internal/models"
	"github.com/rewired-gh/flockcast/internal/storage"
)

// InputSource loads everything a forecast needs for one lot.
type InputSource interface {
	LoadForecastInput(ctx context.Context, lotID string) (*storage.ForecastInput, error)
}

// LotForecaster produces a forecast for one lot.
type LotForecaster interface {
	Forecast(ctx context.Context, lot models.Lot, samples []models.WeightSample, events []models.MortalityEvent, cumulativeExpense float64) (*models.Forecast, error)
}

// notifiedRecord tracks a previously sent alert for cooldown deduplication.
type notifiedRecord struct {
	Critical string // sorted CRITICAL messages joined by "\n"
	SentAt   time.Time
}

// Monitor handles periodic forecasting and alert selection
type Monitor struct {
	source       InputSource
	forecaster   LotForecaster
	notifiedLots map[string]notifiedRecord // key = lot ID
	now          func() time.Time
}

// New creates a new Monitor instance
func New(source InputSource, f LotForecaster) *Monitor {
	return &Monitor{
		source:       source,
		forecaster:   f,
		notifiedLots: make(map[string]notifiedRecord),
		now:          time.Now,
	}
}

// ForecastError represents a per-lot error during a run
type ForecastError struct {
	LotID string
	Err   error
}

func (e ForecastError) Error() string {
	return fmt.Sprintf("forecast error for lot %s: %v", e.LotID, e.Err)
}

func (e ForecastError) Unwrap() error { return e.Err }

// Run forecasts every active lot. Inactive lots are skipped. A failing lot is
// reported in the error slice and does not abort the others; only context
// cancellation is fatal.
func (m *Monitor) Run(ctx context.Context, lots []models.Lot) ([]models.LotAlert, []ForecastError, error) {
	var alerts []models.LotAlert
	var forecastErrors []ForecastError
	skipped := 0

	for _, lot := range lots {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if !lot.Active {
			skipped++
			continue
		}

		in, err := m.source.LoadForecastInput(ctx, lot.ID)
		if err != nil {
			forecastErrors = append(forecastErrors, ForecastError{LotID: lot.ID, Err: err})
			continue
		}

		fc, err := m.forecaster.Forecast(ctx, in.Lot, in.Samples, in.Events, in.CumulativeExpense)
		if err != nil {
			forecastErrors = append(forecastErrors, ForecastError{LotID: lot.ID, Err: err})
			continue
		}
		alerts = append(alerts, models.LotAlert{Lot: in.Lot, Forecast: fc})
	}

	logger.Debug("Run: forecast=%d inactive=%d failed=%d", len(alerts), skipped, len(forecastErrors))

	return alerts, forecastErrors, nil
}

// needsAttention reports whether a forecast carries a CRITICAL or IMPORTANT recommendation.
func needsAttention(f *models.Forecast) bool {
	return f != nil && (f.HasSeverity(models.SeverityCritical) || f.HasSeverity(models.SeverityImportant))
}

// RankAlerts keeps alerts that need attention and returns at most k of them
// ordered by projected efficiency ascending. Ties are broken by lot ID
// ascending for determinism. Returns an empty (non-nil) slice when nothing qualifies.
func RankAlerts(alerts []models.LotAlert, k int) []models.LotAlert {
	candidates := make([]models.LotAlert, 0, len(alerts))
	for _, a := range alerts {
		if needsAttention(a.Forecast) {
			candidates = append(candidates, a)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		ei, ej := candidates[i].Forecast.ProjectedEfficiency, candidates[j].Forecast.ProjectedEfficiency
		if ei != ej {
			return ei < ej
		}
		return candidates[i].Lot.ID < candidates[j].Lot.ID
	})

	if k <= 0 || len(candidates) == 0 {
		return []models.LotAlert{}
	}
	if k > len(candidates) {
		k = len(candidates)
	}
	return candidates[:k]
}

// criticalKey returns the sorted CRITICAL messages of a forecast as one string.
func criticalKey(f *models.Forecast) string {
	if f == nil {
		return ""
	}
	var msgs []string
	for _, r := range f.Recommendations {
		if r.Severity == models.SeverityCritical {
			msgs = append(msgs, r.Message)
		}
	}
	sort.Strings(msgs)
	return strings.Join(msgs, "\n")
}

// FilterRecentlySent drops alerts for lots notified within cooldown whose set
// of CRITICAL messages is unchanged. Returns a non-nil slice.
func (m *Monitor) FilterRecentlySent(alerts []models.LotAlert, cooldown time.Duration) []models.LotAlert {
	now := m.now()
	result := make([]models.LotAlert, 0, len(alerts))

	for _, a := range alerts {
		rec, exists := m.notifiedLots[a.Lot.ID]
		if exists && now.Sub(rec.SentAt) < cooldown && rec.Critical == criticalKey(a.Forecast) {
			continue
		}
		result = append(result, a)
	}
	return result
}

// RecordNotified records all given alerts as sent at the current time.
// Call this after a successful Telegram send to enable cooldown deduplication.
func (m *Monitor) RecordNotified(alerts []models.LotAlert) {
	now := m.now()
	for _, a := range alerts {
		m.notifiedLots[a.Lot.ID] = notifiedRecord{
			Critical: criticalKey(a.Forecast),
			SentAt:   now,
		}
	}
}
