package models

import (
	"math"
	"testing"
	"time"
)

func TestLotValidate(t *testing.T) {
	birth := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		lot     Lot
		wantErr bool
	}{
		{
			name:    "valid lot",
			lot:     Lot{ID: "lot-1", Category: CategoryBroiler, BirthDate: birth, InitialCount: 100, CurrentCount: 95},
			wantErr: false,
		},
		{
			name:    "empty ID",
			lot:     Lot{Category: CategoryBroiler, BirthDate: birth, InitialCount: 100, CurrentCount: 95},
			wantErr: true,
		},
		{
			name:    "unknown category",
			lot:     Lot{ID: "lot-1", Category: "DUCK", BirthDate: birth, InitialCount: 100, CurrentCount: 95},
			wantErr: true,
		},
		{
			name:    "zero initial count",
			lot:     Lot{ID: "lot-1", Category: CategoryGrower, BirthDate: birth, InitialCount: 0},
			wantErr: true,
		},
		{
			name:    "negative current count",
			lot:     Lot{ID: "lot-1", Category: CategoryGrower, BirthDate: birth, InitialCount: 10, CurrentCount: -1},
			wantErr: true,
		},
		{
			name:    "current above initial",
			lot:     Lot{ID: "lot-1", Category: CategoryLayer, BirthDate: birth, InitialCount: 10, CurrentCount: 11},
			wantErr: true,
		},
		{
			name:    "missing birth date",
			lot:     Lot{ID: "lot-1", Category: CategoryLayer, InitialCount: 10, CurrentCount: 10},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.lot.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Lot.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in      string
		want    Category
		wantErr bool
	}{
		{"grower", CategoryGrower, false},
		{" Broiler ", CategoryBroiler, false},
		{"LAYER", CategoryLayer, false},
		{"duck", "", true},
	}

	for _, tt := range tests {
		got, err := ParseCategory(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCategory(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseCategory(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWeightSampleValidate(t *testing.T) {
	tests := []struct {
		name    string
		sample  WeightSample
		wantErr bool
	}{
		{"valid", WeightSample{AgeInDays: 10, AverageWeight: 0.4}, false},
		{"age zero allowed", WeightSample{AgeInDays: 0, AverageWeight: 0.04}, false},
		{"negative age", WeightSample{AgeInDays: -1, AverageWeight: 0.4}, true},
		{"zero weight", WeightSample{AgeInDays: 3, AverageWeight: 0}, true},
		{"NaN weight", WeightSample{AgeInDays: 3, AverageWeight: math.NaN()}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sample.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("WeightSample.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMortalityEventValidate(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		event   MortalityEvent
		wantErr bool
	}{
		{"valid", MortalityEvent{Count: 3, Date: now}, false},
		{"zero count", MortalityEvent{Count: 0, Date: now}, true},
		{"missing date", MortalityEvent{Count: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("MortalityEvent.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTotalDeaths(t *testing.T) {
	events := []MortalityEvent{{Count: 2}, {Count: 5}, {Count: 1}}
	if got := TotalDeaths(events); got != 8 {
		t.Errorf("TotalDeaths() = %d, want 8", got)
	}
	if got := TotalDeaths(nil); got != 0 {
		t.Errorf("TotalDeaths(nil) = %d, want 0", got)
	}
}

func TestExpenseAndSaleValidate(t *testing.T) {
	if err := (&Expense{LotID: "lot-1", Amount: 10, Concept: "feed"}).Validate(); err != nil {
		t.Errorf("valid expense rejected: %v", err)
	}
	if err := (&Expense{LotID: "lot-1", Amount: -1, Concept: "feed"}).Validate(); err == nil {
		t.Error("negative expense accepted")
	}
	if err := (&Sale{LotID: "lot-1", Amount: 100, Units: 20}).Validate(); err != nil {
		t.Errorf("valid sale rejected: %v", err)
	}
	if err := (&Sale{Amount: 100}).Validate(); err == nil {
		t.Error("sale without lot accepted")
	}
}

func TestForecastHasSeverity(t *testing.T) {
	f := Forecast{Recommendations: []Recommendation{{Severity: SeveritySuggestion}}}
	if !f.HasSeverity(SeveritySuggestion) {
		t.Error("expected SUGGESTION to be found")
	}
	if f.HasSeverity(SeverityCritical) {
		t.Error("did not expect CRITICAL")
	}
}
