package models

import (
	"errors"
	"math"
	"time"
)

// WeightSample is one weighing of a lot: the average bird weight (kg) at a given age.
type WeightSample struct {
	ID            string    `json:"id"`
	LotID         string    `json:"lot_id"`
	AgeInDays     int       `json:"age_in_days"`
	AverageWeight float64   `json:"average_weight"`
	RecordedAt    time.Time `json:"recorded_at"`
}

// Validate checks that all weight sample fields are valid
func (w *WeightSample) Validate() error {
	if w.AgeInDays < 0 {
		return errors.New("age in days must not be negative")
	}
	if w.AverageWeight <= 0 || math.IsNaN(w.AverageWeight) || math.IsInf(w.AverageWeight, 0) {
		return errors.New("average weight must be a positive number")
	}
	return nil
}

// MortalityEvent records birds lost on a given date.
type MortalityEvent struct {
	ID    string    `json:"id"`
	LotID string    `json:"lot_id"`
	Count int       `json:"count"`
	Date  time.Time `json:"date"`
	Cause string    `json:"cause,omitempty"`
}

// Validate checks that all mortality event fields are valid
func (m *MortalityEvent) Validate() error {
	if m.Count <= 0 {
		return errors.New("mortality count must be positive")
	}
	if m.Date.IsZero() {
		return errors.New("mortality date must be set")
	}
	return nil
}

// TotalDeaths sums the counts of the given events.
func TotalDeaths(events []MortalityEvent) int {
	total := 0
	for _, e := range events {
		total += e.Count
	}
	return total
}

// Expense is a cost booked against a lot (feed, vaccines, labour...).
type Expense struct {
	ID      string    `json:"id"`
	LotID   string    `json:"lot_id"`
	Amount  float64   `json:"amount"`
	Concept string    `json:"concept"`
	Date    time.Time `json:"date"`
}

// Validate checks that all expense fields are valid
func (e *Expense) Validate() error {
	if e.LotID == "" {
		return errors.New("lot ID must not be empty")
	}
	if e.Amount < 0 || math.IsNaN(e.Amount) || math.IsInf(e.Amount, 0) {
		return errors.New("expense amount must be a non-negative number")
	}
	if e.Concept == "" {
		return errors.New("expense concept must not be empty")
	}
	return nil
}

// Sale is revenue booked against a lot.
type Sale struct {
	ID     string    `json:"id"`
	LotID  string    `json:"lot_id"`
	Amount float64   `json:"amount"`
	Units  int       `json:"units"`
	Date   time.Time `json:"date"`
}

// Validate checks that all sale fields are valid
func (s *Sale) Validate() error {
	if s.LotID == "" {
		return errors.New("lot ID must not be empty")
	}
	if s.Amount < 0 || math.IsNaN(s.Amount) || math.IsInf(s.Amount, 0) {
		return errors.New("sale amount must be a non-negative number")
	}
	if s.Units < 0 {
		return errors.New("sale units must not be negative")
	}
	return nil
}
