// Package models defines the core domain entities for the flockcast application.
// These models represent poultry lots, the records captured against them
// (weighings, deaths, expenses, sales) and the forecast produced for a lot.
// All input models include built-in validation to ensure data integrity throughout the application.
//
// Terminology:
//   - Lot: a cohort of birds of one category tracked from birth to sale.
//   - Category: GROWER, BROILER or LAYER; drives target age, price and risk thresholds.
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Category is the production category of a lot.
type Category string

const (
	CategoryGrower  Category = "GROWER"
	CategoryBroiler Category = "BROILER"
	CategoryLayer   Category = "LAYER"
)

// Categories lists every known category in a stable order.
var Categories = []Category{CategoryGrower, CategoryBroiler, CategoryLayer}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryGrower, CategoryBroiler, CategoryLayer:
		return true
	}
	return false
}

// ParseCategory parses a category name case-insensitively.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// Lot represents a cohort of birds tracked as a unit.
// CurrentCount is decremented by recorded mortality events.
type Lot struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Category     Category  `json:"category"`
	BirthDate    time.Time `json:"birth_date"`
	InitialCount int       `json:"initial_count"`
	CurrentCount int       `json:"current_count"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Validate checks that all lot fields are valid.
func (l *Lot) Validate() error {
	if l.ID == "" {
		return errors.New("lot ID must not be empty")
	}
	if !l.Category.Valid() {
		return fmt.Errorf("lot category %q is not one of GROWER, BROILER, LAYER", l.Category)
	}
	if l.BirthDate.IsZero() {
		return errors.New("lot birth date must be set")
	}
	if l.InitialCount <= 0 {
		return errors.New("initial count must be positive")
	}
	if l.CurrentCount < 0 {
		return errors.New("current count must not be negative")
	}
	if l.CurrentCount > l.InitialCount {
		return errors.New("current count must be <= initial count")
	}
	return nil
}

// Deaths returns the head count lost since the lot was started.
func (l *Lot) Deaths() int {
	return l.InitialCount - l.CurrentCount
}
