package domain

import (
	"errors"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAvailabilityType = errors.New("invalid availability type")
	ErrInvalidDish             = errors.New("invalid dish")
)

// AvailabilityType decides which days a dish can be ordered.
type AvailabilityType string

const (
	AvailabilityDaily         AvailabilityType = "daily"
	AvailabilityWeeklySpecial AvailabilityType = "weekly_special"
	AvailabilityPreorderOnly  AvailabilityType = "preorder_only"
)

func ParseAvailabilityType(s string) (AvailabilityType, error) {
	switch t := AvailabilityType(s); t {
	case AvailabilityDaily, AvailabilityWeeklySpecial, AvailabilityPreorderOnly:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAvailabilityType, s)
	}
}

type Availability struct {
	Type                  AvailabilityType `json:"availability_type"`
	Days                  []Weekday        `json:"available_days"`
	PreorderOpensOn       Weekday          `json:"preorder_opens_on,omitempty"` // empty when the dish has no preorder day
	RequiresPreorder      bool             `json:"requires_preorder"`
	SpecialOrderSurcharge decimal.Decimal  `json:"special_order_surcharge"`
}

func (a Availability) AvailableOn(d Weekday) bool {
	return slices.Contains(a.Days, d)
}

// Nutrition is the optional per-serving nutrition block of a dish.
type Nutrition struct {
	Calories     int     `json:"calories"`
	ProteinGrams float64 `json:"protein_g"`
	CarbsGrams   float64 `json:"carbs_g"`
	FatGrams     float64 `json:"fat_g"`
	Vegetarian   bool    `json:"vegetarian"`
}

type Dish struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Category     string          `json:"category"`
	Price        decimal.Decimal `json:"price"`
	ImageRef     string          `json:"image_ref"`
	Availability Availability    `json:"availability"`
	Nutrition    *Nutrition      `json:"nutrition,omitempty"`
	Gallery      []string        `json:"gallery,omitempty"`
}

// PriceWithSurcharge is the base price plus the special-order surcharge.
func (d Dish) PriceWithSurcharge() decimal.Decimal {
	return d.Price.Add(d.Availability.SpecialOrderSurcharge)
}

// Validate checks the invariants a dish must hold before it is served.
func (d Dish) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidDish)
	}
	if d.Price.IsNegative() {
		return fmt.Errorf("%w: %s has negative price", ErrInvalidDish, d.ID)
	}
	if d.Availability.SpecialOrderSurcharge.IsNegative() {
		return fmt.Errorf("%w: %s has negative surcharge", ErrInvalidDish, d.ID)
	}
	if _, err := ParseAvailabilityType(string(d.Availability.Type)); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidDish, d.ID, err)
	}
	for _, day := range d.Availability.Days {
		if !day.Valid() {
			return fmt.Errorf("%w: %s: %w: %q", ErrInvalidDish, d.ID, ErrInvalidWeekday, day)
		}
	}
	if d.Availability.PreorderOpensOn != "" && !d.Availability.PreorderOpensOn.Valid() {
		return fmt.Errorf("%w: %s: %w: %q", ErrInvalidDish, d.ID, ErrInvalidWeekday, d.Availability.PreorderOpensOn)
	}
	if n := d.Nutrition; n != nil && (n.Calories < 0 || n.ProteinGrams < 0 || n.CarbsGrams < 0 || n.FatGrams < 0) {
		return fmt.Errorf("%w: %s has negative nutrition values", ErrInvalidDish, d.ID)
	}
	return nil
}
