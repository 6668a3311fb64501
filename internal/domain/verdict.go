package domain

import "github.com/shopspring/decimal"

// Status is the order eligibility of a dish on a given day.
type Status string

const (
	StatusAvailable    Status = "available"
	StatusPreorder     Status = "preorder"
	StatusSpecialOrder Status = "special_order"
	StatusUnavailable  Status = "unavailable"
)

func (s Status) String() string {
	return string(s)
}

// Verdict is recomputed on every evaluation and never stored.
type Verdict struct {
	IsAvailableToday   bool             `json:"is_available_today"`
	IsPreorderOpen     bool             `json:"is_preorder_open"`
	CanOrder           bool             `json:"can_order"`
	Status             Status           `json:"status"`
	Message            string           `json:"message"`
	PriceWithSurcharge *decimal.Decimal `json:"price_with_surcharge,omitempty"`
}
