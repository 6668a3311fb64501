package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidInquiryStatus = errors.New("invalid inquiry status")

type InquiryStatus string

const (
	InquiryPending    InquiryStatus = "pending"
	InquiryInProgress InquiryStatus = "in_progress"
	InquiryCompleted  InquiryStatus = "completed"
	InquiryCancelled  InquiryStatus = "cancelled"
)

func ParseInquiryStatus(s string) (InquiryStatus, error) {
	switch st := InquiryStatus(s); st {
	case InquiryPending, InquiryInProgress, InquiryCompleted, InquiryCancelled:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidInquiryStatus, s)
	}
}

func (s InquiryStatus) IsTerminal() bool {
	return s == InquiryCompleted || s == InquiryCancelled
}

// CanTransitionTo reports whether an admin may move an inquiry from s to next.
func (s InquiryStatus) CanTransitionTo(next InquiryStatus) bool {
	switch s {
	case InquiryPending:
		return next == InquiryInProgress || next == InquiryCancelled
	case InquiryInProgress:
		return next == InquiryCompleted || next == InquiryCancelled
	default:
		return false
	}
}

// InquiryType is the label attached to an inquiry from the dish verdict at submit time.
type InquiryType string

const (
	InquiryTypeOrder        InquiryType = "order"
	InquiryTypePreorder     InquiryType = "preorder"
	InquiryTypeSpecialOrder InquiryType = "special_order"
	InquiryTypeEnquiry      InquiryType = "enquiry"
)

func InquiryTypeFor(s Status) InquiryType {
	switch s {
	case StatusAvailable:
		return InquiryTypeOrder
	case StatusPreorder:
		return InquiryTypePreorder
	case StatusSpecialOrder:
		return InquiryTypeSpecialOrder
	default:
		return InquiryTypeEnquiry
	}
}

type Inquiry struct {
	ID            uuid.UUID     `json:"id"`
	CustomerName  string        `json:"customer_name"`
	CustomerEmail string        `json:"customer_email"`
	CustomerPhone string        `json:"customer_phone"`
	Message       string        `json:"message"`
	DishID        string        `json:"dish_id"`
	DishName      string        `json:"dish_name"`
	Quantity      int           `json:"quantity"`
	Type          InquiryType   `json:"type"`
	Status        InquiryStatus `json:"status"`
	UserID        string        `json:"user_id,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
