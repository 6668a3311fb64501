package inquiry

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/go_kitchen/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("inquiry not found")
	ErrStatusConflict    = errors.New("inquiry status changed concurrently")
	ErrInvalidTransition = errors.New("invalid inquiry status transition")
)

type Repository interface {
	Create(ctx context.Context, inq *domain.Inquiry) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Inquiry, error)
	// List returns inquiries newest first. An empty status lists all of them.
	List(ctx context.Context, status domain.InquiryStatus) ([]domain.Inquiry, error)
	// UpdateStatus moves an inquiry from one status to another and fails with
	// ErrStatusConflict when it is no longer in from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.InquiryStatus, at time.Time) error
}
