package inquiry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/fjod/go_kitchen/internal/availability"
	"github.com/fjod/go_kitchen/internal/catalog"
	"github.com/fjod/go_kitchen/internal/domain"
	"github.com/fjod/go_kitchen/internal/notify"
	"github.com/fjod/go_kitchen/internal/ratelimit"
	"github.com/google/uuid"
)

var (
	ErrInvalidRequest = errors.New("invalid inquiry")
	ErrRateLimited    = errors.New("too many inquiries")
)

const (
	maxQuantity      = 50
	maxMessageLength = 2000
)

type SubmitRequest struct {
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
	Message       string `json:"message"`
	DishID        string `json:"dish_id"`
	Quantity      int    `json:"quantity"`
}

// Limiter is satisfied by a session's rate limiter.
type Limiter interface {
	Allow(action, key string) bool
}

type Service struct {
	repo      Repository
	catalog   catalog.Catalog
	engine    *availability.Engine
	publisher notify.Publisher
	log       *slog.Logger
}

func NewService(repo Repository, c catalog.Catalog, engine *availability.Engine, publisher notify.Publisher, log *slog.Logger) *Service {
	if publisher == nil {
		publisher = notify.NoopPublisher{}
	}
	return &Service{repo: repo, catalog: c, engine: engine, publisher: publisher, log: log}
}

// Submit records a customer inquiry about a dish. The inquiry type follows
// the dish's availability at submission time.
func (s *Service) Submit(ctx context.Context, limiter Limiter, userID string, req SubmitRequest) (*domain.Inquiry, error) {
	req, err := normalize(req)
	if err != nil {
		return nil, err
	}
	if limiter != nil && !limiter.Allow(ratelimit.ActionInquiry, req.CustomerEmail) {
		return nil, ErrRateLimited
	}

	dish, err := s.catalog.GetDish(ctx, req.DishID)
	if err != nil {
		return nil, err
	}
	verdict := s.engine.Evaluate(dish)

	now := s.engine.Now().UTC()
	inq := &domain.Inquiry{
		ID:            uuid.New(),
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		Message:       req.Message,
		DishID:        dish.ID,
		DishName:      dish.Name,
		Quantity:      req.Quantity,
		Type:          domain.InquiryTypeFor(verdict.Status),
		Status:        domain.InquiryPending,
		UserID:        userID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, inq); err != nil {
		return nil, err
	}

	msg := notify.InquiryMessage{
		InquiryID:     inq.ID.String(),
		Type:          string(inq.Type),
		DishID:        inq.DishID,
		DishName:      inq.DishName,
		Quantity:      inq.Quantity,
		CustomerName:  inq.CustomerName,
		CustomerEmail: inq.CustomerEmail,
		CreatedAt:     inq.CreatedAt,
	}
	if err := s.publisher.PublishInquiry(ctx, msg); err != nil {
		s.log.WarnContext(ctx, "inquiry notification failed", "inquiry_id", inq.ID, "error", err)
	}

	s.log.InfoContext(ctx, "inquiry submitted", "inquiry_id", inq.ID, "dish_id", inq.DishID, "type", inq.Type)
	return inq, nil
}

func (s *Service) List(ctx context.Context, status string) ([]domain.Inquiry, error) {
	var st domain.InquiryStatus
	if status != "" {
		parsed, err := domain.ParseInquiryStatus(status)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		st = parsed
	}
	return s.repo.List(ctx, st)
}

func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*domain.Inquiry, error) {
	next, err := domain.ParseInquiryStatus(status)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current.Status, next)
	}

	if err := s.repo.UpdateStatus(ctx, id, current.Status, next, time.Now().UTC()); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

func normalize(req SubmitRequest) (SubmitRequest, error) {
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerEmail = strings.ToLower(strings.TrimSpace(req.CustomerEmail))
	req.CustomerPhone = strings.TrimSpace(req.CustomerPhone)
	req.Message = strings.TrimSpace(req.Message)
	req.DishID = strings.TrimSpace(req.DishID)

	if req.CustomerName == "" {
		return req, fmt.Errorf("%w: customer_name is required", ErrInvalidRequest)
	}
	if req.CustomerEmail == "" {
		return req, fmt.Errorf("%w: customer_email is required", ErrInvalidRequest)
	}
	if addr, err := mail.ParseAddress(req.CustomerEmail); err != nil || addr.Address != req.CustomerEmail {
		return req, fmt.Errorf("%w: customer_email is not a valid address", ErrInvalidRequest)
	}
	if req.DishID == "" {
		return req, fmt.Errorf("%w: dish_id is required", ErrInvalidRequest)
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 1 || req.Quantity > maxQuantity {
		return req, fmt.Errorf("%w: quantity must be between 1 and %d", ErrInvalidRequest, maxQuantity)
	}
	if len([]rune(req.Message)) > maxMessageLength {
		return req, fmt.Errorf("%w: message is longer than %d characters", ErrInvalidRequest, maxMessageLength)
	}
	return req, nil
}
