package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

type BreakerSettings struct {
	MaxFailures uint32
	OpenTimeout time.Duration
}

// BreakerStore stops calling a failing store for a while instead of letting
// every cart write wait on it.
type BreakerStore struct {
	inner Store
	cb    *gobreaker.CircuitBreaker[[]Row]
}

func NewBreakerStore(inner Store, settings BreakerSettings, log *slog.Logger) *BreakerStore {
	if settings.MaxFailures == 0 {
		settings.MaxFailures = 5
	}
	cb := gobreaker.NewCircuitBreaker[[]Row](gobreaker.Settings{
		Name:        "cart-store",
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &BreakerStore{inner: inner, cb: cb}
}

func (b *BreakerStore) ReadCartRows(ctx context.Context, userID string) ([]Row, error) {
	rows, err := b.cb.Execute(func() ([]Row, error) {
		return b.inner.ReadCartRows(ctx, userID)
	})
	return rows, b.wrap(err)
}

func (b *BreakerStore) DeleteCartRows(ctx context.Context, userID string) error {
	_, err := b.cb.Execute(func() ([]Row, error) {
		return nil, b.inner.DeleteCartRows(ctx, userID)
	})
	return b.wrap(err)
}

func (b *BreakerStore) InsertCartRows(ctx context.Context, userID string, rows []Row) error {
	_, err := b.cb.Execute(func() ([]Row, error) {
		return nil, b.inner.InsertCartRows(ctx, userID, rows)
	})
	return b.wrap(err)
}

func (b *BreakerStore) ReplaceCartRows(ctx context.Context, userID string, rows []Row) error {
	_, err := b.cb.Execute(func() ([]Row, error) {
		return nil, Replace(ctx, b.inner, userID, rows)
	})
	return b.wrap(err)
}

func (b *BreakerStore) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerStore) wrap(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return err
}
