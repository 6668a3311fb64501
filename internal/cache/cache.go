package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_kitchen/internal/repository"
)

// RowCache holds the last known remote row set per user.
type RowCache interface {
	Get(ctx context.Context, userID string) ([]repository.Row, error)
	Set(ctx context.Context, userID string, rows []repository.Row) error
	Delete(ctx context.Context, userID string) error
}

var ErrCacheMiss = errors.New("cache miss")
