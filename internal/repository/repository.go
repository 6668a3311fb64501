package repository

import (
	"context"
	"errors"
	"fmt"
)

var ErrStoreUnavailable = errors.New("cart store unavailable")

// Row is one persisted cart line: a dish reference and its quantity.
type Row struct {
	DishRef  string `json:"dish_ref" bson:"dish_ref"`
	Quantity int    `json:"quantity" bson:"quantity"`
}

// Store is the per-user remote cart row set. Rows come back in the order they
// were inserted. Deleting a missing row set is not an error.
type Store interface {
	ReadCartRows(ctx context.Context, userID string) ([]Row, error)
	DeleteCartRows(ctx context.Context, userID string) error
	InsertCartRows(ctx context.Context, userID string, rows []Row) error
}

// Replacer is implemented by stores that can swap a user's row set atomically.
type Replacer interface {
	ReplaceCartRows(ctx context.Context, userID string, rows []Row) error
}

// Replace overwrites the user's rows, atomically when the store supports it
// and with a delete followed by an insert otherwise.
func Replace(ctx context.Context, s Store, userID string, rows []Row) error {
	if r, ok := s.(Replacer); ok {
		return r.ReplaceCartRows(ctx, userID, rows)
	}
	if err := s.DeleteCartRows(ctx, userID); err != nil {
		return fmt.Errorf("delete before insert: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}
	if err := s.InsertCartRows(ctx, userID, rows); err != nil {
		return fmt.Errorf("insert after delete: %w", err)
	}
	return nil
}
