package repository

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore keeps cart rows in process memory. It has no atomic replace, so
// writers go through the delete-then-insert path.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[string][]Row
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string][]Row)}
}

func (s *MemoryStore) ReadCartRows(ctx context.Context, userID string) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.rows[userID]), nil
}

func (s *MemoryStore) DeleteCartRows(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, userID)
	return nil
}

func (s *MemoryStore) InsertCartRows(ctx context.Context, userID string, rows []Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.rows[userID]
	for _, row := range rows {
		if i := slices.IndexFunc(existing, func(r Row) bool { return r.DishRef == row.DishRef }); i >= 0 {
			existing[i].Quantity += row.Quantity
			continue
		}
		existing = append(existing, row)
	}
	s.rows[userID] = existing
	return nil
}
