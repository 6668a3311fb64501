package inquiry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fjod/go_kitchen/internal/domain"
	"github.com/google/uuid"
)

type MemoryRepository struct {
	mu        sync.RWMutex
	inquiries map[uuid.UUID]domain.Inquiry
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{inquiries: make(map[uuid.UUID]domain.Inquiry)}
}

func (r *MemoryRepository) Create(_ context.Context, inq *domain.Inquiry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inquiries[inq.ID] = *inq
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id uuid.UUID) (*domain.Inquiry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inq, ok := r.inquiries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &inq, nil
}

func (r *MemoryRepository) List(_ context.Context, status domain.InquiryStatus) ([]domain.Inquiry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Inquiry, 0, len(r.inquiries))
	for _, inq := range r.inquiries {
		if status == "" || inq.Status == status {
			result = append(result, inq)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *MemoryRepository) UpdateStatus(_ context.Context, id uuid.UUID, from, to domain.InquiryStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	inq, ok := r.inquiries[id]
	if !ok {
		return ErrNotFound
	}
	if inq.Status != from {
		return ErrStatusConflict
	}
	inq.Status = to
	inq.UpdatedAt = at
	r.inquiries[id] = inq
	return nil
}
