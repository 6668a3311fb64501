package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fjod/go_kitchen/internal/cart"
	"github.com/fjod/go_kitchen/internal/repository"
)

// Syncer mirrors cart snapshots to the remote store. Writes for one user run
// one at a time and only the newest pending snapshot is written, so an older
// snapshot can never land after a newer one.
type Syncer struct {
	store   repository.Store
	log     *slog.Logger
	timeout time.Duration

	mu     sync.Mutex
	queues map[string]*userQueue
	closed bool
	wg     sync.WaitGroup
}

type userQueue struct {
	lines   []cart.Line
	pending bool
}

func NewSyncer(store repository.Store, timeout time.Duration, log *slog.Logger) *Syncer {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Syncer{
		store:   store,
		log:     log,
		timeout: timeout,
		queues:  make(map[string]*userQueue),
	}
}

// Submit schedules a write of lines for userID and returns immediately. An
// empty snapshot clears the user's remote rows.
func (s *Syncer) Submit(userID string, lines []cart.Line) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.log.Warn("cart sync after shutdown dropped", "user_id", userID)
		return
	}
	if q, ok := s.queues[userID]; ok {
		q.lines = lines
		q.pending = true
		return
	}

	q := &userQueue{lines: lines, pending: true}
	s.queues[userID] = q
	s.wg.Add(1)
	go s.drain(userID, q)
}

func (s *Syncer) drain(userID string, q *userQueue) {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		if !q.pending {
			delete(s.queues, userID)
			s.mu.Unlock()
			return
		}
		lines := q.lines
		q.lines, q.pending = nil, false
		s.mu.Unlock()

		s.write(userID, lines)
	}
}

func (s *Syncer) write(userID string, lines []cart.Line) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if len(lines) == 0 {
		if err := s.store.DeleteCartRows(ctx, userID); err != nil {
			s.log.Warn("cart clear failed", "user_id", userID, "error", err)
		}
		return
	}

	rows := make([]repository.Row, 0, len(lines))
	for _, l := range lines {
		if !l.Persistable() {
			s.log.Debug("cart line excluded from save",
				"user_id", userID, "local_id", l.LocalID, "dish_id", l.ExternalID)
			continue
		}
		rows = append(rows, repository.Row{DishRef: l.ExternalID, Quantity: l.Quantity})
	}

	if err := repository.Replace(ctx, s.store, userID, rows); err != nil {
		s.log.Warn("cart save failed", "user_id", userID, "rows", len(rows), "error", err)
	}
}

// Wait blocks until every submitted snapshot has been written.
func (s *Syncer) Wait() {
	s.wg.Wait()
}

// Close rejects further submissions and waits for in-flight writes.
func (s *Syncer) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()
}
