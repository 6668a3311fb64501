package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/fjod/go_kitchen/internal/repository"
)

// CachedStore is a read-through cache in front of a repository.Store. Every
// write invalidates the user's entry after the store call returns.
type CachedStore struct {
	store repository.Store
	cache RowCache
	log   *slog.Logger

	mu      sync.Mutex
	writes  map[string]uint64
	pending sync.WaitGroup
}

func NewCachedStore(store repository.Store, cache RowCache, log *slog.Logger) *CachedStore {
	return &CachedStore{
		store:  store,
		cache:  cache,
		log:    log,
		writes: make(map[string]uint64),
	}
}

func (c *CachedStore) ReadCartRows(ctx context.Context, userID string) ([]repository.Row, error) {
	rows, err := c.cache.Get(ctx, userID)
	if err == nil {
		return rows, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		c.log.WarnContext(ctx, "cache get error", "user_id", userID, "error", err)
	}

	seen := c.writeCount(userID)
	rows, err = c.store.ReadCartRows(ctx, userID)
	if err != nil {
		return nil, err
	}

	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		// skip the fill if a write landed while we were reading
		if c.writeCount(userID) != seen {
			return
		}
		setCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := c.cache.Set(setCtx, userID, rows); err != nil {
			c.log.Warn("cache set error", "user_id", userID, "error", err)
		}
	}()
	return rows, nil
}

func (c *CachedStore) DeleteCartRows(ctx context.Context, userID string) error {
	defer c.invalidate(userID)
	return c.store.DeleteCartRows(ctx, userID)
}

func (c *CachedStore) InsertCartRows(ctx context.Context, userID string, rows []repository.Row) error {
	defer c.invalidate(userID)
	return c.store.InsertCartRows(ctx, userID, rows)
}

func (c *CachedStore) ReplaceCartRows(ctx context.Context, userID string, rows []repository.Row) error {
	defer c.invalidate(userID)
	return repository.Replace(ctx, c.store, userID, rows)
}

// Flush waits for background cache fills started by earlier reads.
func (c *CachedStore) Flush() {
	c.pending.Wait()
}

func (c *CachedStore) writeCount(userID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes[userID]
}

func (c *CachedStore) invalidate(userID string) {
	c.mu.Lock()
	c.writes[userID]++
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.cache.Delete(ctx, userID); err != nil {
		c.log.Warn("cache invalidate error", "user_id", userID, "error", err)
	}
}
