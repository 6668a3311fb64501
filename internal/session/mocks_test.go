package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_kitchen/internal/availability"
	"github.com/fjod/go_kitchen/internal/catalog"
	"github.com/fjod/go_kitchen/internal/domain"
	"github.com/fjod/go_kitchen/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("store down")

type mockCatalog struct {
	mu     sync.RWMutex
	dishes map[string]domain.Dish
}

func newMockCatalog(dishes ...domain.Dish) *mockCatalog {
	m := &mockCatalog{dishes: make(map[string]domain.Dish)}
	for _, d := range dishes {
		m.dishes[d.ID] = d
	}
	return m
}

func (m *mockCatalog) ListDishes(context.Context) ([]domain.Dish, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Dish, 0, len(m.dishes))
	for _, d := range m.dishes {
		out = append(out, d)
	}
	return out, nil
}

func (m *mockCatalog) GetDish(_ context.Context, id string) (domain.Dish, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.dishes[id]
	if !ok {
		return domain.Dish{}, catalog.ErrDishNotFound
	}
	return d, nil
}

func (m *mockCatalog) GetDishes(_ context.Context, ids []string) (map[string]domain.Dish, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]domain.Dish)
	for _, id := range ids {
		if d, ok := m.dishes[id]; ok {
			out[id] = d
		}
	}
	return out, nil
}

func (m *mockCatalog) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.dishes, id)
}

// mockStore wraps a MemoryStore with failure switches and an optional gate
// that holds reads until released.
type mockStore struct {
	*repository.MemoryStore

	mu        sync.RWMutex
	readErr   error
	writeErr  error
	reads     int
	deletes   int
	readGate  chan struct{}
	readStart chan struct{}
}

func newMockStore() *mockStore {
	return &mockStore{MemoryStore: repository.NewMemoryStore()}
}

func (m *mockStore) ReadCartRows(ctx context.Context, userID string) ([]repository.Row, error) {
	m.mu.Lock()
	m.reads++
	gate, started, err := m.readGate, m.readStart, m.readErr
	m.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return m.MemoryStore.ReadCartRows(ctx, userID)
}

func (m *mockStore) DeleteCartRows(ctx context.Context, userID string) error {
	m.mu.Lock()
	m.deletes++
	err := m.writeErr
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.MemoryStore.DeleteCartRows(ctx, userID)
}

func (m *mockStore) InsertCartRows(ctx context.Context, userID string, rows []repository.Row) error {
	m.mu.RLock()
	err := m.writeErr
	m.mu.RUnlock()
	if err != nil {
		return err
	}
	return m.MemoryStore.InsertCartRows(ctx, userID, rows)
}

func (m *mockStore) gateReads() (started chan struct{}, release func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readStart = make(chan struct{}, 16)
	m.readGate = make(chan struct{})
	gate := m.readGate
	return m.readStart, func() { close(gate) }
}

func (m *mockStore) setReadErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

func (m *mockStore) setWriteErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

func (m *mockStore) readCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reads
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// 2024-01-01 was a Monday.
var (
	monday   = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tuesday  = monday.AddDate(0, 0, 1)
	saturday = monday.AddDate(0, 0, 5)
	sunday   = monday.AddDate(0, 0, 6)
)

var everyDay = []domain.Weekday{
	domain.Monday, domain.Tuesday, domain.Wednesday, domain.Thursday,
	domain.Friday, domain.Saturday, domain.Sunday,
}

func dish(id, name string, price int64) domain.Dish {
	return domain.Dish{
		ID:    id,
		Name:  name,
		Price: decimal.NewFromInt(price),
		Availability: domain.Availability{
			Type: domain.AvailabilityDaily,
			Days: everyDay,
		},
	}
}

func biryani() domain.Dish {
	return domain.Dish{
		ID:    "sunday-biryani",
		Name:  "Sunday Biryani",
		Price: decimal.NewFromInt(450),
		Availability: domain.Availability{
			Type:                  domain.AvailabilityWeeklySpecial,
			Days:                  []domain.Weekday{domain.Sunday},
			PreorderOpensOn:       domain.Saturday,
			SpecialOrderSurcharge: decimal.NewFromInt(50),
		},
	}
}

type fixture struct {
	store   *mockStore
	catalog *mockCatalog
	syncer  *Syncer
	loader  *Loader
	manager *Manager
}

func newFixture(t *testing.T, at time.Time, dishes ...domain.Dish) *fixture {
	t.Helper()
	return newFixtureWithConfig(t, at, ManagerConfig{}, dishes...)
}

func newFixtureWithConfig(t *testing.T, at time.Time, cfg ManagerConfig, dishes ...domain.Dish) *fixture {
	t.Helper()
	log := discardLogger()
	store := newMockStore()
	cat := newMockCatalog(dishes...)
	syncer := NewSyncer(store, time.Second, log)
	engine := availability.NewEngine(time.UTC, func() time.Time { return at })
	loader := NewLoader(store, cat, engine, log)

	manager, err := NewManager(cfg, loader, syncer, engine, log)
	require.NoError(t, err)
	t.Cleanup(manager.Close)
	return &fixture{store: store, catalog: cat, syncer: syncer, loader: loader, manager: manager}
}
