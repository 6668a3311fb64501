package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_kitchen/internal/auth"
	"github.com/fjod/go_kitchen/internal/availability"
	"github.com/fjod/go_kitchen/internal/catalog"
	"github.com/fjod/go_kitchen/internal/domain"
	"github.com/fjod/go_kitchen/internal/identity"
	"github.com/fjod/go_kitchen/internal/inquiry"
	"github.com/fjod/go_kitchen/internal/ratelimit"
	"github.com/fjod/go_kitchen/internal/repository"
	"github.com/fjod/go_kitchen/internal/session"
	"github.com/fjod/go_kitchen/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// 2024-01-01 was a Monday.
var monday = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

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
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
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

func (m *mockCatalog) set(d domain.Dish) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dishes[d.ID] = d
}

func dal() domain.Dish {
	return domain.Dish{
		ID:       "dal-makhani",
		Name:     "Dal Makhani",
		Price:    decimal.NewFromInt(220),
		ImageRef: "menu/dal.jpg",
		Availability: domain.Availability{
			Type: domain.AvailabilityDaily,
			Days: []domain.Weekday{
				domain.Monday, domain.Tuesday, domain.Wednesday, domain.Thursday,
				domain.Friday, domain.Saturday, domain.Sunday,
			},
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
		Gallery: []string{"menu/biryani-1.jpg", "https://img.example.com/biryani-2.jpg"},
	}
}

func thali() domain.Dish {
	return domain.Dish{
		ID:    "festive-thali",
		Name:  "Festive Thali",
		Price: decimal.NewFromInt(900),
		Availability: domain.Availability{
			Type:             domain.AvailabilityPreorderOnly,
			Days:             []domain.Weekday{domain.Saturday, domain.Sunday},
			PreorderOpensOn:  domain.Friday,
			RequiresPreorder: true,
		},
	}
}

type testEnv struct {
	router    chi.Router
	verifier  *auth.Verifier
	catalog   *mockCatalog
	store     *repository.MemoryStore
	syncer    *session.Syncer
	inquiries *inquiry.MemoryRepository
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithLimits(t, nil)
}

func newTestEnvWithLimits(t *testing.T, limits map[string]ratelimit.Rule) *testEnv {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	cat := newMockCatalog(dal(), biryani(), thali())
	engine := availability.NewEngine(time.UTC, func() time.Time { return monday })
	store := repository.NewMemoryStore()
	syncer := session.NewSyncer(store, time.Second, log)
	loader := session.NewLoader(store, cat, engine, log)

	manager, err := session.NewManager(session.ManagerConfig{
		IdentityMode: identity.ModeHash,
		Limits:       limits,
	}, loader, syncer, engine, log)
	require.NoError(t, err)
	t.Cleanup(manager.Close)

	verifier, err := auth.NewVerifier("test-secret")
	require.NoError(t, err)

	inquiries := inquiry.NewMemoryRepository()

	router := NewRouter(RouterConfig{
		Sessions:    manager,
		Catalog:     cat,
		Engine:      engine,
		Images:      storage.NewImageSigner(storage.Config{PublicBaseURL: "https://cdn.example.com"}),
		Inquiries:   inquiry.NewService(inquiries, cat, engine, nil, log),
		Verifier:    verifier,
		Timeout:     5 * time.Second,
		MaxBodySize: 1 << 20,
		Log:         log,
	})

	return &testEnv{
		router:    router,
		verifier:  verifier,
		catalog:   cat,
		store:     store,
		syncer:    syncer,
		inquiries: inquiries,
	}
}

func (e *testEnv) token(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := e.verifier.Issue(userID, role, time.Hour)
	require.NoError(t, err)
	return tok
}

type request struct {
	method    string
	path      string
	body      interface{}
	token     string
	sessionID string
	header    map[string]string
}

func (e *testEnv) do(t *testing.T, req request) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if req.body != nil {
		b, err := json.Marshal(req.body)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}

	r := httptest.NewRequest(req.method, req.path, body)
	if req.token != "" {
		r.Header.Set("Authorization", "Bearer "+req.token)
	}
	if req.sessionID != "" {
		r.Header.Set(SessionHeader, req.sessionID)
	}
	for k, v := range req.header {
		r.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, r)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
}
