package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/fjod/go_kitchen/internal/availability"
	"github.com/fjod/go_kitchen/internal/cart"
	"github.com/fjod/go_kitchen/internal/identity"
	"github.com/fjod/go_kitchen/internal/ratelimit"
	"github.com/google/uuid"
)

const (
	DefaultSweepInterval = time.Minute
	DefaultLoadTimeout   = 10 * time.Second
)

type ManagerConfig struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	LoadTimeout   time.Duration
	IdentityMode  identity.Mode
	Limits        map[string]ratelimit.Rule
}

// Manager keeps the live sessions and expires idle ones.
type Manager struct {
	cfg    ManagerConfig
	loader *Loader
	syncer *Syncer
	engine *availability.Engine
	log    *slog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session

	stopSweep chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

func NewManager(cfg ManagerConfig, loader *Loader, syncer *Syncer, engine *availability.Engine, log *slog.Logger) (*Manager, error) {
	if _, err := identity.NewResolver(cfg.IdentityMode); err != nil {
		return nil, err
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = DefaultLoadTimeout
	}

	m := &Manager{
		cfg:       cfg,
		loader:    loader,
		syncer:    syncer,
		engine:    engine,
		log:       log,
		now:       time.Now,
		sessions:  make(map[string]*Session),
		stopSweep: make(chan struct{}),
	}
	if cfg.IdleTimeout > 0 {
		m.wg.Add(1)
		go m.sweepLoop()
	}
	return m, nil
}

func (m *Manager) Create() *Session {
	// mode was validated in NewManager
	ids, _ := identity.NewResolver(m.cfg.IdentityMode)
	s := &Session{
		ID:          uuid.NewString(),
		loader:      m.loader,
		syncer:      m.syncer,
		engine:      m.engine,
		limiter:     ratelimit.New(m.cfg.Limits, ratelimit.Rule{}),
		log:         m.log,
		loadTimeout: m.cfg.LoadTimeout,
		cart:        cart.New(),
		ids:         ids,
		lastSeen:    m.now(),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get returns a live session and marks it as used.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch(m.now())
	return s, nil
}

// GetOrCreate returns the session for id, or a new one when id is unknown.
func (m *Manager) GetOrCreate(id string) (*Session, bool) {
	if id != "" {
		if s, err := m.Get(id); err == nil {
			return s, false
		}
	}
	return m.Create(), true
}

func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// SignOutUser signs out every session of userID and reports how many there were.
func (m *Manager) SignOutUser(userID string) int {
	m.mu.RLock()
	var matched []*Session
	for _, s := range m.sessions {
		if s.UserID() == userID {
			matched = append(matched, s)
		}
	}
	m.mu.RUnlock()

	for _, s := range matched {
		s.SignOut()
	}
	return len(matched)
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) sweepLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.expireIdle()
		case <-m.stopSweep:
			return
		}
	}
}

// expireIdle drops sessions unused for longer than the idle timeout. The
// remote cart is already up to date, so nothing is written.
func (m *Manager) expireIdle() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	expired := 0
	for id, s := range m.sessions {
		if s.idleSince(now) > m.cfg.IdleTimeout {
			delete(m.sessions, id)
			expired++
		}
	}
	if expired > 0 {
		m.log.Info("idle sessions expired", "count", expired, "remaining", len(m.sessions))
	}
	return expired
}

// Close stops the sweeper and waits for pending cart writes.
func (m *Manager) Close() {
	m.stopOnce.Do(func() { close(m.stopSweep) })
	m.wg.Wait()
	m.syncer.Close()
}
