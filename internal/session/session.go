package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fjod/go_kitchen/internal/availability"
	"github.com/fjod/go_kitchen/internal/cart"
	"github.com/fjod/go_kitchen/internal/domain"
	"github.com/fjod/go_kitchen/internal/identity"
	"github.com/fjod/go_kitchen/internal/ratelimit"
	"github.com/shopspring/decimal"
)

// Session owns one shopper's cart. The cart is authoritative in memory and is
// mirrored to the remote store while a user is signed in.
type Session struct {
	ID string

	loader  *Loader
	syncer  *Syncer
	engine  *availability.Engine
	limiter *ratelimit.Limiter
	log     *slog.Logger

	loadTimeout time.Duration

	mu         sync.Mutex
	cart       *cart.Cart
	ids        identity.Resolver
	userID     string
	generation uint64
	loading    chan struct{}
	notices    []Notice
	lastSeen   time.Time
}

// View is a read-only copy of the session state.
type View struct {
	SessionID string          `json:"session_id"`
	SignedIn  bool            `json:"signed_in"`
	Ready     bool            `json:"ready"`
	Lines     []cart.Line     `json:"lines"`
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
}

func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Observe applies the authentication state seen on a request. An empty
// userID means signed out.
func (s *Session) Observe(ctx context.Context, userID string) error {
	s.mu.Lock()
	current := s.userID
	s.mu.Unlock()

	switch {
	case userID == current:
		return nil
	case userID == "":
		s.SignOut()
		return nil
	default:
		return s.SignIn(ctx, userID)
	}
}

// SignIn switches the session to userID and waits for the saved cart. A
// non-empty saved cart replaces the local one. A failed load keeps the local
// cart and queues a warning notice.
func (s *Session) SignIn(ctx context.Context, userID string) error {
	s.mu.Lock()
	if s.userID == userID {
		wait := s.loading
		s.mu.Unlock()
		if wait != nil {
			select {
			case <-wait:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	}
	if s.userID != "" {
		s.cart.Clear()
	}
	s.userID = userID
	s.generation++
	gen := s.generation
	done := make(chan struct{})
	s.loading = done
	s.mu.Unlock()

	go s.load(ctx, userID, gen, done)

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// load reads the saved cart detached from the caller's cancellation, so an
// abandoned request does not count as a failed load.
func (s *Session) load(ctx context.Context, userID string, gen uint64, done chan struct{}) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout)
	defer cancel()

	rows, err := s.loader.Load(ctx, userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer close(done)
	if s.loading == done {
		s.loading = nil
	}

	if s.generation != gen {
		s.log.DebugContext(ctx, "stale cart load ignored", "session_id", s.ID, "user_id", userID)
		return
	}
	if err != nil {
		s.log.ErrorContext(ctx, "cart load failed", "session_id", s.ID, "user_id", userID, "error", err)
		s.notices = append(s.notices, Notice{Level: NoticeWarning, Message: msgCartLoadFailed})
		return
	}
	if len(rows) > 0 {
		lines := make([]cart.Line, 0, len(rows))
		for _, r := range rows {
			lines = append(lines, cart.Line{
				LocalID:    s.ids.LocalID(r.DishRef),
				ExternalID: r.DishRef,
				Name:       r.Recipe.Name,
				UnitPrice:  r.Recipe.Price,
				Quantity:   r.Quantity,
				ImageRef:   r.Recipe.ImageRef,
			})
		}
		s.cart.Replace(lines)
	}
}

// SignOut empties the cart without a notice and without touching the remote
// store.
func (s *Session) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID == "" {
		return
	}
	s.userID = ""
	s.generation++
	s.loading = nil
	s.cart.Clear()
}

// AddDish adds one unit of dish. The line price is the special-order price
// when the dish is only orderable as a special order today.
func (s *Session) AddDish(ctx context.Context, dish domain.Dish) (cart.Line, error) {
	if err := s.lockReady(ctx); err != nil {
		return cart.Line{}, err
	}
	defer s.mu.Unlock()

	if s.userID == "" {
		return cart.Line{}, ErrSignInRequired
	}
	if dish.ID == "" {
		return cart.Line{}, ErrInvalidItem
	}
	if !s.limiter.Allow(ratelimit.ActionCartAdd, s.ID) {
		return cart.Line{}, ErrRateLimited
	}

	verdict := s.engine.Evaluate(dish)
	if !verdict.CanOrder {
		return cart.Line{}, ErrNotOrderable
	}
	localID := s.ids.LocalID(dish.ID)
	err := s.cart.Add(cart.Line{
		LocalID:    localID,
		ExternalID: dish.ID,
		Name:       dish.Name,
		UnitPrice:  orderPrice(dish, verdict),
		ImageRef:   dish.ImageRef,
	})
	if err != nil {
		return cart.Line{}, err
	}
	s.submitLocked()

	line, _ := s.cart.Get(localID)
	return line, nil
}

// RemoveLine is a no-op for unknown or invalid ids.
func (s *Session) RemoveLine(ctx context.Context, localID int64) (bool, error) {
	if err := s.lockReady(ctx); err != nil {
		return false, err
	}
	defer s.mu.Unlock()

	if localID <= 0 || !s.cart.Remove(localID) {
		return false, nil
	}
	s.submitLocked()
	return true, nil
}

func (s *Session) SetQuantity(ctx context.Context, localID int64, qty int) (bool, error) {
	if err := s.lockReady(ctx); err != nil {
		return false, err
	}
	defer s.mu.Unlock()

	if localID <= 0 || !s.cart.SetQuantity(localID, qty) {
		return false, nil
	}
	s.submitLocked()
	return true, nil
}

// Clear empties the cart. Unless silent, a confirmation notice is queued.
func (s *Session) Clear(ctx context.Context, silent bool) error {
	if err := s.lockReady(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()

	changed := s.cart.Clear()
	if !silent {
		s.notices = append(s.notices, Notice{Level: NoticeInfo, Message: msgCartCleared})
	}
	if changed {
		s.submitLocked()
	}
	return nil
}

func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		SessionID: s.ID,
		SignedIn:  s.userID != "",
		Ready:     s.loading == nil,
		Lines:     s.cart.Lines(),
		ItemCount: s.cart.ItemCount(),
		Total:     s.cart.Total(),
	}
}

// DrainNotices returns and forgets the queued notices.
func (s *Session) DrainNotices() []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.notices
	s.notices = nil
	return n
}

// Allow consumes one token of the session's limiter.
func (s *Session) Allow(action, key string) bool {
	return s.limiter.Allow(action, key)
}

// lockReady acquires s.mu once no cart load is in flight. Mutations made
// during a load would otherwise be overwritten by it.
func (s *Session) lockReady(ctx context.Context) error {
	for {
		s.mu.Lock()
		wait := s.loading
		if wait == nil {
			return nil
		}
		s.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Session) submitLocked() {
	if s.userID == "" {
		return
	}
	s.syncer.Submit(s.userID, s.cart.Lines())
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}
