package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	ActionCartAdd = "cart_add"
	ActionInquiry = "inquiry"
)

// Rule allows Burst events at once and then one event every Every.
type Rule struct {
	Every time.Duration `yaml:"every"`
	Burst int           `yaml:"burst"`
}

func (r Rule) limit() rate.Limit {
	if r.Every <= 0 {
		return rate.Inf
	}
	return rate.Every(r.Every)
}

// Limiter tracks one token bucket per action and key. A session owns its own
// Limiter and drops it when the session ends.
type Limiter struct {
	mu       sync.Mutex
	rules    map[string]Rule
	fallback Rule
	buckets  map[string]*rate.Limiter
	now      func() time.Time
}

func New(rules map[string]Rule, fallback Rule) *Limiter {
	return NewWithClock(rules, fallback, time.Now)
}

func NewWithClock(rules map[string]Rule, fallback Rule, now func() time.Time) *Limiter {
	return &Limiter{
		rules:    rules,
		fallback: fallback,
		buckets:  make(map[string]*rate.Limiter),
		now:      now,
	}
}

func (l *Limiter) Allow(action, key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := action + ":" + key
	b, ok := l.buckets[id]
	if !ok {
		rule, ok := l.rules[action]
		if !ok {
			rule = l.fallback
		}
		burst := rule.Burst
		if burst < 1 {
			burst = 1
		}
		b = rate.NewLimiter(rule.limit(), burst)
		l.buckets[id] = b
	}
	return b.AllowN(l.now(), 1)
}

// Reset forgets every bucket.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.buckets)
}
