package identity

import (
	"fmt"
	"sync"
	"unicode/utf16"
)

// Resolver bridges externally issued dish ids and the numeric ids the cart is keyed by.
type Resolver interface {
	LocalID(externalID string) int64
	ExternalID(localID int64) (string, bool)
}

type Mode string

const (
	ModeRegistry Mode = "registry"
	ModeHash     Mode = "hash"
)

func NewResolver(mode Mode) (Resolver, error) {
	switch mode {
	case ModeRegistry, "":
		return NewRegistry(), nil
	case ModeHash:
		return NewHashResolver(), nil
	default:
		return nil, fmt.Errorf("unknown identity mode %q", mode)
	}
}

// Hash is the 31-multiplier rolling hash over UTF-16 code units, wrapped to a
// signed 32-bit integer and made non-negative. Previously persisted local ids
// were produced by exactly this recurrence, so it must not change.
func Hash(externalID string) int64 {
	var h int32
	for _, c := range utf16.Encode([]rune(externalID)) {
		h = h*31 + int32(c)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return v
}

// HashResolver derives local ids with Hash. Distinct external ids may collide.
type HashResolver struct {
	mu      sync.RWMutex
	reverse map[int64]string
}

func NewHashResolver() *HashResolver {
	return &HashResolver{reverse: make(map[int64]string)}
}

func (r *HashResolver) LocalID(externalID string) int64 {
	id := Hash(externalID)
	r.mu.Lock()
	r.reverse[id] = externalID // last writer wins on collision
	r.mu.Unlock()
	return id
}

func (r *HashResolver) ExternalID(localID int64) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ext, ok := r.reverse[localID]
	return ext, ok
}

// Registry hands out local ids from a counter, one per distinct external id.
// Ids start at 1 and are never reused within the registry's lifetime.
type Registry struct {
	mu       sync.RWMutex
	next     int64
	byExt    map[string]int64
	external []string // index = local id - 1
}

func NewRegistry() *Registry {
	return &Registry{
		next:  1,
		byExt: make(map[string]int64),
	}
}

func (r *Registry) LocalID(externalID string) int64 {
	r.mu.RLock()
	id, ok := r.byExt[externalID]
	r.mu.RUnlock()
	if ok {
		return id
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byExt[externalID]; ok {
		return id
	}
	id = r.next
	r.next++
	r.byExt[externalID] = id
	r.external = append(r.external, externalID)
	return id
}

func (r *Registry) ExternalID(localID int64) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if localID < 1 || localID > int64(len(r.external)) {
		return "", false
	}
	return r.external[localID-1], true
}
