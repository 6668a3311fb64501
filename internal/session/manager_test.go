package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_kitchen/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_GetOrCreate(t *testing.T) {
	f := newFixture(t, monday)

	s, created := f.manager.GetOrCreate("")
	assert.True(t, created)
	assert.NotEmpty(t, s.ID)

	again, created := f.manager.GetOrCreate(s.ID)
	assert.False(t, created)
	assert.Same(t, s, again)

	other, created := f.manager.GetOrCreate("unknown")
	assert.True(t, created)
	assert.NotEqual(t, s.ID, other.ID)
	assert.Equal(t, 2, f.manager.Len())
}

func TestManager_GetUnknown(t *testing.T) {
	f := newFixture(t, monday)

	_, err := f.manager.Get("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_SignOutUser(t *testing.T) {
	f := newFixture(t, monday, dish("a", "A", 10))
	ctx := context.Background()

	s1 := f.manager.Create()
	s2 := f.manager.Create()
	s3 := f.manager.Create()
	require.NoError(t, s1.SignIn(ctx, "user-1"))
	require.NoError(t, s2.SignIn(ctx, "user-1"))
	require.NoError(t, s3.SignIn(ctx, "user-2"))
	_, err := s1.AddDish(ctx, dish("a", "A", 10))
	require.NoError(t, err)

	assert.Equal(t, 2, f.manager.SignOutUser("user-1"))
	assert.False(t, s1.Snapshot().SignedIn)
	assert.Empty(t, s1.Snapshot().Lines)
	assert.False(t, s2.Snapshot().SignedIn)
	assert.True(t, s3.Snapshot().SignedIn)
	assert.Equal(t, 0, f.manager.SignOutUser("nobody"))
}

func TestManager_ExpireIdle(t *testing.T) {
	f := newFixtureWithConfig(t, monday, ManagerConfig{IdleTimeout: time.Hour, SweepInterval: time.Hour})

	var mu sync.Mutex
	now := monday
	f.manager.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	old := f.manager.Create()
	mu.Lock()
	now = now.Add(50 * time.Minute)
	mu.Unlock()
	fresh := f.manager.Create()

	mu.Lock()
	now = now.Add(20 * time.Minute)
	mu.Unlock()

	assert.Equal(t, 1, f.manager.expireIdle())
	_, err := f.manager.Get(old.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = f.manager.Get(fresh.ID)
	assert.NoError(t, err)
}

func TestManager_RejectsUnknownIdentityMode(t *testing.T) {
	_, err := NewManager(ManagerConfig{IdentityMode: identity.Mode("sha1")}, nil, nil, nil, discardLogger())
	assert.Error(t, err)
}

func TestManager_HashIdentityMode(t *testing.T) {
	f := newFixtureWithConfig(t, monday, ManagerConfig{IdentityMode: identity.ModeHash}, dish("hello", "Hello", 10))
	ctx := context.Background()
	s := f.manager.Create()
	require.NoError(t, s.SignIn(ctx, "user-1"))

	line, err := s.AddDish(ctx, dish("hello", "Hello", 10))
	require.NoError(t, err)
	assert.Equal(t, int64(99162322), line.LocalID)
}

func TestManager_CloseFlushesPendingWrites(t *testing.T) {
	f := newFixture(t, monday, dish("a", "A", 10))
	ctx := context.Background()
	s := f.manager.Create()
	require.NoError(t, s.SignIn(ctx, "user-1"))
	_, err := s.AddDish(ctx, dish("a", "A", 10))
	require.NoError(t, err)

	f.manager.Close()

	rows, err := f.store.MemoryStore.ReadCartRows(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
