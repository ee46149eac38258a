package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"aforo/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSessionConfig() config.SessionConfig {
	return config.SessionConfig{
		TTL:                time.Hour,
		FallbackUserID:     "683b55e323204f24b8f09aef",
		FallbackUserName:   "Marta Galeano Grijalba",
		FallbackBusinessID: "683adc369af196301892a609",
	}
}

func TestRedisStore(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	store := NewRedisStore(client, time.Hour)
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		identity := &Identity{UserID: "u-1", UserName: "Ana", BusinessID: "b-1"}
		require.NoError(t, store.Set(ctx, "sess-1", identity))

		got, err := store.Get(ctx, "sess-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "u-1", got.UserID)
		assert.Equal(t, "b-1", got.BusinessID)
	})

	t.Run("MissReturnsNil", func(t *testing.T) {
		got, err := store.Get(ctx, "unknown")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Clear", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "sess-2", &Identity{UserID: "u-2"}))
		require.NoError(t, store.Clear(ctx, "sess-2"))

		got, err := store.Get(ctx, "sess-2")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("TTLExpiry", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "sess-3", &Identity{UserID: "u-3"}))
		s.FastForward(2 * time.Hour)

		got, err := store.Get(ctx, "sess-3")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("NilClient", func(t *testing.T) {
		broken := NewRedisStore(nil, time.Hour)
		_, err := broken.Get(ctx, "any")
		assert.Error(t, err)
	})
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	require.NoError(t, store.Set(ctx, "sess-1", &Identity{UserID: "u-1"}))

	got, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u-1", got.UserID)

	require.NoError(t, store.Clear(ctx, "sess-1"))
	got, err = store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFailoverStore(t *testing.T) {
	ctx := context.Background()

	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	primary := NewRedisStore(client, time.Hour)
	fallback := NewMemoryStore(time.Hour)
	store := NewFailoverStore(primary, fallback, nil)

	t.Run("UsesPrimaryWhenHealthy", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "sess-1", &Identity{UserID: "u-1"}))

		got, err := primary.Get(ctx, "sess-1")
		require.NoError(t, err)
		require.NotNil(t, got)
	})

	t.Run("FallsBackWhenPrimaryDies", func(t *testing.T) {
		s.Close()

		require.NoError(t, store.Set(ctx, "sess-2", &Identity{UserID: "u-2"}))

		got, err := store.Get(ctx, "sess-2")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "u-2", got.UserID)
	})
}

// errorStore always fails, standing in for an unreachable redis.
type errorStore struct{}

func (errorStore) Get(context.Context, string) (*Identity, error) {
	return nil, errors.New("store down")
}
func (errorStore) Set(context.Context, string, *Identity) error { return errors.New("store down") }
func (errorStore) Clear(context.Context, string) error          { return errors.New("store down") }

func TestManagerResolve(t *testing.T) {
	ctx := context.Background()
	cfg := testSessionConfig()

	t.Run("MissAdoptsAndPersistsFallback", func(t *testing.T) {
		store := NewMemoryStore(time.Hour)
		manager := NewManager(store, cfg, nil)

		identity := manager.Resolve(ctx, "sess-1")
		require.NotNil(t, identity)
		assert.Equal(t, cfg.FallbackUserID, identity.UserID)
		assert.True(t, identity.Fallback)

		// Write-through: a second resolve sees the persisted entry.
		persisted, err := store.Get(ctx, "sess-1")
		require.NoError(t, err)
		require.NotNil(t, persisted)
		assert.Equal(t, cfg.FallbackUserID, persisted.UserID)
	})

	t.Run("HitReturnsStoredIdentity", func(t *testing.T) {
		store := NewMemoryStore(time.Hour)
		manager := NewManager(store, cfg, nil)
		require.NoError(t, store.Set(ctx, "sess-2", &Identity{UserID: "real-user"}))

		identity := manager.Resolve(ctx, "sess-2")
		assert.Equal(t, "real-user", identity.UserID)
		assert.False(t, identity.Fallback)
	})

	t.Run("StoreFailureStillResolves", func(t *testing.T) {
		manager := NewManager(errorStore{}, cfg, nil)

		identity := manager.Resolve(ctx, "sess-3")
		require.NotNil(t, identity)
		assert.Equal(t, cfg.FallbackUserID, identity.UserID)
	})

	t.Run("Logout", func(t *testing.T) {
		store := NewMemoryStore(time.Hour)
		manager := NewManager(store, cfg, nil)
		require.NoError(t, store.Set(ctx, "sess-4", &Identity{UserID: "real-user"}))

		require.NoError(t, manager.Logout(ctx, "sess-4"))
		identity := manager.Resolve(ctx, "sess-4")
		assert.Equal(t, cfg.FallbackUserID, identity.UserID)
	})
}
