package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverStore serves from a primary store and falls back to a
// secondary when the primary errors, probing the primary again after
// recoveryInterval.
type FailoverStore struct {
	primary  Store
	fallback Store
	logger   zerolog.Logger

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverStore(primary, fallback Store, logger *zerolog.Logger) *FailoverStore {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "session-failover").Logger()
	}
	return &FailoverStore{primary: primary, fallback: fallback, logger: base}
}

func (s *FailoverStore) Get(ctx context.Context, key string) (*Identity, error) {
	if s.primaryUsable() {
		identity, err := s.primary.Get(ctx, key)
		if err == nil {
			s.markUp()
			return identity, nil
		}
		s.markDown(err)
	}
	return s.fallback.Get(ctx, key)
}

func (s *FailoverStore) Set(ctx context.Context, key string, identity *Identity) error {
	if s.primaryUsable() {
		err := s.primary.Set(ctx, key, identity)
		if err == nil {
			s.markUp()
			return nil
		}
		s.markDown(err)
	}
	return s.fallback.Set(ctx, key, identity)
}

func (s *FailoverStore) Clear(ctx context.Context, key string) error {
	if s.primaryUsable() {
		err := s.primary.Clear(ctx, key)
		if err == nil {
			s.markUp()
			return nil
		}
		s.markDown(err)
	}
	return s.fallback.Clear(ctx, key)
}

// primaryUsable reports whether the primary should be tried: either it
// is healthy, or it has been down long enough to probe again.
func (s *FailoverStore) primaryUsable() bool {
	if !s.isDown.Load() {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if time.Since(s.lastCheck) > recoveryInterval {
		s.lastCheck = time.Now()
		return true
	}
	return false
}

func (s *FailoverStore) markDown(err error) {
	if s.isDown.CompareAndSwap(false, true) {
		s.logger.Error().Err(err).Msg("primary session store failed, falling back to memory")
	}
	s.mu.Lock()
	s.lastCheck = time.Now()
	s.mu.Unlock()
}

func (s *FailoverStore) markUp() {
	if s.isDown.CompareAndSwap(true, false) {
		s.logger.Info().Msg("primary session store recovered")
	}
}
