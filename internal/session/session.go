// Package session is the single read/write boundary for visitor
// identity, replacing the ad-hoc per-page storage reads of the old
// frontend.
package session

import (
	"context"

	"aforo/internal/config"

	"github.com/rs/zerolog"
)

// Identity is what the old frontend kept in browser storage: a cached
// user blob and a business id. Ids are opaque strings; no format
// validation happens before they are used in requests.
type Identity struct {
	UserID     string `json:"user_id"`
	UserName   string `json:"user_name,omitempty"`
	UserEmail  string `json:"user_email,omitempty"`
	BusinessID string `json:"business_id,omitempty"`
	Fallback   bool   `json:"fallback,omitempty"`
}

// Store persists identities keyed by session key.
type Store interface {
	Get(ctx context.Context, key string) (*Identity, error)
	Set(ctx context.Context, key string, identity *Identity) error
	Clear(ctx context.Context, key string) error
}

// Manager resolves identities with a configured fallback. A miss
// adopts the fallback identity and writes it through, so every page a
// visitor touches afterwards agrees on who they are.
type Manager struct {
	store  Store
	cfg    config.SessionConfig
	logger zerolog.Logger
}

func NewManager(store Store, cfg config.SessionConfig, logger *zerolog.Logger) *Manager {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "session").Logger()
	}
	return &Manager{store: store, cfg: cfg, logger: base}
}

// Resolve returns the identity for a session key, adopting and
// persisting the fallback identity on a miss. A store failure also
// yields the fallback so pages never block on a login flow.
func (m *Manager) Resolve(ctx context.Context, key string) *Identity {
	identity, err := m.store.Get(ctx, key)
	if err != nil {
		m.logger.Error().Err(err).Str("session", key).Msg("session lookup failed, using fallback identity")
		return m.fallback()
	}
	if identity != nil {
		return identity
	}

	identity = m.fallback()
	if err := m.store.Set(ctx, key, identity); err != nil {
		m.logger.Warn().Err(err).Str("session", key).Msg("could not persist fallback identity")
	}
	return identity
}

// Save stores an identity, e.g. after a successful registration.
func (m *Manager) Save(ctx context.Context, key string, identity *Identity) error {
	return m.store.Set(ctx, key, identity)
}

// Logout removes the session entry; the next page falls back again.
func (m *Manager) Logout(ctx context.Context, key string) error {
	return m.store.Clear(ctx, key)
}

func (m *Manager) fallback() *Identity {
	return &Identity{
		UserID:     m.cfg.FallbackUserID,
		UserName:   m.cfg.FallbackUserName,
		UserEmail:  m.cfg.FallbackUserEmail,
		BusinessID: m.cfg.FallbackBusinessID,
		Fallback:   true,
	}
}
