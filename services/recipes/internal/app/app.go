package app

import (
	"time"

	"recipebook/pkg/store"
)

// Config holds runtime dependencies for the core application.
type Config struct {
	Store    store.Store
	Sessions store.SessionStore
	// Now overrides the clock; tests pin it.
	Now func() time.Time
}

// App wires the credential store, session issuer and the three guarded
// collections behind one authorization-checked API.
type App struct {
	store    store.Store
	sessions store.SessionStore
	now      func() time.Time
}

// New constructs the application. Both Store and Sessions are required;
// the process entry point builds them from configuration.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, ErrStoreRequired
	}
	if cfg.Sessions == nil {
		return nil, ErrSessionsRequired
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &App{
		store:    cfg.Store,
		sessions: cfg.Sessions,
		now:      func() time.Time { return now().UTC() },
	}, nil
}
