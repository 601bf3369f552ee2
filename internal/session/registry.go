// Package session keeps one cart, token store and checkout coordinator per
// browser session, all sharing a backing storage under a session prefix.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/apada-appleid/biosell-sub000/internal/auth"
	"github.com/apada-appleid/biosell-sub000/internal/cart"
	"github.com/apada-appleid/biosell-sub000/internal/checkout"
	"github.com/apada-appleid/biosell-sub000/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var ErrInvalidID = errors.New("session id is required")

type Session struct {
	ID            string
	Cart          *cart.Store
	Tokens        *auth.TokenStore
	Checkout      *checkout.Coordinator
	Confirmations *checkout.Confirmations
}

const DefaultIdleTTL = 30 * time.Minute

type Config struct {
	Storage       storage.Storage
	Addresses     checkout.AddressSaver
	Orders        checkout.OrderSubmitter
	Publisher     checkout.EventPublisher
	SubmitTimeout time.Duration
	// IdleTTL is how long an unused session stays loaded. Evicted sessions
	// hydrate again from storage on their next request.
	IdleTTL time.Duration
	Logger  *zap.Logger
	Now     func() time.Time
}

type entry struct {
	session  *Session
	lastSeen atomic.Int64 // unix nanos
}

type Registry struct {
	cfg Config

	mu       sync.RWMutex
	sessions map[string]*entry
	sfg      singleflight.Group
}

func NewRegistry(cfg Config) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Registry{cfg: cfg, sessions: make(map[string]*entry)}
}

// Get returns the session for id, building and hydrating it from storage on
// first use. Concurrent first requests for the same id share one hydrate.
func (r *Registry) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrInvalidID
	}

	r.mu.RLock()
	e, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		e.lastSeen.Store(r.cfg.Now().UnixNano())
		// no-op unless an earlier load failed
		e.session.Cart.Hydrate(ctx)
		return e.session, nil
	}

	v, err, _ := r.sfg.Do(id, func() (interface{}, error) {
		r.mu.RLock()
		existing, ok := r.sessions[id]
		r.mu.RUnlock()
		if ok {
			return existing.session, nil
		}

		s := r.build(id)
		s.Cart.Hydrate(ctx)

		e := &entry{session: s}
		e.lastSeen.Store(r.cfg.Now().UnixNano())
		r.mu.Lock()
		r.sessions[id] = e
		r.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// Len reports how many sessions are loaded.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// EvictIdle unloads sessions unused for longer than IdleTTL. A session with a
// checkout in flight is kept.
func (r *Registry) EvictIdle() int {
	cutoff := r.cfg.Now().Add(-r.cfg.IdleTTL).UnixNano()

	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for id, e := range r.sessions {
		if e.lastSeen.Load() > cutoff || e.session.Checkout.InProgress() {
			continue
		}
		delete(r.sessions, id)
		evicted++
	}
	return evicted
}

// Run evicts idle sessions every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := r.EvictIdle(); n > 0 {
				r.cfg.Logger.Debug("evicted idle sessions", zap.Int("count", n), zap.Int("loaded", r.Len()))
			}
		case <-ctx.Done():
			return
		}
	}
}

func (r *Registry) build(id string) *Session {
	st := storage.Namespaced(r.cfg.Storage, storage.SessionPrefix(id))
	logger := r.cfg.Logger.With(zap.String("session_id", id))

	tokens := auth.NewTokenStore(st)
	store := cart.NewStore(st, logger)
	confirmations := checkout.NewConfirmations(st)

	opts := []checkout.Option{
		checkout.WithLogger(logger),
		checkout.WithConfirmations(confirmations),
	}
	if r.cfg.Publisher != nil {
		opts = append(opts, checkout.WithPublisher(r.cfg.Publisher))
	}
	if r.cfg.SubmitTimeout > 0 {
		opts = append(opts, checkout.WithSubmitTimeout(r.cfg.SubmitTimeout))
	}

	return &Session{
		ID:            id,
		Cart:          store,
		Tokens:        tokens,
		Checkout:      checkout.NewCoordinator(store, tokens, r.cfg.Addresses, r.cfg.Orders, opts...),
		Confirmations: confirmations,
	}
}
