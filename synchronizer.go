package goSession

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/goSession/credstore"
)

/*
==========================================
CROSS-CLIENT SYNCHRONIZER
==========================================
*/

// KeyFilter selects the credential-store keys that belong to the identity
// provider. Events on other keys are ignored.
type KeyFilter func(key string) bool

// PrefixKeyFilter matches keys under prefix, the usual shape of a provider's
// credential keyspace.
func PrefixKeyFilter(prefix string) KeyFilter {
	return func(key string) bool {
		return strings.HasPrefix(key, prefix)
	}
}

// SyncConfig wires the external signals a Synchronizer observes. Any channel
// may be nil; that signal is simply never received.
type SyncConfig struct {
	// Storage carries credential-store mutations, typically from
	// credstore.Store.Watch.
	Storage <-chan credstore.Event

	// Visibility carries foreground transitions. Each receipt triggers
	// exactly one status check.
	Visibility <-chan struct{}

	// Unauthorized carries active rejections from the API-calling layer.
	// Each receipt force-drops the session with a session-expired error.
	Unauthorized <-chan struct{}

	// KeyFilter limits storage events to the provider's keys. Nil matches
	// every key.
	KeyFilter KeyFilter
}

// Synchronizer keeps independent clients sharing one credential store
// coherent. It never writes session state directly; every reaction goes
// through the client's own operations, preserving the single writer.
type Synchronizer struct {
	client *Client
	cfg    SyncConfig
	filter KeyFilter

	// lastVisibility is touched only on the observer goroutine.
	lastVisibility time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSynchronizer builds a synchronizer for c. Call Start to begin
// observing and Close to release it.
func NewSynchronizer(c *Client, cfg SyncConfig) *Synchronizer {
	filter := cfg.KeyFilter
	if filter == nil {
		filter = func(string) bool { return true }
	}
	return &Synchronizer{
		client: c,
		cfg:    cfg,
		filter: filter,
	}
}

// Start begins observing on a background goroutine. It returns ErrSyncRunning
// while already observing; after Close, Start may be called again.
func (s *Synchronizer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrSyncRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.running = true
	s.cancel = cancel
	s.done = done
	s.lastVisibility = time.Time{}

	go func() {
		defer close(done)
		s.run(runCtx)
	}()
	return nil
}

// Close stops observing and waits for the observer goroutine to exit. It is
// idempotent.
func (s *Synchronizer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.cancel()
	<-s.done
	s.running = false
	s.cancel = nil
	s.done = nil
	return nil
}

func (s *Synchronizer) run(ctx context.Context) {
	// Local copies so a closed channel can be parked as nil.
	storage := s.cfg.Storage
	visibility := s.cfg.Visibility
	unauthorized := s.cfg.Unauthorized

	for {
		if storage == nil && visibility == nil && unauthorized == nil {
			return
		}
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-storage:
			if !ok {
				storage = nil
				continue
			}
			s.onStorage(ctx, ev)

		case _, ok := <-visibility:
			if !ok {
				visibility = nil
				continue
			}
			if s.onVisibility(ctx) {
				return
			}

		case _, ok := <-unauthorized:
			if !ok {
				unauthorized = nil
				continue
			}
			s.onUnauthorized(ctx)
		}
	}
}

// onStorage reacts to one credential-store mutation. A removal observed
// while this client believes it is authenticated means another client
// signed out; trust is revoked eagerly rather than after a round-trip.
func (s *Synchronizer) onStorage(ctx context.Context, ev credstore.Event) {
	c := s.client
	c.metrics.Inc(MetricStorageEventSeen)
	if !s.filter(ev.Key) {
		return
	}
	c.metrics.Inc(MetricStorageEventMatched)
	c.logger.Debug(scopeSync, "credential storage changed", map[string]any{
		"key":     ev.Key,
		"removed": ev.Removed,
	})

	if ev.Removed && c.Snapshot().Authenticated() {
		c.forceUnauthenticated(ctx, "credential_removed", nil)
	}
}

// onVisibility runs the catch-up status check for a client returning to the
// foreground. Reports true when the client is closed and observing should
// stop.
func (s *Synchronizer) onVisibility(ctx context.Context) bool {
	c := s.client
	if d := c.cfg.Sync.VisibilityDebounce; d > 0 {
		now := c.clock()
		if !s.lastVisibility.IsZero() && now.Sub(s.lastVisibility) < d {
			c.metrics.Inc(MetricVisibilityDebounced)
			return false
		}
		s.lastVisibility = now
	}
	c.metrics.Inc(MetricVisibilityCheck)
	c.logger.Debug(scopeSync, "foreground transition, re-checking session", nil)
	return errors.Is(c.CheckStatus(ctx), ErrClientClosed)
}

func (s *Synchronizer) onUnauthorized(ctx context.Context) {
	s.client.forceUnauthenticated(ctx, "unauthorized", ErrSessionExpired)
}
