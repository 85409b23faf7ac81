package goSession

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goSession/internal/state"
	"github.com/MrEthical07/goSession/seclog"
)

// Log scopes. Scopes are fixed labels, never data.
const (
	scopeSession = "session"
	scopeSync    = "sync"
)

// Client is the session state machine. All transitions funnel through a
// single store guarded by a staleness token, so a slow provider round-trip
// can never overwrite the result of a newer one. Construct with [New];
// methods are safe for concurrent use.
type Client struct {
	cfg        Config
	provider   Provider
	store      *state.Store
	logger     *seclog.Logger
	authAsync  *seclog.AsyncSink
	classifier *Classifier
	metrics    *Metrics
	clock      func() time.Time

	// id is a short instance tag carried in auth events so records from
	// different clients sharing a sink stay distinguishable.
	id string

	closed atomic.Bool
}

// Snapshot returns the current session value.
func (c *Client) Snapshot() Snapshot {
	return c.store.Snapshot()
}

// Subscribe registers fn for every applied transition and returns an
// idempotent cancel func. Callbacks run synchronously on the mutating
// goroutine, outside the store lock; keep them short.
func (c *Client) Subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	return c.store.Subscribe(fn)
}

// ClearError dismisses the recorded error. Identity and authenticated-ness
// are never touched; a snapshot parked in the error state settles to
// Unauthenticated, since an error state with nothing to show is meaningless.
func (c *Client) ClearError() {
	if c.closed.Load() {
		return
	}
	c.store.Mutate(func(s *state.Snapshot) {
		s.Err = nil
		if s.State == state.AuthError {
			s.State = state.Unauthenticated
		}
	})
}

// Metrics exposes the client's instrumentation for exporters.
func (c *Client) Metrics() *Metrics {
	return c.metrics
}

// MetricsSnapshot copies every counter and histogram. Exporter packages read
// this together with AuthEventsDropped.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	return c.metrics.Snapshot()
}

// AuthEventsDropped reports auth events lost to a full async buffer.
func (c *Client) AuthEventsDropped() uint64 {
	return c.authAsync.Dropped()
}

// Close stops the client and drains the buffered auth event pipeline.
// Operations on a closed client return ErrClientClosed.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.authAsync.Close()
	return nil
}

func (c *Client) authEvent(ctx context.Context, name string, fields map[string]any) {
	if fields == nil {
		fields = make(map[string]any, 2)
	}
	fields["client"] = c.id
	c.logger.AuthEvent(name, opContext(ctx, fields))
}
