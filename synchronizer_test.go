package goSession

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/credstore"
)

func awaitState(t *testing.T, c *Client, want State) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if snap := c.Snapshot(); snap.State == want && !snap.Loading {
			return snap
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %v, last snapshot %+v", want, c.Snapshot())
	return Snapshot{}
}

func awaitMetric(t *testing.T, m *Metrics, id MetricID, want uint64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.Value(id) >= want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("metric %d stuck at %d, want %d", id, m.Value(id), want)
}

// newSyncedClient builds an authenticated client with a running synchronizer
// over the given signal channels.
func newSyncedClient(t *testing.T, p *mockProvider, cfg SyncConfig) *Client {
	t.Helper()

	c, _ := newTestClient(t, p)
	if err := c.CheckStatus(context.Background()); err != nil {
		t.Fatalf("CheckStatus failed: %v", err)
	}

	s := NewSynchronizer(c, cfg)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return c
}

func TestStorageRemovalForcesImmediateSignOut(t *testing.T) {
	p := authedProvider(t)
	storage := make(chan credstore.Event, 4)
	c := newSyncedClient(t, p, SyncConfig{
		Storage:   storage,
		KeyFilter: PrefixKeyFilter("gosession:"),
	})

	if !c.Snapshot().Authenticated() {
		t.Fatal("expected authenticated client")
	}

	storage <- credstore.Event{Key: "gosession:u-123:idToken", Removed: true}

	snap := awaitState(t, c, StateUnauthenticated)
	if snap.Identity != nil {
		t.Fatalf("expected identity dropped, got %+v", snap.Identity)
	}
	if snap.Err != nil {
		t.Fatalf("a removal drop records no error, got %v", snap.Err)
	}

	// The drop is eager: no provider round-trip beyond the initial check.
	if got := p.fetchCount(); got != 1 {
		t.Fatalf("expected no extra provider calls, got %d", got)
	}
	if got := c.Metrics().Value(MetricForcedRevocation); got != 1 {
		t.Fatalf("expected 1 forced revocation, got %d", got)
	}
	if got := c.Metrics().Value(MetricStorageEventMatched); got != 1 {
		t.Fatalf("expected 1 matched storage event, got %d", got)
	}
}

func TestStorageEventOnForeignKeyIgnored(t *testing.T) {
	p := authedProvider(t)
	storage := make(chan credstore.Event, 4)
	c := newSyncedClient(t, p, SyncConfig{
		Storage:   storage,
		KeyFilter: PrefixKeyFilter("gosession:"),
	})

	storage <- credstore.Event{Key: "theme:dark_mode", Removed: true}

	awaitMetric(t, c.Metrics(), MetricStorageEventSeen, 1)
	if got := c.Metrics().Value(MetricStorageEventMatched); got != 0 {
		t.Fatalf("expected filtered event, got %d matches", got)
	}
	if !c.Snapshot().Authenticated() {
		t.Fatal("a foreign key must not touch the session")
	}
}

func TestStorageWriteEventDoesNotSignOut(t *testing.T) {
	p := authedProvider(t)
	storage := make(chan credstore.Event, 4)
	c := newSyncedClient(t, p, SyncConfig{
		Storage:   storage,
		KeyFilter: PrefixKeyFilter("gosession:"),
	})

	storage <- credstore.Event{Key: "gosession:u-123:idToken", Value: "rotated"}

	awaitMetric(t, c.Metrics(), MetricStorageEventMatched, 1)
	if !c.Snapshot().Authenticated() {
		t.Fatal("a write event must not revoke the session")
	}
}

func TestStorageRemovalWhileUnauthenticatedIsNoOp(t *testing.T) {
	p := authedProvider(t)
	p.tokensErr = errors.New("no current session")
	storage := make(chan credstore.Event, 4)

	c, _ := newTestClient(t, p)
	if err := c.CheckStatus(context.Background()); err != nil {
		t.Fatalf("CheckStatus failed: %v", err)
	}
	s := NewSynchronizer(c, SyncConfig{Storage: storage})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Close()

	storage <- credstore.Event{Key: "gosession:u-123:idToken", Removed: true}

	awaitMetric(t, c.Metrics(), MetricStorageEventMatched, 1)
	if got := c.Metrics().Value(MetricForcedRevocation); got != 0 {
		t.Fatalf("expected no forced revocation while signed out, got %d", got)
	}
}

func TestVisibilityTriggersExactlyOneCheck(t *testing.T) {
	p := authedProvider(t)
	visibility := make(chan struct{}, 1)
	c := newSyncedClient(t, p, SyncConfig{Visibility: visibility})

	visibility <- struct{}{}

	awaitMetric(t, c.Metrics(), MetricVisibilityCheck, 1)
	deadline := time.Now().Add(2 * time.Second)
	for p.fetchCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	if got := p.fetchCount(); got != 2 {
		t.Fatalf("expected exactly one catch-up check, got %d total fetches", got)
	}

	// No further checks without further signals.
	time.Sleep(30 * time.Millisecond)
	if got := p.fetchCount(); got != 2 {
		t.Fatalf("expected no extra checks, got %d total fetches", got)
	}
}

func TestVisibilityDebounceSuppressesBursts(t *testing.T) {
	p := authedProvider(t)
	visibility := make(chan struct{}, 2)

	cfg := DefaultConfig()
	cfg.Sync.VisibilityDebounce = time.Hour

	c, err := New().WithConfig(cfg).WithProvider(p).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	if err := c.CheckStatus(context.Background()); err != nil {
		t.Fatalf("CheckStatus failed: %v", err)
	}

	s := NewSynchronizer(c, SyncConfig{Visibility: visibility})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	// The first signal checks; the second lands inside the window.
	visibility <- struct{}{}
	visibility <- struct{}{}

	awaitMetric(t, c.Metrics(), MetricVisibilityDebounced, 1)
	if got := c.Metrics().Value(MetricVisibilityCheck); got != 1 {
		t.Fatalf("expected 1 visibility check, got %d", got)
	}
	if got := p.fetchCount(); got != 2 {
		t.Fatalf("expected 1 initial + 1 visibility fetch, got %d", got)
	}
}

func TestVisibilityDebounceOffChecksEverySignal(t *testing.T) {
	p := authedProvider(t)
	visibility := make(chan struct{}, 2)
	c := newSyncedClient(t, p, SyncConfig{Visibility: visibility})

	visibility <- struct{}{}
	visibility <- struct{}{}

	awaitMetric(t, c.Metrics(), MetricVisibilityCheck, 2)
	if got := c.Metrics().Value(MetricVisibilityDebounced); got != 0 {
		t.Fatalf("expected no debounced signals by default, got %d", got)
	}
}

func TestUnauthorizedSignalRecordsSessionExpired(t *testing.T) {
	p := authedProvider(t)
	unauthorized := make(chan struct{}, 1)
	c := newSyncedClient(t, p, SyncConfig{Unauthorized: unauthorized})

	unauthorized <- struct{}{}

	snap := awaitState(t, c, StateUnauthenticated)
	if !errors.Is(snap.Err, ErrSessionExpired) {
		t.Fatalf("an active rejection must record a session-expired error, got %v", snap.Err)
	}
	if got := c.Metrics().Value(MetricSessionExpiredSignal); got != 1 {
		t.Fatalf("expected 1 session-expired signal, got %d", got)
	}
	// Forced drop, not a round-trip.
	if got := p.fetchCount(); got != 1 {
		t.Fatalf("expected no extra provider calls, got %d", got)
	}
}

func TestSynchronizerStartIsExclusive(t *testing.T) {
	c, _ := newTestClient(t, authedProvider(t))
	s := NewSynchronizer(c, SyncConfig{Visibility: make(chan struct{})})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.Start(context.Background()); !errors.Is(err, ErrSyncRunning) {
		t.Fatalf("expected ErrSyncRunning, got %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got %v", err)
	}

	// A released synchronizer can be mounted again.
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestSynchronizerCloseStopsObserving(t *testing.T) {
	p := authedProvider(t)
	visibility := make(chan struct{}, 1)

	c, _ := newTestClient(t, p)
	if err := c.CheckStatus(context.Background()); err != nil {
		t.Fatalf("CheckStatus failed: %v", err)
	}

	s := NewSynchronizer(c, SyncConfig{Visibility: visibility})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Signals after teardown go nowhere.
	visibility <- struct{}{}
	time.Sleep(30 * time.Millisecond)
	if got := p.fetchCount(); got != 1 {
		t.Fatalf("expected no checks after Close, got %d fetches", got)
	}
}

func TestSynchronizerSurvivesClosedSignalChannel(t *testing.T) {
	p := authedProvider(t)
	storage := make(chan credstore.Event)
	visibility := make(chan struct{}, 1)
	c := newSyncedClient(t, p, SyncConfig{
		Storage:    storage,
		Visibility: visibility,
	})

	// A producer going away closes its channel; the synchronizer parks it
	// and keeps serving the other signals.
	close(storage)

	visibility <- struct{}{}
	awaitMetric(t, c.Metrics(), MetricVisibilityCheck, 1)
}

func TestCrossClientSignOutThroughSharedStore(t *testing.T) {
	ctx := context.Background()
	store := credstore.NewMemoryStore()
	defer store.Close()

	const credKey = "gosession:u-123:idToken"
	if err := store.Set(ctx, credKey, "opaque-session-blob"); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	// Client B observes the shared store the way a second tab would.
	pB := authedProvider(t)
	events, err := store.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	cB := newSyncedClient(t, pB, SyncConfig{
		Storage:   events,
		KeyFilter: PrefixKeyFilter("gosession:"),
	})

	// Client A signs out; its provider clears the shared credential.
	pA := authedProvider(t)
	pA.signOutHook = func() {
		_ = store.Delete(ctx, credKey)
	}
	cA, _ := newTestClient(t, pA)
	if err := cA.CheckStatus(ctx); err != nil {
		t.Fatalf("CheckStatus failed: %v", err)
	}
	if err := cA.SignOut(ctx); err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}

	// B sees the removal and revokes its own trust without a round-trip.
	snap := awaitState(t, cB, StateUnauthenticated)
	if snap.Err != nil {
		t.Fatalf("expected clean revocation, got %v", snap.Err)
	}
	if got := pB.fetchCount(); got != 1 {
		t.Fatalf("expected no extra provider calls on B, got %d", got)
	}
}
