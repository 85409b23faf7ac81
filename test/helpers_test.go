//go:build integration
// +build integration

package test

import (
	"context"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/credstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newIntegrationStore(t *testing.T) (*credstore.RedisStore, *redis.Client, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store, err := credstore.NewRedisStore(credstore.RedisConfig{Client: rdb, Prefix: "gst"})
	if err != nil {
		t.Fatalf("store init failed: %v", err)
	}

	return store, rdb, func() {
		_ = rdb.Close()
		mr.Close()
	}
}

// awaitEvent reads one event from a watch channel or fails the test.
func awaitEvent(t *testing.T, events <-chan credstore.Event) credstore.Event {
	t.Helper()

	select {
	case event, ok := <-events:
		if !ok {
			t.Fatal("watch channel closed while waiting for an event")
		}
		return event
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for a storage event")
	}
	return credstore.Event{}
}

// drainUntilRemoved reads events until one with Removed=true arrives for key.
// Backends may emit intermediate write events first.
func drainUntilRemoved(t *testing.T, events <-chan credstore.Event, key string) credstore.Event {
	t.Helper()

	deadline := time.After(3 * time.Second)
	for {
		select {
		case event, ok := <-events:
			if !ok {
				t.Fatal("watch channel closed before the removal event")
			}
			if event.Key == key && event.Removed {
				return event
			}
		case <-deadline:
			t.Fatalf("timed out waiting for removal of %q", key)
		}
	}
}

// mustSet writes a key and fails the test on error.
func mustSet(t *testing.T, ctx context.Context, store credstore.Store, key, value string) {
	t.Helper()
	if err := store.Set(ctx, key, value); err != nil {
		t.Fatalf("Set(%q) failed: %v", key, err)
	}
}
