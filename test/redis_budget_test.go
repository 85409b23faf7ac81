//go:build integration
// +build integration

package test

import (
	"context"
	"net"
	"sync/atomic"
	"testing"

	"github.com/MrEthical07/goSession/credstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// cmdCounter is a go-redis Hook that counts the number of Redis round-trips
// (individual commands and pipeline calls).
type cmdCounter struct {
	commands  atomic.Int64
	pipelines atomic.Int64
}

func (h *cmdCounter) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *cmdCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.commands.Add(1)
		return next(ctx, cmd)
	}
}

func (h *cmdCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		// Each pipeline call is one network round-trip regardless of command count.
		h.pipelines.Add(1)
		h.commands.Add(int64(len(cmds)))
		return next(ctx, cmds)
	}
}

func (h *cmdCounter) Reset() {
	h.commands.Store(0)
	h.pipelines.Store(0)
}

func (h *cmdCounter) Commands() int64  { return h.commands.Load() }
func (h *cmdCounter) Pipelines() int64 { return h.pipelines.Load() }

// newCountedStore creates a credstore.RedisStore backed by miniredis with a
// cmdCounter hook installed. Reset the counter before each measured operation.
func newCountedStore(t *testing.T) (*credstore.RedisStore, *redis.Client, *cmdCounter, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	counter := &cmdCounter{}
	rdb.AddHook(counter)

	// Warm the connection: go-redis may emit extra commands on first use
	// (handshake, AUTH, SELECT, CLIENT SETNAME, etc.). Issuing a PING
	// before measuring avoids counting that noise.
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("warmup ping: %v", err)
	}

	// Reset after warmup so budget counts start clean.
	counter.Reset()

	store, err := credstore.NewRedisStore(credstore.RedisConfig{Client: rdb, Prefix: "gst"})
	if err != nil {
		t.Fatalf("store init: %v", err)
	}
	return store, rdb, counter, func() {
		_ = rdb.Close()
		mr.Close()
	}
}

// TestStoreGetRedisBudget verifies that a credential read uses exactly one
// Redis command (GET).
func TestStoreGetRedisBudget(t *testing.T) {
	store, _, counter, cleanup := newCountedStore(t)
	defer cleanup()

	ctx := context.Background()
	mustSet(t, ctx, store, "budget:tokens", "tok-1")

	counter.Reset()

	if _, err := store.Get(ctx, "budget:tokens"); err != nil {
		t.Fatalf("get: %v", err)
	}

	cmds := counter.Commands()
	if cmds > 1 {
		t.Errorf("Store.Get used %d Redis commands; budget is ≤ 1 (GET)", cmds)
	}
	t.Logf("Store.Get: %d commands, %d pipelines", cmds, counter.Pipelines())
}

// TestStoreSetRedisBudget verifies that a credential write stays within
// 3 Redis commands (GET previous value + SET + PUBLISH).
func TestStoreSetRedisBudget(t *testing.T) {
	store, _, counter, cleanup := newCountedStore(t)
	defer cleanup()

	ctx := context.Background()

	counter.Reset()

	mustSet(t, ctx, store, "budget:tokens", "tok-1")

	cmds := counter.Commands()
	if cmds > 3 {
		t.Errorf("Store.Set used %d Redis commands; budget is ≤ 3 (GET+SET+PUBLISH)", cmds)
	}
	t.Logf("Store.Set: %d commands, %d pipelines", cmds, counter.Pipelines())
}

// TestStoreDeleteRedisBudget verifies that removing a stored credential uses
// at most 2 Redis commands (GETDEL + PUBLISH).
func TestStoreDeleteRedisBudget(t *testing.T) {
	store, _, counter, cleanup := newCountedStore(t)
	defer cleanup()

	ctx := context.Background()
	mustSet(t, ctx, store, "budget:tokens", "tok-1")

	counter.Reset()

	if err := store.Delete(ctx, "budget:tokens"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	cmds := counter.Commands()
	if cmds > 2 {
		t.Errorf("Store.Delete used %d Redis commands; budget is ≤ 2 (GETDEL+PUBLISH)", cmds)
	}
	t.Logf("Store.Delete: %d commands, %d pipelines", cmds, counter.Pipelines())
}

// TestStoreDeleteMissingRedisBudget verifies that deleting an absent key stops
// after the GETDEL. No event is published when nothing was removed.
func TestStoreDeleteMissingRedisBudget(t *testing.T) {
	store, _, counter, cleanup := newCountedStore(t)
	defer cleanup()

	ctx := context.Background()

	counter.Reset()

	if err := store.Delete(ctx, "budget:absent"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}

	cmds := counter.Commands()
	if cmds > 1 {
		t.Errorf("Store.Delete (missing key) used %d Redis commands; budget is ≤ 1 (GETDEL)", cmds)
	}
	t.Logf("Store.Delete (missing key): %d commands, %d pipelines", cmds, counter.Pipelines())
}

// TestStoreKeysRedisBudget verifies that a prefix listing is a single command.
func TestStoreKeysRedisBudget(t *testing.T) {
	store, _, counter, cleanup := newCountedStore(t)
	defer cleanup()

	ctx := context.Background()
	mustSet(t, ctx, store, "u1:tokens", "tok-1")
	mustSet(t, ctx, store, "u2:tokens", "tok-2")

	counter.Reset()

	keys, err := store.Keys(ctx, "u1:")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 1 {
		t.Errorf("got %d keys, want 1", len(keys))
	}

	cmds := counter.Commands()
	if cmds > 1 {
		t.Errorf("Store.Keys used %d Redis commands; budget is ≤ 1 (KEYS)", cmds)
	}
	t.Logf("Store.Keys: %d commands, %d pipelines", cmds, counter.Pipelines())
}
