// Package credstore is shared credential storage with change notification.
// It is the transport behind cross-process session synchronization: every
// mutation produces an Event that watchers in other clients or processes
// consume, the way browser tabs observe each other's storage writes.
package credstore

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var (
	// ErrNotFound is returned by Get for a missing key.
	ErrNotFound = errors.New("credstore: key not found")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("credstore: store closed")
	// ErrUnavailable wraps backend transport failures.
	ErrUnavailable = errors.New("credstore: backend unavailable")
)

// Event describes one observed mutation.
type Event struct {
	Key      string `json:"key"`
	Value    string `json:"value,omitempty"`
	OldValue string `json:"old_value,omitempty"`
	Removed  bool   `json:"removed,omitempty"`
}

// Store is a flat string keyspace with change notification. Implementations
// must be safe for concurrent use. Watchers receive every mutation,
// including their own writer's; consumers are expected to filter.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Watch(ctx context.Context) (<-chan Event, error)
	Close() error
}

// watchBuffer is the per-watcher event capacity. A watcher that falls this
// far behind starts losing events rather than blocking writers.
const watchBuffer = 64

/*
==========================================
MEMORY STORE
==========================================
*/

// MemoryStore is the in-process Store, used by tests and single-process
// setups.
type MemoryStore struct {
	mu       sync.Mutex
	data     map[string]string
	watchers map[uint64]chan Event
	nextID   uint64
	closed   bool
	done     chan struct{}
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:     make(map[string]string),
		watchers: make(map[uint64]chan Event),
		done:     make(chan struct{}),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}
	value, ok := s.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	old := s.data[key]
	s.data[key] = value
	s.broadcast(Event{Key: key, Value: value, OldValue: old})
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	old, ok := s.data[key]
	if ok {
		delete(s.data, key)
		s.broadcast(Event{Key: key, OldValue: old, Removed: true})
	}
	return nil
}

func (s *MemoryStore) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	var keys []string
	for key := range s.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Watch registers a listener for every future mutation. The channel closes
// when ctx is done or the store closes.
func (s *MemoryStore) Watch(ctx context.Context) (<-chan Event, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.nextID++
	id := s.nextID
	ch := make(chan Event, watchBuffer)
	s.watchers[id] = ch
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-s.done:
		}
		s.mu.Lock()
		if existing, ok := s.watchers[id]; ok {
			delete(s.watchers, id)
			close(existing)
		}
		s.mu.Unlock()
	}()

	return ch, nil
}

// Close drops all data and closes every watcher channel.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	for id, ch := range s.watchers {
		delete(s.watchers, id)
		close(ch)
	}
	s.data = nil
	return nil
}

// broadcast is called with the lock held. Sends never block: a full watcher
// loses the event instead of stalling the writer.
func (s *MemoryStore) broadcast(event Event) {
	for _, ch := range s.watchers {
		select {
		case ch <- event:
		default:
		}
	}
}
