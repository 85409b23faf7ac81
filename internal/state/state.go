// Package state holds the session snapshot and the staleness-token store
// that serializes every write to it.
package state

import (
	"sync"
	"time"
)

// State is the session lifecycle phase.
type State uint8

const (
	Unauthenticated State = iota
	Checking
	Authenticated
	AuthError
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Checking:
		return "checking"
	case Authenticated:
		return "authenticated"
	case AuthError:
		return "error"
	default:
		return "invalid"
	}
}

// Identity is the signed-in user as the provider reports it, with display
// fields enriched from ID token claims when available.
type Identity struct {
	ID         string
	Username   string
	Email      string
	GivenName  string
	FamilyName string
}

// Snapshot is one observed value of the session. Snapshots are plain
// values; holders never share mutable state with the store.
type Snapshot struct {
	State    State
	Identity *Identity

	// Err is the classified failure recorded on the session, nil outside
	// the AuthError state and during sign-out failures.
	Err error

	// Loading is true while an authoritative provider round-trip is
	// outstanding.
	Loading bool

	// CheckedAt is when the last authoritative result was applied.
	CheckedAt time.Time
}

// Authenticated reports whether the snapshot carries a usable identity.
func (s Snapshot) Authenticated() bool {
	return s.State == Authenticated && s.Identity != nil
}

func (s Snapshot) clone() Snapshot {
	if s.Identity != nil {
		id := *s.Identity
		s.Identity = &id
	}
	return s
}

type subscriber struct {
	id uint64
	fn func(Snapshot)
}

// Store serializes session transitions and fans applied snapshots out to
// subscribers. A monotonically increasing sequence stamps every
// authoritative operation; commits presenting a superseded token are
// refused, which is what keeps slow round-trips from clobbering newer
// results.
type Store struct {
	mu     sync.Mutex
	seq    uint64
	snap   Snapshot
	subs   []subscriber
	nextID uint64
}

// NewStore starts in Checking with loading set: a fresh client trusts
// nothing until its first status check resolves.
func NewStore() *Store {
	return &Store{snap: Snapshot{State: Checking, Loading: true}}
}

// Snapshot returns a copy of the current value.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.clone()
}

// Begin stamps a new authoritative operation: state moves to Checking,
// loading is set and any previous error is cleared. The identity is kept so
// observers do not flash to signed-out during a re-check. The returned token
// must be presented to Commit.
func (s *Store) Begin() uint64 {
	s.mu.Lock()
	s.seq++
	token := s.seq
	s.snap.State = Checking
	s.snap.Loading = true
	s.snap.Err = nil
	subs, snap := s.applied()
	s.mu.Unlock()

	notify(subs, snap)
	return token
}

// BeginHold stamps a new operation without leaving the current state, for
// operations such as sign-out where the old identity stays visible until
// the round-trip resolves.
func (s *Store) BeginHold() uint64 {
	s.mu.Lock()
	s.seq++
	token := s.seq
	s.snap.Loading = true
	subs, snap := s.applied()
	s.mu.Unlock()

	notify(subs, snap)
	return token
}

// Commit applies fn if token still names the newest operation, clears
// loading and reports whether the result was accepted. A stale token leaves
// the snapshot untouched.
func (s *Store) Commit(token uint64, fn func(*Snapshot)) bool {
	s.mu.Lock()
	if token != s.seq {
		s.mu.Unlock()
		return false
	}
	fn(&s.snap)
	s.snap.Loading = false
	subs, snap := s.applied()
	s.mu.Unlock()

	notify(subs, snap)
	return true
}

// Force applies fn unconditionally and advances the sequence so that every
// in-flight operation goes stale. Used for externally observed revocation.
func (s *Store) Force(fn func(*Snapshot)) {
	s.mu.Lock()
	s.seq++
	fn(&s.snap)
	s.snap.Loading = false
	subs, snap := s.applied()
	s.mu.Unlock()

	notify(subs, snap)
}

// Mutate applies fn without touching the sequence or the loading flag, for
// pure edits such as clearing a displayed error.
func (s *Store) Mutate(fn func(*Snapshot)) {
	s.mu.Lock()
	fn(&s.snap)
	subs, snap := s.applied()
	s.mu.Unlock()

	notify(subs, snap)
}

// Subscribe registers fn for every applied transition, delivered in
// registration order outside the store lock. The returned cancel func is
// idempotent.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// applied captures the subscriber list and a detached snapshot while the
// lock is held, so notification can happen outside it.
func (s *Store) applied() ([]subscriber, Snapshot) {
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	return subs, s.snap
}

func notify(subs []subscriber, snap Snapshot) {
	for _, sub := range subs {
		sub.fn(snap.clone())
	}
}
