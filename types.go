package goSession

import (
	"context"
	"time"

	"github.com/MrEthical07/goSession/internal/state"
)

// State is the session lifecycle phase. See the State* constants.
type State = state.State

// Snapshot is one observed value of the session: phase, identity, recorded
// error and loading flag. Snapshots are values and safe to retain.
type Snapshot = state.Snapshot

// Identity describes the signed-in user.
type Identity = state.Identity

const (
	// StateUnauthenticated means no trusted session exists.
	StateUnauthenticated = state.Unauthenticated
	// StateChecking means an authoritative provider round-trip is deciding
	// the session. The previous identity, if any, is still visible.
	StateChecking = state.Checking
	// StateAuthenticated means the provider confirmed a live session.
	StateAuthenticated = state.Authenticated
	// StateAuthError means the last sign-in attempt failed; Snapshot.Err
	// carries the classified failure.
	StateAuthError = state.AuthError
)

// Listener receives a Snapshot copy for every applied transition.
type Listener func(Snapshot)

// ProviderUser is the minimal user record a provider's current-user lookup
// returns. Display attributes come from ID token claims instead.
type ProviderUser struct {
	ID       string
	Username string
}

// SessionTokens is the token material a provider session holds. The client
// never validates these; it only decodes claims for display fields.
type SessionTokens struct {
	AccessToken  string
	IDToken      string
	RefreshToken string
	ExpiresAt    time.Time
}

// SignInResult reports how a sign-in attempt ended. Done means the session
// is established; otherwise NextStep names the pending challenge, for
// example "CONFIRM_SIGN_IN_WITH_SMS_CODE" or "RESET_PASSWORD".
type SignInResult struct {
	Done     bool
	NextStep string
}

// Provider is the interface callers implement to connect goSession to an
// identity provider. Implementations should return *ProviderError with the
// provider's machine code so failures classify correctly; FetchSession is
// expected to refresh tokens internally when the provider supports it.
type Provider interface {
	SignIn(ctx context.Context, username, password string) (SignInResult, error)
	SignOut(ctx context.Context) error
	CurrentUser(ctx context.Context) (ProviderUser, error)
	FetchSession(ctx context.Context) (SessionTokens, error)
}
