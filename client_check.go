package goSession

import (
	"context"

	"github.com/MrEthical07/goSession/internal/state"
	"github.com/MrEthical07/goSession/token"
)

/*
==========================================
STATUS CHECK
==========================================
*/

// CheckStatus asks the provider whether a session exists and applies the
// answer. The snapshot moves to Checking immediately; subscribers see the
// resolved state once the round-trip completes. A provider that reports no
// session resolves to Unauthenticated, which is an answer, not a failure,
// so CheckStatus returns nil for it.
func (c *Client) CheckStatus(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	tok := c.store.Begin()
	c.runCheck(ctx, tok)
	return nil
}

// Refresh re-runs the authoritative status check. Providers refresh expired
// tokens inside FetchSession, so a refresh and a status check are the same
// round-trip.
func (c *Client) Refresh(ctx context.Context) error {
	return c.CheckStatus(ctx)
}

// runCheck performs the provider round-trip for the operation named by tok
// and commits its outcome. Callers that already hold a token (sign-in) reuse
// it here so the whole flow counts as one operation.
func (c *Client) runCheck(ctx context.Context, tok uint64) {
	start := c.clock()
	tokens, tokensErr := c.provider.FetchSession(ctx)
	var (
		user    ProviderUser
		userErr error
	)
	if tokensErr == nil {
		user, userErr = c.provider.CurrentUser(ctx)
	}
	c.metrics.Observe(MetricCheckLatency, c.clock().Sub(start))

	if tokensErr != nil || userErr != nil {
		cause := tokensErr
		if cause == nil {
			cause = userErr
		}
		// Only the classified kind is recorded. Raw provider text can embed
		// anything, including the credential that failed.
		c.logger.Debug(scopeSession, "status check resolved unauthenticated", opContext(ctx, map[string]any{
			"cause": c.classifier.Classify(cause).Kind().String(),
		}))
		if !c.store.Commit(tok, func(s *state.Snapshot) {
			s.State = state.Unauthenticated
			s.Identity = nil
			s.Err = nil
			s.CheckedAt = c.clock()
		}) {
			c.discardStale("status check")
			return
		}
		c.metrics.Inc(MetricCheckUnauthenticated)
		return
	}

	identity := buildIdentity(user, tokens)
	if !c.store.Commit(tok, func(s *state.Snapshot) {
		s.State = state.Authenticated
		s.Identity = identity
		s.Err = nil
		s.CheckedAt = c.clock()
	}) {
		c.discardStale("status check")
		return
	}
	c.metrics.Inc(MetricCheckAuthenticated)
	c.logger.Debug(scopeSession, "status check resolved authenticated", opContext(ctx, map[string]any{
		"user_id": identity.ID,
	}))
}

func (c *Client) discardStale(op string) {
	c.metrics.Inc(MetricStaleResultDiscarded)
	c.logger.Debug(scopeSession, "stale result discarded", map[string]any{
		"op": op,
	})
}

// buildIdentity merges the provider's user record with whatever display
// claims the session's tokens carry. The ID token wins over the access token
// because providers put profile claims there.
func buildIdentity(user ProviderUser, tokens SessionTokens) *state.Identity {
	id := &state.Identity{
		ID:       user.ID,
		Username: user.Username,
	}
	raw := tokens.IDToken
	if raw == "" {
		raw = tokens.AccessToken
	}
	if raw == "" {
		return id
	}
	claims, err := token.Decode(raw)
	if err != nil {
		return id
	}
	if id.ID == "" {
		id.ID = claims.Subject
	}
	if id.Username == "" {
		id.Username = claims.Username
	}
	id.Email = claims.Email
	id.GivenName = claims.GivenName
	id.FamilyName = claims.FamilyName
	return id
}
