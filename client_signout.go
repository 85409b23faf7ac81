package goSession

import (
	"context"

	"github.com/MrEthical07/goSession/internal/state"
)

/*
==========================================
SIGN OUT / FORCED REVOCATION
==========================================
*/

// SignOut ends the session. Local trust is dropped even when the provider
// call fails: a failed sign-out must never leave the client believing it is
// still signed in. A provider error is classified, recorded on the snapshot
// and returned so callers can display it.
func (c *Client) SignOut(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClientClosed
	}

	tok := c.store.BeginHold()
	c.authEvent(ctx, "signOut_attempt", nil)

	err := c.provider.SignOut(ctx)

	var classified *AuthError
	if err != nil {
		classified = c.classifier.Classify(err)
	}
	if !c.store.Commit(tok, func(s *state.Snapshot) {
		s.State = state.Unauthenticated
		s.Identity = nil
		s.Err = nil
		if classified != nil {
			s.Err = classified
		}
		s.CheckedAt = c.clock()
	}) {
		c.discardStale("sign-out")
	}

	if classified != nil {
		c.metrics.Inc(MetricSignOutFailure)
		c.logger.Error(scopeSession, "sign-out failed, local session dropped", classified, opContext(ctx, map[string]any{
			"kind": classified.Kind().String(),
		}))
		c.authEvent(ctx, "signOut_failure", map[string]any{
			"kind": classified.Kind().String(),
		})
		return classified
	}

	c.metrics.Inc(MetricSignOutSuccess)
	c.authEvent(ctx, "signOut_success", nil)
	return nil
}

// forceUnauthenticated drops the session without a provider round-trip and
// invalidates every in-flight operation. Only trusted same-process signals
// reach this path: another tab removing the stored credential, or the API
// layer reporting an active rejection. cause is recorded on the snapshot
// when the revocation should be explained to the user; passive removal
// passes nil.
func (c *Client) forceUnauthenticated(ctx context.Context, reason string, cause *AuthError) {
	if c.closed.Load() {
		return
	}

	c.store.Force(func(s *state.Snapshot) {
		s.State = state.Unauthenticated
		s.Identity = nil
		s.Err = nil
		if cause != nil {
			s.Err = cause
		}
		s.CheckedAt = c.clock()
	})

	c.metrics.Inc(MetricForcedRevocation)
	if cause != nil && cause.Kind() == KindSessionExpired {
		c.metrics.Inc(MetricSessionExpiredSignal)
	}
	c.logger.Warn(scopeSession, "session revoked by external signal", map[string]any{
		"reason": reason,
	})
	c.authEvent(ctx, "session_revoked", map[string]any{
		"reason": reason,
	})
}
