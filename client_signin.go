package goSession

import (
	"context"

	"github.com/MrEthical07/goSession/internal/state"
)

/*
==========================================
SIGN IN
==========================================
*/

// SignIn authenticates username and password against the provider.
//
// Three outcomes:
//   - The provider completes: the same operation re-runs the status check to
//     populate the identity, and the result reports Done.
//   - The provider asks for another step (MFA, new password): the snapshot
//     records a generic additional-steps error, the result carries the step
//     name and the returned error is nil. A pending step is a prompt for the
//     caller, not a failure.
//   - The provider fails: the cause is classified, recorded on the snapshot
//     and returned. The raw password never reaches a log record on any path.
func (c *Client) SignIn(ctx context.Context, username, password string) (SignInResult, error) {
	if c.closed.Load() {
		return SignInResult{}, ErrClientClosed
	}

	tok := c.store.Begin()
	c.authEvent(ctx, "signIn_attempt", map[string]any{
		"username": username,
	})

	res, err := c.provider.SignIn(ctx, username, password)
	if err != nil {
		classified := c.classifier.Classify(err)
		c.metrics.Inc(MetricSignInFailure)
		c.logger.Error(scopeSession, "sign-in failed", classified, opContext(ctx, map[string]any{
			"kind": classified.Kind().String(),
		}))
		c.authEvent(ctx, "signIn_failure", map[string]any{
			"username": username,
			"kind":     classified.Kind().String(),
		})
		if !c.store.Commit(tok, func(s *state.Snapshot) {
			s.State = state.AuthError
			s.Identity = nil
			s.Err = classified
			s.CheckedAt = c.clock()
		}) {
			c.discardStale("sign-in")
		}
		// The caller still gets the error when the commit lost to a newer
		// operation; only the snapshot belongs to the winner.
		return SignInResult{}, classified
	}

	if !res.Done {
		c.metrics.Inc(MetricSignInStepRequired)
		c.authEvent(ctx, "signIn_stepRequired", map[string]any{
			"username": username,
			"step":     res.NextStep,
		})
		if !c.store.Commit(tok, func(s *state.Snapshot) {
			s.State = state.AuthError
			s.Identity = nil
			s.Err = ErrAdditionalSteps
			s.CheckedAt = c.clock()
		}) {
			c.discardStale("sign-in")
		}
		return res, nil
	}

	c.metrics.Inc(MetricSignInSuccess)
	c.authEvent(ctx, "signIn_success", map[string]any{
		"username": username,
	})
	c.runCheck(ctx, tok)
	return res, nil
}
