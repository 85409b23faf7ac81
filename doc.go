// Package goSession manages client-side authentication session state against
// a pluggable identity provider, with ordered state snapshots, cross-client
// synchronization over shared credential storage, classified authentication
// errors, and credential-safe structured logging.
//
// The package is designed for concurrent callers: Client methods are safe to
// call from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Client], [Builder], [Config],
// [Synchronizer], and value types (Snapshot, MetricsSnapshot, SignInResult).
// The ordered transition store lives under internal/ and is never exported.
// The seclog, token, and credstore packages stand alone and may be imported
// without the root package.
//
// # What this package must NOT do
//
//   - Emit a password, token, or other credential value on any log path; every
//     record passes the seclog redaction policy first.
//   - Surface raw provider errors to callers or snapshots; failures are
//     collapsed into classified [AuthError] values.
//   - Import any sub-package that re-imports goSession (no import cycles).
//
// # Ordering contract
//
// Every authoritative operation takes a staleness token when it starts. A
// provider round-trip may only commit its outcome while its token is still
// current, so a result that lost to a newer operation is discarded, never
// applied. Subscribers observe committed transitions in apply order.
package goSession
