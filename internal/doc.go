// Package internal contains machinery that is intentionally private to
// goSession.
//
// # Sub-packages
//
//   - state — session snapshot store with staleness-token ordering and
//     subscriber fan-out
//
// # What this package must NOT do
//
//   - Export types that appear in the public goSession API (the root package
//     re-exports what callers need through type aliases).
//   - Be imported by any package outside the goSession module.
package internal
