// Package seclog is the redacting log layer used by goSession.
//
// Every record passes through policy-driven redaction before any sink sees
// it: field names matching the sensitive policy, token-shaped string values,
// and anything nested beneath them are replaced with the [Redacted] marker.
// There is no unredacted entry point.
//
// Sinks are pluggable: implement [Sink] and hand it to [New], or wrap it in
// an [AsyncSink] for buffered delivery off the caller's goroutine.
package seclog
