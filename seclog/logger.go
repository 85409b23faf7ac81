package seclog

import (
	"context"
	"strings"
	"time"
)

/*
==========================================
LOGGER
==========================================
*/

// Config assembles a logger. Zero fields get safe defaults: a nil Sink
// discards records and a nil Policy classifies with the defaults.
type Config struct {
	// Sink receives every record.
	Sink Sink

	// AuthSink, when set, receives auth event records instead of Sink.
	AuthSink Sink

	// Policy classifies sensitive fields and values.
	Policy *Policy

	// MinLevel drops records below this severity. Auth events are exempt.
	MinLevel Level
}

// Logger emits redacted records. There is no path around the policy: every
// method redacts its fields before the record reaches a sink.
type Logger struct {
	policy   *Policy
	sink     Sink
	authSink Sink
	minLevel Level
}

// New builds a logger from cfg.
func New(cfg Config) *Logger {
	sink := cfg.Sink
	if sink == nil {
		sink = NoOpSink{}
	}
	authSink := cfg.AuthSink
	if authSink == nil {
		authSink = sink
	}
	policy := cfg.Policy
	if policy == nil {
		policy = NewPolicy(PolicyConfig{})
	}
	return &Logger{
		policy:   policy,
		sink:     sink,
		authSink: authSink,
		minLevel: cfg.MinLevel,
	}
}

// Policy exposes the classification policy in use.
func (l *Logger) Policy() *Policy {
	if l == nil {
		return nil
	}
	return l.policy
}

// Debug emits a debug record.
func (l *Logger) Debug(scope, msg string, fields map[string]any) {
	l.log(LevelDebug, scope, msg, nil, fields)
}

// Info emits an info record.
func (l *Logger) Info(scope, msg string, fields map[string]any) {
	l.log(LevelInfo, scope, msg, nil, fields)
}

// Warn emits a warning record.
func (l *Logger) Warn(scope, msg string, fields map[string]any) {
	l.log(LevelWarn, scope, msg, nil, fields)
}

// Error emits an error record. The error text goes through the same value
// classification as field strings, so foreign errors carrying token
// material do not leak.
func (l *Logger) Error(scope, msg string, err error, fields map[string]any) {
	l.log(LevelError, scope, msg, err, fields)
}

// AuthEvent emits a lifecycle event such as "signIn_success". Auth events
// ignore MinLevel and route to AuthSink when one is configured.
func (l *Logger) AuthEvent(name string, fields map[string]any) {
	if l == nil {
		return
	}
	rec := Record{
		Time:      time.Now().UTC(),
		Level:     LevelInfo,
		Scope:     "auth",
		Message:   name,
		AuthEvent: true,
		Context:   l.redactFields(fields),
	}
	l.authSink.Emit(context.Background(), rec)
}

func (l *Logger) log(lvl Level, scope, msg string, err error, fields map[string]any) {
	if l == nil || lvl < l.minLevel {
		return
	}
	rec := Record{
		Time:    time.Now().UTC(),
		Level:   lvl,
		Scope:   scope,
		Message: msg,
		Context: l.redactFields(fields),
	}
	if err != nil {
		rec.Err = l.errorText(err)
	}
	l.sink.Emit(context.Background(), rec)
}

func (l *Logger) redactFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return nil
	}
	red := l.policy.Redact(fields)
	if m, ok := red.(map[string]any); ok {
		return m
	}
	return map[string]any{"context": red}
}

// errorText flattens an error for the record, keeping it single-line and
// replacing token-shaped messages wholesale.
func (l *Logger) errorText(err error) string {
	s := sanitizeText(err.Error())
	if tokenShaped(s) {
		return Redacted
	}
	return s
}

// sanitizeText collapses control characters so records stay on one line in
// text sinks.
func sanitizeText(s string) string {
	clean := true
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 {
			clean = false
			break
		}
	}
	if clean {
		return s
	}
	return strings.Map(func(r rune) rune {
		if r < 0x20 {
			return ' '
		}
		return r
	}, s)
}
