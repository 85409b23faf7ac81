package goSession

import (
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/seclog"
)

/*
====================================
CONFIG LINT
====================================
*/

// LintSeverity ranks a lint finding. Severities are ordered, so findings can
// be filtered with a minimum threshold.
type LintSeverity uint8

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// LintWarning is one advisory finding about a valid-but-questionable
// configuration. Code is stable and machine-checkable; Message explains the
// consequence.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintWarnings is the result of a Lint pass.
type LintWarnings []LintWarning

// Codes returns the finding codes in order.
func (ws LintWarnings) Codes() []string {
	codes := make([]string, len(ws))
	for i, w := range ws {
		codes[i] = w.Code
	}
	return codes
}

// BySeverity returns the findings at or above min.
func (ws LintWarnings) BySeverity(min LintSeverity) LintWarnings {
	var out LintWarnings
	for _, w := range ws {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError converts findings at or above min into a single error, or nil when
// none reach the threshold. Useful for refusing to start with a dangerous
// configuration.
func (ws LintWarnings) AsError(min LintSeverity) error {
	flagged := ws.BySeverity(min)
	if len(flagged) == 0 {
		return nil
	}
	parts := make([]string, len(flagged))
	for i, w := range flagged {
		parts[i] = fmt.Sprintf("[%s] %s: %s", w.Severity, w.Code, w.Message)
	}
	return fmt.Errorf("config lint: %s", strings.Join(parts, "; "))
}

// Lint inspects a valid configuration for settings that weaken the library's
// guarantees without making it unusable. Validate rejects broken configs;
// Lint flags legal ones a reviewer should question.
func (c *Config) Lint() LintWarnings {
	var ws LintWarnings

	// Classifier: remapping either collapsed credential code so the two
	// resolve to different kinds reintroduces account enumeration.
	if splitsEnumerationPair(c.Classifier.CodeOverrides) {
		ws = append(ws, LintWarning{
			Code:     "enumeration_split",
			Severity: LintHigh,
			Message:  "CodeOverrides classify unknown-user and wrong-password differently, letting callers probe which accounts exist",
		})
	}

	// Logging
	if !c.Logging.AuthEventDropIfFull {
		ws = append(ws, LintWarning{
			Code:     "auth_events_blocking",
			Severity: LintWarn,
			Message:  "AuthEventDropIfFull is off; a slow auth event sink can stall sign-in and sign-out",
		})
	}
	if c.Logging.AuthEventDropIfFull && c.Logging.AuthEventBuffer > 0 && c.Logging.AuthEventBuffer < 16 {
		ws = append(ws, LintWarning{
			Code:     "auth_event_buffer_small",
			Severity: LintInfo,
			Message:  "AuthEventBuffer under 16 drops events during normal sign-in bursts",
		})
	}
	if c.Logging.MinLevel > seclog.LevelWarn {
		ws = append(ws, LintWarning{
			Code:     "revocation_logs_suppressed",
			Severity: LintWarn,
			Message:  "MinLevel above warn hides forced-revocation records",
		})
	}

	// Redaction
	if c.Redaction.MaxDepth > 0 && c.Redaction.MaxDepth < 4 {
		ws = append(ws, LintWarning{
			Code:     "redaction_depth_shallow",
			Severity: LintInfo,
			Message:  "Redaction MaxDepth under 4 collapses moderately nested context wholesale, losing diagnostic value",
		})
	}

	// Sync
	if c.Sync.VisibilityDebounce > 5*time.Minute {
		ws = append(ws, LintWarning{
			Code:     "visibility_debounce_large",
			Severity: LintWarn,
			Message:  "VisibilityDebounce over 5m leaves returning clients trusting stale sessions",
		})
	}

	// Metrics
	if !c.Metrics.Enabled {
		ws = append(ws, LintWarning{
			Code:     "metrics_disabled",
			Severity: LintInfo,
			Message:  "metrics are off; stale-result discards and forced revocations will be invisible",
		})
	}

	return ws
}

// splitsEnumerationPair reports whether overrides resolve the two collapsed
// credential-failure codes to different kinds.
func splitsEnumerationPair(overrides map[string]ErrorKind) bool {
	if len(overrides) == 0 {
		return false
	}
	resolve := func(code string) ErrorKind {
		if kind, ok := overrides[code]; ok {
			return kind
		}
		return defaultCodeTable[code]
	}
	return resolve("NotAuthorizedException") != resolve("UserNotFoundException")
}
