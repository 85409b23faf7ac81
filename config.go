package goSession

import (
	"errors"
	"time"

	"github.com/MrEthical07/goSession/seclog"
)

// Config is set once at build time and treated as immutable afterwards.
// Zero values mean "use the default" wherever a default exists.
type Config struct {
	Logging    LoggingConfig
	Redaction  RedactionConfig
	Classifier ClassifierConfig
	Sync       SynchronizerConfig
	Metrics    MetricsConfig
}

/*
====================================
LOGGING CONFIG
====================================
*/

// LoggingConfig controls the redacting logger and the buffered auth event
// pipeline that Build wires behind it.
type LoggingConfig struct {
	// MinLevel drops records below this severity. Auth events are exempt.
	MinLevel seclog.Level

	// AuthEventBuffer is the async auth event queue capacity.
	AuthEventBuffer int

	// AuthEventDropIfFull drops auth events instead of blocking when the
	// queue is full. Drops are counted in the metrics snapshot.
	AuthEventDropIfFull bool
}

/*
====================================
REDACTION CONFIG
====================================
*/

// RedactionConfig extends the sensitive-field policy. The defaults can be
// extended, never shrunk.
type RedactionConfig struct {
	// ExtraFields are additional case-insensitive field-name substrings.
	ExtraFields []string

	// MaxDepth bounds the redaction walk, 1 to 16. 0 means the default (8).
	MaxDepth int
}

/*
====================================
CLASSIFIER CONFIG
====================================
*/

// ClassifierConfig extends the provider error code table.
type ClassifierConfig struct {
	// CodeOverrides maps provider codes to kinds; entries win over the
	// built-in table.
	CodeOverrides map[string]ErrorKind
}

/*
====================================
SYNC CONFIG
====================================
*/

// SynchronizerConfig tunes how a Synchronizer reacts to its signals. The
// signal channels themselves are wired per synchronizer through SyncConfig.
type SynchronizerConfig struct {
	// VisibilityDebounce suppresses visibility-triggered checks arriving
	// within this window of the previous one, so a flapping foreground
	// signal cannot hammer the provider. 0 checks on every signal.
	VisibilityDebounce time.Duration
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig toggles instrumentation.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULTS
====================================
*/

// DefaultConfig returns the configuration Build starts from.
func DefaultConfig() Config {
	return Config{
		Logging: LoggingConfig{
			MinLevel:            seclog.LevelInfo,
			AuthEventBuffer:     256,
			AuthEventDropIfFull: true,
		},
		Redaction: RedactionConfig{
			MaxDepth: 8,
		},
		Classifier: ClassifierConfig{},
		Sync:       SynchronizerConfig{},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Redaction.ExtraFields = cloneStrings(cfg.Redaction.ExtraFields)
	out.Classifier.CodeOverrides = cloneOverrides(cfg.Classifier.CodeOverrides)
	return out
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneOverrides(in map[string]ErrorKind) map[string]ErrorKind {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]ErrorKind, len(in))
	for code, kind := range in {
		out[code] = kind
	}
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	// Logging
	if c.Logging.AuthEventBuffer < 0 {
		return errors.New("Logging AuthEventBuffer must be >= 0")
	}
	if c.Logging.MinLevel > seclog.LevelError {
		return errors.New("Logging MinLevel is not a known level")
	}

	// Redaction
	if c.Redaction.MaxDepth < 0 || c.Redaction.MaxDepth > 16 {
		return errors.New("Redaction MaxDepth must be between 0 and 16")
	}
	for _, field := range c.Redaction.ExtraFields {
		if field == "" {
			return errors.New("Redaction ExtraFields must not contain empty entries")
		}
	}

	// Classifier
	for code, kind := range c.Classifier.CodeOverrides {
		if code == "" {
			return errors.New("Classifier CodeOverrides must not contain an empty code")
		}
		if kind > KindNetworkUnavailable {
			return errors.New("Classifier CodeOverrides contains an unknown kind")
		}
	}

	// Sync
	if c.Sync.VisibilityDebounce < 0 {
		return errors.New("Sync VisibilityDebounce must be >= 0")
	}

	return nil
}
