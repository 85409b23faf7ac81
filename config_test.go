package goSession

import (
	"testing"
	"time"

	"github.com/MrEthical07/goSession/seclog"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults untouched",
			mutate:    func(c *Config) {},
			wantValid: true,
		},
		{
			name: "auth event buffer negative",
			mutate: func(c *Config) {
				c.Logging.AuthEventBuffer = -1
			},
			wantValid: false,
		},
		{
			name: "log level unknown",
			mutate: func(c *Config) {
				c.Logging.MinLevel = seclog.Level(42)
			},
			wantValid: false,
		},
		{
			name: "redaction depth at upper bound",
			mutate: func(c *Config) {
				c.Redaction.MaxDepth = 16
			},
			wantValid: true,
		},
		{
			name: "redaction depth too deep",
			mutate: func(c *Config) {
				c.Redaction.MaxDepth = 17
			},
			wantValid: false,
		},
		{
			name: "redaction depth negative",
			mutate: func(c *Config) {
				c.Redaction.MaxDepth = -1
			},
			wantValid: false,
		},
		{
			name: "extra redaction field empty",
			mutate: func(c *Config) {
				c.Redaction.ExtraFields = []string{"ssn", ""}
			},
			wantValid: false,
		},
		{
			name: "override code empty",
			mutate: func(c *Config) {
				c.Classifier.CodeOverrides = map[string]ErrorKind{"": KindUnknown}
			},
			wantValid: false,
		},
		{
			name: "override kind unknown",
			mutate: func(c *Config) {
				c.Classifier.CodeOverrides = map[string]ErrorKind{"LockedException": ErrorKind(99)}
			},
			wantValid: false,
		},
		{
			name: "override wellformed",
			mutate: func(c *Config) {
				c.Classifier.CodeOverrides = map[string]ErrorKind{"LockedException": KindAdditionalSteps}
			},
			wantValid: true,
		},
		{
			name: "visibility debounce negative",
			mutate: func(c *Config) {
				c.Sync.VisibilityDebounce = -time.Second
			},
			wantValid: false,
		},
		{
			name: "visibility debounce set",
			mutate: func(c *Config) {
				c.Sync.VisibilityDebounce = 30 * time.Second
			},
			wantValid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatal("expected validation error, got nil")
			}
		})
	}
}

func TestCloneConfigDetaches(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Redaction.ExtraFields = []string{"ssn"}
	cfg.Classifier.CodeOverrides = map[string]ErrorKind{"LockedException": KindAdditionalSteps}

	clone := cloneConfig(cfg)
	cfg.Redaction.ExtraFields[0] = "changed"
	cfg.Classifier.CodeOverrides["LockedException"] = KindUnknown

	if clone.Redaction.ExtraFields[0] != "ssn" {
		t.Error("clone shares the extra fields slice")
	}
	if clone.Classifier.CodeOverrides["LockedException"] != KindAdditionalSteps {
		t.Error("clone shares the overrides map")
	}
}
