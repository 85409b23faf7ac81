package goSession

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/goSession/internal/state"
	"github.com/MrEthical07/goSession/seclog"
)

// Builder assembles a Client. Configure it during initialization and call
// Build once; a Builder is not safe for concurrent use.
type Builder struct {
	config Config

	provider Provider
	logSink  seclog.Sink
	authSink seclog.Sink
	clock    func() time.Time

	built bool
}

// New returns a Builder preloaded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the builder's configuration with a copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithProvider sets the identity provider. Required.
func (b *Builder) WithProvider(p Provider) *Builder {
	b.provider = p
	return b
}

// WithLogSink sets the destination for diagnostic records. Records are
// redacted before they reach the sink; without one, records are discarded.
func (b *Builder) WithLogSink(sink seclog.Sink) *Builder {
	b.logSink = sink
	return b
}

// WithAuthEventSink routes auth lifecycle events to their own sink. Without
// one, auth events share the log sink.
func (b *Builder) WithAuthEventSink(sink seclog.Sink) *Builder {
	b.authSink = sink
	return b
}

// WithClock overrides the time source, for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithMetricsEnabled toggles instrumentation.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the status-check latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and assembles the Client. The first
// snapshot is Checking: a fresh client trusts nothing until CheckStatus
// resolves.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)

	if b.provider == nil {
		return nil, ErrProviderRequired
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// -------- REDACTION POLICY --------
	policy := seclog.NewPolicy(seclog.PolicyConfig{
		ExtraFields: cfg.Redaction.ExtraFields,
		MaxDepth:    cfg.Redaction.MaxDepth,
	})

	// -------- LOG PIPELINE --------
	base := b.logSink
	if base == nil {
		base = seclog.NoOpSink{}
	}
	auth := b.authSink
	if auth == nil {
		auth = base
	}
	authAsync := seclog.NewAsyncSink(seclog.AsyncConfig{
		BufferSize: cfg.Logging.AuthEventBuffer,
		DropIfFull: cfg.Logging.AuthEventDropIfFull,
	}, auth)
	logger := seclog.New(seclog.Config{
		Sink:     base,
		AuthSink: authAsync,
		Policy:   policy,
		MinLevel: cfg.Logging.MinLevel,
	})

	// -------- CLIENT --------
	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	c := &Client{
		cfg:        cfg,
		provider:   b.provider,
		store:      state.NewStore(),
		logger:     logger,
		authAsync:  authAsync,
		classifier: NewClassifier(cfg.Classifier.CodeOverrides),
		metrics:    NewMetrics(cfg.Metrics),
		clock:      clock,
		id:         uuid.NewString()[:8],
	}

	b.built = true

	return c, nil
}
