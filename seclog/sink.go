package seclog

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"
)

/*
==========================================
RECORDS
==========================================
*/

// Level is the severity of a record.
type Level uint8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the level as its lowercase name.
func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// Record is one emitted log entry. Context has already been redacted by the
// time any sink sees it.
type Record struct {
	Time      time.Time      `json:"time"`
	Level     Level          `json:"level"`
	Scope     string         `json:"scope"`
	Message   string         `json:"message"`
	Err       string         `json:"error,omitempty"`
	AuthEvent bool           `json:"auth_event,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
}

/*
==========================================
SINKS
==========================================
*/

// Sink receives redacted records. Implementations must be safe for
// concurrent use and should return quickly; wrap slow sinks in [AsyncSink].
type Sink interface {
	Emit(ctx context.Context, rec Record)
}

// NoOpSink discards every record.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Record) {}

// ChannelSink forwards records to a channel, mostly useful in tests.
type ChannelSink struct {
	ch chan Record
}

// NewChannelSink creates a channel sink with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer < 0 {
		buffer = 0
	}
	return &ChannelSink{ch: make(chan Record, buffer)}
}

// Records exposes the receiving side of the sink.
func (s *ChannelSink) Records() <-chan Record {
	return s.ch
}

// Emit blocks until the record is accepted or ctx is done.
func (s *ChannelSink) Emit(ctx context.Context, rec Record) {
	if s == nil || s.ch == nil {
		return
	}
	select {
	case s.ch <- rec:
	case <-ctx.Done():
	}
}

// JSONWriterSink writes one JSON object per record to w.
type JSONWriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONWriterSink creates a sink writing newline-delimited JSON to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{enc: json.NewEncoder(w)}
}

func (s *JSONWriterSink) Emit(_ context.Context, rec Record) {
	if s == nil || s.enc == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.enc.Encode(rec)
}

// SlogSink bridges records into a standard library slog.Logger.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink wraps l. A nil logger falls back to slog.Default at emit time.
func NewSlogSink(l *slog.Logger) *SlogSink {
	return &SlogSink{logger: l}
}

func (s *SlogSink) Emit(ctx context.Context, rec Record) {
	if s == nil {
		return
	}
	logger := s.logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := make([]slog.Attr, 0, 4)
	attrs = append(attrs, slog.String("scope", rec.Scope))
	if rec.Err != "" {
		attrs = append(attrs, slog.String("error", rec.Err))
	}
	if rec.AuthEvent {
		attrs = append(attrs, slog.Bool("auth_event", true))
	}
	if len(rec.Context) > 0 {
		attrs = append(attrs, slog.Any("context", rec.Context))
	}
	logger.LogAttrs(ctx, rec.Level.slogLevel(), rec.Message, attrs...)
}
