package goSession

import (
	"sync/atomic"
	"time"
)

// MetricID names one counter or histogram tracked by the client.
type MetricID uint16

const (
	// MetricSignInSuccess counts completed sign-ins.
	MetricSignInSuccess MetricID = iota
	// MetricSignInFailure counts classified sign-in failures.
	MetricSignInFailure
	// MetricSignInStepRequired counts sign-ins parked on a pending step.
	MetricSignInStepRequired
	// MetricSignOutSuccess counts provider-confirmed sign-outs.
	MetricSignOutSuccess
	// MetricSignOutFailure counts sign-outs where the provider call failed
	// but local trust was dropped anyway.
	MetricSignOutFailure
	// MetricCheckAuthenticated counts status checks that confirmed a session.
	MetricCheckAuthenticated
	// MetricCheckUnauthenticated counts status checks that found none.
	MetricCheckUnauthenticated
	// MetricStaleResultDiscarded counts round-trip results refused because a
	// newer operation superseded them.
	MetricStaleResultDiscarded
	// MetricForcedRevocation counts externally forced sign-outs (storage
	// removal, unauthorized signal).
	MetricForcedRevocation
	// MetricSessionExpiredSignal counts unauthorized signals that recorded a
	// session-expired error.
	MetricSessionExpiredSignal
	// MetricVisibilityCheck counts status checks triggered by foreground
	// visibility signals.
	MetricVisibilityCheck
	// MetricVisibilityDebounced counts visibility signals suppressed by the
	// debounce window.
	MetricVisibilityDebounced
	// MetricStorageEventSeen counts storage events the synchronizer read.
	MetricStorageEventSeen
	// MetricStorageEventMatched counts storage events passing the key filter.
	MetricStorageEventMatched
	// MetricCheckLatency is the status-check round-trip histogram.
	MetricCheckLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

// paddedCounter keeps each hot counter on its own cache line.
type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is the client's instrumentation. A nil or disabled Metrics is a
// no-op on every path.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters and histograms.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics builds instrumentation from cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded at all.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the check-latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to a counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records a status-check round-trip duration.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricCheckLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value reads a single counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and histogram. Disabled metrics return
// empty, non-nil maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricCheckLatency].buckets[i])
		}
		s.Histograms[MetricCheckLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
