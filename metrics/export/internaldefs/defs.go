package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef binds one counter MetricID to its stable exposition name.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef binds one histogram MetricID to its stable exposition name.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// CounterDefs lists every counter in render order. Exporters iterate this
// slice so Prometheus and OTel output stays name-for-name identical.
var CounterDefs = []CounterDef{
	{ID: goSession.MetricSignInSuccess, Name: "gosession_signin_success_total", Help: "Completed sign-ins."},
	{ID: goSession.MetricSignInFailure, Name: "gosession_signin_failure_total", Help: "Classified sign-in failures."},
	{ID: goSession.MetricSignInStepRequired, Name: "gosession_signin_step_required_total", Help: "Sign-ins parked on a pending verification step."},
	{ID: goSession.MetricSignOutSuccess, Name: "gosession_signout_success_total", Help: "Provider-confirmed sign-outs."},
	{ID: goSession.MetricSignOutFailure, Name: "gosession_signout_failure_total", Help: "Sign-outs that dropped local trust despite a provider failure."},
	{ID: goSession.MetricCheckAuthenticated, Name: "gosession_check_authenticated_total", Help: "Status checks that confirmed a session."},
	{ID: goSession.MetricCheckUnauthenticated, Name: "gosession_check_unauthenticated_total", Help: "Status checks that found no session."},
	{ID: goSession.MetricStaleResultDiscarded, Name: "gosession_stale_result_discarded_total", Help: "Round-trip results discarded because a newer operation superseded them."},
	{ID: goSession.MetricForcedRevocation, Name: "gosession_forced_revocation_total", Help: "Sign-outs forced by external signals."},
	{ID: goSession.MetricSessionExpiredSignal, Name: "gosession_session_expired_signal_total", Help: "Unauthorized signals recorded as expired sessions."},
	{ID: goSession.MetricVisibilityCheck, Name: "gosession_visibility_check_total", Help: "Status checks triggered by visibility signals."},
	{ID: goSession.MetricVisibilityDebounced, Name: "gosession_visibility_debounced_total", Help: "Visibility signals suppressed by the debounce window."},
	{ID: goSession.MetricStorageEventSeen, Name: "gosession_storage_event_seen_total", Help: "Credential storage events observed by the synchronizer."},
	{ID: goSession.MetricStorageEventMatched, Name: "gosession_storage_event_matched_total", Help: "Credential storage events passing the key filter."},
}

// HistogramDefs lists every histogram in render order.
var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricCheckLatency, Name: "gosession_check_latency_seconds", Help: "Status-check round-trip latency histogram."},
}

// HistogramBounds are the bucket upper bounds in seconds. They mirror the
// millisecond thresholds the core package records against, so exporters must
// never reorder or resize this slice independently.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix holds instrument-name-safe forms of HistogramBounds,
// index-aligned with it.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates a raw snapshot slice to the fixed bucket
// count. Snapshots omit the histogram entirely when latency recording is off.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into the cumulative form
// Prometheus histograms expose.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
