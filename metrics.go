package youlyauth

import "sync/atomic"

// MetricID identifies one engine counter.
type MetricID uint16

const (
	// MetricOTPIssued counts OTP emails handed to the notifier.
	MetricOTPIssued MetricID = iota
	// MetricOTPVerifySuccess counts codes that matched.
	MetricOTPVerifySuccess
	// MetricOTPVerifyFailure counts mismatched or expired codes.
	MetricOTPVerifyFailure
	// MetricOTPLockout counts verification lockouts being set.
	MetricOTPLockout
	// MetricRateLimited counts issuance requests refused by cooldown,
	// spam lock, or lockout.
	MetricRateLimited
	// MetricRegistrationCompleted counts accounts promoted from pending.
	MetricRegistrationCompleted
	// MetricLoginSuccess counts credential checks that passed.
	MetricLoginSuccess
	// MetricLoginFailure counts credential checks that failed.
	MetricLoginFailure
	// MetricRefreshSuccess counts refresh calls that minted a new access token.
	MetricRefreshSuccess
	// MetricRefreshFailure counts refresh calls rejected.
	MetricRefreshFailure
	// MetricSessionCreated counts refresh sessions written.
	MetricSessionCreated
	// MetricSessionRevoked counts refresh sessions removed, one per session.
	MetricSessionRevoked
	// MetricPasswordResetRequest counts recovery OTPs issued.
	MetricPasswordResetRequest
	// MetricPasswordResetSuccess counts completed password resets.
	MetricPasswordResetSuccess
	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds the engine's in-process counters. All methods are safe on a
// nil receiver, so callers that disable metrics pay only a nil check.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// NewMetrics returns a counter set honoring cfg.Enabled.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to the counter for id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Value returns the current count for id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter into a map. The copy is not atomic across
// counters.
func (m *Metrics) Snapshot() map[MetricID]uint64 {
	out := make(map[MetricID]uint64, int(metricIDCount))
	if m == nil || !m.enabled {
		return out
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		out[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return out
}
