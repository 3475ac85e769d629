package authcore

import (
	"sync/atomic"
	"time"
)

// MetricID indexes one in-process counter.
type MetricID uint16

const (
	// MetricLoginSuccess counts successful credential logins.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts failed credential logins.
	MetricLoginFailure
	// MetricLoginRateLimited counts logins denied by the throttle.
	MetricLoginRateLimited
	// MetricAccountLocked counts lockouts triggered by the guard.
	MetricAccountLocked
	// MetricSessionCreated counts issued sessions.
	MetricSessionCreated
	// MetricSessionValidated counts successful session validations.
	MetricSessionValidated
	// MetricSessionRejected counts soft-failed session validations.
	MetricSessionRejected
	// MetricSessionRevoked counts single-session revocations.
	MetricSessionRevoked
	// MetricLogoutAll counts bulk user-session revocations.
	MetricLogoutAll
	// MetricRefreshSuccess counts first-use refresh redemptions.
	MetricRefreshSuccess
	// MetricRefreshGraceReplay counts idempotent grace-window replays.
	MetricRefreshGraceReplay
	// MetricRefreshRateLimited counts redemptions denied by the throttle.
	MetricRefreshRateLimited
	// MetricTokenReuseBlocked counts redemptions of consumed tokens
	// outside the grace window.
	MetricTokenReuseBlocked
	// MetricRotationSuccess counts first-use device-token rotations.
	MetricRotationSuccess
	// MetricRotationGraceReplay counts grace-window rotation replays.
	MetricRotationGraceReplay
	// MetricDevicePolicyRejected counts device tokens invalidated by a
	// tokenVersion bump.
	MetricDevicePolicyRejected
	// MetricDeviceTokenEnsured counts validate-or-create outcomes.
	MetricDeviceTokenEnsured
	// MetricAuditLogged counts events appended to the audit chain.
	MetricAuditLogged
	// MetricAuditFailed counts swallowed audit write failures.
	MetricAuditFailed
	// MetricOAuthVerified counts accepted provider ID tokens.
	MetricOAuthVerified
	// MetricOAuthRejected counts rejected provider ID tokens.
	MetricOAuthRejected
	// MetricValidateLatency is the session-validation latency histogram.
	MetricValidateLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

// paddedCounter keeps hot counters on separate cache lines.
type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed set of atomic counters plus one latency histogram.
// A nil or disabled Metrics accepts all calls as no-ops.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters and histogram
// buckets, suitable for exporters.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a Metrics set from cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are being recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to the counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records one latency sample. Only MetricValidateLatency is
// histogram-backed.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricValidateLatency {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

// Value reads one counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies all counters and histogram buckets.
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
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricValidateLatency].buckets[i])
		}
		s.Histograms[MetricValidateLatency] = buckets
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
