package authcore

import (
	"log"
	"time"

	"github.com/pagespace/authcore/internal/rate"
	"github.com/pagespace/authcore/ledger"
	"github.com/pagespace/authcore/oauth"
	"github.com/pagespace/authcore/password"
)

// Engine is the authentication token lifecycle core: session issuance
// and validation, atomic refresh/rotation, the account lockout guard,
// the hash-chained audit ledger, and provider ID-token verification.
// All methods are safe for concurrent use; cross-request coordination
// lives in the backend's transactions and locks, not in process memory.
type Engine struct {
	config   Config
	backend  Backend
	audit    *ledger.Service
	mirror   *ledger.Dispatcher
	limiter  *rate.Limiter
	password *password.Argon2
	oauth    *oauth.Verifier
	metrics  *Metrics

	// now is a test seam; production engines always run on time.Now.
	now func() time.Time
}

// Close stops the audit mirror, draining buffered events first. The
// durable chain needs no shutdown.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.mirror.Close()
}

// AuditDropped reports how many mirrored events were discarded under
// backpressure. Always zero when the mirror is disabled.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.mirror.Dropped()
}

// MetricsSnapshot copies the engine's counters for exporters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil {
		return
	}
	e.metrics.Inc(id)
}

// warn records a swallowed failure. Bookkeeping paths (lockout reset,
// audit writes, lastUsedAt updates) must never abort the primary
// operation, so their errors end up here instead of the caller.
func (e *Engine) warn(format string, args ...any) {
	log.Printf("authcore: "+format, args...)
}
