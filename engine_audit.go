package authcore

import (
	"context"

	"github.com/pagespace/authcore/ledger"
)

// Audit write failures are swallowed: the audited operation must never
// fail because its trail could not be written. Chain consistency is the
// opposite: whenever a write does land, the backend's locked append
// guarantees it extends the true tail.

// LogEvent appends one event to the audit chain and mirrors it to the
// configured sink. Failures are logged and swallowed.
func (e *Engine) LogEvent(ctx context.Context, event AuditEvent) {
	if e == nil || e.audit == nil {
		return
	}

	appended, err := e.audit.Log(ctx, event)
	if err != nil {
		e.metricInc(MetricAuditFailed)
		e.warn("audit append failed for %s: %v", event.EventType, err)
		return
	}

	e.metricInc(MetricAuditLogged)
	e.mirror.Emit(ctx, *appended)
}

// LogAuthSuccess records a successful authentication.
func (e *Engine) LogAuthSuccess(ctx context.Context, userID, sessionID, ip, userAgent string) {
	e.LogEvent(ctx, AuditEvent{
		EventType: ledger.EventLoginSuccess,
		UserID:    userID,
		SessionID: sessionID,
		IPAddress: ip,
		UserAgent: userAgent,
	})
}

// LogAuthFailure records a failed authentication. userID may be empty
// when the identifier did not resolve.
func (e *Engine) LogAuthFailure(ctx context.Context, userID, reason, ip, userAgent string) {
	e.LogEvent(ctx, AuditEvent{
		EventType: ledger.EventLoginFailure,
		UserID:    userID,
		IPAddress: ip,
		UserAgent: userAgent,
		Details:   map[string]any{"reason": reason},
	})
}

// LogAccessDenied records an authorization denial on a resource.
func (e *Engine) LogAccessDenied(ctx context.Context, userID, resourceType, resourceID, reason string) {
	e.LogEvent(ctx, AuditEvent{
		EventType:    ledger.EventAccessDenied,
		UserID:       userID,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      map[string]any{"reason": reason},
	})
}

// LogTokenCreated records the issuance of a session or device token.
func (e *Engine) LogTokenCreated(ctx context.Context, userID, sessionID, tokenKind string) {
	e.LogEvent(ctx, AuditEvent{
		EventType: ledger.EventTokenCreated,
		UserID:    userID,
		SessionID: sessionID,
		Details:   map[string]any{"kind": tokenKind},
	})
}

// LogTokenRevoked records a token revocation with its reason.
func (e *Engine) LogTokenRevoked(ctx context.Context, userID, reason, tokenKind string) {
	e.LogEvent(ctx, AuditEvent{
		EventType: ledger.EventTokenRevoked,
		UserID:    userID,
		Details:   map[string]any{"kind": tokenKind, "reason": reason},
	})
}

// LogAnomalyDetected records a security anomaly with its risk score and
// flags.
func (e *Engine) LogAnomalyDetected(ctx context.Context, userID string, riskScore float64, flags []string, details map[string]any) {
	e.LogEvent(ctx, AuditEvent{
		EventType:    ledger.EventAnomalyDetected,
		UserID:       userID,
		RiskScore:    riskScore,
		AnomalyFlags: flags,
		Details:      details,
	})
}

// LogDataAccess records a read of a sensitive resource.
func (e *Engine) LogDataAccess(ctx context.Context, userID, resourceType, resourceID string) {
	e.LogEvent(ctx, AuditEvent{
		EventType:    ledger.EventDataRead,
		UserID:       userID,
		ResourceType: resourceType,
		ResourceID:   resourceID,
	})
}

// QueryEvents returns audit events matching q, newest first. Read-only.
func (e *Engine) QueryEvents(ctx context.Context, q AuditQuery) ([]AuditEvent, error) {
	if e == nil || e.audit == nil {
		return nil, ErrEngineNotReady
	}
	return e.audit.Query(ctx, q)
}

// chainVerifyWindow bounds how many events one verification pass reads.
const chainVerifyWindow = 10000

// VerifyAuditChain recomputes hashes and linkage over the most recent
// window of the chain. When the window reaches back to the first event
// ever written, the genesis sentinel is checked too.
func (e *Engine) VerifyAuditChain(ctx context.Context) error {
	if e == nil || e.audit == nil {
		return ErrEngineNotReady
	}

	events, err := e.audit.Query(ctx, AuditQuery{Limit: chainVerifyWindow})
	if err != nil {
		return err
	}

	// Query returns newest first; verification walks oldest first.
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}

	if len(events) > 0 && events[0].PreviousHash == ledger.Genesis {
		return ledger.VerifyChain(events)
	}
	return ledger.VerifyTail(events)
}
