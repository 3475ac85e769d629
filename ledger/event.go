package ledger

import (
	"context"
	"time"
)

// Genesis is the sentinel PreviousHash of the first event ever written.
const Genesis = "genesis"

// Event types use a dotted taxonomy grouped by concern.
const (
	EventLoginSuccess    = "auth.login.success"
	EventLoginFailure    = "auth.login.failure"
	EventTokenCreated    = "auth.token.created"
	EventTokenRevoked    = "auth.token.revoked"
	EventAccessDenied    = "authz.access.denied"
	EventAnomalyDetected = "security.anomaly.detected"
	EventDataRead        = "data.read"
)

// Event is one security audit record. Events are immutable once written;
// PreviousHash and EventHash are filled by [Service.Log], never by
// callers.
type Event struct {
	ID           string         `json:"id"`
	EventType    string         `json:"eventType"`
	UserID       string         `json:"userId,omitempty"`
	SessionID    string         `json:"sessionId,omitempty"`
	ServiceID    string         `json:"serviceId,omitempty"`
	ResourceType string         `json:"resourceType,omitempty"`
	ResourceID   string         `json:"resourceId,omitempty"`
	IPAddress    string         `json:"ipAddress,omitempty"`
	UserAgent    string         `json:"userAgent,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
	RiskScore    float64        `json:"riskScore"`
	AnomalyFlags []string       `json:"anomalyFlags,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
	PreviousHash string         `json:"previousHash"`
	EventHash    string         `json:"eventHash"`
}

// Query filters ReadEvents. Zero values mean "no constraint"; results
// come back newest first.
type Query struct {
	UserID    string
	EventType string
	From      time.Time
	To        time.Time
	Limit     int
}

// Store is the persistence contract the ledger writes through. Backends
// implement Append as one transaction that (1) takes an exclusive lock
// shared by all chain writers, (2) reads the persisted tail hash
// ([Genesis] when the table is empty), (3) calls fn with it, and (4)
// inserts the returned event before committing. Per-row locking is not
// enough: the lock must serialize all writers on the single chain tail.
type Store interface {
	Append(ctx context.Context, fn func(prevHash string) (*Event, error)) error
	TailHash(ctx context.Context) (string, error)
	ReadEvents(ctx context.Context, q Query) ([]Event, error)
}
