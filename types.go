package authcore

import (
	"time"

	"github.com/pagespace/authcore/ledger"
	"github.com/pagespace/authcore/oauth"
	"github.com/pagespace/authcore/store"
)

// Backend is the persistence surface the engine runs on: the relational
// token/session store plus the audit chain store. The bundled memory and
// postgres backends implement both halves on one handle.
type Backend interface {
	store.Store
	ledger.Store
}

// Aliases re-export the audit ledger's value types at the root so
// integrators rarely need to import subpackages directly.
type (
	AuditEvent = ledger.Event
	AuditQuery = ledger.Query
	AuditSink  = ledger.Sink
	Identity   = oauth.Identity
)

// SessionType re-exports the session classification tags.
type SessionType = store.SessionType

const (
	SessionUser    = store.SessionUser
	SessionDevice  = store.SessionDevice
	SessionService = store.SessionService
	SessionMCP     = store.SessionMCP
)

// CreateSessionParams describes one session issuance. ExpiresIn of zero
// falls back to the configured default TTL for the session type.
type CreateSessionParams struct {
	UserID    string
	Type      SessionType
	Scopes    []string
	ExpiresIn time.Duration
}

// SessionResult carries a freshly issued session. Token is the raw
// bearer value and is never recoverable afterwards.
type SessionResult struct {
	Token     string
	SessionID string
	ExpiresAt time.Time
}

// SessionClaims is the validated view of a live session.
type SessionClaims struct {
	UserID    string
	Type      SessionType
	Scopes    []string
	SessionID string
	ExpiresAt time.Time
}

// RefreshResult is the outcome of a successful refresh-token redemption.
// GracePeriodRetry marks an idempotent replay: the token was already
// consumed by this same logical redemption moments ago.
type RefreshResult struct {
	UserID           string
	TokenVersion     int
	Role             string
	GracePeriodRetry bool
}

// RotationResult is the outcome of a successful device-token rotation.
// NewToken is empty on a grace-period replay; the successor token
// already went out on the original response.
type RotationResult struct {
	UserID           string
	DeviceID         string
	Platform         string
	NewToken         string
	NewTokenID       string
	GracePeriodRetry bool
}

// DeviceTokenParams identifies the device slot being claimed and the
// token the client believes it holds (empty when it has none).
type DeviceTokenParams struct {
	UserID        string
	DeviceID      string
	Platform      string
	DeviceName    string
	TokenVersion  int
	ProvidedToken string
}

// DeviceTokenResult reports which token the device should hold after a
// validate-or-create call.
type DeviceTokenResult struct {
	Token   string
	TokenID string
	IsNew   bool
}

// LockoutStatus is a non-mutating snapshot of one account's lockout
// state.
type LockoutStatus struct {
	IsLocked          bool
	FailedAttempts    int
	LockedUntil       *time.Time
	RemainingAttempts int
}

// LoginParams carries one credential login attempt. IP and UserAgent
// feed the throttle and the audit trail; both may be empty.
type LoginParams struct {
	Email     string
	Password  string
	Scopes    []string
	IP        string
	UserAgent string
}

// LoginResult is the outcome of a successful credential login.
type LoginResult struct {
	Token     string
	SessionID string
	UserID    string
	Role      string
	ExpiresAt time.Time
}
