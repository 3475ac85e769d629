package store

import "time"

// SessionType classifies who a session was issued to.
type SessionType string

const (
	// SessionUser is an interactive user session.
	SessionUser SessionType = "user"
	// SessionDevice is a session exchanged from a device token.
	SessionDevice SessionType = "device"
	// SessionService is a service-to-service session.
	SessionService SessionType = "service"
	// SessionMCP is an MCP client session.
	SessionMCP SessionType = "mcp"
)

// Revocation reasons recorded on sessions and device tokens. The refresh
// grace window keys off these values, so they are wire-stable.
const (
	RevokedRefreshed = "refreshed"
	RevokedRotated   = "rotated"
	RevokedLogout    = "logout"
	RevokedAdmin     = "admin"
)

// UserRecord is the slice of the user row this core reads and mutates:
// credential hash for the login gate, tokenVersion for global
// invalidation, and the lockout counters.
type UserRecord struct {
	UserID              string
	Email               string
	PasswordHash        string
	Role                string
	TokenVersion        int
	FailedLoginAttempts int
	LockedUntil         *time.Time
}

// SessionRecord is a persisted bearer session. TokenHash is the only
// stored trace of the raw token. TokenVersion snapshots the owning
// user's version at issuance; validation rejects the session the moment
// the user's current version moves past it.
type SessionRecord struct {
	ID            string
	UserID        string
	TokenHash     string
	Type          SessionType
	Scopes        []string
	TokenVersion  int
	ExpiresAt     time.Time
	CreatedAt     time.Time
	LastUsedAt    *time.Time
	RevokedAt     *time.Time
	RevokedReason string
}

// Active reports whether the session is neither revoked nor expired at t.
func (s *SessionRecord) Active(t time.Time) bool {
	return s.RevokedAt == nil && t.Before(s.ExpiresAt)
}

// DeviceTokenRecord is a persisted refresh/device token. At most one
// non-revoked record exists per (UserID, DeviceID) pair; the atomic
// rotation and validate-or-create transactions enforce that invariant
// rather than a unique constraint, so concurrent creators converge on a
// single row instead of racing inserts.
type DeviceTokenRecord struct {
	ID                      string
	UserID                  string
	DeviceID                string
	Platform                string
	TokenHash               string
	TokenPrefix             string
	TokenVersion            int
	ExpiresAt               time.Time
	CreatedAt               time.Time
	DeviceName              string
	TrustScore              float64
	SuspiciousActivityCount int
	RevokedAt               *time.Time
	RevokedReason           string
	ReplacedByTokenID       string
}
