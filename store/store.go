package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrLockWait is returned (possibly wrapped) when a row-lock
	// acquisition exceeds the backend's lock-wait timeout. Callers may
	// retry the whole operation.
	ErrLockWait = errors.New("lock wait timeout")
)

// Store is the non-transactional persistence surface: plain reads,
// best-effort writes, and the transaction entry point. Read methods
// return (nil, nil) when no row matches; errors are reserved for
// backend failures.
type Store interface {
	GetUserByID(ctx context.Context, userID string) (*UserRecord, error)
	GetUserByEmail(ctx context.Context, email string) (*UserRecord, error)

	InsertSession(ctx context.Context, s *SessionRecord) error
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (*SessionRecord, error)
	// TouchSessionLastUsed is best-effort bookkeeping; callers fire it
	// off the validation path and swallow failures.
	TouchSessionLastUsed(ctx context.Context, sessionID string, at time.Time) error
	RevokeSessionByTokenHash(ctx context.Context, tokenHash, reason string, at time.Time) error
	// RevokeAllUserSessions revokes every active session owned by the
	// user and returns how many rows it touched.
	RevokeAllUserSessions(ctx context.Context, userID, reason string, at time.Time) (int, error)

	// WithTx runs fn inside a single transaction. fn returning an error
	// rolls everything back.
	WithTx(ctx context.Context, fn func(Tx) error) error
}

// Tx is the transactional surface. ForUpdate reads take a row lock that
// serializes concurrent transactions on the same row; reads on different
// rows proceed in parallel.
type Tx interface {
	GetUserByID(ctx context.Context, userID string) (*UserRecord, error)
	GetUserByIDForUpdate(ctx context.Context, userID string) (*UserRecord, error)
	UpdateUserLockout(ctx context.Context, userID string, failedAttempts int, lockedUntil *time.Time) error

	GetDeviceTokenByHashForUpdate(ctx context.Context, tokenHash string) (*DeviceTokenRecord, error)
	// LockDeviceKey takes an exclusive transaction-scoped lock on the
	// (userID, deviceID) pair so existence-check-then-insert sequences
	// cannot interleave for the same device.
	LockDeviceKey(ctx context.Context, userID, deviceID string) error
	// GetActiveDeviceToken returns the non-revoked token row for the
	// device, or (nil, nil) when none exists.
	GetActiveDeviceToken(ctx context.Context, userID, deviceID string) (*DeviceTokenRecord, error)
	InsertDeviceToken(ctx context.Context, rec *DeviceTokenRecord) error
	RevokeDeviceToken(ctx context.Context, tokenID, reason string, at time.Time, replacedByTokenID string) error
	// RebindDeviceToken swaps the secret on an existing row (client lost
	// its copy) without minting a second record for the device, refreshing
	// the captured tokenVersion and expiry along with it.
	RebindDeviceToken(ctx context.Context, tokenID, tokenHash, tokenPrefix string, tokenVersion int, expiresAt time.Time) error
}
