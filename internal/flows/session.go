package flows

import (
	"context"
	"time"

	"github.com/pagespace/authcore/store"
)

// SessionFailure classifies validation failures. All of them map to a
// soft nil-claims result at the root; the kinds exist so the engine can
// audit and count them distinctly.
type SessionFailure int

const (
	SessionFailureNone SessionFailure = iota
	SessionFailureFormat
	SessionFailureNotFound
	SessionFailureExpired
	SessionFailureRevoked
	SessionFailureVersion
	SessionFailureStore
)

// SessionReader is the slice of the store the validate flow reads.
type SessionReader interface {
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (*store.SessionRecord, error)
	GetUserByID(ctx context.Context, userID string) (*store.UserRecord, error)
}

// ValidateDeps captures validate flow dependencies.
type ValidateDeps struct {
	ValidFormat func(string) bool
	HashToken   func(string) string
	Now         func() time.Time
	Store       SessionReader
}

// ValidateOutcome carries the matched session on success or the failure
// kind otherwise.
type ValidateOutcome struct {
	Failure SessionFailure
	Err     error
	Session *store.SessionRecord
}

// RunValidate checks a raw bearer token against the session table. A
// session passes only when it exists, has not expired, has not been
// revoked, and its captured tokenVersion still equals the owning user's
// current version; bumping that one integer invalidates every
// outstanding session without touching session rows.
func RunValidate(ctx context.Context, rawToken string, deps ValidateDeps) ValidateOutcome {
	if !deps.ValidFormat(rawToken) {
		return ValidateOutcome{Failure: SessionFailureFormat}
	}

	sess, err := deps.Store.GetSessionByTokenHash(ctx, deps.HashToken(rawToken))
	if err != nil {
		return ValidateOutcome{Failure: SessionFailureStore, Err: err}
	}
	if sess == nil {
		return ValidateOutcome{Failure: SessionFailureNotFound}
	}

	now := deps.Now()
	if sess.RevokedAt != nil {
		return ValidateOutcome{Failure: SessionFailureRevoked, Session: sess}
	}
	if !now.Before(sess.ExpiresAt) {
		return ValidateOutcome{Failure: SessionFailureExpired, Session: sess}
	}

	u, err := deps.Store.GetUserByID(ctx, sess.UserID)
	if err != nil {
		return ValidateOutcome{Failure: SessionFailureStore, Err: err}
	}
	if u == nil {
		return ValidateOutcome{Failure: SessionFailureNotFound, Session: sess}
	}
	if u.TokenVersion != sess.TokenVersion {
		return ValidateOutcome{Failure: SessionFailureVersion, Session: sess}
	}

	return ValidateOutcome{Session: sess}
}
