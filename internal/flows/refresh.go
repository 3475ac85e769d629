package flows

import (
	"context"
	"time"

	"github.com/pagespace/authcore/store"
)

// RefreshFailure classifies refresh and rotation failures for root-level
// error mapping.
type RefreshFailure int

const (
	RefreshFailureNone RefreshFailure = iota
	RefreshFailureFormat
	RefreshFailureNotFound
	RefreshFailureExpired
	// RefreshFailureReplayed: the token was already consumed and the
	// grace window has passed (or its revocation reason grants no grace).
	RefreshFailureReplayed
	// RefreshFailureRevoked: the token was revoked by logout; never
	// grace-eligible.
	RefreshFailureRevoked
	// RefreshFailurePolicy: the token's captured tokenVersion no longer
	// matches the user's current version ("log out all devices").
	RefreshFailurePolicy
	RefreshFailureStore
)

// RefreshDeps captures refresh redemption dependencies.
type RefreshDeps struct {
	ValidFormat func(string) bool
	HashToken   func(string) string
	Now         func() time.Time
	GracePeriod time.Duration
	Txer        TxRunner
}

// RefreshOutcome carries the redeemed identity or failure metadata.
type RefreshOutcome struct {
	Failure      RefreshFailure
	Err          error
	UserID       string
	TokenVersion int
	Role         string
	// GracePeriodRetry marks an idempotent replay of a redemption whose
	// first response the client never saw.
	GracePeriodRetry bool
}

// RunRefresh redeems a refresh token at most once per logical use. The
// row lock on the token hash serializes concurrent redeemers of the same
// token; the first marks it revoked with reason "refreshed", and
// near-simultaneous retries inside the grace window are answered with
// the same success payload instead of being treated as replay attacks.
// A token revoked for any other reason, or outside the window, fails.
func RunRefresh(ctx context.Context, rawToken string, deps RefreshDeps) RefreshOutcome {
	if !deps.ValidFormat(rawToken) {
		return RefreshOutcome{Failure: RefreshFailureFormat}
	}
	tokenHash := deps.HashToken(rawToken)

	var out RefreshOutcome
	err := deps.Txer.WithTx(ctx, func(tx store.Tx) error {
		rec, err := tx.GetDeviceTokenByHashForUpdate(ctx, tokenHash)
		if err != nil {
			return err
		}
		if rec == nil {
			out.Failure = RefreshFailureNotFound
			return nil
		}

		now := deps.Now()
		if !now.Before(rec.ExpiresAt) {
			out.Failure = RefreshFailureExpired
			return nil
		}

		u, err := tx.GetUserByID(ctx, rec.UserID)
		if err != nil {
			return err
		}
		if u == nil {
			out.Failure = RefreshFailureNotFound
			return nil
		}

		if rec.RevokedAt == nil {
			// First use wins the row lock and consumes the token.
			if err := tx.RevokeDeviceToken(ctx, rec.ID, store.RevokedRefreshed, now, ""); err != nil {
				return err
			}
			out = RefreshOutcome{UserID: u.UserID, TokenVersion: u.TokenVersion, Role: u.Role}
			return nil
		}

		if rec.RevokedReason == store.RevokedRefreshed && now.Sub(*rec.RevokedAt) <= deps.GracePeriod {
			out = RefreshOutcome{UserID: u.UserID, TokenVersion: u.TokenVersion, Role: u.Role, GracePeriodRetry: true}
			return nil
		}

		if rec.RevokedReason == store.RevokedLogout {
			out.Failure = RefreshFailureRevoked
			return nil
		}
		out.Failure = RefreshFailureReplayed
		return nil
	})
	if err != nil {
		return RefreshOutcome{Failure: RefreshFailureStore, Err: err}
	}
	return out
}
