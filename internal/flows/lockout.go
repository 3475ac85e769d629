package flows

import (
	"context"
	"time"

	"github.com/pagespace/authcore/store"
)

// TxRunner is the transaction entry point shared by all flows.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(store.Tx) error) error
}

// LockoutConfig tunes the failed-attempt guard.
type LockoutConfig struct {
	Threshold int
	Duration  time.Duration
}

// LockoutFailure classifies lockout flow failures.
type LockoutFailure int

const (
	LockoutFailureNone LockoutFailure = iota
	LockoutFailureUserNotFound
	LockoutFailureStore
)

// LockoutOutcome reports the account state after one recorded failure.
type LockoutOutcome struct {
	Failure        LockoutFailure
	Err            error
	FailedAttempts int
	LockedUntil    *time.Time
	// JustLocked is true when this attempt crossed the threshold.
	JustLocked bool
}

// RunRecordFailure increments the user's failure counter under a row
// lock and applies the lockout threshold. A lockout that has already
// expired restarts the count at 1 for this attempt; stale counters from
// a previous lockout never re-trigger the threshold math.
func RunRecordFailure(ctx context.Context, txr TxRunner, userID string, cfg LockoutConfig, now time.Time) LockoutOutcome {
	var out LockoutOutcome
	err := txr.WithTx(ctx, func(tx store.Tx) error {
		u, err := tx.GetUserByIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil {
			out.Failure = LockoutFailureUserNotFound
			return nil
		}

		count := u.FailedLoginAttempts + 1
		lockedUntil := u.LockedUntil
		if lockedUntil != nil && !lockedUntil.After(now) {
			count = 1
			lockedUntil = nil
		}

		if lockedUntil == nil && count >= cfg.Threshold {
			until := now.Add(cfg.Duration)
			lockedUntil = &until
			out.JustLocked = true
		}

		if err := tx.UpdateUserLockout(ctx, userID, count, lockedUntil); err != nil {
			return err
		}

		out.FailedAttempts = count
		out.LockedUntil = lockedUntil
		return nil
	})
	if err != nil {
		return LockoutOutcome{Failure: LockoutFailureStore, Err: err}
	}
	return out
}

// LockoutStatus is a non-mutating snapshot of the guard's view of one
// account.
type LockoutStatus struct {
	IsLocked          bool
	FailedAttempts    int
	LockedUntil       *time.Time
	RemainingAttempts int
}

// StatusFromRecord derives the lockout status from a user record at
// time now.
func StatusFromRecord(u *store.UserRecord, cfg LockoutConfig, now time.Time) LockoutStatus {
	remaining := cfg.Threshold - u.FailedLoginAttempts
	if remaining < 0 {
		remaining = 0
	}
	return LockoutStatus{
		IsLocked:          u.LockedUntil != nil && u.LockedUntil.After(now),
		FailedAttempts:    u.FailedLoginAttempts,
		LockedUntil:       u.LockedUntil,
		RemainingAttempts: remaining,
	}
}

// RunResetLockout zeroes the counter and clears any lockout. Used both
// after successful authentication and for administrative unlock.
func RunResetLockout(ctx context.Context, txr TxRunner, userID string) LockoutOutcome {
	var out LockoutOutcome
	err := txr.WithTx(ctx, func(tx store.Tx) error {
		u, err := tx.GetUserByIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil {
			out.Failure = LockoutFailureUserNotFound
			return nil
		}
		return tx.UpdateUserLockout(ctx, userID, 0, nil)
	})
	if err != nil {
		return LockoutOutcome{Failure: LockoutFailureStore, Err: err}
	}
	return out
}
