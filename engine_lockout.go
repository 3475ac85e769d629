package authcore

import (
	"context"
	"fmt"
	"time"

	"github.com/pagespace/authcore/internal/flows"
)

func (e *Engine) lockoutConfig() flows.LockoutConfig {
	return flows.LockoutConfig{
		Threshold: e.config.Lockout.Threshold,
		Duration:  e.config.Lockout.Duration,
	}
}

// RecordFailedAttempt counts one failed login for the account under a
// row lock. When this attempt crosses the threshold, the returned time
// is the new lockout expiry; otherwise it is nil. An already-expired
// lockout restarts the count at 1 for this attempt instead of stacking
// onto the stale counter.
func (e *Engine) RecordFailedAttempt(ctx context.Context, userID string) (*time.Time, error) {
	if e == nil || e.backend == nil {
		return nil, ErrEngineNotReady
	}

	out := flows.RunRecordFailure(ctx, e.backend, userID, e.lockoutConfig(), e.now())
	switch out.Failure {
	case flows.LockoutFailureNone:
	case flows.LockoutFailureUserNotFound:
		return nil, ErrUserNotFound
	default:
		return nil, fmt.Errorf("record failed attempt: %w", out.Err)
	}

	if out.JustLocked {
		e.metricInc(MetricAccountLocked)
		e.LogAnomalyDetected(ctx, userID, 0.7, []string{"account_lockout"}, map[string]any{
			"failedAttempts": out.FailedAttempts,
		})
		return out.LockedUntil, nil
	}
	return nil, nil
}

// RecordFailedAttemptByEmail resolves the email and counts the failure.
// An unknown email succeeds silently so callers cannot probe which
// accounts exist.
func (e *Engine) RecordFailedAttemptByEmail(ctx context.Context, email string) (*time.Time, error) {
	if e == nil || e.backend == nil {
		return nil, ErrEngineNotReady
	}

	u, err := e.backend.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("resolve email: %w", err)
	}
	if u == nil {
		return nil, nil
	}
	return e.RecordFailedAttempt(ctx, u.UserID)
}

// AccountLockoutStatus reads the guard's view of one account without
// mutating it.
func (e *Engine) AccountLockoutStatus(ctx context.Context, userID string) (*LockoutStatus, error) {
	if e == nil || e.backend == nil {
		return nil, ErrEngineNotReady
	}

	u, err := e.backend.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u == nil {
		return nil, ErrUserNotFound
	}

	s := flows.StatusFromRecord(u, e.lockoutConfig(), e.now())
	return &LockoutStatus{
		IsLocked:          s.IsLocked,
		FailedAttempts:    s.FailedAttempts,
		LockedUntil:       s.LockedUntil,
		RemainingAttempts: s.RemainingAttempts,
	}, nil
}

// ResetFailedAttempts clears the counter and any lockout after a
// successful authentication. Failures here must not block an otherwise
// valid login, so they are logged and swallowed.
func (e *Engine) ResetFailedAttempts(ctx context.Context, userID string) {
	if e == nil || e.backend == nil {
		return
	}

	out := flows.RunResetLockout(ctx, e.backend, userID)
	if out.Failure == flows.LockoutFailureStore {
		e.warn("lockout reset failed for user %s: %v", userID, out.Err)
	}
}

// UnlockAccount is the administrative reset. It reports whether a user
// record was found and cleared.
func (e *Engine) UnlockAccount(ctx context.Context, userID string) (bool, error) {
	if e == nil || e.backend == nil {
		return false, ErrEngineNotReady
	}

	out := flows.RunResetLockout(ctx, e.backend, userID)
	switch out.Failure {
	case flows.LockoutFailureNone:
		return true, nil
	case flows.LockoutFailureUserNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("unlock account: %w", out.Err)
	}
}
