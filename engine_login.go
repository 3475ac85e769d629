package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/pagespace/authcore/internal/rate"
)

// Login authenticates an email/password pair and issues a user session.
// The failure surface is deliberately uniform: an unknown email and a
// wrong password both return ErrInvalidCredentials, and only an active
// lockout is distinguishable (ErrAccountLocked). The lockout gate runs
// before the credential check so a locked account's password can not be
// probed while the lock holds.
func (e *Engine) Login(ctx context.Context, params LoginParams) (*LoginResult, error) {
	if e == nil || e.backend == nil {
		return nil, ErrEngineNotReady
	}

	if err := e.throttleLogin(ctx, params.Email, params.IP); err != nil {
		return nil, err
	}

	u, err := e.backend.GetUserByEmail(ctx, params.Email)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u == nil {
		e.consumeLoginAttempt(ctx, params.Email, params.IP)
		e.metricInc(MetricLoginFailure)
		e.LogAuthFailure(ctx, "", "unknown identifier", params.IP, params.UserAgent)
		return nil, ErrInvalidCredentials
	}

	status, err := e.AccountLockoutStatus(ctx, u.UserID)
	if err != nil {
		return nil, err
	}
	if status.IsLocked {
		e.metricInc(MetricLoginFailure)
		e.LogAuthFailure(ctx, u.UserID, "account locked", params.IP, params.UserAgent)
		return nil, ErrAccountLocked
	}

	ok, err := e.password.Verify(params.Password, u.PasswordHash)
	if err != nil {
		// Unverifiable stored hash. Indistinguishable from a wrong
		// password to the caller.
		e.warn("password verify failed for user %s: %v", u.UserID, err)
		ok = false
	}
	if !ok {
		e.consumeLoginAttempt(ctx, params.Email, params.IP)
		if _, err := e.RecordFailedAttempt(ctx, u.UserID); err != nil {
			e.warn("lockout bookkeeping failed for user %s: %v", u.UserID, err)
		}
		e.metricInc(MetricLoginFailure)
		e.LogAuthFailure(ctx, u.UserID, "bad credentials", params.IP, params.UserAgent)
		return nil, ErrInvalidCredentials
	}

	e.clearLoginThrottle(ctx, params.Email, params.IP)
	e.ResetFailedAttempts(ctx, u.UserID)

	sess, err := e.CreateSession(ctx, CreateSessionParams{
		UserID: u.UserID,
		Type:   SessionUser,
		Scopes: params.Scopes,
	})
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.LogAuthSuccess(ctx, u.UserID, sess.SessionID, params.IP, params.UserAgent)

	return &LoginResult{
		Token:     sess.Token,
		SessionID: sess.SessionID,
		UserID:    u.UserID,
		Role:      u.Role,
		ExpiresAt: sess.ExpiresAt,
	}, nil
}

// throttleLogin checks the burst budget without consuming it. A down
// limiter backend degrades to unthrottled; the persistent lockout guard
// still applies.
func (e *Engine) throttleLogin(ctx context.Context, identifier, ip string) error {
	if e.limiter == nil {
		return nil
	}

	err := e.limiter.CheckLogin(ctx, identifier, ip)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rate.ErrRateLimited):
		e.metricInc(MetricLoginRateLimited)
		return ErrLoginRateLimited
	default:
		e.warn("login throttle unavailable: %v", err)
		return nil
	}
}

// consumeLoginAttempt spends one unit of burst budget after a failure.
func (e *Engine) consumeLoginAttempt(ctx context.Context, identifier, ip string) {
	if e.limiter == nil {
		return
	}
	if err := e.limiter.IncrementLogin(ctx, identifier, ip); err != nil && !errors.Is(err, rate.ErrRateLimited) {
		e.warn("login throttle increment failed: %v", err)
	}
}

func (e *Engine) clearLoginThrottle(ctx context.Context, identifier, ip string) {
	if e.limiter == nil {
		return
	}
	if err := e.limiter.ResetLogin(ctx, identifier, ip); err != nil {
		e.warn("login throttle reset failed: %v", err)
	}
}
