package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/pagespace/authcore/internal/flows"
	"github.com/pagespace/authcore/internal/rate"
	"github.com/pagespace/authcore/store"
	"github.com/pagespace/authcore/token"
)

// redemptionError maps a redemption failure kind to its sentinel.
func redemptionError(f flows.RefreshFailure, cause error) error {
	switch f {
	case flows.RefreshFailureFormat, flows.RefreshFailureNotFound:
		return ErrInvalidRefreshToken
	case flows.RefreshFailureExpired:
		return ErrTokenExpired
	case flows.RefreshFailureReplayed:
		return ErrTokenAlreadyUsed
	case flows.RefreshFailureRevoked:
		return ErrDeviceTokenRevoked
	case flows.RefreshFailurePolicy:
		return ErrDeviceTokenInvalidated
	default:
		return fmt.Errorf("redeem token: %w", cause)
	}
}

// RefreshToken redeems a refresh token at most once per logical use.
// Concurrent redemptions of the same raw token serialize on a row lock;
// the first consumes it, and retries inside the grace window get the
// same payload back with GracePeriodRetry set. Outside the window the
// redemption fails with ErrTokenAlreadyUsed; a token revoked by logout
// fails with ErrDeviceTokenRevoked regardless of timing.
func (e *Engine) RefreshToken(ctx context.Context, rawToken string) (*RefreshResult, error) {
	if e == nil || e.backend == nil {
		return nil, ErrEngineNotReady
	}

	if err := e.throttleRefresh(ctx, rawToken); err != nil {
		return nil, err
	}

	out := flows.RunRefresh(ctx, rawToken, flows.RefreshDeps{
		ValidFormat: token.IsValidFormat,
		HashToken:   token.HashRaw,
		Now:         e.now,
		GracePeriod: e.config.Refresh.GracePeriod,
		Txer:        e.backend,
	})
	if out.Failure != flows.RefreshFailureNone {
		e.noteRedemptionFailure(ctx, out.Failure, "refresh")
		return nil, redemptionError(out.Failure, out.Err)
	}

	if out.GracePeriodRetry {
		e.metricInc(MetricRefreshGraceReplay)
	} else {
		e.metricInc(MetricRefreshSuccess)
		e.LogTokenRevoked(ctx, out.UserID, store.RevokedRefreshed, "refresh")
	}

	return &RefreshResult{
		UserID:           out.UserID,
		TokenVersion:     out.TokenVersion,
		Role:             out.Role,
		GracePeriodRetry: out.GracePeriodRetry,
	}, nil
}

// throttleRefresh consumes one refresh attempt keyed on the token's
// lookup prefix. A down limiter backend degrades to unthrottled rather
// than blocking redemptions.
func (e *Engine) throttleRefresh(ctx context.Context, rawToken string) error {
	if e.limiter == nil {
		return nil
	}

	err := e.limiter.CheckRefresh(ctx, token.PrefixOf(rawToken))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rate.ErrRateLimited):
		e.metricInc(MetricRefreshRateLimited)
		return ErrRefreshRateLimited
	default:
		e.warn("refresh throttle unavailable: %v", err)
		return nil
	}
}

func (e *Engine) noteRedemptionFailure(ctx context.Context, f flows.RefreshFailure, kind string) {
	switch f {
	case flows.RefreshFailureReplayed:
		e.metricInc(MetricTokenReuseBlocked)
		e.LogAnomalyDetected(ctx, "", 0.6, []string{"token_reuse"}, map[string]any{"kind": kind})
	case flows.RefreshFailurePolicy:
		e.metricInc(MetricDevicePolicyRejected)
	}
}
