package authcore

import (
	"context"

	"github.com/google/uuid"
	"github.com/pagespace/authcore/internal/flows"
	"github.com/pagespace/authcore/store"
	"github.com/pagespace/authcore/token"
)

func mintDeviceToken() (flows.Minted, error) {
	t, err := token.Generate(token.TypeDevice)
	if err != nil {
		return flows.Minted{}, err
	}
	return flows.Minted{Raw: t.Raw, Hash: t.Hash, Prefix: t.Prefix}, nil
}

// RotateDeviceToken consumes the presented device token and mints its
// successor in the same transaction, linking the two records. A grace
// window replay succeeds without a new token: the successor already went
// out on the original response, and minting another would leave two live
// tokens for one logical rotation. A tokenVersion mismatch against the
// user's current version fails with ErrDeviceTokenInvalidated before any
// revocation handling; that is how "log out all devices" reaches device
// tokens.
func (e *Engine) RotateDeviceToken(ctx context.Context, rawToken string) (*RotationResult, error) {
	if e == nil || e.backend == nil {
		return nil, ErrEngineNotReady
	}

	if err := e.throttleRefresh(ctx, rawToken); err != nil {
		return nil, err
	}

	out := flows.RunRotation(ctx, rawToken, flows.RotationDeps{
		ValidFormat: token.IsValidFormat,
		HashToken:   token.HashRaw,
		Generate:    mintDeviceToken,
		NewID:       uuid.NewString,
		Now:         e.now,
		GracePeriod: e.config.Refresh.GracePeriod,
		TokenTTL:    e.config.Device.TokenTTL,
		Txer:        e.backend,
	})
	if out.Failure != flows.RefreshFailureNone {
		e.noteRedemptionFailure(ctx, out.Failure, "rotation")
		return nil, redemptionError(out.Failure, out.Err)
	}

	if out.GracePeriodRetry {
		e.metricInc(MetricRotationGraceReplay)
	} else {
		e.metricInc(MetricRotationSuccess)
		e.LogTokenRevoked(ctx, out.UserID, store.RevokedRotated, "device")
		e.LogTokenCreated(ctx, out.UserID, out.NewTokenID, "device")
	}

	return &RotationResult{
		UserID:           out.UserID,
		DeviceID:         out.DeviceID,
		Platform:         out.Platform,
		NewToken:         out.NewToken,
		NewTokenID:       out.NewTokenID,
		GracePeriodRetry: out.GracePeriodRetry,
	}, nil
}

// EnsureDeviceToken guarantees exactly one live token record for the
// (user, device) pair. A valid provided token is reused; a missing
// record is created; a record whose secret the client lost is rebound to
// a fresh secret rather than duplicated. Concurrent calls for the same
// device serialize on the device key lock and converge on one record.
func (e *Engine) EnsureDeviceToken(ctx context.Context, params DeviceTokenParams) (*DeviceTokenResult, error) {
	if e == nil || e.backend == nil {
		return nil, ErrEngineNotReady
	}

	out := flows.RunEnsure(ctx, flows.EnsureParams{
		UserID:        params.UserID,
		DeviceID:      params.DeviceID,
		Platform:      params.Platform,
		DeviceName:    params.DeviceName,
		TokenVersion:  params.TokenVersion,
		ProvidedToken: params.ProvidedToken,
	}, flows.EnsureDeps{
		HashToken:         token.HashRaw,
		Generate:          mintDeviceToken,
		NewID:             uuid.NewString,
		Now:               e.now,
		TokenTTL:          e.config.Device.TokenTTL,
		InitialTrustScore: e.config.Device.InitialTrustScore,
		Txer:              e.backend,
	})
	if out.Failure != flows.RefreshFailureNone {
		return nil, redemptionError(out.Failure, out.Err)
	}

	e.metricInc(MetricDeviceTokenEnsured)
	if out.IsNew {
		e.LogTokenCreated(ctx, params.UserID, out.TokenID, "device")
	}

	return &DeviceTokenResult{
		Token:   out.Token,
		TokenID: out.TokenID,
		IsNew:   out.IsNew,
	}, nil
}
