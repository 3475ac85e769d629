package flows

import (
	"context"
	"time"

	"github.com/pagespace/authcore/store"
)

// Minted is a freshly generated token's artifacts, produced by the
// Generate dep so flows stay free of crypto concerns.
type Minted struct {
	Raw    string
	Hash   string
	Prefix string
}

// RotationDeps captures device-token rotation dependencies.
type RotationDeps struct {
	ValidFormat func(string) bool
	HashToken   func(string) string
	Generate    func() (Minted, error)
	NewID       func() string
	Now         func() time.Time
	GracePeriod time.Duration
	TokenTTL    time.Duration
	Txer        TxRunner
}

// RotationOutcome carries the rotation result. NewToken is set only on
// first use; a grace-period replay succeeds without it, because the
// successor already went to the caller on the original request and
// minting another would leave two live tokens for one logical rotation.
type RotationOutcome struct {
	Failure          RefreshFailure
	Err              error
	UserID           string
	DeviceID         string
	Platform         string
	NewToken         string
	NewTokenID       string
	GracePeriodRetry bool
}

// RunRotation rotates a device token: consume the presented token, mint
// its successor in the same transaction, and link the two through
// ReplacedByTokenID. The stored tokenVersion is checked against the
// user's current version first, so "log out all devices" invalidates
// outstanding device tokens regardless of their revocation state.
func RunRotation(ctx context.Context, rawToken string, deps RotationDeps) RotationOutcome {
	if !deps.ValidFormat(rawToken) {
		return RotationOutcome{Failure: RefreshFailureFormat}
	}
	tokenHash := deps.HashToken(rawToken)

	var out RotationOutcome
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
		if rec.TokenVersion != u.TokenVersion {
			out.Failure = RefreshFailurePolicy
			return nil
		}

		if rec.RevokedAt == nil {
			minted, err := deps.Generate()
			if err != nil {
				return err
			}
			successor := &store.DeviceTokenRecord{
				ID:                      deps.NewID(),
				UserID:                  rec.UserID,
				DeviceID:                rec.DeviceID,
				Platform:                rec.Platform,
				TokenHash:               minted.Hash,
				TokenPrefix:             minted.Prefix,
				TokenVersion:            u.TokenVersion,
				ExpiresAt:               now.Add(deps.TokenTTL),
				CreatedAt:               now,
				DeviceName:              rec.DeviceName,
				TrustScore:              rec.TrustScore,
				SuspiciousActivityCount: rec.SuspiciousActivityCount,
			}
			if err := tx.InsertDeviceToken(ctx, successor); err != nil {
				return err
			}
			if err := tx.RevokeDeviceToken(ctx, rec.ID, store.RevokedRotated, now, successor.ID); err != nil {
				return err
			}
			out = RotationOutcome{
				UserID:     rec.UserID,
				DeviceID:   rec.DeviceID,
				Platform:   rec.Platform,
				NewToken:   minted.Raw,
				NewTokenID: successor.ID,
			}
			return nil
		}

		if rec.RevokedReason == store.RevokedRotated && now.Sub(*rec.RevokedAt) <= deps.GracePeriod {
			out = RotationOutcome{
				UserID:           rec.UserID,
				DeviceID:         rec.DeviceID,
				Platform:         rec.Platform,
				GracePeriodRetry: true,
			}
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
		return RotationOutcome{Failure: RefreshFailureStore, Err: err}
	}
	return out
}

// EnsureParams identifies the device slot being claimed and the token
// the client thinks it holds (empty when it has none).
type EnsureParams struct {
	UserID        string
	DeviceID      string
	Platform      string
	DeviceName    string
	TokenVersion  int
	ProvidedToken string
}

// EnsureDeps captures validate-or-create dependencies.
type EnsureDeps struct {
	HashToken         func(string) string
	Generate          func() (Minted, error)
	NewID             func() string
	Now               func() time.Time
	TokenTTL          time.Duration
	InitialTrustScore float64
	Txer              TxRunner
}

// EnsureOutcome reports which token the device should hold afterwards.
type EnsureOutcome struct {
	Failure RefreshFailure
	Err     error
	Token   string
	TokenID string
	IsNew   bool
}

// RunEnsure guarantees exactly one live token record per (user, device)
// pair. The device-key lock is taken before the existence check, so
// parallel login attempts for the same device serialize and converge on
// one record: the first creates it, the rest either revalidate the token
// they present or get the existing record rebound to a fresh secret.
func RunEnsure(ctx context.Context, params EnsureParams, deps EnsureDeps) EnsureOutcome {
	var out EnsureOutcome
	err := deps.Txer.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.LockDeviceKey(ctx, params.UserID, params.DeviceID); err != nil {
			return err
		}

		rec, err := tx.GetActiveDeviceToken(ctx, params.UserID, params.DeviceID)
		if err != nil {
			return err
		}
		now := deps.Now()

		if rec == nil {
			minted, err := deps.Generate()
			if err != nil {
				return err
			}
			created := &store.DeviceTokenRecord{
				ID:           deps.NewID(),
				UserID:       params.UserID,
				DeviceID:     params.DeviceID,
				Platform:     params.Platform,
				TokenHash:    minted.Hash,
				TokenPrefix:  minted.Prefix,
				TokenVersion: params.TokenVersion,
				ExpiresAt:    now.Add(deps.TokenTTL),
				CreatedAt:    now,
				DeviceName:   params.DeviceName,
				TrustScore:   deps.InitialTrustScore,
			}
			if err := tx.InsertDeviceToken(ctx, created); err != nil {
				return err
			}
			out = EnsureOutcome{Token: minted.Raw, TokenID: created.ID, IsNew: true}
			return nil
		}

		if params.ProvidedToken != "" &&
			deps.HashToken(params.ProvidedToken) == rec.TokenHash &&
			now.Before(rec.ExpiresAt) &&
			rec.TokenVersion == params.TokenVersion {
			out = EnsureOutcome{Token: params.ProvidedToken, TokenID: rec.ID}
			return nil
		}

		// The client lost or outdated its copy: bind a fresh secret to
		// the existing record instead of inserting a duplicate.
		minted, err := deps.Generate()
		if err != nil {
			return err
		}
		if err := tx.RebindDeviceToken(ctx, rec.ID, minted.Hash, minted.Prefix, params.TokenVersion, now.Add(deps.TokenTTL)); err != nil {
			return err
		}
		out = EnsureOutcome{Token: minted.Raw, TokenID: rec.ID}
		return nil
	})
	if err != nil {
		return EnsureOutcome{Failure: RefreshFailureStore, Err: err}
	}
	return out
}
