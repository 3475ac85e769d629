package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pagespace/authcore/store"
)

// pgTx implements store.Tx on an open pgx transaction.
type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) GetUserByID(ctx context.Context, userID string) (*store.UserRecord, error) {
	return scanUser(t.tx.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
}

func (t *pgTx) GetUserByIDForUpdate(ctx context.Context, userID string) (*store.UserRecord, error) {
	return scanUser(t.tx.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, userID))
}

func (t *pgTx) UpdateUserLockout(ctx context.Context, userID string, failedAttempts int, lockedUntil *time.Time) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE users SET failed_login_attempts = $2, locked_until = $3
		WHERE id = $1`,
		userID, failedAttempts, lockedUntil)
	return mapLockErr(err)
}

const deviceTokenColumns = `id, user_id, device_id, platform, token_hash, token_prefix,
	token_version, expires_at, created_at, COALESCE(device_name, ''), trust_score,
	suspicious_activity_count, revoked_at, COALESCE(revoked_reason, ''),
	COALESCE(replaced_by_token_id, '')`

func scanDeviceToken(row pgx.Row) (*store.DeviceTokenRecord, error) {
	var rec store.DeviceTokenRecord
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.DeviceID,
		&rec.Platform,
		&rec.TokenHash,
		&rec.TokenPrefix,
		&rec.TokenVersion,
		&rec.ExpiresAt,
		&rec.CreatedAt,
		&rec.DeviceName,
		&rec.TrustScore,
		&rec.SuspiciousActivityCount,
		&rec.RevokedAt,
		&rec.RevokedReason,
		&rec.ReplacedByTokenID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapLockErr(err)
	}
	return &rec, nil
}

// GetDeviceTokenByHashForUpdate takes the row lock that serializes
// concurrent redeemers of the same token.
func (t *pgTx) GetDeviceTokenByHashForUpdate(ctx context.Context, tokenHash string) (*store.DeviceTokenRecord, error) {
	return scanDeviceToken(t.tx.QueryRow(ctx,
		`SELECT `+deviceTokenColumns+` FROM device_tokens WHERE token_hash = $1 FOR UPDATE`,
		tokenHash))
}

// LockDeviceKey serializes validate-or-create sequences for one device
// with a transaction-scoped advisory lock on the (user, device) pair.
// Unlike a row lock this also covers the case where no row exists yet.
func (t *pgTx) LockDeviceKey(ctx context.Context, userID, deviceID string) error {
	_, err := t.tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtext($1), hashtext($2))`, userID, deviceID)
	return mapLockErr(err)
}

func (t *pgTx) GetActiveDeviceToken(ctx context.Context, userID, deviceID string) (*store.DeviceTokenRecord, error) {
	return scanDeviceToken(t.tx.QueryRow(ctx, `
		SELECT `+deviceTokenColumns+` FROM device_tokens
		WHERE user_id = $1 AND device_id = $2 AND revoked_at IS NULL
		ORDER BY created_at DESC LIMIT 1 FOR UPDATE`,
		userID, deviceID))
}

func (t *pgTx) InsertDeviceToken(ctx context.Context, rec *store.DeviceTokenRecord) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO device_tokens (
			id, user_id, device_id, platform, token_hash, token_prefix,
			token_version, expires_at, created_at, device_name, trust_score,
			suspicious_activity_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		rec.ID, rec.UserID, rec.DeviceID, rec.Platform, rec.TokenHash, rec.TokenPrefix,
		rec.TokenVersion, rec.ExpiresAt, rec.CreatedAt, rec.DeviceName, rec.TrustScore,
		rec.SuspiciousActivityCount,
	)
	return mapLockErr(err)
}

func (t *pgTx) RevokeDeviceToken(ctx context.Context, tokenID, reason string, at time.Time, replacedByTokenID string) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE device_tokens
		SET revoked_at = $2, revoked_reason = $3, replaced_by_token_id = NULLIF($4, '')
		WHERE id = $1 AND revoked_at IS NULL`,
		tokenID, at, reason, replacedByTokenID)
	return mapLockErr(err)
}

func (t *pgTx) RebindDeviceToken(ctx context.Context, tokenID, tokenHash, tokenPrefix string, tokenVersion int, expiresAt time.Time) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE device_tokens
		SET token_hash = $2, token_prefix = $3, token_version = $4, expires_at = $5
		WHERE id = $1`,
		tokenID, tokenHash, tokenPrefix, tokenVersion, expiresAt)
	return mapLockErr(err)
}
