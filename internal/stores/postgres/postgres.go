// Package postgres implements the store and ledger contracts on
// PostgreSQL via pgx. Row locks come from SELECT ... FOR UPDATE; the
// audit chain tail and device-key critical sections use transaction-
// scoped advisory locks, so all coordination lives in the database and
// survives process restarts and multi-instance deployments.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pagespace/authcore/store"
)

// lockTimeout bounds row-lock waits inside every transaction so one
// stuck transaction cannot wedge the whole auth system. Exceeding it
// surfaces as a retryable store.ErrLockWait.
const lockTimeout = "5s"

// pgLockNotAvailable is the SQLSTATE raised when lock_timeout fires.
const pgLockNotAvailable = "55P03"

// Store is a pgx-backed implementation of the engine's persistence
// contracts.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an existing connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Connect opens a pool for dsn and wraps it.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

func mapLockErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgLockNotAvailable {
		return fmt.Errorf("%w: %v", store.ErrLockWait, err)
	}
	return err
}

const userColumns = `id, email, password_hash, role, token_version, failed_login_attempts, locked_until`

func scanUser(row pgx.Row) (*store.UserRecord, error) {
	var u store.UserRecord
	err := row.Scan(
		&u.UserID,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.TokenVersion,
		&u.FailedLoginAttempts,
		&u.LockedUntil,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapLockErr(err)
	}
	return &u, nil
}

// GetUserByID returns the user row, or nil when absent.
func (s *Store) GetUserByID(ctx context.Context, userID string) (*store.UserRecord, error) {
	return scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
}

// GetUserByEmail returns the user row, or nil when absent.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*store.UserRecord, error) {
	return scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// InsertSession persists a new session row.
func (s *Store) InsertSession(ctx context.Context, rec *store.SessionRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (id, user_id, token_hash, type, scopes, token_version, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.UserID, rec.TokenHash, string(rec.Type), rec.Scopes,
		rec.TokenVersion, rec.ExpiresAt, rec.CreatedAt,
	)
	return err
}

const sessionColumns = `id, user_id, token_hash, type, scopes, token_version,
	expires_at, created_at, last_used_at, revoked_at, COALESCE(revoked_reason, '')`

func scanSession(row pgx.Row) (*store.SessionRecord, error) {
	var rec store.SessionRecord
	var typ string
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.TokenHash,
		&typ,
		&rec.Scopes,
		&rec.TokenVersion,
		&rec.ExpiresAt,
		&rec.CreatedAt,
		&rec.LastUsedAt,
		&rec.RevokedAt,
		&rec.RevokedReason,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapLockErr(err)
	}
	rec.Type = store.SessionType(typ)
	return &rec, nil
}

// GetSessionByTokenHash returns the session row for the hash, or nil.
func (s *Store) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*store.SessionRecord, error) {
	return scanSession(s.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE token_hash = $1`, tokenHash))
}

// TouchSessionLastUsed records validation-time bookkeeping off the hot
// path; callers swallow its errors.
func (s *Store) TouchSessionLastUsed(ctx context.Context, sessionID string, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE sessions SET last_used_at = $2 WHERE id = $1`, sessionID, at)
	return err
}

// RevokeSessionByTokenHash marks the matching session revoked. Already
// revoked rows are left untouched, which makes revocation idempotent.
func (s *Store) RevokeSessionByTokenHash(ctx context.Context, tokenHash, reason string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE sessions SET revoked_at = $2, revoked_reason = $3
		WHERE token_hash = $1 AND revoked_at IS NULL`,
		tokenHash, at, reason)
	return err
}

// RevokeAllUserSessions bulk-revokes every active session for the user
// in one statement and reports the affected row count.
func (s *Store) RevokeAllUserSessions(ctx context.Context, userID, reason string, at time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE sessions SET revoked_at = $2, revoked_reason = $3
		WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > $2`,
		userID, at, reason)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// WithTx runs fn inside one transaction with the lock-wait bound
// applied. fn errors roll the transaction back.
func (s *Store) WithTx(ctx context.Context, fn func(store.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SET LOCAL lock_timeout = '`+lockTimeout+`'`); err != nil {
		return err
	}
	if err := fn(&pgTx{tx: tx}); err != nil {
		return mapLockErr(err)
	}
	return tx.Commit(ctx)
}
