package postgres

import "context"

// Schema is the DDL for the tables this package manages. The users table
// carries only the columns the auth core owns; deployments with a richer
// user model extend it separately.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id                    TEXT PRIMARY KEY,
	email                 TEXT NOT NULL UNIQUE,
	password_hash         TEXT NOT NULL DEFAULT '',
	role                  TEXT NOT NULL DEFAULT 'user',
	token_version         INTEGER NOT NULL DEFAULT 1,
	failed_login_attempts INTEGER NOT NULL DEFAULT 0,
	locked_until          TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS sessions (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL REFERENCES users (id),
	token_hash     TEXT NOT NULL UNIQUE,
	type           TEXT NOT NULL,
	scopes         TEXT[] NOT NULL DEFAULT '{}',
	token_version  INTEGER NOT NULL,
	expires_at     TIMESTAMPTZ NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	last_used_at   TIMESTAMPTZ,
	revoked_at     TIMESTAMPTZ,
	revoked_reason TEXT
);
CREATE INDEX IF NOT EXISTS sessions_user_idx ON sessions (user_id) WHERE revoked_at IS NULL;

CREATE TABLE IF NOT EXISTS device_tokens (
	id                        TEXT PRIMARY KEY,
	user_id                   TEXT NOT NULL REFERENCES users (id),
	device_id                 TEXT NOT NULL,
	platform                  TEXT NOT NULL DEFAULT '',
	token_hash                TEXT NOT NULL UNIQUE,
	token_prefix              TEXT NOT NULL,
	token_version             INTEGER NOT NULL,
	expires_at                TIMESTAMPTZ NOT NULL,
	created_at                TIMESTAMPTZ NOT NULL,
	device_name               TEXT,
	trust_score               DOUBLE PRECISION NOT NULL DEFAULT 0,
	suspicious_activity_count INTEGER NOT NULL DEFAULT 0,
	revoked_at                TIMESTAMPTZ,
	revoked_reason            TEXT,
	replaced_by_token_id      TEXT
);
CREATE INDEX IF NOT EXISTS device_tokens_prefix_idx ON device_tokens (token_prefix);
CREATE INDEX IF NOT EXISTS device_tokens_device_idx ON device_tokens (user_id, device_id) WHERE revoked_at IS NULL;

CREATE TABLE IF NOT EXISTS security_audit_log (
	seq           BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	id            TEXT NOT NULL UNIQUE,
	event_type    TEXT NOT NULL,
	user_id       TEXT,
	session_id    TEXT,
	service_id    TEXT,
	resource_type TEXT,
	resource_id   TEXT,
	ip_address    TEXT,
	user_agent    TEXT,
	details       JSONB,
	risk_score    DOUBLE PRECISION NOT NULL DEFAULT 0,
	anomaly_flags TEXT[] NOT NULL DEFAULT '{}',
	timestamp     TIMESTAMPTZ NOT NULL,
	previous_hash TEXT NOT NULL,
	event_hash    TEXT NOT NULL UNIQUE
);
CREATE INDEX IF NOT EXISTS audit_user_idx ON security_audit_log (user_id, seq DESC);
CREATE INDEX IF NOT EXISTS audit_type_idx ON security_audit_log (event_type, seq DESC);
`

// Migrate applies Schema. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, Schema)
	return err
}
