package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/pagespace/authcore/ledger"
)

// auditChainLockKey is the advisory-lock key every chain writer takes.
// One shared key, not per-row locks, is what makes appends
// linearizable with respect to previousHash linkage.
const auditChainLockKey = int64(0x617564_6c6f67) // "aud log"

// Append runs the chain append protocol: lock, read tail, compute, insert.
func (s *Store) Append(ctx context.Context, fn func(prevHash string) (*ledger.Event, error)) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, auditChainLockKey); err != nil {
		return err
	}

	prev, err := tailHash(ctx, tx)
	if err != nil {
		return err
	}

	ev, err := fn(prev)
	if err != nil {
		return err
	}

	details, err := json.Marshal(ev.Details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO security_audit_log (
			id, event_type, user_id, session_id, service_id, resource_type,
			resource_id, ip_address, user_agent, details, risk_score,
			anomaly_flags, timestamp, previous_hash, event_hash
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		ev.ID, ev.EventType, nullIfEmpty(ev.UserID), nullIfEmpty(ev.SessionID),
		nullIfEmpty(ev.ServiceID), nullIfEmpty(ev.ResourceType), nullIfEmpty(ev.ResourceID),
		nullIfEmpty(ev.IPAddress), nullIfEmpty(ev.UserAgent), details, ev.RiskScore,
		ev.AnomalyFlags, ev.Timestamp, ev.PreviousHash, ev.EventHash,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// TailHash reads the hash of the newest persisted event, or genesis.
func (s *Store) TailHash(ctx context.Context) (string, error) {
	return tailHash(ctx, s.pool)
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func tailHash(ctx context.Context, q rowQuerier) (string, error) {
	var hash string
	err := q.QueryRow(ctx,
		`SELECT event_hash FROM security_audit_log ORDER BY seq DESC LIMIT 1`).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Genesis, nil
	}
	if err != nil {
		return "", err
	}
	return hash, nil
}

// ReadEvents returns events matching q, newest first.
func (s *Store) ReadEvents(ctx context.Context, q ledger.Query) ([]ledger.Event, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if q.UserID != "" {
		where = append(where, "user_id = "+arg(q.UserID))
	}
	if q.EventType != "" {
		where = append(where, "event_type = "+arg(q.EventType))
	}
	if !q.From.IsZero() {
		where = append(where, "timestamp >= "+arg(q.From))
	}
	if !q.To.IsZero() {
		where = append(where, "timestamp <= "+arg(q.To))
	}

	sql := `
		SELECT id, event_type, COALESCE(user_id, ''), COALESCE(session_id, ''),
			COALESCE(service_id, ''), COALESCE(resource_type, ''), COALESCE(resource_id, ''),
			COALESCE(ip_address, ''), COALESCE(user_agent, ''), details, risk_score,
			anomaly_flags, timestamp, previous_hash, event_hash
		FROM security_audit_log`
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY seq DESC"
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	sql += " LIMIT " + arg(limit)

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Event
	for rows.Next() {
		var (
			ev      ledger.Event
			details []byte
		)
		if err := rows.Scan(
			&ev.ID, &ev.EventType, &ev.UserID, &ev.SessionID, &ev.ServiceID,
			&ev.ResourceType, &ev.ResourceID, &ev.IPAddress, &ev.UserAgent,
			&details, &ev.RiskScore, &ev.AnomalyFlags, &ev.Timestamp,
			&ev.PreviousHash, &ev.EventHash,
		); err != nil {
			return nil, err
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &ev.Details); err != nil {
				return nil, fmt.Errorf("decode audit details: %w", err)
			}
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
