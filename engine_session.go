package authcore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pagespace/authcore/internal/flows"
	"github.com/pagespace/authcore/store"
	"github.com/pagespace/authcore/token"
)

// tokenTypeFor maps a session classification to its wire token tag.
// Device-type sessions are still bearer sessions; the "dev" tag is
// reserved for long-lived refresh tokens.
func tokenTypeFor(t SessionType) token.Type {
	switch t {
	case store.SessionService:
		return token.TypeService
	case store.SessionMCP:
		return token.TypeMCP
	default:
		return token.TypeSession
	}
}

// CreateSession issues a bearer session for the user. The returned raw
// token is visible exactly once; only its hash is persisted.
func (e *Engine) CreateSession(ctx context.Context, params CreateSessionParams) (*SessionResult, error) {
	if e == nil || e.backend == nil {
		return nil, ErrEngineNotReady
	}

	u, err := e.backend.GetUserByID(ctx, params.UserID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u == nil {
		return nil, ErrUserNotFound
	}

	tok, err := token.Generate(tokenTypeFor(params.Type))
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	ttl := params.ExpiresIn
	if ttl <= 0 {
		ttl = e.config.Session.DefaultTTL
	}

	now := e.now()
	rec := &store.SessionRecord{
		ID:           uuid.NewString(),
		UserID:       u.UserID,
		TokenHash:    tok.Hash,
		Type:         params.Type,
		Scopes:       append([]string(nil), params.Scopes...),
		TokenVersion: u.TokenVersion,
		ExpiresAt:    now.Add(ttl),
		CreatedAt:    now,
	}
	if err := e.backend.InsertSession(ctx, rec); err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	e.metricInc(MetricSessionCreated)
	e.LogTokenCreated(ctx, u.UserID, rec.ID, string(params.Type))

	return &SessionResult{
		Token:     tok.Raw,
		SessionID: rec.ID,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

// ValidateSession checks a raw bearer token and returns its claims, or
// nil for any failure: malformed format, unknown hash, expiry,
// revocation, or a tokenVersion left behind by "log out everywhere".
// Validation never errors; infrastructure failures also yield nil. On
// success lastUsedAt is updated off the request path, best-effort.
func (e *Engine) ValidateSession(ctx context.Context, rawToken string) *SessionClaims {
	if e == nil || e.backend == nil {
		return nil
	}

	start := e.now()
	out := flows.RunValidate(ctx, rawToken, flows.ValidateDeps{
		ValidFormat: token.IsValidFormat,
		HashToken:   token.HashRaw,
		Now:         e.now,
		Store:       e.backend,
	})
	e.metrics.Observe(MetricValidateLatency, e.now().Sub(start))

	if out.Failure != flows.SessionFailureNone {
		if out.Err != nil {
			e.warn("session validation store error: %v", out.Err)
		}
		e.metricInc(MetricSessionRejected)
		return nil
	}

	sess := out.Session
	go e.touchSession(sess.ID)

	e.metricInc(MetricSessionValidated)
	return &SessionClaims{
		UserID:    sess.UserID,
		Type:      sess.Type,
		Scopes:    sess.Scopes,
		SessionID: sess.ID,
		ExpiresAt: sess.ExpiresAt,
	}
}

// touchSession updates lastUsedAt with its own deadline, detached from
// the request that validated the session.
func (e *Engine) touchSession(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := e.backend.TouchSessionLastUsed(ctx, sessionID, e.now()); err != nil {
		e.warn("lastUsedAt update failed for session %s: %v", sessionID, err)
	}
}

// RevokeSession revokes the session matching the raw token. Revoking a
// session that is already revoked or unknown is not an error.
func (e *Engine) RevokeSession(ctx context.Context, rawToken, reason string) error {
	if e == nil || e.backend == nil {
		return ErrEngineNotReady
	}
	if !token.IsValidFormat(rawToken) {
		return nil
	}

	if err := e.backend.RevokeSessionByTokenHash(ctx, token.HashRaw(rawToken), reason, e.now()); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	e.metricInc(MetricSessionRevoked)
	e.LogTokenRevoked(ctx, "", reason, "session")
	return nil
}

// RevokeAllUserSessions revokes every active session owned by the user
// and returns how many were affected.
func (e *Engine) RevokeAllUserSessions(ctx context.Context, userID, reason string) (int, error) {
	if e == nil || e.backend == nil {
		return 0, ErrEngineNotReady
	}

	n, err := e.backend.RevokeAllUserSessions(ctx, userID, reason, e.now())
	if err != nil {
		return 0, fmt.Errorf("revoke user sessions: %w", err)
	}

	e.metricInc(MetricLogoutAll)
	e.LogTokenRevoked(ctx, userID, reason, "session-bulk")
	return n, nil
}
