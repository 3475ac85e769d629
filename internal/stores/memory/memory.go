// Package memory is an in-process implementation of the store and
// ledger contracts. It serializes every transaction behind one mutex,
// which trivially satisfies the row-locking guarantees the engine needs,
// and is the backend the test suite and examples run against.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/pagespace/authcore/ledger"
	"github.com/pagespace/authcore/store"
)

// Store holds all records in maps guarded by a single mutex. A
// transaction snapshots state up front and restores it when the
// transaction function fails, so partial writes never leak.
type Store struct {
	mu           sync.Mutex
	users        map[string]store.UserRecord
	usersByEmail map[string]string
	sessions     map[string]store.SessionRecord
	sessionHash  map[string]string // tokenHash -> session ID
	deviceTokens map[string]store.DeviceTokenRecord
	deviceHash   map[string]string // tokenHash -> token ID
	events       []ledger.Event
}

// New creates an empty store.
func New() *Store {
	return &Store{
		users:        map[string]store.UserRecord{},
		usersByEmail: map[string]string{},
		sessions:     map[string]store.SessionRecord{},
		sessionHash:  map[string]string{},
		deviceTokens: map[string]store.DeviceTokenRecord{},
		deviceHash:   map[string]string{},
	}
}

// SeedUser inserts or replaces a user record. Test fixture entry point.
func (s *Store) SeedUser(u store.UserRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.UserID] = u
	if u.Email != "" {
		s.usersByEmail[u.Email] = u.UserID
	}
}

// MutateUser applies fn to the stored user record, if present.
func (s *Store) MutateUser(userID string, fn func(*store.UserRecord)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		fn(&u)
		s.users[userID] = u
	}
}

// MutateDeviceTokenByHash applies fn to the token record with the given
// hash, if present.
func (s *Store) MutateDeviceTokenByHash(tokenHash string, fn func(*store.DeviceTokenRecord)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.deviceHash[tokenHash]; ok {
		rec := s.deviceTokens[id]
		fn(&rec)
		s.deviceTokens[id] = rec
	}
}

// DeviceTokensForDevice returns every token record (live and revoked)
// for the (userID, deviceID) pair.
func (s *Store) DeviceTokensForDevice(userID, deviceID string) []store.DeviceTokenRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.DeviceTokenRecord
	for _, rec := range s.deviceTokens {
		if rec.UserID == userID && rec.DeviceID == deviceID {
			out = append(out, rec)
		}
	}
	return out
}

func (s *Store) GetUserByID(_ context.Context, userID string) (*store.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userByIDLocked(userID), nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*store.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.usersByEmail[email]
	if !ok {
		return nil, nil
	}
	return s.userByIDLocked(id), nil
}

func (s *Store) userByIDLocked(userID string) *store.UserRecord {
	u, ok := s.users[userID]
	if !ok {
		return nil
	}
	return &u
}

func (s *Store) InsertSession(_ context.Context, rec *store.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[rec.ID] = *rec
	s.sessionHash[rec.TokenHash] = rec.ID
	return nil
}

func (s *Store) GetSessionByTokenHash(_ context.Context, tokenHash string) (*store.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.sessionHash[tokenHash]
	if !ok {
		return nil, nil
	}
	rec := s.sessions[id]
	return &rec, nil
}

func (s *Store) TouchSessionLastUsed(_ context.Context, sessionID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.sessions[sessionID]; ok {
		rec.LastUsedAt = &at
		s.sessions[sessionID] = rec
	}
	return nil
}

func (s *Store) RevokeSessionByTokenHash(_ context.Context, tokenHash, reason string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.sessionHash[tokenHash]
	if !ok {
		return nil
	}
	rec := s.sessions[id]
	if rec.RevokedAt == nil {
		rec.RevokedAt = &at
		rec.RevokedReason = reason
		s.sessions[id] = rec
	}
	return nil
}

func (s *Store) RevokeAllUserSessions(_ context.Context, userID, reason string, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for id, rec := range s.sessions {
		if rec.UserID != userID || rec.RevokedAt != nil || !at.Before(rec.ExpiresAt) {
			continue
		}
		rec.RevokedAt = &at
		rec.RevokedReason = reason
		s.sessions[id] = rec
		count++
	}
	return count, nil
}

// WithTx holds the store mutex for the whole transaction, which gives
// every read the strength of a FOR UPDATE read. State is restored on
// error so a failed transaction leaves nothing behind.
func (s *Store) WithTx(_ context.Context, fn func(store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	backup := s.snapshotLocked()
	if err := fn(&memTx{s: s}); err != nil {
		s.restoreLocked(backup)
		return err
	}
	return nil
}

type snapshot struct {
	users        map[string]store.UserRecord
	deviceTokens map[string]store.DeviceTokenRecord
	deviceHash   map[string]string
}

func (s *Store) snapshotLocked() snapshot {
	snap := snapshot{
		users:        make(map[string]store.UserRecord, len(s.users)),
		deviceTokens: make(map[string]store.DeviceTokenRecord, len(s.deviceTokens)),
		deviceHash:   make(map[string]string, len(s.deviceHash)),
	}
	for k, v := range s.users {
		snap.users[k] = v
	}
	for k, v := range s.deviceTokens {
		snap.deviceTokens[k] = v
	}
	for k, v := range s.deviceHash {
		snap.deviceHash[k] = v
	}
	return snap
}

func (s *Store) restoreLocked(snap snapshot) {
	s.users = snap.users
	s.deviceTokens = snap.deviceTokens
	s.deviceHash = snap.deviceHash
}

// memTx operates on the already-locked store.
type memTx struct {
	s *Store
}

func (t *memTx) GetUserByID(_ context.Context, userID string) (*store.UserRecord, error) {
	return t.s.userByIDLocked(userID), nil
}

func (t *memTx) GetUserByIDForUpdate(_ context.Context, userID string) (*store.UserRecord, error) {
	return t.s.userByIDLocked(userID), nil
}

func (t *memTx) UpdateUserLockout(_ context.Context, userID string, failedAttempts int, lockedUntil *time.Time) error {
	u, ok := t.s.users[userID]
	if !ok {
		return nil
	}
	u.FailedLoginAttempts = failedAttempts
	u.LockedUntil = lockedUntil
	t.s.users[userID] = u
	return nil
}

func (t *memTx) GetDeviceTokenByHashForUpdate(_ context.Context, tokenHash string) (*store.DeviceTokenRecord, error) {
	id, ok := t.s.deviceHash[tokenHash]
	if !ok {
		return nil, nil
	}
	rec := t.s.deviceTokens[id]
	return &rec, nil
}

func (t *memTx) LockDeviceKey(context.Context, string, string) error {
	// The store mutex already serializes all transactions.
	return nil
}

func (t *memTx) GetActiveDeviceToken(_ context.Context, userID, deviceID string) (*store.DeviceTokenRecord, error) {
	for _, rec := range t.s.deviceTokens {
		if rec.UserID == userID && rec.DeviceID == deviceID && rec.RevokedAt == nil {
			out := rec
			return &out, nil
		}
	}
	return nil, nil
}

func (t *memTx) InsertDeviceToken(_ context.Context, rec *store.DeviceTokenRecord) error {
	t.s.deviceTokens[rec.ID] = *rec
	t.s.deviceHash[rec.TokenHash] = rec.ID
	return nil
}

func (t *memTx) RevokeDeviceToken(_ context.Context, tokenID, reason string, at time.Time, replacedByTokenID string) error {
	rec, ok := t.s.deviceTokens[tokenID]
	if !ok {
		return nil
	}
	if rec.RevokedAt == nil {
		rec.RevokedAt = &at
		rec.RevokedReason = reason
		rec.ReplacedByTokenID = replacedByTokenID
		t.s.deviceTokens[tokenID] = rec
	}
	return nil
}

func (t *memTx) RebindDeviceToken(_ context.Context, tokenID, tokenHash, tokenPrefix string, tokenVersion int, expiresAt time.Time) error {
	rec, ok := t.s.deviceTokens[tokenID]
	if !ok {
		return nil
	}
	delete(t.s.deviceHash, rec.TokenHash)
	rec.TokenHash = tokenHash
	rec.TokenPrefix = tokenPrefix
	rec.TokenVersion = tokenVersion
	rec.ExpiresAt = expiresAt
	t.s.deviceTokens[tokenID] = rec
	t.s.deviceHash[tokenHash] = tokenID
	return nil
}

// Append implements the ledger chain-append contract under the same
// store-wide mutex all writers share.
func (s *Store) Append(_ context.Context, fn func(prevHash string) (*ledger.Event, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := ledger.Genesis
	if n := len(s.events); n > 0 {
		prev = s.events[n-1].EventHash
	}
	ev, err := fn(prev)
	if err != nil {
		return err
	}
	s.events = append(s.events, *ev)
	return nil
}

func (s *Store) TailHash(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.events); n > 0 {
		return s.events[n-1].EventHash, nil
	}
	return ledger.Genesis, nil
}

func (s *Store) ReadEvents(_ context.Context, q ledger.Query) ([]ledger.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []ledger.Event
	for i := len(s.events) - 1; i >= 0; i-- {
		e := s.events[i]
		if q.UserID != "" && e.UserID != q.UserID {
			continue
		}
		if q.EventType != "" && e.EventType != q.EventType {
			continue
		}
		if !q.From.IsZero() && e.Timestamp.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && e.Timestamp.After(q.To) {
			continue
		}
		out = append(out, e)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

// Events returns the full chain oldest-first, for verification in tests.
func (s *Store) Events() []ledger.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ledger.Event, len(s.events))
	copy(out, s.events)
	return out
}
