// Package store defines the persisted records and backend interfaces the
// authcore engine coordinates through.
//
// The relational database is the sole source of truth and the sole
// serialization point for token, session, and lockout state: the engine
// keeps no mutable authorization state in process. Implementations must
// provide real transactions and row-level locking; the ForUpdate read
// methods on [Tx] are required to block concurrent transactions touching
// the same row until commit, the way SELECT ... FOR UPDATE does.
//
// Two implementations ship with the module: internal/stores/postgres on
// pgx, and internal/stores/memory for tests and examples.
package store
