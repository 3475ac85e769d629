// Package ledger implements the tamper-evident security audit log: an
// append-only sequence of events in which every event carries the hash
// of its predecessor.
//
// Writes go through [Service.Log], which recomputes the chain tail
// inside the same locked transaction that inserts the event. The
// in-process cursor is a hint for observability only; after a restart
// or in a multi-instance deployment the persisted tail is the truth,
// and it is re-read under the chain lock on every append. Two committed
// events can therefore never share a PreviousHash.
//
// Durability is best-effort relative to the operation being audited:
// engine callers log-and-swallow append failures. Chain consistency is
// not best-effort: whenever an append does commit, it links correctly.
package ledger
