// Package authcore is the authentication token lifecycle core behind
// pagespace services: opaque bearer sessions, atomically redeemed
// refresh and device tokens with a replay grace window, a persistent
// account lockout guard, a tamper-evident hash-chained audit ledger,
// and verification of externally issued Google/Apple ID tokens.
//
// The package is designed for concurrent server workloads: Engine
// methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder],
// [Config], sentinel errors, and value types. Flow orchestration and
// the Redis throttles live under internal/ and are never exported;
// token derivation, persistence contracts, the audit chain, and OAuth
// verification live in the token, store, ledger, and oauth
// subpackages.
//
// # What this package must NOT do
//
//   - Persist or log a raw token value. Only hashes and short lookup
//     prefixes are ever stored.
//   - Coordinate token state in process memory. Every redemption,
//     rotation, and lockout mutation serializes through the backend's
//     transactions and row locks, so multiple instances stay correct.
//   - Let audit or bookkeeping failures abort the operation that
//     triggered them. Those paths log and swallow.
//
// # Concurrency contract
//
// Redeeming the same refresh or device token from N callers yields
// exactly one first-use result; retries inside the grace window receive
// the same payload flagged as a replay, and later attempts fail. The
// audit chain never forks: every append runs under a single chain-wide
// lock and re-reads the persisted tail inside its own transaction.
package authcore
