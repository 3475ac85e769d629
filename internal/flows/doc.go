// Package flows contains the pure state machines behind the engine's
// token lifecycle operations. Each flow takes its collaborators as a
// Deps struct of narrow interfaces and function fields, reports failures
// as enum kinds for root-level error mapping, and performs all of its
// reads and writes inside a single store transaction.
//
// # What this package must NOT do
//
//   - Import the root authcore package (flows are below it).
//   - Hold state between calls; coordination lives in the store's row
//     and advisory locks.
package flows
