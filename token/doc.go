// Package token mints and inspects the opaque bearer tokens used across
// the authcore engine.
//
// A raw token has the wire-stable shape
//
//	ps_<type>_<43 base64url chars>
//
// where the trailing segment encodes 32 bytes from crypto/rand. The raw
// value is returned to the caller exactly once and never persisted; the
// backing store keeps only the SHA-256 hex digest and a 12-character
// prefix used for candidate lookup before hash comparison.
//
// # What this package must NOT do
//
//   - Perform I/O or touch a store; every function here is pure.
//   - Log or otherwise retain raw token values.
package token
