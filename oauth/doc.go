// Package oauth verifies externally-issued OpenID Connect ID tokens
// (Google and Apple) and normalizes their claims for the account
// machinery.
//
// Signature and expiry checks run through golang-jwt against the
// issuer's published JWKS, cached in-process and refetched on expiry or
// unknown key IDs; concurrent refetches collapse into one request.
// Verification failures pass through the underlying library's message
// unaltered so callers can distinguish expired from malformed tokens,
// and the raw token value is never logged.
//
// Multiple audiences may be configured per provider (web + iOS client
// IDs are simultaneously valid). Apple tokens routinely omit name and
// picture; that is expected, not an error. Only the subject and email
// claims are required.
package oauth
