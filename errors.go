package authcore

import "errors"

var (
	// ErrUserNotFound is returned when an operation references a user ID
	// that does not resolve.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials is the uniform login failure. Wrong password
	// and nonexistent account are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is returned when the lockout guard blocks a login.
	ErrAccountLocked = errors.New("account locked")
	// ErrInvalidRefreshToken is returned for malformed or unknown refresh
	// and device tokens.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrTokenExpired is returned when the presented token's expiry has
	// passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenAlreadyUsed is returned for a redemption outside the grace
	// window of an already-consumed token.
	ErrTokenAlreadyUsed = errors.New("token already used")
	// ErrDeviceTokenRevoked is returned when a device token was revoked by
	// logout. Logout revocations never get grace-window replays.
	ErrDeviceTokenRevoked = errors.New("device token revoked")
	// ErrDeviceTokenInvalidated is returned when a device token's captured
	// tokenVersion no longer matches the user's current version.
	ErrDeviceTokenInvalidated = errors.New("device token invalidated by policy")
	// ErrLoginRateLimited is returned when the login throttle denies an
	// attempt before any credential check runs.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrRefreshRateLimited is returned when the refresh throttle denies a
	// redemption attempt.
	ErrRefreshRateLimited = errors.New("refresh rate limited")
	// ErrEngineNotReady is returned by operations on a nil or unbuilt
	// engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
