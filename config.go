package authcore

import (
	"errors"
	"time"

	"github.com/pagespace/authcore/oauth"
)

// LockoutConfig tunes the failed-attempt guard.
type LockoutConfig struct {
	// Threshold is the failure count that triggers a lockout.
	Threshold int
	// Duration is how long a triggered lockout holds.
	Duration time.Duration
}

// SessionConfig tunes session issuance.
type SessionConfig struct {
	// DefaultTTL applies when CreateSessionParams.ExpiresIn is zero.
	DefaultTTL time.Duration
}

// RefreshConfig tunes refresh and rotation redemption.
type RefreshConfig struct {
	// GracePeriod is the window after first use during which a replayed
	// redemption of the same token is answered idempotently instead of
	// being treated as an attack.
	GracePeriod time.Duration
}

// DeviceConfig tunes device-token issuance.
type DeviceConfig struct {
	TokenTTL          time.Duration
	InitialTrustScore float64
}

// AuditConfig tunes the optional audit mirror. The durable hash chain is
// always written; the mirror additionally forwards committed events to a
// caller-supplied sink off the critical path.
type AuditConfig struct {
	MirrorEnabled bool
	MirrorBuffer  int
	DropIfFull    bool
}

// SecurityConfig tunes the Redis throttles that absorb bursts before the
// persistent lockout guard is touched. All throttling is skipped when
// the engine is built without a Redis client.
type SecurityConfig struct {
	EnableIPThrottle        bool
	EnableRefreshThrottle   bool
	MaxLoginAttempts        int
	LoginCooldownDuration   time.Duration
	MaxRefreshAttempts      int
	RefreshCooldownDuration time.Duration
}

// PasswordConfig holds the argon2id cost parameters for the login gate.
type PasswordConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// MetricsConfig toggles the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// Config is the engine's full tuning surface. Zero values are filled
// from defaultConfig by the builder; Validate rejects combinations that
// would weaken the redemption or lockout guarantees.
type Config struct {
	Lockout  LockoutConfig
	Session  SessionConfig
	Refresh  RefreshConfig
	Device   DeviceConfig
	Audit    AuditConfig
	Security SecurityConfig
	Password PasswordConfig
	Metrics  MetricsConfig
	OAuth    oauth.Config
}

// DefaultConfig returns the configuration an unconfigured Builder
// starts from.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Lockout: LockoutConfig{
			Threshold: 10,
			Duration:  15 * time.Minute,
		},
		Session: SessionConfig{
			DefaultTTL: 24 * time.Hour,
		},
		Refresh: RefreshConfig{
			GracePeriod: 30 * time.Second,
		},
		Device: DeviceConfig{
			TokenTTL:          90 * 24 * time.Hour,
			InitialTrustScore: 0.5,
		},
		Audit: AuditConfig{
			MirrorBuffer: 256,
			DropIfFull:   true,
		},
		Security: SecurityConfig{
			MaxLoginAttempts:        10,
			LoginCooldownDuration:   15 * time.Minute,
			MaxRefreshAttempts:      30,
			RefreshCooldownDuration: time.Minute,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
	}
}

// Validate rejects configurations that would weaken core guarantees.
func (c Config) Validate() error {
	switch {
	case c.Lockout.Threshold < 1:
		return errors.New("Lockout.Threshold must be at least 1")
	case c.Lockout.Duration <= 0:
		return errors.New("Lockout.Duration must be positive")
	case c.Session.DefaultTTL <= 0:
		return errors.New("Session.DefaultTTL must be positive")
	case c.Refresh.GracePeriod < 0:
		return errors.New("Refresh.GracePeriod must not be negative")
	case c.Device.TokenTTL <= 0:
		return errors.New("Device.TokenTTL must be positive")
	case c.Device.InitialTrustScore < 0 || c.Device.InitialTrustScore > 1:
		return errors.New("Device.InitialTrustScore must be within [0, 1]")
	case c.Security.MaxLoginAttempts < 1:
		return errors.New("Security.MaxLoginAttempts must be at least 1")
	case c.Security.MaxRefreshAttempts < 1:
		return errors.New("Security.MaxRefreshAttempts must be at least 1")
	}
	return nil
}

func cloneConfig(c Config) Config {
	out := c
	out.OAuth.GoogleAudiences = cloneStrings(c.OAuth.GoogleAudiences)
	out.OAuth.AppleAudiences = cloneStrings(c.OAuth.AppleAudiences)
	out.OAuth.GoogleIssuers = cloneStrings(c.OAuth.GoogleIssuers)
	out.OAuth.AppleIssuers = cloneStrings(c.OAuth.AppleIssuers)
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
