package authcore

import (
	"errors"
	"time"

	"github.com/pagespace/authcore/internal/rate"
	"github.com/pagespace/authcore/ledger"
	"github.com/pagespace/authcore/oauth"
	"github.com/pagespace/authcore/password"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. Configure during initialization, call
// Build once, then treat the engine as immutable.
type Builder struct {
	config    Config
	backend   Backend
	redis     redis.UniversalClient
	auditSink ledger.Sink

	built bool
}

// New returns a Builder primed with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBackend sets the persistence backend. Required.
func (b *Builder) WithBackend(backend Backend) *Builder {
	b.backend = backend
	return b
}

// WithRedis enables the burst throttles. Without a client the engine
// runs with throttling disabled; the persistent lockout guard still
// applies.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAuditSink sets the mirror sink that receives committed audit
// events when Config.Audit.MirrorEnabled is set.
func (b *Builder) WithAuditSink(sink ledger.Sink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and assembles the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.backend == nil {
		return nil, errors.New("backend required")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	hasher, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:   cfg,
		backend:  b.backend,
		audit:    ledger.NewService(b.backend),
		password: hasher,
		oauth:    oauth.NewVerifier(cfg.OAuth),
		metrics:  NewMetrics(cfg.Metrics),
		now:      time.Now,
	}

	engine.mirror = ledger.NewDispatcher(ledger.DispatcherConfig{
		Enabled:    cfg.Audit.MirrorEnabled,
		BufferSize: cfg.Audit.MirrorBuffer,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	if b.redis != nil {
		engine.limiter = rate.New(b.redis, rate.Config{
			EnableIPThrottle:        cfg.Security.EnableIPThrottle,
			EnableRefreshThrottle:   cfg.Security.EnableRefreshThrottle,
			MaxLoginAttempts:        cfg.Security.MaxLoginAttempts,
			LoginCooldownDuration:   cfg.Security.LoginCooldownDuration,
			MaxRefreshAttempts:      cfg.Security.MaxRefreshAttempts,
			RefreshCooldownDuration: cfg.Security.RefreshCooldownDuration,
		})
	}

	b.built = true
	return engine, nil
}
