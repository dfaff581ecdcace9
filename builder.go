package centralhub

import (
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/haitrieu1811/central-hub-server/internal/rate"
	"github.com/haitrieu1811/central-hub-server/jwt"
	"github.com/haitrieu1811/central-hub-server/password"
	"github.com/haitrieu1811/central-hub-server/session"
)

// Builder assembles an [Engine]. A builder is single-use.
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	directory Directory
	auditSink AuditSink
	logger    *slog.Logger
	now       func() time.Time

	built bool
}

// New returns a [Builder] pre-loaded with default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing the refresh store and limiter.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithDirectory sets the user directory implementation.
func (b *Builder) WithDirectory(dir Directory) *Builder {
	b.directory = dir
	return b
}

// WithAuditSink sets the sink receiving audit events.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the structured logger used for non-fatal warnings.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the engine clock. Tokens, store TTLs, and audit
// timestamps all derive from it.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles the metric counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.directory == nil {
		return nil, errors.New("user directory required")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	codec, err := jwt.NewCodec(jwt.Config{
		Secrets: map[jwt.Kind][]byte{
			jwt.KindAccess:        cloneBytes(cfg.Secrets.Access),
			jwt.KindRefresh:       cloneBytes(cfg.Secrets.Refresh),
			jwt.KindEmailVerify:   cloneBytes(cfg.Secrets.EmailVerify),
			jwt.KindPasswordReset: cloneBytes(cfg.Secrets.PasswordReset),
		},
		Now: now,
	})
	if err != nil {
		return nil, err
	}

	issuer, err := jwt.NewIssuer(codec, jwt.TTLConfig{
		Access:        cfg.TTL.Access,
		Refresh:       cfg.TTL.Refresh,
		EmailVerify:   cfg.TTL.EmailVerify,
		PasswordReset: cfg.TTL.PasswordReset,
	})
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(cfg.Password.Pepper, cfg.Password.Iterations)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:    cfg,
		codec:     codec,
		issuer:    issuer,
		store:     session.NewStore(b.redis, cfg.Session.RedisPrefix, now),
		directory: b.directory,
		hasher:    hasher,
		logger:    logger,
		now:       now,
	}

	engine.limiter = rate.New(b.redis, rate.Config{
		EnableIPThrottle:        cfg.Security.EnableIPThrottle,
		EnableRefreshThrottle:   cfg.Security.EnableRefreshThrottle,
		MaxLoginAttempts:        cfg.Security.MaxLoginAttempts,
		LoginCooldownDuration:   cfg.Security.LoginCooldownDuration,
		MaxRefreshAttempts:      cfg.Security.MaxRefreshAttempts,
		RefreshCooldownDuration: cfg.Security.RefreshCooldownDuration,
	})
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}
