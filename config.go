package centralhub

import (
	"errors"
	"time"
)

// Config defines the engine configuration. Instances are cloned on the
// way in and treated as immutable afterwards.
type Config struct {
	Secrets  SecretsConfig
	TTL      TTLConfig
	Session  SessionConfig
	Security SecurityConfig
	Password PasswordConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

// SecretsConfig holds the four independent signing secrets, one per
// token kind. Each must be at least 32 bytes and no two may be equal.
type SecretsConfig struct {
	Access        []byte
	Refresh       []byte
	EmailVerify   []byte
	PasswordReset []byte
}

// TTLConfig holds the per-kind token lifetimes.
type TTLConfig struct {
	Access        time.Duration
	Refresh       time.Duration
	EmailVerify   time.Duration
	PasswordReset time.Duration
}

// SessionConfig controls the refresh token store.
type SessionConfig struct {
	RedisPrefix string
}

// ExpiryPolicy selects how rotation derives the successor refresh
// token's expiry.
type ExpiryPolicy int

const (
	// InheritExpiry keeps the original expiry across rotations, so the
	// session as a whole cannot outlive the first login.
	InheritExpiry ExpiryPolicy = iota
	// FreshExpiry starts a full refresh TTL on every rotation.
	FreshExpiry
)

// SecurityConfig holds rotation policy and throttle tuning.
type SecurityConfig struct {
	RotationExpiryPolicy    ExpiryPolicy
	EnableIPThrottle        bool
	EnableRefreshThrottle   bool
	MaxLoginAttempts        int
	LoginCooldownDuration   time.Duration
	MaxRefreshAttempts      int
	RefreshCooldownDuration time.Duration
}

// PasswordConfig tunes the deterministic password digest.
type PasswordConfig struct {
	Pepper     []byte
	Iterations int
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the lock-free counter set.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the configuration a fresh builder starts from.
// Secrets and the password pepper are empty and must be filled in before
// the config passes validation.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		TTL: TTLConfig{
			Access:        15 * time.Minute,
			Refresh:       7 * 24 * time.Hour,
			EmailVerify:   24 * time.Hour,
			PasswordReset: 15 * time.Minute,
		},
		Session: SessionConfig{
			RedisPrefix: "chrt",
		},
		Security: SecurityConfig{
			RotationExpiryPolicy:    InheritExpiry,
			EnableIPThrottle:        true,
			EnableRefreshThrottle:   true,
			MaxLoginAttempts:        5,
			LoginCooldownDuration:   15 * time.Minute,
			MaxRefreshAttempts:      20,
			RefreshCooldownDuration: 1 * time.Minute,
		},
		Password: PasswordConfig{
			Iterations: 10_000,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Secrets.Access = cloneBytes(cfg.Secrets.Access)
	out.Secrets.Refresh = cloneBytes(cfg.Secrets.Refresh)
	out.Secrets.EmailVerify = cloneBytes(cfg.Secrets.EmailVerify)
	out.Secrets.PasswordReset = cloneBytes(cfg.Secrets.PasswordReset)
	out.Password.Pepper = cloneBytes(cfg.Password.Pepper)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	// Secrets
	secrets := [][]byte{
		c.Secrets.Access,
		c.Secrets.Refresh,
		c.Secrets.EmailVerify,
		c.Secrets.PasswordReset,
	}
	for _, secret := range secrets {
		if len(secret) < 32 {
			return errors.New("each token secret must be at least 32 bytes")
		}
	}
	for i := 0; i < len(secrets); i++ {
		for j := i + 1; j < len(secrets); j++ {
			if string(secrets[i]) == string(secrets[j]) {
				return errors.New("token secrets must be pairwise distinct")
			}
		}
	}

	// TTLs
	if c.TTL.Access <= 0 {
		return errors.New("TTL Access must be > 0")
	}
	if c.TTL.Refresh <= 0 {
		return errors.New("TTL Refresh must be > 0")
	}
	if c.TTL.Refresh <= c.TTL.Access {
		return errors.New("TTL Refresh must exceed TTL Access")
	}
	if c.TTL.EmailVerify <= 0 {
		return errors.New("TTL EmailVerify must be > 0")
	}
	if c.TTL.PasswordReset <= 0 {
		return errors.New("TTL PasswordReset must be > 0")
	}

	// Security
	switch c.Security.RotationExpiryPolicy {
	case InheritExpiry, FreshExpiry:
		// valid
	default:
		return errors.New("invalid RotationExpiryPolicy")
	}
	if c.Security.MaxLoginAttempts <= 0 {
		return errors.New("MaxLoginAttempts must be > 0")
	}
	if c.Security.LoginCooldownDuration <= 0 {
		return errors.New("LoginCooldownDuration must be > 0")
	}
	if c.Security.EnableRefreshThrottle {
		if c.Security.MaxRefreshAttempts <= 0 {
			return errors.New("MaxRefreshAttempts must be > 0 when refresh throttle is enabled")
		}
		if c.Security.RefreshCooldownDuration <= 0 {
			return errors.New("RefreshCooldownDuration must be > 0 when refresh throttle is enabled")
		}
	}

	// Password
	if len(c.Password.Pepper) < 16 {
		return errors.New("Password Pepper must be at least 16 bytes")
	}
	if c.Password.Iterations < 1000 {
		return errors.New("Password Iterations must be >= 1000")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
