package authcore

import (
	"time"

	"github.com/webstack/authcore/lockout"
	"github.com/webstack/authcore/password"
)

// Config groups all tunables of the authentication core. Instances are
// configured during initialization and treated as immutable afterwards.
type Config struct {
	Lockout    LockoutConfig
	Password   PasswordConfig
	Session    SessionConfig
	RememberMe RememberMeConfig
	Register   RegisterConfig
	Store      StoreConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

// LockoutConfig controls the failed-login lockout state machine.
type LockoutConfig struct {
	MaxAttempts int           // consecutive failures before locking
	Duration    time.Duration // length of the lockout window
}

// PasswordConfig holds the password policy and hashing parameters.
type PasswordConfig struct {
	MinLength      int
	MaxLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireDigit   bool
	Argon2         password.Config
	UpgradeOnLogin bool // rehash legacy or under-parameterized digests on login
}

// SessionConfig controls session validation behavior.
type SessionConfig struct {
	// Timeout is advisory; persisted tokens carry no expiry, so enforcement
	// belongs to the host. The Redis cache uses it as entry TTL.
	Timeout time.Duration
	// FailClosedOnStorageError makes CheckSession surface
	// ErrStorageUnavailable instead of an anonymous result when the
	// credential store is unreachable during token verification.
	FailClosedOnStorageError bool
}

// RememberMeConfig controls the long-lived remember-me token.
type RememberMeConfig struct {
	Enabled  bool
	Duration time.Duration
}

// RegisterConfig controls self-registration.
type RegisterConfig struct {
	Enabled     bool
	DefaultRole string // empty means no role is assigned on registration
}

// StoreConfig bounds credential-store calls.
type StoreConfig struct {
	Timeout time.Duration
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles the in-process metrics counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the baseline configuration: five attempts before a
// 30 minute lockout, six-character minimum passwords, remember-me enabled
// for 30 days.
func DefaultConfig() Config {
	return Config{
		Lockout: LockoutConfig{
			MaxAttempts: 5,
			Duration:    30 * time.Minute,
		},
		Password: PasswordConfig{
			MinLength:      6,
			MaxLength:      128,
			Argon2:         password.DefaultConfig(),
			UpgradeOnLogin: true,
		},
		Session: SessionConfig{
			Timeout: 24 * time.Hour,
		},
		RememberMe: RememberMeConfig{
			Enabled:  true,
			Duration: 30 * 24 * time.Hour,
		},
		Register: RegisterConfig{
			Enabled: true,
		},
		Store: StoreConfig{
			Timeout: 5 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Normalize fills zero values with defaults so a partially populated Config
// is always safe to run with.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Lockout.MaxAttempts <= 0 {
		c.Lockout.MaxAttempts = def.Lockout.MaxAttempts
	}
	if c.Lockout.Duration <= 0 {
		c.Lockout.Duration = def.Lockout.Duration
	}
	if c.Password.MinLength <= 0 {
		c.Password.MinLength = def.Password.MinLength
	}
	if c.Password.MaxLength <= 0 {
		c.Password.MaxLength = def.Password.MaxLength
	}
	if c.Password.Argon2 == (password.Config{}) {
		c.Password.Argon2 = def.Password.Argon2
	}
	if c.Session.Timeout <= 0 {
		c.Session.Timeout = def.Session.Timeout
	}
	if c.RememberMe.Duration <= 0 {
		c.RememberMe.Duration = def.RememberMe.Duration
	}
	if c.Store.Timeout <= 0 {
		c.Store.Timeout = def.Store.Timeout
	}
	if c.Audit.BufferSize <= 0 {
		c.Audit.BufferSize = def.Audit.BufferSize
	}
}

func (c Config) lockoutPolicy() lockout.Policy {
	return lockout.Policy{
		MaxAttempts: c.Lockout.MaxAttempts,
		Duration:    c.Lockout.Duration,
	}
}
