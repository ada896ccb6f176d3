package authcore

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LoadConfigFile reads configuration from a YAML/TOML/JSON file, applying
// AUTHCORE_* environment overrides (AUTHCORE_LOCKOUT_MAX_ATTEMPTS and so
// on). An empty path loads from environment variables alone. Missing keys
// fall back to DefaultConfig.
func LoadConfigFile(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AUTHCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := DefaultConfig()
	v.SetDefault("lockout.max_attempts", def.Lockout.MaxAttempts)
	v.SetDefault("lockout.duration", def.Lockout.Duration)
	v.SetDefault("password.min_length", def.Password.MinLength)
	v.SetDefault("password.max_length", def.Password.MaxLength)
	v.SetDefault("password.require_upper", def.Password.RequireUpper)
	v.SetDefault("password.require_lower", def.Password.RequireLower)
	v.SetDefault("password.require_digit", def.Password.RequireDigit)
	v.SetDefault("password.upgrade_on_login", def.Password.UpgradeOnLogin)
	v.SetDefault("session.timeout", def.Session.Timeout)
	v.SetDefault("session.fail_closed_on_storage_error", def.Session.FailClosedOnStorageError)
	v.SetDefault("remember_me.enabled", def.RememberMe.Enabled)
	v.SetDefault("remember_me.duration", def.RememberMe.Duration)
	v.SetDefault("register.enabled", def.Register.Enabled)
	v.SetDefault("register.default_role", def.Register.DefaultRole)
	v.SetDefault("store.timeout", def.Store.Timeout)
	v.SetDefault("audit.enabled", def.Audit.Enabled)
	v.SetDefault("audit.buffer_size", def.Audit.BufferSize)
	v.SetDefault("audit.drop_if_full", def.Audit.DropIfFull)
	v.SetDefault("metrics.enabled", def.Metrics.Enabled)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := Config{
		Lockout: LockoutConfig{
			MaxAttempts: v.GetInt("lockout.max_attempts"),
			Duration:    v.GetDuration("lockout.duration"),
		},
		Password: PasswordConfig{
			MinLength:      v.GetInt("password.min_length"),
			MaxLength:      v.GetInt("password.max_length"),
			RequireUpper:   v.GetBool("password.require_upper"),
			RequireLower:   v.GetBool("password.require_lower"),
			RequireDigit:   v.GetBool("password.require_digit"),
			UpgradeOnLogin: v.GetBool("password.upgrade_on_login"),
			Argon2:         def.Password.Argon2,
		},
		Session: SessionConfig{
			Timeout:                  v.GetDuration("session.timeout"),
			FailClosedOnStorageError: v.GetBool("session.fail_closed_on_storage_error"),
		},
		RememberMe: RememberMeConfig{
			Enabled:  v.GetBool("remember_me.enabled"),
			Duration: v.GetDuration("remember_me.duration"),
		},
		Register: RegisterConfig{
			Enabled:     v.GetBool("register.enabled"),
			DefaultRole: v.GetString("register.default_role"),
		},
		Store: StoreConfig{
			Timeout: v.GetDuration("store.timeout"),
		},
		Audit: AuditConfig{
			Enabled:    v.GetBool("audit.enabled"),
			BufferSize: v.GetInt("audit.buffer_size"),
			DropIfFull: v.GetBool("audit.drop_if_full"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("metrics.enabled"),
		},
	}
	cfg.Normalize()

	if cfg.Lockout.Duration < time.Second {
		return Config{}, fmt.Errorf("lockout.duration %s is below one second", cfg.Lockout.Duration)
	}
	return cfg, nil
}
