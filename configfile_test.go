package authcore

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigFileDefaults(t *testing.T) {
	cfg, err := LoadConfigFile("")
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	def := DefaultConfig()
	if cfg.Lockout.MaxAttempts != def.Lockout.MaxAttempts {
		t.Fatalf("max attempts = %d, want %d", cfg.Lockout.MaxAttempts, def.Lockout.MaxAttempts)
	}
	if cfg.Session.Timeout != def.Session.Timeout {
		t.Fatalf("session timeout = %v", cfg.Session.Timeout)
	}
	if !cfg.RememberMe.Enabled {
		t.Fatal("remember-me should default to enabled")
	}
}

func TestLoadConfigFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authcore.yaml")
	content := `
lockout:
  max_attempts: 7
  duration: 15m
password:
  min_length: 10
  require_digit: true
session:
  fail_closed_on_storage_error: true
register:
  default_role: user
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if cfg.Lockout.MaxAttempts != 7 || cfg.Lockout.Duration != 15*time.Minute {
		t.Fatalf("lockout = %+v", cfg.Lockout)
	}
	if cfg.Password.MinLength != 10 || !cfg.Password.RequireDigit {
		t.Fatalf("password = %+v", cfg.Password)
	}
	if !cfg.Session.FailClosedOnStorageError {
		t.Fatal("fail-closed flag not read")
	}
	if cfg.Register.DefaultRole != "user" {
		t.Fatalf("default role = %q", cfg.Register.DefaultRole)
	}
	// unset keys keep defaults
	if cfg.Store.Timeout != DefaultConfig().Store.Timeout {
		t.Fatalf("store timeout = %v", cfg.Store.Timeout)
	}
}

func TestLoadConfigFileEnvOverride(t *testing.T) {
	t.Setenv("AUTHCORE_LOCKOUT_MAX_ATTEMPTS", "9")

	cfg, err := LoadConfigFile("")
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if cfg.Lockout.MaxAttempts != 9 {
		t.Fatalf("max attempts = %d, want env override 9", cfg.Lockout.MaxAttempts)
	}
}

func TestLoadConfigFileMissing(t *testing.T) {
	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("missing file should error")
	}
}
