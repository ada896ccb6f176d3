// Package password provides the argon2id password hasher with legacy bcrypt
// verification support.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Config holds the argon2id parameters.
type Config struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultConfig returns interactive-login argon2id parameters.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Hasher produces and verifies argon2id digests in PHC string format.
// Digests produced by bcrypt are accepted for verification so existing
// credential stores can be migrated via rehash-on-login.
type Hasher struct {
	cfg Config
}

// NewHasher returns a Hasher using cfg, with zero fields filled from
// DefaultConfig.
func NewHasher(cfg Config) *Hasher {
	def := DefaultConfig()
	if cfg.Memory == 0 {
		cfg.Memory = def.Memory
	}
	if cfg.Iterations == 0 {
		cfg.Iterations = def.Iterations
	}
	if cfg.Parallelism == 0 {
		cfg.Parallelism = def.Parallelism
	}
	if cfg.SaltLength == 0 {
		cfg.SaltLength = def.SaltLength
	}
	if cfg.KeyLength == 0 {
		cfg.KeyLength = def.KeyLength
	}
	return &Hasher{cfg: cfg}
}

// Hash derives an argon2id digest for plaintext with a fresh random salt.
func (h *Hasher) Hash(plaintext string) (string, error) {
	salt := make([]byte, h.cfg.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("password: salt generation: %w", err)
	}
	key := argon2.IDKey([]byte(plaintext), salt, h.cfg.Iterations, h.cfg.Memory, h.cfg.Parallelism, h.cfg.KeyLength)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.cfg.Memory, h.cfg.Iterations, h.cfg.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether plaintext matches digest. Malformed or
// unrecognized digests verify as false, never as an error.
func (h *Hasher) Verify(plaintext, digest string) bool {
	switch {
	case strings.HasPrefix(digest, "$argon2id$"):
		return verifyArgon2(plaintext, digest)
	case strings.HasPrefix(digest, "$2a$"), strings.HasPrefix(digest, "$2b$"), strings.HasPrefix(digest, "$2y$"):
		return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
	default:
		return false
	}
}

// NeedsUpgrade reports whether digest should be rehashed: it is either a
// legacy bcrypt digest or an argon2id digest produced with weaker
// parameters than the current configuration.
func (h *Hasher) NeedsUpgrade(digest string) bool {
	if !strings.HasPrefix(digest, "$argon2id$") {
		return true
	}
	cfg, _, _, err := decodeDigest(digest)
	if err != nil {
		return true
	}
	return cfg.Memory < h.cfg.Memory || cfg.Iterations < h.cfg.Iterations || cfg.Parallelism < h.cfg.Parallelism
}

func verifyArgon2(plaintext, digest string) bool {
	cfg, salt, key, err := decodeDigest(digest)
	if err != nil {
		return false
	}
	derived := argon2.IDKey([]byte(plaintext), salt, cfg.Iterations, cfg.Memory, cfg.Parallelism, uint32(len(key)))
	return subtle.ConstantTimeCompare(derived, key) == 1
}

func decodeDigest(digest string) (Config, []byte, []byte, error) {
	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return Config{}, nil, nil, errors.New("password: malformed digest")
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return Config{}, nil, nil, errors.New("password: unsupported argon2 version")
	}
	var cfg Config
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &cfg.Memory, &cfg.Iterations, &cfg.Parallelism); err != nil {
		return Config{}, nil, nil, errors.New("password: malformed parameters")
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return Config{}, nil, nil, errors.New("password: malformed salt")
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return Config{}, nil, nil, errors.New("password: malformed key")
	}
	return cfg, salt, key, nil
}
