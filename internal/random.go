package internal

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// tokenSize is the raw entropy of an opaque token in bytes. 32 bytes keeps
// parity with the original token generator and is well above the 128-bit
// floor.
const tokenSize = 32

// NewToken returns a URL-safe opaque token with tokenSize bytes of
// crypto/rand entropy, base64url encoded without padding. Tokens carry no
// structure; their only meaning is the storage row they match.
func NewToken() (string, error) {
	raw := make([]byte, tokenSize)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("token generation: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
