package random

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/google/uuid"
)

// Random provides identifier generation that can be mocked for testing
type Random interface {
	// ID returns a fresh unique identifier suitable for a file name
	ID() string

	// Token returns an unguessable opaque token of n random bytes, base64url encoded
	Token(n int) string
}

// CryptoRandom implements Random using uuid v4 and crypto/rand
type CryptoRandom struct{}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{}
}

// ID returns a random UUID string
func (r *CryptoRandom) ID() string {
	return uuid.NewString()
}

// Token returns n bytes from crypto/rand encoded with base64.RawURLEncoding
func (r *CryptoRandom) Token(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, n)
	// crypto/rand.Read never returns an error on supported platforms
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
