// Package hashgen provides short-link hash generation.
// Generators should be safe for concurrent use.
package hashgen

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// HashLength is the fixed length of every generated hash.
const HashLength = 10

// Generator generates public link hashes.
// Implementations should be safe for concurrent use.
type Generator interface {
	Generate() (string, error)
}

// base64urlGenerator implements Generator by encoding random bytes
// with the URL-safe base64 alphabet. It is safe for concurrent use.
type base64urlGenerator struct{}

// NewBase64URL returns a new base64url hash generator.
func NewBase64URL() Generator {
	return &base64urlGenerator{}
}

// Generate reads HashLength bytes from crypto/rand and returns the first
// HashLength characters of their base64url encoding.
func (g *base64urlGenerator) Generate() (string, error) {
	b := make([]byte, HashLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("hashgen: read random bytes: %w", err)
	}

	encoded := base64.RawURLEncoding.EncodeToString(b)
	return encoded[:HashLength], nil
}
