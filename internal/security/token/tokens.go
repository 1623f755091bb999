// Package tokens generates the opaque identifiers used for access tokens,
// refresh tokens and sessions, and the hashes stored in place of them.
package tokens

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
)

// DefaultTokenBytes is the entropy of an issued token id (256 bits).
const DefaultTokenBytes = 32

// Generator produces unique opaque identifiers. Implementations must be
// safe for concurrent use.
type Generator interface {
	NewID() (string, error)
}

// RandomGenerator draws ids from crypto/rand.
type RandomGenerator struct {
	// Bytes of entropy per id; DefaultTokenBytes when <= 0.
	Bytes int
}

// NewID returns a base64url (unpadded) encoded random id.
func (g RandomGenerator) NewID() (string, error) {
	n := g.Bytes
	if n <= 0 {
		n = DefaultTokenBytes
	}
	return GenerateOpaqueToken(n)
}

// GenerateOpaqueToken returns nBytes of crypto/rand output, base64url without padding.
func GenerateOpaqueToken(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("tokens: read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NewSessionID returns a random (v4) UUID for a session record.
func NewSessionID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("tokens: session id: %w", err)
	}
	return id.String(), nil
}

// SHA256Base64URL returns sha256(s) base64url without padding. This is the
// form in which token ids are persisted and looked up.
func SHA256Base64URL(s string) string {
	sum := sha256.Sum256([]byte(s))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
