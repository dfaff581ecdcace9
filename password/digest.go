// Package password derives deterministic password digests. The digest is
// deterministic on purpose: the user directory looks accounts up by
// (email, digest), so the same password and pepper must always produce
// the same output.
package password

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/pbkdf2"
)

const (
	minPepperLength   = 16
	defaultIterations = 10_000
	digestKeyLength   = 32
)

// Hasher produces PBKDF2-SHA256 digests with a deployment-wide pepper.
// The pepper doubles as the PBKDF2 salt and is shared across all users,
// which is what keeps the digest deterministic.
type Hasher struct {
	pepper     []byte
	iterations int
}

// NewHasher validates the pepper and returns a ready [Hasher].
// iterations <= 0 selects the default work factor.
func NewHasher(pepper []byte, iterations int) (*Hasher, error) {
	if len(pepper) < minPepperLength {
		return nil, errors.New("pepper must be at least 16 bytes")
	}
	if iterations <= 0 {
		iterations = defaultIterations
	}
	return &Hasher{
		pepper:     append([]byte(nil), pepper...),
		iterations: iterations,
	}, nil
}

// Digest returns the hex-encoded digest of plain.
func (h *Hasher) Digest(plain string) string {
	key := pbkdf2.Key([]byte(plain), h.pepper, h.iterations, digestKeyLength, sha256.New)
	return hex.EncodeToString(key)
}
