package reservations

import (
	"crypto/rand"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

const tokenBytes = 32

// newToken returns a fresh cancellation token and the digest to persist.
func newToken() (token string, digest string, err error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	token = hex.EncodeToString(b)
	return token, TokenDigest(token), nil
}

// TokenDigest is the stored form of a cancellation token. A leaked
// reservations table therefore does not leak working cancel links.
func TokenDigest(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
