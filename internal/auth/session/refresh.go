package session

import (
	"crypto/rand"
	"encoding/hex"
)

// newRefreshToken returns an opaque hex-encoded token from nBytes of
// crypto/rand output. At the default 64 bytes (128 hex chars) the
// collision probability across any realistic number of sessions is
// negligible, so uniqueness is assumed rather than enforced.
func newRefreshToken(nBytes int) (string, error) {
	if nBytes <= 0 {
		nBytes = 64
	}

	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
