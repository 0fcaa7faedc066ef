package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// RandomToken returns nBytes of cryptographic randomness hex-encoded
// (output length is 2*nBytes characters).
func RandomToken(nBytes int) (string, error) {
	if nBytes <= 0 {
		nBytes = 24
	}
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
