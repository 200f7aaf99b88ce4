// Package random generates tokens from crypto/rand.
package random

import (
	"crypto/rand"
	"encoding/hex"
)

// Token returns nBytes of randomness encoded as lower-case hex.
func Token(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
