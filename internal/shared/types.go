package shared

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns a prefixed random identifier, e.g. "req_9f2c...".
func NewID(prefix string) string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return prefix + hex.EncodeToString(b)
}
