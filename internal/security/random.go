package security

import (
	"crypto/rand"
	"encoding/hex"
)

// NewOpaqueKey mints the 40-hex-character key handed out by the opaque login
// flow.
func NewOpaqueKey() (string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
