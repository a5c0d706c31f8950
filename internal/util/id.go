package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID generates a 24-character hex identifier, used to correlate request
// log lines when the caller did not supply an id.
func NewID() string {
	var buf [12]byte
	_, _ = rand.Read(buf[:])
	return hex.EncodeToString(buf[:])
}
