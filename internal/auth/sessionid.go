package auth

import (
	"crypto/rand"
	"io"
	mrand "math/rand/v2"

	"github.com/google/uuid"
)

const (
	base36Chars = "0123456789abcdefghijklmnopqrstuvwxyz"

	// FallbackIDLength is the length of a low-entropy session id.
	FallbackIDLength = 11
)

// randReader is the entropy source for session ids. Tests swap it out.
var randReader io.Reader = rand.Reader

// NewSessionID returns a UUIDv4. If the secure random source fails it falls
// back to a pseudo-random base36 token and reports lowEntropy.
func NewSessionID() (id string, lowEntropy bool) {
	u, err := uuid.NewRandomFromReader(randReader)
	if err == nil {
		return u.String(), false
	}
	return fallbackID(), true
}

func fallbackID() string {
	b := make([]byte, FallbackIDLength)
	for i := range b {
		b[i] = base36Chars[mrand.IntN(len(base36Chars))]
	}
	return string(b)
}
