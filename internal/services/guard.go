package services

import (
	"crypto/subtle"
	"errors"
)

// APIKeyHeader carries the shared secret for pump control
const APIKeyHeader = "X-API-KEY"

// ErrUnauthorized is returned when the supplied key does not match
var ErrUnauthorized = errors.New("unauthorized: invalid X-API-KEY")

// Guard checks the shared secret of pump control requests.
// An empty secret disables the check.
type Guard struct {
	secret []byte
}

func NewGuard(secret string) *Guard {
	return &Guard{secret: []byte(secret)}
}

// Required reports whether a key must be supplied
func (g *Guard) Required() bool {
	return len(g.secret) > 0
}

// Authorize compares the supplied key byte for byte with the secret
func (g *Guard) Authorize(supplied string) error {
	if !g.Required() {
		return nil
	}
	if supplied == "" || subtle.ConstantTimeCompare([]byte(supplied), g.secret) != 1 {
		return ErrUnauthorized
	}
	return nil
}
