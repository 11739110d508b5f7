// Package auth validates the bearer API keys presented to the reference
// submission server. Providers register themselves by type name.
package auth

import (
	"errors"
	"time"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims identifies the holder of a validated API key.
type Claims struct {
	// Subject keys attempt budgets; it must be stable per API key.
	Subject   string
	Issuer    string
	Audience  []string
	ExpiresAt time.Time
	IssuedAt  time.Time
	// Competitions limits the key to these ids; empty means any.
	Competitions []string
	Raw          map[string]any
}

// Allows reports whether the key may submit to competition.
func (c *Claims) Allows(competition string) bool {
	if c == nil {
		return false
	}
	if len(c.Competitions) == 0 {
		return true
	}
	for _, id := range c.Competitions {
		if id == "*" || id == competition {
			return true
		}
	}
	return false
}

type Validator interface {
	Validate(token string) (*Claims, error)
}
