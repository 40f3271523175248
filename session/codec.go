package session

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/halyard-auth/sessionkit/envelope"
)

// ErrIncomplete reports a decrypted payload missing one of the required
// fields (session id, user id, access token, refresh token).
var ErrIncomplete = errors.New("session payload incomplete")

// Seal serializes s and encrypts it under sealer with the given envelope
// ttl. Callers pass the refresh lifetime so the outer envelope never
// expires before the payload's own refresh deadline.
func Seal(sealer *envelope.Sealer, s *Session, ttl time.Duration) (string, error) {
	plaintext, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return sealer.Seal(plaintext, ttl)
}

// Open decrypts and decodes a token, returning the underlying envelope or
// codec error. Use for direct user actions that need a definite outcome.
func Open(sealer *envelope.Sealer, token string) (*Session, error) {
	plaintext, err := sealer.Open(token)
	if err != nil {
		return nil, err
	}

	var s Session
	if err := json.Unmarshal(plaintext, &s); err != nil {
		return nil, err
	}
	if !s.complete() {
		return nil, ErrIncomplete
	}
	return &s, nil
}

// Decode is the passive variant of Open: any failure, including a payload
// missing required fields, yields nil. Callers treat nil as "no usable
// session", a normal state.
func Decode(sealer *envelope.Sealer, token string) *Session {
	if token == "" {
		return nil
	}
	s, err := Open(sealer, token)
	if err != nil {
		return nil
	}
	return s
}
