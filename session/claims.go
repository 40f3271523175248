package session

import (
	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the subset of directory-issued access-token claims that
// seed a new session: the provider's session id and the organization the
// token was minted for.
type AccessClaims struct {
	SessionID      string `json:"sid,omitempty"`
	OrganizationID string `json:"org_id,omitempty"`
	jwt.RegisteredClaims
}

// PeekAccessClaims decodes the claims of a directory-issued JWT access
// token without verifying its signature. The encrypted envelope, not the
// JWT signature, is sessionkit's trust boundary; this is a convenience read
// of values the directory already vouched for over the authenticated API
// channel. Returns false when the token is not a parseable JWT (the
// directory may issue opaque tokens).
func PeekAccessClaims(accessToken string) (AccessClaims, bool) {
	var claims AccessClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(accessToken, &claims); err != nil {
		return AccessClaims{}, false
	}
	return claims, true
}
