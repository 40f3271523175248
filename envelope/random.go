package envelope

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
)

// DefaultTokenBytes is the entropy used by GenerateToken when the caller
// passes a non-positive length.
const DefaultTokenBytes = 32

// GenerateToken returns a CSPRNG-backed, URL-safe opaque string with n
// bytes of entropy. Used for session ids and similar opaque values.
func GenerateToken(n int) (string, error) {
	if n <= 0 {
		n = DefaultTokenBytes
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// ConstantTimeCompare reports whether a and b are equal, comparing the
// underlying byte sequences in constant time. Differing lengths
// short-circuit to false; length alone leaks negligible information for
// the opaque values compared here.
func ConstantTimeCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
