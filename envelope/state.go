package envelope

import (
	"strconv"
	"strings"
	"time"
)

// DefaultStateMaxAge bounds how old an OAuth state parameter may be before
// ValidateState rejects it.
const DefaultStateMaxAge = 10 * time.Minute

const stateNonceBytes = 16

// GenerateState returns an OAuth state parameter of the form
// <base36-unix-ms-timestamp>.<16-byte-base64url-random>.
func GenerateState() (string, error) {
	nonce, err := GenerateToken(stateNonceBytes)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(time.Now().UnixMilli(), 36) + "." + nonce, nil
}

// ValidateState checks a state parameter's shape and age. A non-positive
// maxAge means DefaultStateMaxAge. States from the future are rejected
// outright: a forward timestamp is either clock skew beyond tolerance or a
// forgery.
func ValidateState(state string, maxAge time.Duration) bool {
	if maxAge <= 0 {
		maxAge = DefaultStateMaxAge
	}

	parts := strings.Split(state, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return false
	}

	ts, err := strconv.ParseInt(parts[0], 36, 64)
	if err != nil {
		return false
	}

	age := time.Since(time.UnixMilli(ts))
	if age < 0 {
		return false
	}
	return age <= maxAge
}
