package sessionkit

import "errors"

var (
	// ErrConfigInvalid reports a missing or malformed configuration value,
	// such as a cookie password shorter than 32 characters. It is fatal at
	// startup and never recoverable at request time.
	ErrConfigInvalid = errors.New("invalid configuration")
	// ErrInvalidToken reports a session token that failed decryption:
	// tampered, malformed, or sealed under a different secret or issuer.
	ErrInvalidToken = errors.New("invalid session token")
	// ErrSessionExpired reports a session whose refresh token is past its
	// deadline. The session is terminal and cannot be resurrected.
	ErrSessionExpired = errors.New("session expired")
	// ErrRefreshTokenExpired is the explicit variant of ErrSessionExpired
	// raised when the directory service rejects the refresh token itself.
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	// ErrInvalidSession reports session material that is structurally
	// unusable, such as a CreateSession call missing its token pair.
	ErrInvalidSession = errors.New("invalid session")
	// ErrInvalidCredentials is the directory outcome for a failed password
	// authentication.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is the directory outcome for an unknown user id.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is the directory outcome for creating a user whose
	// email is already registered.
	ErrUserExists = errors.New("user already exists")
	// ErrEmailNotVerified is the directory outcome for authenticating an
	// account that has not completed email verification.
	ErrEmailNotVerified = errors.New("email not verified")
	// ErrOrganizationNotFound is the directory outcome for an unknown
	// organization id.
	ErrOrganizationNotFound = errors.New("organization not found")
	// ErrMembershipNotFound reports that the user does not belong to the
	// requested organization.
	ErrMembershipNotFound = errors.New("organization membership not found")
	// ErrEngineNotReady reports a call on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
