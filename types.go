package sessionkit

import (
	"context"

	"github.com/halyard-auth/sessionkit/session"
)

// User is the directory service's account record, fetched live during
// session resolution and never cached by sessionkit.
type User struct {
	ID            string
	Email         string
	EmailVerified bool
	FirstName     string
	LastName      string
	ProfileURL    string
}

// Organization is the directory service's organization record.
type Organization struct {
	ID   string
	Name string
}

// OrganizationMembership links a user to an organization with a role.
type OrganizationMembership struct {
	ID             string
	UserID         string
	OrganizationID string
	Role           string
	Status         string
}

// TokenPair is an access/refresh token pair issued by the directory
// service. Both tokens are replaced together on every refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthResponse is returned by directory authentication calls: the
// authenticated user plus the freshly issued token pair.
type AuthResponse struct {
	User         User
	AccessToken  string
	RefreshToken string
}

// CreateUserInput is the input for [DirectoryClient.CreateUser].
type CreateUserInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// DirectoryClient is the interface sessionkit consumes from the external
// user/organization directory service. The directory/ subpackage provides
// an HTTP implementation; tests and embedders may supply their own.
//
// Implementations map provider failure codes onto the package sentinel
// errors (ErrInvalidCredentials, ErrUserNotFound, ErrRefreshTokenExpired,
// and so on) so Engine can branch with errors.Is.
type DirectoryClient interface {
	GetUser(ctx context.Context, userID string) (User, error)
	CreateUser(ctx context.Context, input CreateUserInput) (User, error)

	AuthenticateWithPassword(ctx context.Context, email, password string) (AuthResponse, error)
	AuthenticateWithCode(ctx context.Context, code string) (AuthResponse, error)
	AuthenticateWithRefreshToken(ctx context.Context, refreshToken, organizationID string) (TokenPair, error)

	SendVerificationEmail(ctx context.Context, userID string) error
	// VerifyEmail exchanges a provider-issued pending authentication token
	// and the emailed code for an authenticated session. The pending token
	// comes from a prior authentication attempt that failed with
	// ErrEmailNotVerified; a raw user id is never accepted here.
	VerifyEmail(ctx context.Context, pendingToken, code string) (AuthResponse, error)

	GetOrganization(ctx context.Context, organizationID string) (Organization, error)
	GetOrganizationMembership(ctx context.Context, userID, organizationID string) (OrganizationMembership, error)
	ListOrganizationMemberships(ctx context.Context, userID string) ([]OrganizationMembership, error)

	GetAuthorizationURL(provider, redirectURI, state string) (string, error)
}

// ValidSession is the result of a passing [Engine.GetValidSession] call.
// RefreshedToken is non-empty only when the sliding-window refresh ran; the
// caller must persist it (write the cookie) or the rotation is lost.
type ValidSession struct {
	Session        *session.Session
	RefreshedToken string
}

// ResolvedSession joins a valid session with its directory records. It is
// derived per call and never cached. Organization and Membership are nil
// whenever no organization is active or its lookup failed; the session
// itself stays valid without an organization context.
type ResolvedSession struct {
	Session        *session.Session
	User           User
	Organization   *Organization
	Membership     *OrganizationMembership
	RefreshedToken string
}

// AuthContext is the read-only request identity the middleware derives from
// the session cookie. On any lookup failure it is simply unauthenticated.
type AuthContext struct {
	UserID         string
	SessionID      string
	OrganizationID string
	Authenticated  bool
}
