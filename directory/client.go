package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	sessionkit "github.com/halyard-auth/sessionkit"
)

// DefaultEndpoint is the hosted directory service's public API origin.
const DefaultEndpoint = "https://api.directory.halyard.dev"

const defaultTimeout = 10 * time.Second

// Config configures the HTTP client.
type Config struct {
	// APIKey is the server-side directory credential. Required.
	APIKey string
	// ClientID identifies this application on OAuth calls. Required.
	ClientID string
	// Endpoint overrides DefaultEndpoint, mainly for tests.
	Endpoint string
	// HTTPClient overrides the default client (10s timeout). Request
	// cancellation beyond that timeout is the caller's context.
	HTTPClient *http.Client
}

// Client is a stateless HTTP implementation of sessionkit.DirectoryClient.
type Client struct {
	apiKey   string
	clientID string
	endpoint string
	http     *http.Client
}

var _ sessionkit.DirectoryClient = (*Client)(nil)

// NewClient validates the config and returns a Client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("directory: APIKey required")
	}
	if cfg.ClientID == "" {
		return nil, errors.New("directory: ClientID required")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		apiKey:   cfg.APIKey,
		clientID: cfg.ClientID,
		endpoint: endpoint,
		http:     httpClient,
	}, nil
}

// EmailVerificationRequiredError carries the provider-issued pending
// authentication token a caller needs to complete verification. It unwraps
// to sessionkit.ErrEmailNotVerified.
type EmailVerificationRequiredError struct {
	PendingToken string
}

func (e *EmailVerificationRequiredError) Error() string {
	return sessionkit.ErrEmailNotVerified.Error()
}

func (e *EmailVerificationRequiredError) Unwrap() error {
	return sessionkit.ErrEmailNotVerified
}

// Wire shapes.

type wireUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	ProfileURL    string `json:"profile_url"`
}

type wireAuthResponse struct {
	User         wireUser `json:"user"`
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
}

type wireOrganization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type wireMembership struct {
	ID             string `json:"id"`
	UserID         string `json:"user_id"`
	OrganizationID string `json:"organization_id"`
	Role           string `json:"role"`
	Status         string `json:"status"`
}

type wireMembershipList struct {
	Data []wireMembership `json:"data"`
}

type apiError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	PendingToken string `json:"pending_authentication_token"`
	status       int
}

func (e *apiError) Error() string {
	return fmt.Sprintf("directory: %s (%s, http %d)", e.Message, e.Code, e.status)
}

// mapError converts provider failure codes onto the sessionkit sentinels so
// Engine can branch with errors.Is. Unknown codes keep the apiError as the
// cause.
func mapError(apiErr *apiError) error {
	switch apiErr.Code {
	case "invalid_credentials", "password_incorrect":
		return sessionkit.ErrInvalidCredentials
	case "user_not_found":
		return sessionkit.ErrUserNotFound
	case "user_already_exists", "email_already_registered":
		return sessionkit.ErrUserExists
	case "email_verification_required":
		return &EmailVerificationRequiredError{PendingToken: apiErr.PendingToken}
	case "invalid_grant", "refresh_token_expired", "refresh_token_revoked":
		return fmt.Errorf("%w: %s", sessionkit.ErrRefreshTokenExpired, apiErr.Code)
	case "organization_not_found":
		return sessionkit.ErrOrganizationNotFound
	case "membership_not_found":
		return sessionkit.ErrMembershipNotFound
	default:
		return apiErr
	}
}

func (c *Client) GetUser(ctx context.Context, userID string) (sessionkit.User, error) {
	var out wireUser
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(userID), nil, &out); err != nil {
		return sessionkit.User{}, err
	}
	return userFromWire(out), nil
}

func (c *Client) CreateUser(ctx context.Context, input sessionkit.CreateUserInput) (sessionkit.User, error) {
	body := map[string]string{
		"email":      input.Email,
		"password":   input.Password,
		"first_name": input.FirstName,
		"last_name":  input.LastName,
	}
	var out wireUser
	if err := c.do(ctx, http.MethodPost, "/users", body, &out); err != nil {
		return sessionkit.User{}, err
	}
	return userFromWire(out), nil
}

func (c *Client) AuthenticateWithPassword(ctx context.Context, email, password string) (sessionkit.AuthResponse, error) {
	return c.authenticate(ctx, map[string]string{
		"grant_type": "password",
		"email":      email,
		"password":   password,
	})
}

func (c *Client) AuthenticateWithCode(ctx context.Context, code string) (sessionkit.AuthResponse, error) {
	return c.authenticate(ctx, map[string]string{
		"grant_type": "authorization_code",
		"code":       code,
	})
}

func (c *Client) AuthenticateWithRefreshToken(ctx context.Context, refreshToken, organizationID string) (sessionkit.TokenPair, error) {
	body := map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
	}
	if organizationID != "" {
		body["organization_id"] = organizationID
	}

	var out wireAuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/token", body, &out); err != nil {
		return sessionkit.TokenPair{}, err
	}
	return sessionkit.TokenPair{
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
	}, nil
}

func (c *Client) SendVerificationEmail(ctx context.Context, userID string) error {
	path := "/users/" + url.PathEscape(userID) + "/email_verification/send"
	return c.do(ctx, http.MethodPost, path, struct{}{}, nil)
}

func (c *Client) VerifyEmail(ctx context.Context, pendingToken, code string) (sessionkit.AuthResponse, error) {
	return c.authenticate(ctx, map[string]string{
		"grant_type":                   "email_verification_code",
		"pending_authentication_token": pendingToken,
		"code":                         code,
	})
}

func (c *Client) GetOrganization(ctx context.Context, organizationID string) (sessionkit.Organization, error) {
	var out wireOrganization
	if err := c.do(ctx, http.MethodGet, "/organizations/"+url.PathEscape(organizationID), nil, &out); err != nil {
		return sessionkit.Organization{}, err
	}
	return sessionkit.Organization{ID: out.ID, Name: out.Name}, nil
}

func (c *Client) GetOrganizationMembership(ctx context.Context, userID, organizationID string) (sessionkit.OrganizationMembership, error) {
	q := url.Values{}
	q.Set("user_id", userID)
	q.Set("organization_id", organizationID)

	var out wireMembershipList
	if err := c.do(ctx, http.MethodGet, "/memberships?"+q.Encode(), nil, &out); err != nil {
		return sessionkit.OrganizationMembership{}, err
	}
	if len(out.Data) == 0 {
		return sessionkit.OrganizationMembership{}, sessionkit.ErrMembershipNotFound
	}
	return membershipFromWire(out.Data[0]), nil
}

func (c *Client) ListOrganizationMemberships(ctx context.Context, userID string) ([]sessionkit.OrganizationMembership, error) {
	q := url.Values{}
	q.Set("user_id", userID)

	var out wireMembershipList
	if err := c.do(ctx, http.MethodGet, "/memberships?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}

	memberships := make([]sessionkit.OrganizationMembership, 0, len(out.Data))
	for _, m := range out.Data {
		memberships = append(memberships, membershipFromWire(m))
	}
	return memberships, nil
}

// GetAuthorizationURL builds the provider authorization redirect. Pure URL
// construction; no network call.
func (c *Client) GetAuthorizationURL(provider, redirectURI, state string) (string, error) {
	if provider == "" {
		return "", errors.New("directory: provider required")
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", err
	}
	u = u.JoinPath("/oauth/authorize")

	q := url.Values{}
	q.Set("client_id", c.clientID)
	q.Set("provider", provider)
	q.Set("redirect_uri", redirectURI)
	q.Set("response_type", "code")
	q.Set("state", state)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func (c *Client) authenticate(ctx context.Context, body map[string]string) (sessionkit.AuthResponse, error) {
	body["client_id"] = c.clientID

	var out wireAuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/token", body, &out); err != nil {
		return sessionkit.AuthResponse{}, err
	}
	return sessionkit.AuthResponse{
		User:         userFromWire(out.User),
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("directory: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &apiError{status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil {
			apiErr.Code = "unparseable_error"
			apiErr.Message = resp.Status
		}
		return mapError(apiErr)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("directory: decode %s %s response: %w", method, path, err)
	}
	return nil
}

func userFromWire(u wireUser) sessionkit.User {
	return sessionkit.User{
		ID:            u.ID,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		ProfileURL:    u.ProfileURL,
	}
}

func membershipFromWire(m wireMembership) sessionkit.OrganizationMembership {
	return sessionkit.OrganizationMembership{
		ID:             m.ID,
		UserID:         m.UserID,
		OrganizationID: m.OrganizationID,
		Role:           m.Role,
		Status:         m.Status,
	}
}
