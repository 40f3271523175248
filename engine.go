package sessionkit

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/halyard-auth/sessionkit/cookie"
	"github.com/halyard-auth/sessionkit/envelope"
	"github.com/halyard-auth/sessionkit/session"
)

// Engine is the session lifecycle manager: it mints encrypted session
// tokens, validates them with sliding-window refresh, resolves them against
// the directory service, and rewrites the organization context.
//
// Engine holds no per-session state. Every request is an independent
// decode, at most one directory round-trip for refresh, and up to two more
// for resolution.
type Engine struct {
	config    Config
	sealer    *envelope.Sealer
	directory DirectoryClient
	metrics   *Metrics
	audit     *auditDispatcher
}

// CreateSessionInput carries the directory-issued credentials a new session
// is built from. OrganizationID is optional; when empty it is taken from
// the access token's org claim if one is present.
type CreateSessionInput struct {
	AccessToken    string
	RefreshToken   string
	UserID         string
	OrganizationID string
}

// SignInResult is returned by the Engine sign-in wrappers: the
// authenticated user and the sealed session token to set as the cookie.
type SignInResult struct {
	User  User
	Token string
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped reports how many audit events were dropped under
// backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// CookieName returns the configured session cookie name.
func (e *Engine) CookieName() string {
	return e.config.Cookie.Name
}

// CookieOptions returns the write policy for the session cookie: HttpOnly,
// SameSite=Lax by default, Max-Age equal to the refresh lifetime.
func (e *Engine) CookieOptions() cookie.Options {
	return cookie.Options{
		Name:     e.config.Cookie.Name,
		Path:     e.config.Cookie.Path,
		Domain:   e.config.Cookie.Domain,
		MaxAge:   int(e.config.Session.RefreshTTL / time.Second),
		Secure:   e.config.Cookie.Secure,
		HTTPOnly: true,
		SameSite: e.config.Cookie.SameSite,
	}
}

// CreateSession builds and seals a new session payload around a
// directory-issued token pair. Expiries are stamped from now; the session
// id comes from the access token's sid claim when the directory issues
// JWTs, otherwise it is generated locally. Client IP and User-Agent are
// captured from ctx (see WithClientIP, WithUserAgent).
func (e *Engine) CreateSession(ctx context.Context, input CreateSessionInput) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	if input.AccessToken == "" || input.RefreshToken == "" || input.UserID == "" {
		return "", fmt.Errorf("%w: access token, refresh token, and user id are required", ErrInvalidSession)
	}

	sessionID := ""
	organizationID := input.OrganizationID
	if claims, ok := session.PeekAccessClaims(input.AccessToken); ok {
		sessionID = claims.SessionID
		if organizationID == "" {
			organizationID = claims.OrganizationID
		}
	}
	if sessionID == "" {
		generated, err := envelope.GenerateToken(envelope.DefaultTokenBytes)
		if err != nil {
			return "", err
		}
		sessionID = generated
	}

	now := time.Now()
	s := session.Session{
		SessionID:             sessionID,
		UserID:                input.UserID,
		AccessToken:           input.AccessToken,
		RefreshToken:          input.RefreshToken,
		AccessTokenExpiresAt:  now.Add(e.config.Session.AccessTTL).Unix(),
		RefreshTokenExpiresAt: now.Add(e.config.Session.RefreshTTL).Unix(),
		OrganizationID:        organizationID,
		IPAddress:             clientIPFromContext(ctx),
		UserAgent:             userAgentFromContext(ctx),
		CreatedAt:             now.Unix(),
	}

	sealed, err := session.Seal(e.sealer, &s, e.config.Session.RefreshTTL)
	if err != nil {
		return "", err
	}

	e.metricInc(MetricSessionCreated)
	e.auditEmit(ctx, AuditEvent{
		EventType:      AuditSessionCreated,
		UserID:         s.UserID,
		SessionID:      s.SessionID,
		OrganizationID: s.OrganizationID,
		IP:             s.IPAddress,
		Success:        true,
	})

	return sealed, nil
}

// GetValidSession decodes a session token and enforces the time policy.
// The second return is false whenever the token is unusable for any reason
// (undecodable, refresh deadline passed, or the refresh call failed); the
// caller treats that as plain "unauthenticated".
//
// When the access token is inside the refresh buffer, the refresh token is
// exchanged at the directory for a new pair and both expiries are
// recomputed from now, sliding the refresh deadline forward. The returned
// RefreshedToken must then be persisted by the caller. A refresh failure
// fails closed: no partial or stale session is ever returned.
func (e *Engine) GetValidSession(ctx context.Context, token string) (*ValidSession, bool) {
	if e == nil {
		return nil, false
	}

	start := time.Now()
	vs, ok := e.getValidSession(ctx, token)
	e.metrics.Observe(MetricValidateLatency, time.Since(start))
	return vs, ok
}

func (e *Engine) getValidSession(ctx context.Context, token string) (*ValidSession, bool) {
	s := session.Decode(e.sealer, token)
	if s == nil {
		e.metricInc(MetricTokenInvalid)
		e.debugf("session token rejected: undecodable or incomplete")
		return nil, false
	}

	now := time.Now()
	if !s.Alive(now) {
		e.metricInc(MetricSessionExpired)
		e.auditEmit(ctx, AuditEvent{
			EventType: AuditSessionExpired,
			UserID:    s.UserID,
			SessionID: s.SessionID,
		})
		return nil, false
	}

	if s.NeedsRefresh(now, e.config.Session.RefreshBuffer) {
		return e.refreshSession(ctx, s, now)
	}

	return &ValidSession{Session: s}, true
}

func (e *Engine) refreshSession(ctx context.Context, s *session.Session, now time.Time) (*ValidSession, bool) {
	deadline, _ := e.refreshDeadline(now, s.CreatedAt)
	if !deadline.After(now) {
		// Absolute lifetime cap reached; the session may not slide further.
		e.metricInc(MetricSessionExpired)
		e.auditEmit(ctx, AuditEvent{
			EventType: AuditSessionExpired,
			UserID:    s.UserID,
			SessionID: s.SessionID,
			Error:     "max session lifetime reached",
		})
		return nil, false
	}

	pair, err := e.directory.AuthenticateWithRefreshToken(ctx, s.RefreshToken, s.OrganizationID)
	if err != nil {
		e.metricInc(MetricSessionRefreshFailure)
		e.auditEmit(ctx, AuditEvent{
			EventType: AuditSessionRefreshed,
			UserID:    s.UserID,
			SessionID: s.SessionID,
			Error:     err.Error(),
		})
		e.debugf("token refresh failed for session %s: %v", s.SessionID, err)
		return nil, false
	}

	next := *s
	next.AccessToken = pair.AccessToken
	next.RefreshToken = pair.RefreshToken
	next.AccessTokenExpiresAt = now.Add(e.config.Session.AccessTTL).Unix()
	next.RefreshTokenExpiresAt = deadline.Unix()
	if next.AccessTokenExpiresAt > next.RefreshTokenExpiresAt {
		next.AccessTokenExpiresAt = next.RefreshTokenExpiresAt
	}

	sealed, err := session.Seal(e.sealer, &next, deadline.Sub(now))
	if err != nil {
		e.metricInc(MetricSessionRefreshFailure)
		return nil, false
	}

	e.metricInc(MetricSessionRefreshSuccess)
	e.auditEmit(ctx, AuditEvent{
		EventType:      AuditSessionRefreshed,
		UserID:         next.UserID,
		SessionID:      next.SessionID,
		OrganizationID: next.OrganizationID,
		Success:        true,
	})

	return &ValidSession{Session: &next, RefreshedToken: sealed}, true
}

// refreshDeadline computes where the sliding window may move the refresh
// expiry, honoring the optional absolute lifetime cap.
func (e *Engine) refreshDeadline(now time.Time, createdAt int64) (time.Time, bool) {
	deadline := now.Add(e.config.Session.RefreshTTL)
	max := e.config.Session.MaxSessionLifetime
	if max <= 0 {
		return deadline, false
	}
	capAt := time.Unix(createdAt, 0).Add(max)
	if deadline.After(capAt) {
		return capAt, true
	}
	return deadline, false
}

// ResolveSession validates the token and joins it with live directory
// records. The user fetch is load-bearing: if it fails the whole resolution
// fails. Organization and membership fetches are enrichment only; their
// failures are swallowed and the fields come back nil, because a session
// remains meaningful without an active organization.
func (e *Engine) ResolveSession(ctx context.Context, token string) (*ResolvedSession, bool) {
	if e == nil {
		return nil, false
	}

	vs, ok := e.GetValidSession(ctx, token)
	if !ok {
		return nil, false
	}

	user, err := e.directory.GetUser(ctx, vs.Session.UserID)
	if err != nil {
		e.metricInc(MetricResolveUserFailure)
		e.debugf("user resolution failed for session %s: %v", vs.Session.SessionID, err)
		return nil, false
	}

	resolved := &ResolvedSession{
		Session:        vs.Session,
		User:           user,
		RefreshedToken: vs.RefreshedToken,
	}

	if orgID := vs.Session.OrganizationID; orgID != "" {
		if org, err := e.directory.GetOrganization(ctx, orgID); err == nil {
			resolved.Organization = &org
		} else {
			e.debugf("organization %s lookup failed, resolving without org context: %v", orgID, err)
		}
		if membership, err := e.directory.GetOrganizationMembership(ctx, user.ID, orgID); err == nil {
			resolved.Membership = &membership
		}
	}

	e.metricInc(MetricSessionResolved)
	return resolved, true
}

// UpdateSessionOrganization rewrites the session's organization context and
// reseals the token with a fresh full envelope TTL. Unlike the passive
// checks this is a direct user action: failures are definite, typed errors,
// and no new token is issued on any of them. A non-empty organizationID is
// verified against the user's memberships first; an empty one clears the
// active organization.
func (e *Engine) UpdateSessionOrganization(ctx context.Context, token, organizationID string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}

	s, err := session.Open(e.sealer, token)
	if err != nil {
		if errors.Is(err, envelope.ErrTokenExpired) {
			return "", fmt.Errorf("%w: %v", ErrSessionExpired, err)
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if organizationID != "" {
		if _, err := e.directory.GetOrganizationMembership(ctx, s.UserID, organizationID); err != nil {
			e.metricInc(MetricOrganizationSwitchDenied)
			e.auditEmit(ctx, AuditEvent{
				EventType:      AuditOrganizationDenied,
				UserID:         s.UserID,
				SessionID:      s.SessionID,
				OrganizationID: organizationID,
				Error:          err.Error(),
			})
			if errors.Is(err, ErrMembershipNotFound) || errors.Is(err, ErrOrganizationNotFound) {
				return "", err
			}
			return "", fmt.Errorf("verify membership: %w", err)
		}
	}

	next := *s
	next.OrganizationID = organizationID

	sealed, err := session.Seal(e.sealer, &next, e.config.Session.RefreshTTL)
	if err != nil {
		return "", err
	}

	e.metricInc(MetricOrganizationSwitched)
	e.auditEmit(ctx, AuditEvent{
		EventType:      AuditOrganizationSwitch,
		UserID:         next.UserID,
		SessionID:      next.SessionID,
		OrganizationID: organizationID,
		Success:        true,
	})

	return sealed, nil
}

// SessionNeedsRefresh is a cheap read-only probe for UI hinting: it
// duplicates the buffer-window comparison without performing the refresh.
// Unusable or already-dead tokens report false; there is nothing left to
// refresh.
func (e *Engine) SessionNeedsRefresh(token string) bool {
	if e == nil {
		return false
	}
	s := session.Decode(e.sealer, token)
	if s == nil {
		return false
	}
	now := time.Now()
	if !s.Alive(now) {
		return false
	}
	return s.NeedsRefresh(now, e.config.Session.RefreshBuffer)
}

// SignIn authenticates a password credential at the directory and mints the
// session token in one step.
func (e *Engine) SignIn(ctx context.Context, email, password string) (SignInResult, error) {
	if e == nil {
		return SignInResult{}, ErrEngineNotReady
	}
	res, err := e.directory.AuthenticateWithPassword(ctx, email, password)
	if err != nil {
		e.metricInc(MetricSignInFailure)
		e.auditEmit(ctx, AuditEvent{EventType: AuditSignInFailed, Error: err.Error(), Metadata: map[string]string{"method": "password"}})
		return SignInResult{}, err
	}
	return e.finishSignIn(ctx, res, "password")
}

// SignInWithCode exchanges an OAuth authorization code at the directory and
// mints the session token.
func (e *Engine) SignInWithCode(ctx context.Context, code string) (SignInResult, error) {
	if e == nil {
		return SignInResult{}, ErrEngineNotReady
	}
	res, err := e.directory.AuthenticateWithCode(ctx, code)
	if err != nil {
		e.metricInc(MetricSignInFailure)
		e.auditEmit(ctx, AuditEvent{EventType: AuditSignInFailed, Error: err.Error(), Metadata: map[string]string{"method": "oauth"}})
		return SignInResult{}, err
	}
	return e.finishSignIn(ctx, res, "oauth")
}

// VerifyEmail completes email verification by exchanging the
// provider-issued pending authentication token and the emailed code, then
// mints the session. The pending token comes from an earlier sign-in
// attempt that failed with ErrEmailNotVerified.
func (e *Engine) VerifyEmail(ctx context.Context, pendingToken, code string) (SignInResult, error) {
	if e == nil {
		return SignInResult{}, ErrEngineNotReady
	}
	res, err := e.directory.VerifyEmail(ctx, pendingToken, code)
	if err != nil {
		e.metricInc(MetricSignInFailure)
		e.auditEmit(ctx, AuditEvent{EventType: AuditSignInFailed, Error: err.Error(), Metadata: map[string]string{"method": "email_verification"}})
		return SignInResult{}, err
	}
	return e.finishSignIn(ctx, res, "email_verification")
}

func (e *Engine) finishSignIn(ctx context.Context, res AuthResponse, method string) (SignInResult, error) {
	token, err := e.CreateSession(ctx, CreateSessionInput{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		UserID:       res.User.ID,
	})
	if err != nil {
		e.metricInc(MetricSignInFailure)
		return SignInResult{}, err
	}

	e.metricInc(MetricSignInSuccess)
	e.auditEmit(ctx, AuditEvent{
		EventType: AuditSignInSucceeded,
		UserID:    res.User.ID,
		Success:   true,
		Metadata:  map[string]string{"method": method},
	})

	return SignInResult{User: res.User, Token: token}, nil
}

// AuthorizationURL generates an OAuth state parameter and asks the
// directory for the provider authorization URL, with the redirect URI
// resolved against the configured base URL. The caller should persist the
// state (short-lived cookie) and check it with envelope.ValidateState on
// callback.
func (e *Engine) AuthorizationURL(provider, redirectPath string) (authURL, state string, err error) {
	if e == nil {
		return "", "", ErrEngineNotReady
	}

	state, err = envelope.GenerateState()
	if err != nil {
		return "", "", err
	}

	base, err := url.Parse(e.config.BaseURL)
	if err != nil {
		return "", "", fmt.Errorf("%w: BaseURL unparseable", ErrConfigInvalid)
	}
	redirectURI := base.JoinPath(redirectPath).String()

	authURL, err = e.directory.GetAuthorizationURL(provider, redirectURI, state)
	if err != nil {
		return "", "", err
	}
	return authURL, state, nil
}

// SignOut records the end of a session. Destruction itself is client-side:
// the caller clears the cookie (cookie.Clear with CookieOptions) and the
// self-contained token simply stops being presented.
func (e *Engine) SignOut(ctx context.Context, token string) {
	if e == nil {
		return
	}

	event := AuditEvent{EventType: AuditSignOut, Success: true}
	if s := session.Decode(e.sealer, token); s != nil {
		event.UserID = s.UserID
		event.SessionID = s.SessionID
		event.OrganizationID = s.OrganizationID
	}

	e.metricInc(MetricSignOut)
	e.auditEmit(ctx, event)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) auditEmit(ctx context.Context, event AuditEvent) {
	if e == nil || e.audit == nil {
		return
	}
	event.Timestamp = time.Now()
	e.audit.Emit(ctx, event)
}

func (e *Engine) debugf(format string, args ...any) {
	if e == nil || !e.config.Debug {
		return
	}
	log.Printf("sessionkit: "+format, args...)
}
