package sessionkit

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/halyard-auth/sessionkit/envelope"
	"github.com/halyard-auth/sessionkit/session"
)

const testCookiePassword = "0123456789abcdef0123456789abcdef"

type mockDirectory struct {
	users       map[string]User
	orgs        map[string]Organization
	memberships map[string]OrganizationMembership

	refreshFn      func(ctx context.Context, refreshToken, organizationID string) (TokenPair, error)
	authPasswordFn func(ctx context.Context, email, password string) (AuthResponse, error)
	authCodeFn     func(ctx context.Context, code string) (AuthResponse, error)
	verifyEmailFn  func(ctx context.Context, pendingToken, code string) (AuthResponse, error)

	refreshCalls int
	userCalls    int
}

func newMockDirectory() *mockDirectory {
	return &mockDirectory{
		users:       make(map[string]User),
		orgs:        make(map[string]Organization),
		memberships: make(map[string]OrganizationMembership),
	}
}

func membershipKey(userID, organizationID string) string {
	return userID + "/" + organizationID
}

func (m *mockDirectory) GetUser(_ context.Context, userID string) (User, error) {
	m.userCalls++
	u, ok := m.users[userID]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (m *mockDirectory) CreateUser(_ context.Context, input CreateUserInput) (User, error) {
	for _, u := range m.users {
		if u.Email == input.Email {
			return User{}, ErrUserExists
		}
	}
	u := User{ID: "user_" + input.Email, Email: input.Email, FirstName: input.FirstName, LastName: input.LastName}
	m.users[u.ID] = u
	return u, nil
}

func (m *mockDirectory) AuthenticateWithPassword(ctx context.Context, email, password string) (AuthResponse, error) {
	if m.authPasswordFn != nil {
		return m.authPasswordFn(ctx, email, password)
	}
	return AuthResponse{}, ErrInvalidCredentials
}

func (m *mockDirectory) AuthenticateWithCode(ctx context.Context, code string) (AuthResponse, error) {
	if m.authCodeFn != nil {
		return m.authCodeFn(ctx, code)
	}
	return AuthResponse{}, ErrInvalidCredentials
}

func (m *mockDirectory) AuthenticateWithRefreshToken(ctx context.Context, refreshToken, organizationID string) (TokenPair, error) {
	m.refreshCalls++
	if m.refreshFn != nil {
		return m.refreshFn(ctx, refreshToken, organizationID)
	}
	return TokenPair{AccessToken: "at_refreshed", RefreshToken: "rt_refreshed"}, nil
}

func (m *mockDirectory) SendVerificationEmail(_ context.Context, userID string) error {
	if _, ok := m.users[userID]; !ok {
		return ErrUserNotFound
	}
	return nil
}

func (m *mockDirectory) VerifyEmail(ctx context.Context, pendingToken, code string) (AuthResponse, error) {
	if m.verifyEmailFn != nil {
		return m.verifyEmailFn(ctx, pendingToken, code)
	}
	return AuthResponse{}, ErrInvalidCredentials
}

func (m *mockDirectory) GetOrganization(_ context.Context, organizationID string) (Organization, error) {
	org, ok := m.orgs[organizationID]
	if !ok {
		return Organization{}, ErrOrganizationNotFound
	}
	return org, nil
}

func (m *mockDirectory) GetOrganizationMembership(_ context.Context, userID, organizationID string) (OrganizationMembership, error) {
	mem, ok := m.memberships[membershipKey(userID, organizationID)]
	if !ok {
		return OrganizationMembership{}, ErrMembershipNotFound
	}
	return mem, nil
}

func (m *mockDirectory) ListOrganizationMemberships(_ context.Context, userID string) ([]OrganizationMembership, error) {
	var out []OrganizationMembership
	for _, mem := range m.memberships {
		if mem.UserID == userID {
			out = append(out, mem)
		}
	}
	return out, nil
}

func (m *mockDirectory) GetAuthorizationURL(provider, redirectURI, state string) (string, error) {
	return "https://auth.example.com/oauth/authorize?provider=" + provider + "&redirect_uri=" + redirectURI + "&state=" + state, nil
}

func newTestEngine(t *testing.T, dir DirectoryClient, mutate func(*Config)) *Engine {
	t.Helper()

	cfg := DefaultConfig()
	cfg.APIKey = "sk_test"
	cfg.ClientID = "client_test"
	cfg.BaseURL = "https://app.example.com"
	cfg.Cookie.Password = testCookiePassword
	if mutate != nil {
		mutate(&cfg)
	}

	engine, err := New().WithConfig(cfg).WithDirectory(dir).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

// sealSession writes an arbitrary payload under the engine's key so tests
// can place sessions at any point of their lifecycle.
func sealSession(t *testing.T, e *Engine, s *session.Session) string {
	t.Helper()
	token, err := session.Seal(e.sealer, s, time.Hour)
	if err != nil {
		t.Fatalf("seal test session: %v", err)
	}
	return token
}

func baseSession(now time.Time) *session.Session {
	return &session.Session{
		SessionID:             "sess_1",
		UserID:                "user_1",
		AccessToken:           "at_old",
		RefreshToken:          "rt_old",
		AccessTokenExpiresAt:  now.Add(15 * time.Minute).Unix(),
		RefreshTokenExpiresAt: now.Add(720 * time.Hour).Unix(),
		CreatedAt:             now.Unix(),
	}
}

func TestCreateSessionAndValidate(t *testing.T) {
	engine := newTestEngine(t, newMockDirectory(), nil)

	ctx := WithUserAgent(WithClientIP(context.Background(), "203.0.113.7"), "test-agent")
	token, err := engine.CreateSession(ctx, CreateSessionInput{
		AccessToken:    "at_1",
		RefreshToken:   "rt_1",
		UserID:         "user_1",
		OrganizationID: "org_1",
	})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	vs, ok := engine.GetValidSession(context.Background(), token)
	if !ok {
		t.Fatal("freshly created session did not validate")
	}
	if vs.RefreshedToken != "" {
		t.Fatal("fresh session triggered a refresh")
	}

	s := vs.Session
	if s.UserID != "user_1" || s.AccessToken != "at_1" || s.RefreshToken != "rt_1" {
		t.Fatalf("unexpected session payload: %+v", s)
	}
	if s.OrganizationID != "org_1" {
		t.Fatalf("OrganizationID = %q, want org_1", s.OrganizationID)
	}
	if s.SessionID == "" {
		t.Fatal("no session id generated for opaque access token")
	}
	if s.IPAddress != "203.0.113.7" || s.UserAgent != "test-agent" {
		t.Fatalf("context metadata not captured: ip=%q ua=%q", s.IPAddress, s.UserAgent)
	}

	if got := engine.MetricsSnapshot().Counters[MetricSessionCreated]; got != 1 {
		t.Fatalf("MetricSessionCreated = %d, want 1", got)
	}
}

func TestCreateSessionRequiresCredentials(t *testing.T) {
	engine := newTestEngine(t, newMockDirectory(), nil)

	inputs := []CreateSessionInput{
		{RefreshToken: "rt", UserID: "u"},
		{AccessToken: "at", UserID: "u"},
		{AccessToken: "at", RefreshToken: "rt"},
	}
	for _, input := range inputs {
		if _, err := engine.CreateSession(context.Background(), input); !errors.Is(err, ErrInvalidSession) {
			t.Fatalf("CreateSession(%+v): expected ErrInvalidSession, got %v", input, err)
		}
	}
}

func TestCreateSessionReadsJWTClaims(t *testing.T) {
	engine := newTestEngine(t, newMockDirectory(), nil)

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, session.AccessClaims{
		SessionID:      "sess_from_jwt",
		OrganizationID: "org_from_jwt",
	}).SignedString([]byte("directory-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	token, err := engine.CreateSession(context.Background(), CreateSessionInput{
		AccessToken:  accessToken,
		RefreshToken: "rt_1",
		UserID:       "user_1",
	})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	vs, ok := engine.GetValidSession(context.Background(), token)
	if !ok {
		t.Fatal("session did not validate")
	}
	if vs.Session.SessionID != "sess_from_jwt" {
		t.Fatalf("SessionID = %q, want sess_from_jwt", vs.Session.SessionID)
	}
	if vs.Session.OrganizationID != "org_from_jwt" {
		t.Fatalf("OrganizationID = %q, want org_from_jwt", vs.Session.OrganizationID)
	}
}

func TestGetValidSessionRejectsGarbage(t *testing.T) {
	engine := newTestEngine(t, newMockDirectory(), nil)

	for _, token := range []string{"", "garbage", "a.b.c"} {
		if _, ok := engine.GetValidSession(context.Background(), token); ok {
			t.Fatalf("GetValidSession(%q) = ok", token)
		}
	}
	if got := engine.MetricsSnapshot().Counters[MetricTokenInvalid]; got != 3 {
		t.Fatalf("MetricTokenInvalid = %d, want 3", got)
	}
}

func TestSlidingWindowRefresh(t *testing.T) {
	dir := newMockDirectory()
	engine := newTestEngine(t, dir, nil)

	now := time.Now()
	s := baseSession(now)
	// Access token expires in 4 minutes, inside the 5 minute buffer.
	s.AccessTokenExpiresAt = now.Add(4 * time.Minute).Unix()
	token := sealSession(t, engine, s)

	vs, ok := engine.GetValidSession(context.Background(), token)
	if !ok {
		t.Fatal("session inside refresh buffer did not validate")
	}
	if vs.RefreshedToken == "" {
		t.Fatal("no refreshed token returned")
	}
	if dir.refreshCalls != 1 {
		t.Fatalf("refreshCalls = %d, want 1", dir.refreshCalls)
	}

	next := vs.Session
	if next.AccessToken != "at_refreshed" || next.RefreshToken != "rt_refreshed" {
		t.Fatalf("token pair not replaced: %+v", next)
	}
	if next.SessionID != s.SessionID {
		t.Fatal("refresh changed the session id")
	}

	wantAccess := now.Add(15 * time.Minute).Unix()
	if diff := next.AccessTokenExpiresAt - wantAccess; diff < -2 || diff > 2 {
		t.Fatalf("AccessTokenExpiresAt = %d, want ~%d", next.AccessTokenExpiresAt, wantAccess)
	}
	wantRefresh := now.Add(720 * time.Hour).Unix()
	if diff := next.RefreshTokenExpiresAt - wantRefresh; diff < -2 || diff > 2 {
		t.Fatalf("RefreshTokenExpiresAt = %d, want ~%d (window did not slide)", next.RefreshTokenExpiresAt, wantRefresh)
	}

	// The rotated token round-trips.
	if vs2, ok := engine.GetValidSession(context.Background(), vs.RefreshedToken); !ok {
		t.Fatal("refreshed token did not validate")
	} else if vs2.RefreshedToken != "" {
		t.Fatal("refreshed token immediately refreshed again")
	}

	if got := engine.MetricsSnapshot().Counters[MetricSessionRefreshSuccess]; got != 1 {
		t.Fatalf("MetricSessionRefreshSuccess = %d, want 1", got)
	}
}

func TestExpiredRefreshDeadlineIsTerminal(t *testing.T) {
	dir := newMockDirectory()
	engine := newTestEngine(t, dir, nil)

	now := time.Now()
	s := baseSession(now)
	// Access token nominally fine, refresh deadline already passed. The
	// session is dead regardless of the access token's own state.
	s.RefreshTokenExpiresAt = now.Add(-time.Second).Unix()
	token := sealSession(t, engine, s)

	if _, ok := engine.GetValidSession(context.Background(), token); ok {
		t.Fatal("session past refresh deadline validated")
	}
	if dir.refreshCalls != 0 {
		t.Fatal("dead session triggered a directory call")
	}
	if got := engine.MetricsSnapshot().Counters[MetricSessionExpired]; got != 1 {
		t.Fatalf("MetricSessionExpired = %d, want 1", got)
	}
}

func TestRefreshFailureFailsClosed(t *testing.T) {
	dir := newMockDirectory()
	dir.refreshFn = func(context.Context, string, string) (TokenPair, error) {
		return TokenPair{}, ErrRefreshTokenExpired
	}
	engine := newTestEngine(t, dir, nil)

	now := time.Now()
	s := baseSession(now)
	s.AccessTokenExpiresAt = now.Add(time.Minute).Unix()
	token := sealSession(t, engine, s)

	vs, ok := engine.GetValidSession(context.Background(), token)
	if ok || vs != nil {
		t.Fatalf("refresh failure returned a session: %+v", vs)
	}
	if got := engine.MetricsSnapshot().Counters[MetricSessionRefreshFailure]; got != 1 {
		t.Fatalf("MetricSessionRefreshFailure = %d, want 1", got)
	}
}

func TestMaxSessionLifetimeStopsSliding(t *testing.T) {
	dir := newMockDirectory()
	engine := newTestEngine(t, dir, func(cfg *Config) {
		cfg.Session.MaxSessionLifetime = time.Hour
	})

	now := time.Now()
	s := baseSession(now)
	s.CreatedAt = now.Add(-2 * time.Hour).Unix()
	s.AccessTokenExpiresAt = now.Add(time.Minute).Unix()
	token := sealSession(t, engine, s)

	if _, ok := engine.GetValidSession(context.Background(), token); ok {
		t.Fatal("session past its lifetime cap refreshed")
	}
	if dir.refreshCalls != 0 {
		t.Fatal("capped session still hit the directory")
	}
}

func TestMaxSessionLifetimeClampsDeadline(t *testing.T) {
	dir := newMockDirectory()
	engine := newTestEngine(t, dir, func(cfg *Config) {
		cfg.Session.MaxSessionLifetime = 48 * time.Hour
	})

	now := time.Now()
	createdAt := now.Add(-47 * time.Hour)
	s := baseSession(now)
	s.CreatedAt = createdAt.Unix()
	s.AccessTokenExpiresAt = now.Add(time.Minute).Unix()
	token := sealSession(t, engine, s)

	vs, ok := engine.GetValidSession(context.Background(), token)
	if !ok {
		t.Fatal("session under its lifetime cap did not refresh")
	}

	capAt := createdAt.Add(48 * time.Hour).Unix()
	if vs.Session.RefreshTokenExpiresAt != capAt {
		t.Fatalf("RefreshTokenExpiresAt = %d, want cap %d", vs.Session.RefreshTokenExpiresAt, capAt)
	}
	if vs.Session.AccessTokenExpiresAt > vs.Session.RefreshTokenExpiresAt {
		t.Fatal("access expiry exceeds refresh expiry")
	}
}

func TestResolveSession(t *testing.T) {
	dir := newMockDirectory()
	dir.users["user_1"] = User{ID: "user_1", Email: "u1@example.com"}
	dir.orgs["org_1"] = Organization{ID: "org_1", Name: "Org One"}
	dir.memberships[membershipKey("user_1", "org_1")] = OrganizationMembership{
		ID: "mem_1", UserID: "user_1", OrganizationID: "org_1", Role: "admin",
	}
	engine := newTestEngine(t, dir, nil)

	now := time.Now()
	s := baseSession(now)
	s.OrganizationID = "org_1"
	token := sealSession(t, engine, s)

	resolved, ok := engine.ResolveSession(context.Background(), token)
	if !ok {
		t.Fatal("ResolveSession failed")
	}
	if resolved.User.Email != "u1@example.com" {
		t.Fatalf("User = %+v", resolved.User)
	}
	if resolved.Organization == nil || resolved.Organization.Name != "Org One" {
		t.Fatalf("Organization = %+v", resolved.Organization)
	}
	if resolved.Membership == nil || resolved.Membership.Role != "admin" {
		t.Fatalf("Membership = %+v", resolved.Membership)
	}
}

func TestResolveSessionUserFetchIsLoadBearing(t *testing.T) {
	dir := newMockDirectory() // user_1 not present
	engine := newTestEngine(t, dir, nil)

	token := sealSession(t, engine, baseSession(time.Now()))

	if _, ok := engine.ResolveSession(context.Background(), token); ok {
		t.Fatal("resolution succeeded despite user fetch failure")
	}
	if got := engine.MetricsSnapshot().Counters[MetricResolveUserFailure]; got != 1 {
		t.Fatalf("MetricResolveUserFailure = %d, want 1", got)
	}
}

func TestResolveSessionOrgFailureIsEnrichmentOnly(t *testing.T) {
	dir := newMockDirectory()
	dir.users["user_1"] = User{ID: "user_1"}
	engine := newTestEngine(t, dir, nil)

	now := time.Now()
	s := baseSession(now)
	s.OrganizationID = "org_gone"
	token := sealSession(t, engine, s)

	resolved, ok := engine.ResolveSession(context.Background(), token)
	if !ok {
		t.Fatal("resolution failed on enrichment-only org lookup")
	}
	if resolved.Organization != nil || resolved.Membership != nil {
		t.Fatalf("expected nil org context, got org=%+v mem=%+v", resolved.Organization, resolved.Membership)
	}
}

func TestUpdateSessionOrganization(t *testing.T) {
	dir := newMockDirectory()
	dir.memberships[membershipKey("user_1", "org_2")] = OrganizationMembership{
		ID: "mem_2", UserID: "user_1", OrganizationID: "org_2", Role: "member",
	}
	engine := newTestEngine(t, dir, nil)

	now := time.Now()
	s := baseSession(now)
	s.OrganizationID = "org_1"
	token := sealSession(t, engine, s)

	rotated, err := engine.UpdateSessionOrganization(context.Background(), token, "org_2")
	if err != nil {
		t.Fatalf("UpdateSessionOrganization failed: %v", err)
	}

	vs, ok := engine.GetValidSession(context.Background(), rotated)
	if !ok {
		t.Fatal("rotated token did not validate")
	}
	if vs.Session.OrganizationID != "org_2" {
		t.Fatalf("OrganizationID = %q, want org_2", vs.Session.OrganizationID)
	}
	if vs.Session.SessionID != s.SessionID || vs.Session.AccessToken != s.AccessToken {
		t.Fatal("organization switch altered unrelated fields")
	}

	// Empty id clears the active organization.
	cleared, err := engine.UpdateSessionOrganization(context.Background(), rotated, "")
	if err != nil {
		t.Fatalf("clearing organization failed: %v", err)
	}
	if vs, ok := engine.GetValidSession(context.Background(), cleared); !ok || vs.Session.OrganizationID != "" {
		t.Fatal("organization not cleared")
	}
}

func TestUpdateSessionOrganizationDenied(t *testing.T) {
	engine := newTestEngine(t, newMockDirectory(), nil)

	token := sealSession(t, engine, baseSession(time.Now()))

	rotated, err := engine.UpdateSessionOrganization(context.Background(), token, "org_not_mine")
	if !errors.Is(err, ErrMembershipNotFound) {
		t.Fatalf("expected ErrMembershipNotFound, got %v", err)
	}
	if rotated != "" {
		t.Fatal("denied switch still issued a token")
	}
	if got := engine.MetricsSnapshot().Counters[MetricOrganizationSwitchDenied]; got != 1 {
		t.Fatalf("MetricOrganizationSwitchDenied = %d, want 1", got)
	}
}

func TestUpdateSessionOrganizationInvalidToken(t *testing.T) {
	engine := newTestEngine(t, newMockDirectory(), nil)

	if _, err := engine.UpdateSessionOrganization(context.Background(), "garbage", "org_1"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestSessionNeedsRefreshProbe(t *testing.T) {
	engine := newTestEngine(t, newMockDirectory(), nil)
	now := time.Now()

	fresh := sealSession(t, engine, baseSession(now))
	if engine.SessionNeedsRefresh(fresh) {
		t.Fatal("fresh session reported needing refresh")
	}

	closing := baseSession(now)
	closing.AccessTokenExpiresAt = now.Add(time.Minute).Unix()
	if !engine.SessionNeedsRefresh(sealSession(t, engine, closing)) {
		t.Fatal("session inside buffer reported not needing refresh")
	}

	dead := baseSession(now)
	dead.RefreshTokenExpiresAt = now.Add(-time.Second).Unix()
	if engine.SessionNeedsRefresh(sealSession(t, engine, dead)) {
		t.Fatal("dead session reported needing refresh")
	}

	if engine.SessionNeedsRefresh("garbage") {
		t.Fatal("garbage token reported needing refresh")
	}
}

func TestSignIn(t *testing.T) {
	dir := newMockDirectory()
	dir.authPasswordFn = func(_ context.Context, email, password string) (AuthResponse, error) {
		if email != "u1@example.com" || password != "hunter22" {
			return AuthResponse{}, ErrInvalidCredentials
		}
		return AuthResponse{
			User:         User{ID: "user_1", Email: email},
			AccessToken:  "at_1",
			RefreshToken: "rt_1",
		}, nil
	}
	engine := newTestEngine(t, dir, nil)

	res, err := engine.SignIn(context.Background(), "u1@example.com", "hunter22")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if res.User.ID != "user_1" {
		t.Fatalf("User = %+v", res.User)
	}
	if vs, ok := engine.GetValidSession(context.Background(), res.Token); !ok || vs.Session.UserID != "user_1" {
		t.Fatal("sign-in token did not validate")
	}
	if got := engine.MetricsSnapshot().Counters[MetricSignInSuccess]; got != 1 {
		t.Fatalf("MetricSignInSuccess = %d, want 1", got)
	}

	if _, err := engine.SignIn(context.Background(), "u1@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if got := engine.MetricsSnapshot().Counters[MetricSignInFailure]; got != 1 {
		t.Fatalf("MetricSignInFailure = %d, want 1", got)
	}
}

func TestVerifyEmailSignIn(t *testing.T) {
	dir := newMockDirectory()
	dir.verifyEmailFn = func(_ context.Context, pendingToken, code string) (AuthResponse, error) {
		if pendingToken != "pending_1" || code != "123456" {
			return AuthResponse{}, ErrInvalidCredentials
		}
		return AuthResponse{
			User:         User{ID: "user_1"},
			AccessToken:  "at_1",
			RefreshToken: "rt_1",
		}, nil
	}
	engine := newTestEngine(t, dir, nil)

	res, err := engine.VerifyEmail(context.Background(), "pending_1", "123456")
	if err != nil {
		t.Fatalf("VerifyEmail failed: %v", err)
	}
	if _, ok := engine.GetValidSession(context.Background(), res.Token); !ok {
		t.Fatal("verification token did not validate")
	}

	if _, err := engine.VerifyEmail(context.Background(), "pending_1", "000000"); err == nil {
		t.Fatal("wrong code accepted")
	}
}

func TestAuthorizationURL(t *testing.T) {
	engine := newTestEngine(t, newMockDirectory(), nil)

	authURL, state, err := engine.AuthorizationURL("github", "/auth/callback")
	if err != nil {
		t.Fatalf("AuthorizationURL failed: %v", err)
	}
	if !envelope.ValidateState(state, 0) {
		t.Fatalf("generated state %q does not validate", state)
	}
	if !strings.Contains(authURL, "provider=github") {
		t.Fatalf("authURL %q missing provider", authURL)
	}
	if !strings.Contains(authURL, "https://app.example.com/auth/callback") {
		t.Fatalf("authURL %q missing resolved redirect URI", authURL)
	}
}

func TestSignOutAudits(t *testing.T) {
	sink := NewChannelSink(8)
	dir := newMockDirectory()

	cfg := DefaultConfig()
	cfg.APIKey = "sk_test"
	cfg.ClientID = "client_test"
	cfg.BaseURL = "https://app.example.com"
	cfg.Cookie.Password = testCookiePassword
	cfg.Audit.Enabled = true

	engine, err := New().WithConfig(cfg).WithDirectory(dir).WithAuditSink(sink).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	token := sealSession(t, engine, baseSession(time.Now()))
	engine.SignOut(context.Background(), token)
	engine.Close()

	found := false
	for {
		select {
		case event := <-sink.Events():
			if event.EventType == AuditSignOut {
				if event.UserID != "user_1" || event.SessionID != "sess_1" {
					t.Fatalf("sign-out event missing identity: %+v", event)
				}
				found = true
			}
			continue
		default:
		}
		break
	}
	if !found {
		t.Fatal("no sign-out audit event emitted")
	}
	if got := engine.MetricsSnapshot().Counters[MetricSignOut]; got != 1 {
		t.Fatalf("MetricSignOut = %d, want 1", got)
	}
}

func TestNilEngineIsSafe(t *testing.T) {
	var engine *Engine

	if _, ok := engine.GetValidSession(context.Background(), "x"); ok {
		t.Fatal("nil engine validated a session")
	}
	if _, ok := engine.ResolveSession(context.Background(), "x"); ok {
		t.Fatal("nil engine resolved a session")
	}
	if _, err := engine.CreateSession(context.Background(), CreateSessionInput{}); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if engine.SessionNeedsRefresh("x") {
		t.Fatal("nil engine reported refresh needed")
	}
	engine.SignOut(context.Background(), "x")
	engine.Close()
}
