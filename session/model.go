package session

import "time"

// Session is the payload sealed into the session cookie. It is the full
// source of truth for an authenticated browser session; there is no
// server-side record to reconcile against.
//
// Invariant: AccessTokenExpiresAt <= RefreshTokenExpiresAt. The access
// lifetime is fixed and shorter, and a refresh replaces both expiries
// together as a unit.
type Session struct {
	// SessionID is generated once at creation and never changes for the
	// life of the session.
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`

	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`

	// Unix seconds.
	AccessTokenExpiresAt  int64 `json:"access_token_expires_at"`
	RefreshTokenExpiresAt int64 `json:"refresh_token_expires_at"`

	// OrganizationID is mutable independently of the token pair and may be
	// empty (no active organization).
	OrganizationID string `json:"organization_id,omitempty"`

	// IPAddress and UserAgent are captured at creation and advisory only;
	// nothing enforces them.
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`

	CreatedAt int64 `json:"created_at"`
}

// Alive reports whether the session can still be used at t: past the
// refresh deadline the session is dead and cannot be resurrected.
func (s *Session) Alive(t time.Time) bool {
	return s != nil && t.Unix() < s.RefreshTokenExpiresAt
}

// NeedsRefresh reports whether the access token is within buffer of its
// expiry at t. Refreshing inside the buffer window avoids ever presenting a
// token that is already invalid at the directory service.
func (s *Session) NeedsRefresh(t time.Time, buffer time.Duration) bool {
	if s == nil {
		return false
	}
	return t.Unix() >= s.AccessTokenExpiresAt-int64(buffer/time.Second)
}

func (s *Session) complete() bool {
	return s != nil &&
		s.SessionID != "" &&
		s.UserID != "" &&
		s.AccessToken != "" &&
		s.RefreshToken != ""
}
