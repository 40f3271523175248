package sessionkit

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/halyard-auth/sessionkit/envelope"
)

// CookieConfig controls the session cookie written by integrations and by
// the middleware.
type CookieConfig struct {
	Name   string
	Domain string
	Path   string
	// Secure should only be disabled for local development over plain
	// HTTP.
	Secure   bool
	SameSite http.SameSite
	// Password is the operator-supplied high-entropy secret the envelope
	// key is derived from. At least 32 characters.
	Password string
}

// SessionConfig is the numeric session policy.
type SessionConfig struct {
	// AccessTTL is the access-token lifetime stamped into new and
	// refreshed sessions.
	AccessTTL time.Duration
	// RefreshTTL is the refresh-token lifetime. Every successful refresh
	// recomputes it from now (sliding window).
	RefreshTTL time.Duration
	// RefreshBuffer triggers a refresh while the access token is still
	// valid but within this window of expiry, so a request is never
	// forwarded with a token already dead at the directory service.
	RefreshBuffer time.Duration
	// MaxSessionLifetime, when positive, caps the sliding window at
	// CreatedAt+MaxSessionLifetime: a continuously active session is
	// forced to re-authenticate past that point. Zero disables the cap.
	MaxSessionLifetime time.Duration
}

// MetricsConfig toggles the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// AuditConfig controls the audit event dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// Config carries all Engine settings. Configure before [Builder.Build];
// treat as immutable afterwards.
type Config struct {
	// APIKey authenticates server-side calls to the directory service.
	APIKey string
	// ClientID identifies this application to the directory service's
	// OAuth surface.
	ClientID string
	// BaseURL is the application's public base URL; OAuth redirect URIs
	// are resolved against it.
	BaseURL string
	// WebhookSecret verifies inbound directory webhooks. Optional.
	WebhookSecret string
	// Debug enables verbose logging of session decisions.
	Debug bool

	Cookie  CookieConfig
	Session SessionConfig
	Metrics MetricsConfig
	Audit   AuditConfig
}

// DefaultConfig returns the production defaults: 15 minute access tokens,
// 30 day refresh tokens, 5 minute refresh buffer, Lax HttpOnly Secure
// cookie, metrics on, audit off.
func DefaultConfig() Config {
	return Config{
		Cookie: CookieConfig{
			Name:     "sessionkit-session",
			Path:     "/",
			Secure:   true,
			SameSite: http.SameSiteLaxMode,
		},
		Session: SessionConfig{
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    30 * 24 * time.Hour,
			RefreshBuffer: 5 * time.Minute,
		},
		Metrics: MetricsConfig{Enabled: true},
		Audit:   AuditConfig{BufferSize: 256},
	}
}

// Validate checks the configuration eagerly and fails loud: a misconfigured
// Engine must never come up. All failures wrap ErrConfigInvalid.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("%w: APIKey is required", ErrConfigInvalid)
	}
	if c.ClientID == "" {
		return fmt.Errorf("%w: ClientID is required", ErrConfigInvalid)
	}
	if len(c.Cookie.Password) < envelope.MinSecretLength {
		return fmt.Errorf("%w: Cookie.Password must be at least %d characters", ErrConfigInvalid, envelope.MinSecretLength)
	}
	if c.Cookie.Name == "" {
		return fmt.Errorf("%w: Cookie.Name is required", ErrConfigInvalid)
	}
	if c.BaseURL == "" {
		return fmt.Errorf("%w: BaseURL is required", ErrConfigInvalid)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: BaseURL must be an absolute URL", ErrConfigInvalid)
	}
	if c.Session.AccessTTL <= 0 {
		return fmt.Errorf("%w: Session.AccessTTL must be > 0", ErrConfigInvalid)
	}
	if c.Session.RefreshTTL <= 0 {
		return fmt.Errorf("%w: Session.RefreshTTL must be > 0", ErrConfigInvalid)
	}
	if c.Session.AccessTTL > c.Session.RefreshTTL {
		return fmt.Errorf("%w: Session.AccessTTL must not exceed Session.RefreshTTL", ErrConfigInvalid)
	}
	if c.Session.RefreshBuffer <= 0 || c.Session.RefreshBuffer >= c.Session.AccessTTL {
		return fmt.Errorf("%w: Session.RefreshBuffer must be > 0 and < Session.AccessTTL", ErrConfigInvalid)
	}
	if c.Session.MaxSessionLifetime < 0 {
		return fmt.Errorf("%w: Session.MaxSessionLifetime must be >= 0", ErrConfigInvalid)
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return fmt.Errorf("%w: Audit.BufferSize must be > 0 when audit is enabled", ErrConfigInvalid)
	}
	return nil
}

type envConfig struct {
	APIKey         string        `env:"SESSIONKIT_API_KEY,required"`
	ClientID       string        `env:"SESSIONKIT_CLIENT_ID,required"`
	CookiePassword string        `env:"SESSIONKIT_COOKIE_PASSWORD,required"`
	BaseURL        string        `env:"SESSIONKIT_BASE_URL,required"`
	WebhookSecret  string        `env:"SESSIONKIT_WEBHOOK_SECRET"`
	CookieName     string        `env:"SESSIONKIT_COOKIE_NAME" envDefault:"sessionkit-session"`
	CookieDomain   string        `env:"SESSIONKIT_COOKIE_DOMAIN"`
	CookieSecure   bool          `env:"SESSIONKIT_COOKIE_SECURE" envDefault:"true"`
	Debug          bool          `env:"SESSIONKIT_DEBUG" envDefault:"false"`
	AccessTTL      time.Duration `env:"SESSIONKIT_ACCESS_TTL" envDefault:"15m"`
	RefreshTTL     time.Duration `env:"SESSIONKIT_REFRESH_TTL" envDefault:"720h"`
	RefreshBuffer  time.Duration `env:"SESSIONKIT_REFRESH_BUFFER" envDefault:"5m"`
	MaxLifetime    time.Duration `env:"SESSIONKIT_MAX_SESSION_LIFETIME" envDefault:"0"`
}

// LoadConfigFromEnv reads configuration from SESSIONKIT_* environment
// variables on top of DefaultConfig and validates it.
func LoadConfigFromEnv() (Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}

	cfg := DefaultConfig()
	cfg.APIKey = raw.APIKey
	cfg.ClientID = raw.ClientID
	cfg.BaseURL = raw.BaseURL
	cfg.WebhookSecret = raw.WebhookSecret
	cfg.Debug = raw.Debug
	cfg.Cookie.Password = raw.CookiePassword
	cfg.Cookie.Name = raw.CookieName
	cfg.Cookie.Domain = raw.CookieDomain
	cfg.Cookie.Secure = raw.CookieSecure
	cfg.Session.AccessTTL = raw.AccessTTL
	cfg.Session.RefreshTTL = raw.RefreshTTL
	cfg.Session.RefreshBuffer = raw.RefreshBuffer
	cfg.Session.MaxSessionLifetime = raw.MaxLifetime

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
