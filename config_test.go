package sessionkit

import (
	"errors"
	"testing"
	"time"
)

func validTestConfig() Config {
	cfg := DefaultConfig()
	cfg.APIKey = "sk_test"
	cfg.ClientID = "client_test"
	cfg.BaseURL = "https://app.example.com"
	cfg.Cookie.Password = testCookiePassword
	return cfg
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := validTestConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed on defaults: %v", err)
	}
}

func TestValidateFailures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing api key", func(c *Config) { c.APIKey = "" }},
		{"missing client id", func(c *Config) { c.ClientID = "" }},
		{"short cookie password", func(c *Config) { c.Cookie.Password = "short" }},
		{"missing cookie name", func(c *Config) { c.Cookie.Name = "" }},
		{"missing base url", func(c *Config) { c.BaseURL = "" }},
		{"relative base url", func(c *Config) { c.BaseURL = "/app" }},
		{"zero access ttl", func(c *Config) { c.Session.AccessTTL = 0 }},
		{"zero refresh ttl", func(c *Config) { c.Session.RefreshTTL = 0 }},
		{"access ttl above refresh ttl", func(c *Config) {
			c.Session.AccessTTL = 2 * time.Hour
			c.Session.RefreshTTL = time.Hour
		}},
		{"zero refresh buffer", func(c *Config) { c.Session.RefreshBuffer = 0 }},
		{"buffer at access ttl", func(c *Config) { c.Session.RefreshBuffer = c.Session.AccessTTL }},
		{"negative max lifetime", func(c *Config) { c.Session.MaxSessionLifetime = -time.Hour }},
		{"audit enabled without buffer", func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = 0
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validTestConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrConfigInvalid) {
				t.Fatalf("expected ErrConfigInvalid, got %v", err)
			}
		})
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SESSIONKIT_API_KEY", "sk_env")
	t.Setenv("SESSIONKIT_CLIENT_ID", "client_env")
	t.Setenv("SESSIONKIT_COOKIE_PASSWORD", testCookiePassword)
	t.Setenv("SESSIONKIT_BASE_URL", "https://env.example.com")
	t.Setenv("SESSIONKIT_COOKIE_NAME", "my-session")
	t.Setenv("SESSIONKIT_ACCESS_TTL", "10m")
	t.Setenv("SESSIONKIT_REFRESH_TTL", "168h")
	t.Setenv("SESSIONKIT_DEBUG", "true")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv failed: %v", err)
	}
	if cfg.APIKey != "sk_env" || cfg.ClientID != "client_env" {
		t.Fatalf("credentials not loaded: %+v", cfg)
	}
	if cfg.Cookie.Name != "my-session" {
		t.Fatalf("Cookie.Name = %q", cfg.Cookie.Name)
	}
	if cfg.Session.AccessTTL != 10*time.Minute || cfg.Session.RefreshTTL != 168*time.Hour {
		t.Fatalf("session TTLs not loaded: %+v", cfg.Session)
	}
	if cfg.Session.RefreshBuffer != 5*time.Minute {
		t.Fatalf("RefreshBuffer default lost: %v", cfg.Session.RefreshBuffer)
	}
	if !cfg.Debug {
		t.Fatal("Debug not loaded")
	}
}

func TestLoadConfigFromEnvRequiresCredentials(t *testing.T) {
	t.Setenv("SESSIONKIT_API_KEY", "")
	t.Setenv("SESSIONKIT_CLIENT_ID", "client_env")
	t.Setenv("SESSIONKIT_COOKIE_PASSWORD", testCookiePassword)
	t.Setenv("SESSIONKIT_BASE_URL", "https://env.example.com")

	if _, err := LoadConfigFromEnv(); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid, got %v", err)
	}
}
