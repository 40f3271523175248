// Command sessionkit-loadtest measures seal, validate, and refresh
// throughput against an in-process engine with a stub directory, so the
// numbers isolate the crypto and session-policy cost from network latency.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	sessionkit "github.com/halyard-auth/sessionkit"
	"github.com/halyard-auth/sessionkit/envelope"
	"github.com/halyard-auth/sessionkit/session"
)

func main() {
	var (
		sessions    = flag.Int("sessions", 10000, "number of sessions to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "operations per phase")
		secret      = flag.String("secret", "loadtest-cookie-password-32chars!", "cookie secret (>= 32 chars)")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	cfg := sessionkit.DefaultConfig()
	cfg.APIKey = "sk_loadtest"
	cfg.ClientID = "client_loadtest"
	cfg.BaseURL = "https://loadtest.invalid"
	cfg.Cookie.Password = *secret

	engine, err := sessionkit.New().
		WithConfig(cfg).
		WithDirectory(&stubDirectory{}).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	sealer, err := envelope.NewSealer(*secret)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sealer: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("seeding %d sessions...\n", *sessions)
	startSeed := time.Now()

	fresh := make([]string, *sessions)
	nearExpiry := make([]string, *sessions)
	now := time.Now()
	for i := 0; i < *sessions; i++ {
		fresh[i] = mustSeal(sealer, buildSession(i, now, 15*time.Minute))
		nearExpiry[i] = mustSeal(sealer, buildSession(i, now, time.Minute))
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	sealStats := runPhase(*ops, *concurrency, func(i int, r *rand.Rand) error {
		_, err := session.Seal(sealer, buildSession(i, now, 15*time.Minute), 720*time.Hour)
		return err
	})

	validateStats := runPhase(*ops, *concurrency, func(_ int, r *rand.Rand) error {
		if _, ok := engine.GetValidSession(ctx, fresh[r.Intn(len(fresh))]); !ok {
			return fmt.Errorf("validate rejected a fresh session")
		}
		return nil
	})

	refreshStats := runPhase(*ops, *concurrency, func(_ int, r *rand.Rand) error {
		if _, ok := engine.GetValidSession(ctx, nearExpiry[r.Intn(len(nearExpiry))]); !ok {
			return fmt.Errorf("refresh path rejected a live session")
		}
		return nil
	})

	fmt.Println("---- results ----")
	printStats("seal", sealStats)
	printStats("validate", validateStats)
	printStats("refresh", refreshStats)
}

func runPhase(ops, concurrency int, op func(i int, r *rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(i, r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

func buildSession(i int, now time.Time, accessTTL time.Duration) *session.Session {
	return &session.Session{
		SessionID:             fmt.Sprintf("sid-%d", i),
		UserID:                fmt.Sprintf("user-%d", i%1024),
		AccessToken:           fmt.Sprintf("at-%d", i),
		RefreshToken:          fmt.Sprintf("rt-%d", i),
		AccessTokenExpiresAt:  now.Add(accessTTL).Unix(),
		RefreshTokenExpiresAt: now.Add(720 * time.Hour).Unix(),
		CreatedAt:             now.Unix(),
	}
}

func mustSeal(sealer *envelope.Sealer, s *session.Session) string {
	token, err := session.Seal(sealer, s, 720*time.Hour)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seal: %v\n", err)
		os.Exit(1)
	}
	return token
}

// stubDirectory answers refreshes instantly so the refresh phase measures
// sessionkit overhead, not provider latency.
type stubDirectory struct {
	counter atomic.Int64
}

func (d *stubDirectory) GetUser(context.Context, string) (sessionkit.User, error) {
	return sessionkit.User{ID: "user-0"}, nil
}

func (d *stubDirectory) CreateUser(context.Context, sessionkit.CreateUserInput) (sessionkit.User, error) {
	return sessionkit.User{}, sessionkit.ErrUserExists
}

func (d *stubDirectory) AuthenticateWithPassword(context.Context, string, string) (sessionkit.AuthResponse, error) {
	return sessionkit.AuthResponse{}, sessionkit.ErrInvalidCredentials
}

func (d *stubDirectory) AuthenticateWithCode(context.Context, string) (sessionkit.AuthResponse, error) {
	return sessionkit.AuthResponse{}, sessionkit.ErrInvalidCredentials
}

func (d *stubDirectory) AuthenticateWithRefreshToken(context.Context, string, string) (sessionkit.TokenPair, error) {
	n := d.counter.Add(1)
	return sessionkit.TokenPair{
		AccessToken:  fmt.Sprintf("at-refreshed-%d", n),
		RefreshToken: fmt.Sprintf("rt-refreshed-%d", n),
	}, nil
}

func (d *stubDirectory) SendVerificationEmail(context.Context, string) error { return nil }

func (d *stubDirectory) VerifyEmail(context.Context, string, string) (sessionkit.AuthResponse, error) {
	return sessionkit.AuthResponse{}, sessionkit.ErrInvalidCredentials
}

func (d *stubDirectory) GetOrganization(context.Context, string) (sessionkit.Organization, error) {
	return sessionkit.Organization{}, sessionkit.ErrOrganizationNotFound
}

func (d *stubDirectory) GetOrganizationMembership(context.Context, string, string) (sessionkit.OrganizationMembership, error) {
	return sessionkit.OrganizationMembership{}, sessionkit.ErrMembershipNotFound
}

func (d *stubDirectory) ListOrganizationMemberships(context.Context, string) ([]sessionkit.OrganizationMembership, error) {
	return nil, nil
}

func (d *stubDirectory) GetAuthorizationURL(string, string, string) (string, error) {
	return "https://loadtest.invalid/oauth/authorize", nil
}
