package middleware

import (
	"context"
	"net/http"
	"net/url"

	sessionkit "github.com/halyard-auth/sessionkit"
	"github.com/halyard-auth/sessionkit/cookie"
)

type authContextKey struct{}

// AuthFromContext returns the AuthContext the guard stored on the request,
// if the request passed through the guard.
func AuthFromContext(ctx context.Context) (sessionkit.AuthContext, bool) {
	auth, ok := ctx.Value(authContextKey{}).(sessionkit.AuthContext)
	return auth, ok
}

// Options configures the route guard. All route lists are glob patterns
// ('*' matches any run of characters) compiled once at construction.
type Options struct {
	// SignInPath is where unauthenticated requests are redirected, with
	// the original path appended as a "redirect" query parameter.
	// Defaults to "/sign-in".
	SignInPath string

	// IgnoredRoutes skip auth entirely: no cookie read, no session
	// lookup. Static assets and the auth endpoints themselves belong
	// here.
	IgnoredRoutes []string
	// PublicRoutes are always allowed; an existing session is still
	// looked up so handlers see the auth context.
	PublicRoutes []string
	// ProtectedRoutes require authentication even if a broader public
	// pattern also matches. Checked before PublicRoutes.
	ProtectedRoutes []string

	// Matcher, when set, fully overrides the public/protected lists:
	// it reports whether the request requires authentication.
	// IgnoredRoutes still apply first.
	Matcher func(r *http.Request) bool

	// AfterAuth runs after the routing decision with the derived auth
	// context. Returning true means it wrote a terminal response (for
	// example a custom 403); any refreshed session cookie is already on
	// the response headers at that point.
	AfterAuth func(w http.ResponseWriter, r *http.Request, auth sessionkit.AuthContext) bool
}

// Guard returns the route-gating middleware. Construction fails only on an
// uncompilable route pattern.
//
// The guard never surfaces an internal error to the client: every session
// lookup failure degrades to an unauthenticated context, and the client
// sees the same sign-in redirect whether it never signed in, expired, or
// presented a tampered token.
func Guard(engine *sessionkit.Engine, opts Options) (func(http.Handler) http.Handler, error) {
	ignored, err := compileRoutes(opts.IgnoredRoutes)
	if err != nil {
		return nil, err
	}
	public, err := compileRoutes(opts.PublicRoutes)
	if err != nil {
		return nil, err
	}
	protected, err := compileRoutes(opts.ProtectedRoutes)
	if err != nil {
		return nil, err
	}

	signInPath := opts.SignInPath
	if signInPath == "" {
		signInPath = "/sign-in"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path

			if ignored.matches(path) {
				next.ServeHTTP(w, r)
				return
			}

			var auth sessionkit.AuthContext
			refreshedToken := ""
			if engine != nil {
				if token, ok := cookie.Read(r, engine.CookieName()); ok {
					if vs, ok := engine.GetValidSession(r.Context(), token); ok {
						auth = sessionkit.AuthContext{
							UserID:         vs.Session.UserID,
							SessionID:      vs.Session.SessionID,
							OrganizationID: vs.Session.OrganizationID,
							Authenticated:  true,
						}
						refreshedToken = vs.RefreshedToken
					}
				}
			}

			requiresAuth := true
			switch {
			case opts.Matcher != nil:
				requiresAuth = opts.Matcher(r)
			case protected.matches(path):
				requiresAuth = true
			case public.matches(path):
				requiresAuth = false
			}

			if requiresAuth && !auth.Authenticated {
				redirectToSignIn(w, r, signInPath)
				return
			}

			// The rotated cookie goes on the headers now so it is part of
			// every response below, including ones AfterAuth writes.
			if refreshedToken != "" && engine != nil {
				cookie.Write(w, refreshedToken, engine.CookieOptions())
			}

			r = r.WithContext(context.WithValue(r.Context(), authContextKey{}, auth))

			if opts.AfterAuth != nil && opts.AfterAuth(w, r, auth) {
				return
			}

			next.ServeHTTP(w, r)
		})
	}, nil
}

func redirectToSignIn(w http.ResponseWriter, r *http.Request, signInPath string) {
	target, err := url.Parse(signInPath)
	if err != nil {
		target = &url.URL{Path: "/sign-in"}
	}

	q := target.Query()
	q.Set("redirect", r.URL.Path)
	target.RawQuery = q.Encode()

	http.Redirect(w, r, target.String(), http.StatusFound)
}
