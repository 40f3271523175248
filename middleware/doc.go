// Package middleware gates HTTP routes on the sessionkit session cookie.
//
// For every request it classifies the path against glob-style route lists
// (ignored, public, protected), asks the Engine for a valid session, and
// then allows, redirects to sign-in, or delegates to an AfterAuth hook.
// When the Engine rotated the session during validation, the refreshed
// cookie rides out on whatever response is produced, including responses
// written by AfterAuth.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls and decisions
// back into responses. It holds no session logic of its own.
//
// # What this package must NOT do
//
//   - Let an internal error escape as a 500: any failure during session
//     lookup degrades to an unauthenticated context.
//   - Distinguish, toward the client, between "never signed in", "session
//     expired", and "token tampered". All three redirect to sign-in.
//   - Decrypt or inspect the cookie value itself (Engine's job).
package middleware
