// Package cookie reads and writes the encrypted session token as an HTTP
// cookie across the request/response shapes a host application exposes:
// *http.Request readers, http.ResponseWriter writers, and raw http.Header
// access for frameworks that hand out headers directly.
//
// All writer shapes funnel through one encoder, so the same logical
// operation produces byte-identical Set-Cookie header values regardless of
// shape.
//
// # What this package must NOT do
//
//   - Inspect or validate the cookie value; it is pure transport.
//   - Decide cookie policy (names, lifetimes, Secure flags); callers pass
//     fully resolved [Options].
package cookie
