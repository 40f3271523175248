// Package sessionkit provides encrypted, self-contained cookie sessions on top
// of a hosted user/organization directory service: session-token issuance,
// validation with sliding-window refresh, live resolution against the
// directory, and organization-context switching.
//
// The session cookie is the only persisted form of a session. There is no
// server-side session store: the encrypted token carries the user id, the
// directory-issued access/refresh token pair, both expiries, and the active
// organization. Validation is a local decrypt; at most one directory
// round-trip happens when the access token enters its refresh window.
//
// # Architecture boundaries
//
// sessionkit is the public surface. It exposes [Engine], [Builder], [Config],
// [DirectoryClient], and value types (ResolvedSession, AuthContext, etc.).
// The cryptographic envelope, payload codec, cookie transport, and route
// middleware live in subpackages. The directory HTTP client lives in
// directory/ and is one implementation of [DirectoryClient] among any the
// caller supplies.
//
// # What this package must NOT do
//
//   - Persist sessions anywhere but the encrypted cookie value.
//   - Issue, sign, or verify directory credentials itself. The directory
//     service owns token issuance; sessionkit only stores what it is given.
//   - Be linked into untrusted (client-reachable) code: Engine holds the
//     cookie-encryption secret and must only be constructed inside a trusted
//     server process.
//
// # Concurrency
//
// Engine methods are safe to call from multiple goroutines after
// [Builder.Build]. Requests are independent; concurrent requests holding the
// same stale token may each trigger a directory refresh call. That
// duplication is accepted: the directory's own refresh-token rotation
// semantics are the safety net.
package sessionkit
