// Package directory implements sessionkit.DirectoryClient over the hosted
// directory service's REST API.
//
// Every call authenticates with the operator API key as a bearer token.
// Mutating requests carry an Idempotency-Key header so provider-side
// retries cannot double-create users. Provider failure codes are mapped to
// the sessionkit sentinel errors; anything unrecognized is wrapped with its
// original cause preserved.
//
// # What this package must NOT do
//
//   - Cache users, organizations, or memberships: sessionkit resolves live
//     on purpose.
//   - Interpret session policy; it speaks provider wire shapes only.
package directory
