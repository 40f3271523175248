// Package session defines the encrypted session payload and its codec.
//
// A Session is the only state sessionkit persists, and it travels solely as
// an envelope-sealed cookie value. The codec is deliberately two-faced:
// [Decode] converts every failure into a nil result because an unusable
// token is a normal, common condition for passive checks, while [Open]
// returns the underlying error for direct user actions that need a definite
// verdict.
//
// # What this package must NOT do
//
//   - Call the directory service or any network endpoint.
//   - Make refresh-policy decisions; it only models and (de)serializes.
package session
