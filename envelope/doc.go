// Package envelope implements the authenticated-encryption envelope that
// seals session payloads into opaque, URL-safe cookie values, plus the small
// random-token utilities the rest of sessionkit builds on.
//
// # Token format
//
// A sealed token is three dot-separated base64url segments:
//
//	base64url(headerJSON) . base64url(nonce) . base64url(ciphertext)
//
// The header carries alg ("dir": the derived key is used directly, never
// wrapped), enc ("A256GCM"), the fixed issuer tag, and issued-at/expiry
// timestamps. The encoded header is bound as AEAD associated data, so any
// header tampering fails authentication.
//
// # Key derivation
//
// The 32-byte AES key is derived from the operator secret with
// PBKDF2-SHA256 over a fixed salt. Derivation runs once per Sealer,
// single-flighted behind sync.Once, so concurrent cold-start requests never
// repeat the KDF work.
//
// # What this package must NOT do
//
//   - Return nil on failure: every failure is a typed error
//     ([ErrTokenInvalid], [ErrTokenExpired], [ErrSecretTooShort]). Higher
//     layers decide whether to swallow.
//   - Perform I/O or read configuration.
package envelope
