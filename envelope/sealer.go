package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// Issuer is the fixed issuer tag embedded in every sealed token.
	// Tokens carrying any other issuer are rejected as invalid.
	Issuer = "sessionkit"

	// MinSecretLength is the minimum acceptable operator secret length.
	MinSecretLength = 32

	keyLength     = 32
	kdfIterations = 100_000
)

// kdfSalt is fixed: the operator secret is the sole input that varies, and
// the derived key must be stable across processes sharing that secret.
var kdfSalt = []byte("sessionkit/envelope/v1")

var (
	// ErrSecretTooShort is returned by NewSealer for secrets under
	// MinSecretLength characters.
	ErrSecretTooShort = errors.New("cookie secret must be at least 32 characters")
	// ErrTokenInvalid reports a malformed, tampered, wrong-issuer, or
	// wrong-key token.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired reports an authentic token whose embedded expiry has
	// passed. Terminal, like ErrTokenInvalid; the split exists for
	// diagnostics only.
	ErrTokenExpired = errors.New("token expired")
)

type tokenHeader struct {
	Alg string `json:"alg"`
	Enc string `json:"enc"`
	Iss string `json:"iss"`
	Iat int64  `json:"iat"`
	Exp int64  `json:"exp"`
}

// Sealer seals and opens payloads under a key derived from one operator
// secret. A Sealer is immutable after construction and safe for concurrent
// use.
type Sealer struct {
	secret string

	once sync.Once
	key  []byte
}

// NewSealer validates the secret length and returns a Sealer. The KDF does
// not run here; it runs once on first use.
func NewSealer(secret string) (*Sealer, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrSecretTooShort
	}
	return &Sealer{secret: secret}, nil
}

func (s *Sealer) derivedKey() []byte {
	s.once.Do(func() {
		s.key = pbkdf2.Key([]byte(s.secret), kdfSalt, kdfIterations, keyLength, sha256.New)
	})
	return s.key
}

// Seal encrypts plaintext into a self-contained token that expires ttl from
// now.
func (s *Sealer) Seal(plaintext []byte, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", errors.New("seal ttl must be > 0")
	}

	now := time.Now()
	headerJSON, err := json.Marshal(tokenHeader{
		Alg: "dir",
		Enc: "A256GCM",
		Iss: Issuer,
		Iat: now.Unix(),
		Exp: now.Add(ttl).Unix(),
	})
	if err != nil {
		return "", err
	}

	gcm, err := s.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	encodedHeader := base64.RawURLEncoding.EncodeToString(headerJSON)
	ciphertext := gcm.Seal(nil, nonce, plaintext, []byte(encodedHeader))

	return encodedHeader + "." +
		base64.RawURLEncoding.EncodeToString(nonce) + "." +
		base64.RawURLEncoding.EncodeToString(ciphertext), nil
}

// Open authenticates and decrypts a sealed token. Order of checks: shape,
// header, issuer, AEAD authentication, then expiry, so an expired
// verdict is only ever reported for an authentic token.
func (s *Sealer) Open(token string) ([]byte, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, ErrTokenInvalid
	}

	headerJSON, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, ErrTokenInvalid
	}
	var h tokenHeader
	if err := json.Unmarshal(headerJSON, &h); err != nil {
		return nil, ErrTokenInvalid
	}
	if h.Alg != "dir" || h.Enc != "A256GCM" || h.Iss != Issuer {
		return nil, ErrTokenInvalid
	}

	nonce, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, ErrTokenInvalid
	}
	ciphertext, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, ErrTokenInvalid
	}

	gcm, err := s.aead()
	if err != nil {
		return nil, err
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, ErrTokenInvalid
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, []byte(parts[0]))
	if err != nil {
		return nil, ErrTokenInvalid
	}

	if time.Now().Unix() >= h.Exp {
		return nil, ErrTokenExpired
	}

	return plaintext, nil
}

func (s *Sealer) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.derivedKey())
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
