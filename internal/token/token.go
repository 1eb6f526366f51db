// Package token issues and verifies time-bounded bearer tokens.
// Tokens are PASETO v4.local (symmetric XChaCha20-Poly1305), carrying a
// subject claim plus optional string extras. They are never persisted;
// validity is purely signature plus expiry at presentation time.
package token

import (
	"errors"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
)

// ErrInvalidToken covers every verification failure: bad key, tampered or
// malformed structure, and natural expiry. Callers must not distinguish.
var ErrInvalidToken = errors.New("invalid token")

// DefaultTTL is the fallback lifetime applied when Issue receives a
// non-positive ttl. It is deliberately short; production call sites always
// pass an explicit ttl from configuration.
const DefaultTTL = time.Minute

// Claims is the decoded content of a token.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
	Extra     map[string]string
}

// reserved registered claim names, kept out of Extra
var reservedClaims = map[string]struct{}{
	"sub": {}, "exp": {}, "iat": {}, "nbf": {}, "iss": {}, "aud": {}, "jti": {},
}

// Service signs and verifies tokens with a process-wide symmetric key,
// injected at construction and immutable afterwards.
type Service struct {
	key paseto.V4SymmetricKey
}

// NewService builds a token service from raw key bytes.
// v4.local requires exactly 32 bytes.
func NewService(symmetricKey []byte) (*Service, error) {
	if len(symmetricKey) != 32 {
		return nil, fmt.Errorf("symmetric key must be exactly 32 bytes, got %d", len(symmetricKey))
	}

	key, err := paseto.V4SymmetricKeyFromBytes(symmetricKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create symmetric key: %w", err)
	}

	return &Service{key: key}, nil
}

// Issue encodes and signs a token expiring ttl from now (UTC). The claims'
// ExpiresAt field is ignored; expiry always derives from ttl.
func (s *Service) Issue(claims Claims, ttl time.Duration) (string, error) {
	if claims.Subject == "" {
		return "", fmt.Errorf("token subject is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	now := time.Now().UTC()

	t := paseto.NewToken()
	t.SetIssuedAt(now)
	t.SetNotBefore(now)
	t.SetExpiration(now.Add(ttl))
	t.SetSubject(claims.Subject)
	for k, v := range claims.Extra {
		t.SetString(k, v)
	}

	return t.V4Encrypt(s.key, nil), nil
}

// Verify decodes a token and returns its claims. Signature mismatch,
// malformed structure and past expiry all collapse into ErrInvalidToken.
func (s *Service) Verify(tokenStr string) (*Claims, error) {
	// The default parser rejects expired and not-yet-valid tokens.
	parser := paseto.NewParser()

	t, err := parser.ParseV4Local(s.key, tokenStr, nil)
	if err != nil {
		return nil, ErrInvalidToken
	}

	subject, err := t.GetSubject()
	if err != nil || subject == "" {
		return nil, ErrInvalidToken
	}

	expiresAt, err := t.GetExpiration()
	if err != nil {
		return nil, ErrInvalidToken
	}

	extra := make(map[string]string)
	for name, value := range t.Claims() {
		if _, ok := reservedClaims[name]; ok {
			continue
		}
		if str, ok := value.(string); ok {
			extra[name] = str
		}
	}

	return &Claims{
		Subject:   subject,
		ExpiresAt: expiresAt.UTC(),
		Extra:     extra,
	}, nil
}
