package token

import (
	"testing"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(testKey)
	require.NoError(t, err)
	return svc
}

func TestNewServiceKeyLength(t *testing.T) {
	t.Parallel()

	_, err := NewService([]byte("too-short"))
	assert.Error(t, err)

	_, err = NewService(testKey)
	assert.NoError(t, err)
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)

	issued, err := svc.Issue(Claims{
		Subject: "alice",
		Extra:   map[string]string{"purpose": "session"},
	}, time.Hour)
	require.NoError(t, err)

	claims, err := svc.Verify(issued)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, "session", claims.Extra["purpose"])
	assert.WithinDuration(t, time.Now().UTC().Add(time.Hour), claims.ExpiresAt, 5*time.Second)
}

func TestIssueRequiresSubject(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)

	_, err := svc.Issue(Claims{}, time.Hour)
	assert.Error(t, err)
}

func TestIssueZeroTTLFallsBackToDefault(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)

	issued, err := svc.Issue(Claims{Subject: "alice"}, 0)
	require.NoError(t, err)

	claims, err := svc.Verify(issued)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC().Add(DefaultTTL), claims.ExpiresAt, 5*time.Second)
}

func TestVerifyExpiredToken(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)

	// Build a token whose exp is already in the past, signed with the
	// service's own key.
	past := time.Now().UTC().Add(-time.Hour)
	pt := paseto.NewToken()
	pt.SetIssuedAt(past)
	pt.SetNotBefore(past)
	pt.SetExpiration(past.Add(time.Minute))
	pt.SetSubject("alice")
	expired := pt.V4Encrypt(svc.key, nil)

	_, err := svc.Verify(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyTamperedToken(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)

	issued, err := svc.Issue(Claims{Subject: "alice"}, time.Hour)
	require.NoError(t, err)

	// Flip one byte in the ciphertext segment.
	raw := []byte(issued)
	pos := len(raw) - 10
	if raw[pos] == 'A' {
		raw[pos] = 'B'
	} else {
		raw[pos] = 'A'
	}

	_, err = svc.Verify(string(raw))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyWrongKey(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	other, err := NewService([]byte("ffffffffffffffffffffffffffffffff"))
	require.NoError(t, err)

	issued, err := other.Issue(Claims{Subject: "alice"}, time.Hour)
	require.NoError(t, err)

	_, err = svc.Verify(issued)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyMalformedToken(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)

	for _, tok := range []string{"", "not-a-token", "v4.local.AAAA"} {
		_, err := svc.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
}

func TestVerifyMissingSubject(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)

	now := time.Now().UTC()
	pt := paseto.NewToken()
	pt.SetIssuedAt(now)
	pt.SetNotBefore(now)
	pt.SetExpiration(now.Add(time.Hour))
	noSubject := pt.V4Encrypt(svc.key, nil)

	_, err := svc.Verify(noSubject)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
