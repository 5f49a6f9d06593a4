package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKeys(t *testing.T) *Keys {
	t.Helper()
	k, err := NewKeys("test-secret", time.Hour)
	require.NoError(t, err)
	return k
}

func TestUserTokenRoundTrip(t *testing.T) {
	k := newTestKeys(t)

	tok, err := k.GenerateToken("user-1")
	require.NoError(t, err)

	claims, err := k.ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.False(t, claims.IsAdmin)
}

func TestAdminTokenCarriesFlag(t *testing.T) {
	k := newTestKeys(t)

	tok, err := k.GenerateAdminToken("boss@bakery.test")
	require.NoError(t, err)

	claims, err := k.ValidateToken(tok)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin)
	assert.Equal(t, AdminSubject, claims.Subject)
	assert.Equal(t, "boss@bakery.test", claims.Email)
}

func TestExpiredTokenRejected(t *testing.T) {
	k := newTestKeys(t)
	k.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	tok, err := k.GenerateToken("user-1")
	require.NoError(t, err)

	k.now = time.Now
	_, err = k.ValidateToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestForeignSecretRejected(t *testing.T) {
	k := newTestKeys(t)
	other, err := NewKeys("another-secret", time.Hour)
	require.NoError(t, err)

	tok, err := other.GenerateToken("user-1")
	require.NoError(t, err)

	_, err = k.ValidateToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenWithoutExpiryRejected(t *testing.T) {
	k := newTestKeys(t)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = k.ValidateToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewKeysValidation(t *testing.T) {
	_, err := NewKeys("", time.Hour)
	assert.Error(t, err)

	_, err = NewKeys("s", 0)
	assert.Error(t, err)
}

func TestPrincipalContext(t *testing.T) {
	p := Principal{Subject: "u", Capabilities: map[Capability]bool{CapabilityUser: true}}
	ctx := WithPrincipal(context.Background(), p)

	got, ok := PrincipalFrom(ctx)
	require.True(t, ok)
	assert.True(t, got.Can(CapabilityUser))
	assert.False(t, got.Can(CapabilityAdmin))

	_, ok = PrincipalFrom(context.Background())
	assert.False(t, ok)
}
