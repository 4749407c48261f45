package auth

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer("secret", time.Hour)
	tok, err := issuer.Issue("user-1", "flowlet")
	require.NoError(t, err)

	claims, err := issuer.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "flowlet", claims.Username)
}

func TestTokenIssuer_Rejects(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer("secret", time.Hour)

	other, err := NewTokenIssuer("other", time.Hour).Issue("user-1", "u")
	require.NoError(t, err)

	expiredIssuer := NewTokenIssuer("secret", time.Hour)
	expiredIssuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := expiredIssuer.Issue("user-1", "u")
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"username": "u"}).SignedString([]byte("secret"))
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"sub": "user-1"}).SignedString([]byte("secret"))
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": other,
		"expired":      expired,
		"missing sub":  noSubject,
		"wrong alg":    hs512,
		"empty":        "",
	} {
		_, err := issuer.Parse(tok)
		assert.ErrorIs(t, err, ErrInvalidToken, name)
	}
}

func TestTokenIssuer_EmptySecret(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer("", time.Hour)
	_, err := issuer.Issue("user-1", "u")
	assert.Error(t, err)
	_, err = issuer.Parse("x.y.z")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("flowlet")
	require.NoError(t, err)

	ok, err := CheckPassword(hash, "flowlet")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckPassword(hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = CheckPassword("not-bcrypt", "flowlet")
	assert.Error(t, err)
}
