package token_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/irdesk/go-client/token"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return raw
}

func TestExpiryReadsExpClaim(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	raw := signedToken(t, jwt.MapClaims{"sub": "user-1", "exp": exp.Unix()})

	require.Equal(t, exp.Unix(), token.Expiry(raw).Unix())
}

func TestExpiryNonJWT(t *testing.T) {
	require.True(t, token.Expiry("").IsZero())
	require.True(t, token.Expiry("opaque-token").IsZero())
}

func TestExpiryWithoutExpClaim(t *testing.T) {
	raw := signedToken(t, jwt.MapClaims{"sub": "user-1"})
	require.True(t, token.Expiry(raw).IsZero())
}

func TestExpired(t *testing.T) {
	now := time.Now()

	past := signedToken(t, jwt.MapClaims{"exp": now.Add(-time.Hour).Unix()})
	require.True(t, token.Expired(past, now))

	future := signedToken(t, jwt.MapClaims{"exp": now.Add(time.Hour).Unix()})
	require.False(t, token.Expired(future, now))

	// Unreadable expiry is never treated as expired client-side.
	require.False(t, token.Expired("opaque-token", now))
}
