package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func mintToken(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": sub}
	if !exp.IsZero() {
		claims["exp"] = exp.Unix()
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestInspect(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	info, err := Inspect(mintToken(t, "user-1", exp))
	require.NoError(t, err)
	require.Equal(t, "user-1", info.Subject)
	require.True(t, info.ExpiresAt.Equal(exp))
	require.False(t, info.Expired(time.Now()))
}

func TestInspectBearerPrefix(t *testing.T) {
	raw := mintToken(t, "user-2", time.Time{})
	info, err := Inspect("Bearer " + raw)
	require.NoError(t, err)
	require.Equal(t, raw, info.Raw)
	require.Equal(t, "user-2", info.Subject)
}

func TestInspectGarbage(t *testing.T) {
	_, err := Inspect("not.a.jwt")
	require.Error(t, err)

	_, err = Inspect("")
	require.Error(t, err)
}

func TestExpired(t *testing.T) {
	info, err := Inspect(mintToken(t, "user-3", time.Now().Add(-time.Minute)))
	require.NoError(t, err)
	require.True(t, info.Expired(time.Now()))

	// no exp claim means never expired
	info, err = Inspect(mintToken(t, "user-4", time.Time{}))
	require.NoError(t, err)
	require.False(t, info.Expired(time.Now()))
}
