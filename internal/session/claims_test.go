package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-secret"))
	require.NoError(t, err)
	return tok
}

func TestAccessClaims(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)

	t.Run("simplejwt style", func(t *testing.T) {
		tok := signed(t, jwt.MapClaims{
			"token_type": "access",
			"exp":        now.Add(5 * time.Minute).Unix(),
			"user_id":    42,
		})

		c, err := AccessClaims(tok)
		require.NoError(t, err)
		require.Equal(t, "42", c.Subject())
		require.Equal(t, "access", c.Type)

		left, ok := c.ExpiresIn(now)
		require.True(t, ok)
		require.Equal(t, 5*time.Minute, left)
	})

	t.Run("sub claim wins", func(t *testing.T) {
		c, err := AccessClaims(signed(t, jwt.MapClaims{"sub": "u-1", "user_id": 2}))
		require.NoError(t, err)
		require.Equal(t, "u-1", c.Subject())

		_, ok := c.ExpiresIn(now)
		require.False(t, ok)
	})

	t.Run("expired still decodes", func(t *testing.T) {
		c, err := AccessClaims(signed(t, jwt.MapClaims{"exp": now.Add(-time.Minute).Unix()}))
		require.NoError(t, err)

		left, ok := c.ExpiresIn(now)
		require.True(t, ok)
		require.Negative(t, left)
	})

	t.Run("opaque", func(t *testing.T) {
		_, err := AccessClaims("opaque-token")
		require.ErrorIs(t, err, ErrNotJWT)

		_, err = AccessClaims("")
		require.ErrorIs(t, err, ErrNotJWT)
	})
}
