package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService(t *testing.T) {
	service := NewJWTService("secret")
	service.now = func() time.Time { return testNow }

	token, err := service.GenerateJWT("jane")
	require.NoError(t, err)

	t.Run("Валидный токен", func(t *testing.T) {
		parsed, err := service.ValidateToken(token)
		require.NoError(t, err)

		subject, err := parsed.Claims.GetSubject()
		require.NoError(t, err)
		assert.Equal(t, "jane", subject)
	})

	t.Run("Чужой ключ", func(t *testing.T) {
		other := NewJWTService("other")
		other.now = service.now

		_, err := other.ValidateToken(token)
		assert.ErrorIs(t, err, ErrTokenIsInvalid)
	})

	t.Run("Истёкший токен", func(t *testing.T) {
		expired := NewJWTService("secret")
		expired.now = func() time.Time { return testNow.Add(25 * time.Hour) }

		_, err := expired.ValidateToken(token)
		assert.ErrorIs(t, err, ErrTokenIsExpired)
	})

	t.Run("Чужой алгоритм", func(t *testing.T) {
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
			"sub": "jane",
			"iss": tokenIssuer,
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = service.ValidateToken(unsigned)
		assert.ErrorIs(t, err, ErrTokenIsInvalid)
	})
}
