package tokengenerator

import (
	"testing"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret-key-for-testing-only"

func TestGenerateToken(t *testing.T) {
	gen := NewJwtTokenGenerator(secret, "social-post-imgur", "")
	userID := uuid.New()

	tokenStr, expiresAt, err := gen.GenerateToken(userID, time.Hour, map[string]interface{}{"purpose": "test"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	got, err := gen.LocalUserID(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, userID, got)

	t.Run("AcceptedByJwtauth", func(t *testing.T) {
		auth := jwtauth.New("HS256", []byte(secret), nil)
		token, err := jwtauth.VerifyToken(auth, tokenStr)
		require.NoError(t, err)
		assert.Equal(t, userID.String(), token.Subject())
	})

	t.Run("WrongSecret", func(t *testing.T) {
		_, err := NewJwtTokenGenerator("another-secret-key-value", "x", "").ParseToken(tokenStr)
		assert.Error(t, err)
	})

	t.Run("Expired", func(t *testing.T) {
		claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}}
		expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)

		_, err = gen.ParseToken(expired)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("NoneAlgorithmRejected", func(t *testing.T) {
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": userID.String()}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = gen.ParseToken(unsigned)
		assert.Error(t, err)
	})
}

func TestGenerateTokenValidation(t *testing.T) {
	gen := NewJwtTokenGenerator(secret, "social-post-imgur", "")

	_, _, err := gen.GenerateToken(uuid.Nil, time.Hour, nil)
	assert.Error(t, err)

	_, _, err = gen.GenerateToken(uuid.New(), 0, nil)
	assert.Error(t, err)
}
