package security

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager(t *testing.T) {
	tm := NewTokenManager("secret", "")

	t.Run("Round Trip", func(t *testing.T) {
		token, err := tm.GenerateAccessToken("uid-1", "a@example.com", time.Hour)
		require.NoError(t, err)

		caller, err := tm.Verify(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "uid-1", caller.UID)
		assert.Equal(t, "a@example.com", caller.Email)
	})

	t.Run("Expired", func(t *testing.T) {
		token, err := tm.GenerateAccessToken("uid-1", "", -time.Minute)
		require.NoError(t, err)

		_, err = tm.Verify(context.Background(), token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("Wrong Secret", func(t *testing.T) {
		token, err := NewTokenManager("other", "").GenerateAccessToken("uid-1", "", time.Hour)
		require.NoError(t, err)

		_, err = tm.Verify(context.Background(), token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Wrong Issuer", func(t *testing.T) {
		token, err := NewTokenManager("secret", "someone-else").GenerateAccessToken("uid-1", "", time.Hour)
		require.NoError(t, err)

		_, err = tm.Verify(context.Background(), token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Wrong Type", func(t *testing.T) {
		claims := UserClaims{
			Type: "refresh",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "uid-1",
				Issuer:    defaultIssuer,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		require.NoError(t, err)

		_, err = tm.Verify(context.Background(), token)
		assert.ErrorIs(t, err, ErrWrongTokenType)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := tm.Verify(context.Background(), "not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer abc"))
	assert.Equal(t, "abc", BearerToken(" abc "))
}

func TestRequireCaller(t *testing.T) {
	_, err := RequireCaller(context.Background())
	assert.Error(t, err)

	_, err = RequireCaller(WithCaller(context.Background(), domainCaller("")))
	assert.Error(t, err)

	caller, err := RequireCaller(WithCaller(context.Background(), domainCaller("uid-9")))
	require.NoError(t, err)
	assert.Equal(t, "uid-9", caller.UID)
}
