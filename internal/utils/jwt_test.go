package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT(42, "admin", "s3cret")
	require.NoError(t, err)

	claims, err := ParseJWT(token, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "admin", claims.Role)

	_, err = ParseJWT(token, "other")
	assert.Error(t, err)
}

func TestParseJWTRejectsExpiredAndForeignTokens(t *testing.T) {
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err := expired.SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = ParseJWT(signed, "k")
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: 1, RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else"}})
	signed, err = foreign.SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = ParseJWT(signed, "k")
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)

	hs512 := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{UserID: 1, RegisteredClaims: jwt.RegisteredClaims{Issuer: tokenIssuer}})
	signed, err = hs512.SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = ParseJWT(signed, "k")
	assert.Error(t, err)
}
