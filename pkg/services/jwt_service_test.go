package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahartwell/graphrunner/pkg/auth"
)

func TestJWTService_RoundTrip(t *testing.T) {
	service := NewJWTService("test-secret", 1)

	account := auth.Account{
		ID:       "acct-1",
		Username: "testuser",
	}

	token, err := service.GenerateToken(account)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	accountID, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "acct-1", accountID)
}

func TestJWTService_RejectsWrongSecret(t *testing.T) {
	token, err := NewJWTService("secret-a", 1).GenerateToken(auth.Account{ID: "acct-1"})
	require.NoError(t, err)

	_, err = NewJWTService("secret-b", 1).ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTService_RejectsExpiredToken(t *testing.T) {
	service := NewJWTService("test-secret", 1)

	claims := Claims{
		AccountID: "acct-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			Subject:   "acct-1",
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = service.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTService_RejectsWrongSigningMethod(t *testing.T) {
	service := NewJWTService("test-secret", 1)

	// Unsigned token with alg "none"
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{AccountID: "acct-1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = service.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTService_RejectsGarbage(t *testing.T) {
	service := NewJWTService("test-secret", 1)

	_, err := service.ValidateToken("not.a.jwt")
	assert.Error(t, err)
}
