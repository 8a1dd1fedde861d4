package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-at-least-32-characters!!"

func newService() *JWTService {
	return NewJWTService(testSecret, time.Hour, 24*time.Hour)
}

func TestGenerateAndValidateAccessToken(t *testing.T) {
	svc := newService()

	token, err := svc.GenerateAccessToken(42, "camille@example.com")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "camille@example.com", claims.Email)
	assert.Equal(t, "access", claims.Subject)
	assert.Equal(t, "echo-companion", claims.Issuer)
}

func TestValidateRefreshTokenRejectsAccessToken(t *testing.T) {
	svc := newService()

	access, err := svc.GenerateAccessToken(42, "camille@example.com")
	require.NoError(t, err)
	refresh, err := svc.GenerateRefreshToken(42, "camille@example.com")
	require.NoError(t, err)

	// Access Token 不能当 Refresh Token 用
	_, err = svc.ValidateRefreshToken(access)
	assert.ErrorIs(t, err, ErrInvalidToken)

	claims, err := svc.ValidateRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, "refresh", claims.Subject)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := newService().GenerateAccessToken(42, "camille@example.com")
	require.NoError(t, err)

	other := NewJWTService("another-secret-also-32-characters!!!", time.Hour, 24*time.Hour)
	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateExpiredToken(t *testing.T) {
	svc := NewJWTService(testSecret, -time.Minute, 24*time.Hour)

	token, err := svc.GenerateAccessToken(42, "camille@example.com")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateGarbage(t *testing.T) {
	_, err := newService().ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
