package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echo-companion-server/pkg/jwt"

	"echo-companion-server/internal/repository"
)

func newAuthService(t *testing.T) (*AuthService, *jwt.JWTService) {
	t.Helper()
	db := testDB(t)
	userRepo := repository.NewUserRepository(db)
	jwtService := jwt.NewJWTService("test-secret-at-least-32-characters!!", time.Hour, 24*time.Hour)
	// 注册和登录不触碰缓存，黑名单路径单独走集成环境
	return NewAuthService(userRepo, nil, jwtService), jwtService
}

func TestRegisterIssuesTokens(t *testing.T) {
	svc, jwtService := newAuthService(t)
	ctx := context.Background()

	tokens, err := svc.Register(ctx, &RegisterRequest{Email: "camille@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.Equal(t, int64(3600), tokens.ExpiresIn)

	claims, err := jwtService.ValidateToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "camille@example.com", claims.Email)

	_, err = jwtService.ValidateRefreshToken(tokens.RefreshToken)
	assert.NoError(t, err)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterRequest{Email: "camille@example.com", Password: "secret123"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, &RegisterRequest{Email: "camille@example.com", Password: "autre456"})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestLogin(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterRequest{Email: "camille@example.com", Password: "secret123"})
	require.NoError(t, err)

	tokens, err := svc.Login(ctx, &LoginRequest{Email: "camille@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)

	_, err = svc.Login(ctx, &LoginRequest{Email: "camille@example.com", Password: "mauvais"})
	assert.ErrorIs(t, err, ErrPasswordWrong)

	_, err = svc.Login(ctx, &LoginRequest{Email: "inconnue@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestHashTokenStable(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
	assert.Len(t, HashToken("abc"), 64)
}
