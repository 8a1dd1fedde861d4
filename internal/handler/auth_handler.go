// Package handler 提供 HTTP 请求处理器
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"echo-companion-server/internal/service"
	"echo-companion-server/pkg/jwt"
	"echo-companion-server/pkg/response"
)

// AuthHandler 认证请求处理器
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler 创建 AuthHandler 实例
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register 用户注册
// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	tokens, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrEmailExists) {
			response.ErrorWithCode(c, http.StatusBadRequest, response.CodeUserExists, err.Error())
			return
		}
		response.InternalError(c, "注册失败")
		return
	}

	response.Created(c, tokens)
}

// Login 用户登录
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	tokens, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			response.ErrorWithCode(c, http.StatusNotFound, response.CodeUserNotFound, err.Error())
		case errors.Is(err, service.ErrPasswordWrong):
			response.ErrorWithCode(c, http.StatusUnauthorized, response.CodePasswordWrong, err.Error())
		default:
			response.InternalError(c, "登录失败")
		}
		return
	}

	response.Success(c, tokens)
}

// Refresh 刷新 Token
// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误")
		return
	}

	tokens, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, jwt.ErrInvalidToken) || errors.Is(err, jwt.ErrExpiredToken) {
			response.Unauthorized(c, "Refresh Token 无效或已过期")
			return
		}
		response.InternalError(c, "刷新失败")
		return
	}

	response.Success(c, tokens)
}

// Logout 登出
// POST /api/auth/logout（需要登录）
func (h *AuthHandler) Logout(c *gin.Context) {
	tokenString := c.GetString("token")
	exp, _ := c.Get("token_exp")
	expiresAt, _ := exp.(time.Time)

	if err := h.authService.Logout(c.Request.Context(), tokenString, expiresAt); err != nil {
		response.InternalError(c, "登出失败")
		return
	}

	response.Success(c, nil)
}
