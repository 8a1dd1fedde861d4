package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"echo-companion-server/internal/middleware"
	"echo-companion-server/internal/service"
	"echo-companion-server/pkg/response"
)

// ProfileHandler 用户画像请求处理器
type ProfileHandler struct {
	profileService *service.ProfileService
}

// NewProfileHandler 创建 ProfileHandler 实例
func NewProfileHandler(profileService *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// GetProfile 获取当前用户画像
// GET /api/profile
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID := middleware.GetUserID(c)

	resp, err := h.profileService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c, "获取画像失败")
		return
	}

	response.Success(c, resp)
}

// SaveProfile 创建或更新当前用户画像
// PUT /api/profile
func (h *ProfileHandler) SaveProfile(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req service.SaveProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	resp, err := h.profileService.SaveProfile(c.Request.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, service.ErrNameRequired) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, "保存画像失败")
		return
	}

	response.Success(c, resp)
}
