package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"echo-companion-server/internal/middleware"
	"echo-companion-server/internal/service"
	"echo-companion-server/pkg/response"
)

// CheckInHandler 每日心情打卡请求处理器
type CheckInHandler struct {
	checkinService *service.CheckInService
}

// NewCheckInHandler 创建 CheckInHandler 实例
func NewCheckInHandler(checkinService *service.CheckInService) *CheckInHandler {
	return &CheckInHandler{checkinService: checkinService}
}

// Submit 提交（或覆盖）某天的打卡
// POST /api/checkins
func (h *CheckInHandler) Submit(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req service.SubmitCheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	checkin, err := h.checkinService.Submit(c.Request.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidDate) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, "打卡失败")
		return
	}

	response.Success(c, checkin)
}

// Timeline 获取最近打卡时间线与连续天数
// GET /api/checkins?days=7
func (h *CheckInHandler) Timeline(c *gin.Context) {
	userID := middleware.GetUserID(c)

	days := 7
	if v := c.Query("days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			days = n
		}
	}

	resp, err := h.checkinService.Timeline(c.Request.Context(), userID, days)
	if err != nil {
		response.InternalError(c, "获取打卡记录失败")
		return
	}

	response.Success(c, resp)
}
