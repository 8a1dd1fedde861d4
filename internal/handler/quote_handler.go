package handler

import (
	"github.com/gin-gonic/gin"

	"echo-companion-server/internal/middleware"
	"echo-companion-server/internal/service"
	"echo-companion-server/pkg/response"
)

// QuoteHandler 每日金句请求处理器
type QuoteHandler struct {
	quoteService *service.QuoteService
}

// NewQuoteHandler 创建 QuoteHandler 实例
func NewQuoteHandler(quoteService *service.QuoteService) *QuoteHandler {
	return &QuoteHandler{quoteService: quoteService}
}

// Today 获取今日金句
// GET /api/quotes/today
// 同一用户同一天只生成一次，命中缓存直接返回
func (h *QuoteHandler) Today(c *gin.Context) {
	userID := middleware.GetUserID(c)

	resp, err := h.quoteService.TodayQuote(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c, "获取金句失败")
		return
	}

	response.Success(c, resp)
}
