package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"echo-companion-server/internal/middleware"
	"echo-companion-server/internal/model"
	"echo-companion-server/internal/service"
	"echo-companion-server/pkg/response"
)

// SessionHandler 会话生命周期请求处理器
type SessionHandler struct {
	sessionService *service.SessionService
}

// NewSessionHandler 创建 SessionHandler 实例
func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// Open 开启新会话
// POST /api/sessions
// 如果存在遗留的未关闭会话，先将其收尾（有内容则总结）再开新会话，
// 保证任一时刻每个用户至多一个打开的会话。
func (h *SessionHandler) Open(c *gin.Context) {
	userID := middleware.GetUserID(c)

	result, err := h.sessionService.OpenSession(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c, "开启会话失败")
		return
	}

	response.Created(c, result)
}

// List 获取当前用户的会话列表
// GET /api/sessions
func (h *SessionHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)

	sessions, err := h.sessionService.ListSessions(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c, "获取会话列表失败")
		return
	}

	response.Success(c, sessions)
}

// AppendMessage 向会话追加一条消息
// POST /api/messages
func (h *SessionHandler) AppendMessage(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req struct {
		SessionID int64  `json:"session_id" binding:"required"`
		Role      string `json:"role" binding:"required"`
		Content   string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	msg, err := h.sessionService.AppendMessage(c.Request.Context(), userID, req.SessionID, req.Role, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			response.SessionNotFound(c)
		case errors.Is(err, service.ErrInvalidRole):
			response.BadRequest(c, err.Error())
		default:
			response.InternalError(c, "保存消息失败")
		}
		return
	}

	response.Created(c, msg)
}

// ListMessages 按时间顺序获取会话的全部消息
// GET /api/sessions/:id/messages
func (h *SessionHandler) ListMessages(c *gin.Context) {
	userID := middleware.GetUserID(c)

	sessionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "会话 ID 无效")
		return
	}

	messages, err := h.sessionService.ListMessages(c.Request.Context(), userID, sessionID)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			response.SessionNotFound(c)
			return
		}
		response.InternalError(c, "获取消息失败")
		return
	}

	response.Success(c, messages)
}

// Summarize 关闭会话并生成总结
// POST /api/sessions/:id/summary
// 会话已关闭时直接返回已存的总结（幂等）；没有任何消息时返回 400；
// 只有一条消息时不做任何修改。带 force=true 时对已关闭会话
// 重新生成并覆盖总结（至少需要一条消息）。
func (h *SessionHandler) Summarize(c *gin.Context) {
	userID := middleware.GetUserID(c)

	sessionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "会话 ID 无效")
		return
	}

	var (
		summary *model.SessionSummary
		svcErr  error
	)
	if c.Query("force") == "true" {
		summary, svcErr = h.sessionService.ForceSummarize(c.Request.Context(), userID, sessionID)
	} else {
		summary, svcErr = h.sessionService.CloseAndSummarize(c.Request.Context(), userID, sessionID)
	}

	if svcErr != nil {
		switch {
		case errors.Is(svcErr, service.ErrSessionNotFound):
			response.SessionNotFound(c)
		case errors.Is(svcErr, service.ErrNoMessages):
			response.ErrorWithCode(c, http.StatusBadRequest, response.CodeNoMessages, svcErr.Error())
		default:
			response.InternalError(c, "生成总结失败")
		}
		return
	}

	// 消息不足时服务层返回 (nil, nil)，表示不总结也不关闭
	response.Success(c, summary)
}
