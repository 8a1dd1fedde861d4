package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"echo-companion-server/internal/middleware"
	"echo-companion-server/internal/service"
	"echo-companion-server/pkg/response"
)

// ChatHandler 无状态聊天请求处理器
type ChatHandler struct {
	chatService *service.ChatService
}

// NewChatHandler 创建 ChatHandler 实例
func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// Chat 执行一轮聊天
// POST /api/chat
// stream=false 返回统一 JSON 响应；stream=true 以 SSE 推送增量，
// 每个增量一条 "data: {\"delta\":...}"，以 "data: [DONE]" 结束
func (h *ChatHandler) Chat(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req service.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	// 流式模式一旦写出响应头就没法再改状态码，校验必须前置
	if err := service.ValidateUserTurn(req.Messages); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if !req.Stream {
		reply, err := h.chatService.Chat(c.Request.Context(), userID, &req, nil)
		if err != nil {
			response.InternalError(c, "聊天失败")
			return
		}
		response.Success(c, service.ChatResponse{Response: reply})
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		response.InternalError(c, "当前连接不支持流式响应")
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	onDelta := func(delta string) {
		payload, err := json.Marshal(gin.H{"delta": delta})
		if err != nil {
			return
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", payload)
		flusher.Flush()
	}

	if _, err := h.chatService.Chat(c.Request.Context(), userID, &req, onDelta); err != nil {
		// 响应头已经写出，只能以 SSE 事件的形式报告错误
		payload, _ := json.Marshal(gin.H{"error": err.Error()})
		fmt.Fprintf(c.Writer, "data: %s\n\n", payload)
	}

	fmt.Fprint(c.Writer, "data: [DONE]\n\n")
	flusher.Flush()
}
