package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"echo-companion-server/internal/model"
	"echo-companion-server/internal/repository"
	"echo-companion-server/internal/service"
)

// fakeCompleter 固定返回预设回复
type fakeCompleter struct {
	response string
	calls    int
}

func (f *fakeCompleter) Complete(_ context.Context, _ []service.ChatMessage, opts service.CompleteOptions) (string, error) {
	f.calls++
	if opts.Stream && opts.OnDelta != nil {
		opts.OnDelta(f.response)
	}
	return f.response, nil
}

func newChatRouter(t *testing.T, ai service.Completer) *gin.Engine {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Profile{}, &model.Session{}, &model.Message{}, &model.CheckIn{}))

	chatService := service.NewChatService(
		repository.NewProfileRepository(db),
		repository.NewSessionRepository(db),
		repository.NewCheckInRepository(db),
		ai,
	)
	handler := NewChatHandler(chatService)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/chat", func(c *gin.Context) {
		c.Set("user_id", int64(1))
	}, handler.Chat)
	return router
}

func postChat(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// 流式请求的校验错误必须在写出响应头之前以 400 返回，
// 而不是 200 加一条 SSE 错误事件
func TestChatStreamRejectsInvalidLastTurn(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "最后一条是助手消息",
			body: `{"messages":[{"role":"assistant","content":"bonjour"}],"stream":true}`,
		},
		{
			name: "最后一条用户消息为空白",
			body: `{"messages":[{"role":"user","content":"   "}],"stream":true}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ai := &fakeCompleter{response: "coucou"}
			router := newChatRouter(t, ai)

			w := postChat(router, tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.NotContains(t, w.Header().Get("Content-Type"), "text/event-stream")
			assert.Zero(t, ai.calls)

			var resp struct {
				Code    int    `json:"code"`
				Message string `json:"message"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.NotZero(t, resp.Code)
		})
	}
}

func TestChatStreamDeliversDeltas(t *testing.T) {
	ai := &fakeCompleter{response: "Bonjour Camille !"}
	router := newChatRouter(t, ai)

	w := postChat(router, `{"messages":[{"role":"user","content":"salut"}],"stream":true}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")

	body := w.Body.String()
	assert.Contains(t, body, `data: {"delta":"Bonjour Camille !"}`)
	assert.True(t, strings.HasSuffix(body, "data: [DONE]\n\n"))
}
