package middleware

import (
	"github.com/gin-gonic/gin"

	"echo-companion-server/pkg/util"
)

// RequestIDHeader 请求 ID 的响应头
const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware 为每个请求分配唯一 ID
// 客户端带了就沿用，方便端到端串联日志；没带就生成一个
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = util.GenerateUUID()
		}
		c.Set("request_id", requestID)
		c.Writer.Header().Set(RequestIDHeader, requestID)
		c.Next()
	}
}
