package handler

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"echo-companion-server/internal/service"
	"echo-companion-server/pkg/response"
)

// BillingHandler 支付回调请求处理器
type BillingHandler struct {
	billingService *service.BillingService
}

// NewBillingHandler 创建 BillingHandler 实例
func NewBillingHandler(billingService *service.BillingService) *BillingHandler {
	return &BillingHandler{billingService: billingService}
}

// Webhook 处理支付平台的事件回调
// POST /api/billing/webhook（无需登录，签名校验）
// 必须先读原始请求体再做任何解析，签名是对原始字节计算的
func (h *BillingHandler) Webhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		response.BadRequest(c, "读取请求体失败")
		return
	}

	sig := c.GetHeader("Stripe-Signature")
	if err := h.billingService.VerifySignature(payload, sig, time.Now()); err != nil {
		if errors.Is(err, service.ErrBadSignature) {
			response.ErrorWithCode(c, http.StatusBadRequest, response.CodeBadSignature, err.Error())
			return
		}
		response.BadRequest(c, "签名校验失败")
		return
	}

	if err := h.billingService.HandleEvent(c.Request.Context(), payload); err != nil {
		// 事件已验签，处理失败记日志并返回 200，避免平台无限重试无法恢复的事件
		log.Printf("[ERROR] 处理支付事件失败: %v", err)
	}

	response.Success(c, gin.H{"received": true})
}
