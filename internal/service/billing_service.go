// Package service 提供业务逻辑层的实现
package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"echo-companion-server/internal/config"
	"echo-companion-server/internal/model"
	"echo-companion-server/internal/repository"
)

// 支付回调相关错误
var (
	ErrBadSignature = errors.New("回调签名校验失败")
)

// signatureTolerance 签名时间戳的容忍窗口，防重放
const signatureTolerance = 5 * time.Minute

// BillingService 支付回调服务
// 只消费支付提供商推送的订阅生命周期事件，把结果落到用户的套餐字段上
// 事件体必须用原始字节验签，任何解析都要等验签通过之后
type BillingService struct {
	profileRepo *repository.ProfileRepository
	secret      []byte // Webhook 签名密钥
}

// NewBillingService 创建 BillingService 实例
func NewBillingService(profileRepo *repository.ProfileRepository, cfg *config.Config) *BillingService {
	return &BillingService{
		profileRepo: profileRepo,
		secret:      []byte(cfg.Stripe.WebhookSecret),
	}
}

// VerifySignature 校验事件签名
// 签名头格式: "t=<unix时间戳>,v1=<hex>,v1=<hex>..."
// 期望值 = HMAC-SHA256(时间戳 + "." + 原始请求体, 密钥)，
// 任何一个 v1 匹配即通过；时间戳超出容忍窗口按重放拒绝
func (s *BillingService) VerifySignature(payload []byte, header string, now time.Time) error {
	if len(s.secret) == 0 || header == "" {
		return ErrBadSignature
	}

	var timestamp string
	var candidates []string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			candidates = append(candidates, kv[1])
		}
	}
	if timestamp == "" || len(candidates) == 0 {
		return ErrBadSignature
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrBadSignature
	}
	age := now.Sub(time.Unix(ts, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return ErrBadSignature
	}

	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, candidate := range candidates {
		if hmac.Equal([]byte(expected), []byte(candidate)) {
			return nil
		}
	}
	return ErrBadSignature
}

// webhookEvent 回调事件的通用形状
// 我们只关心事件类型、对象的 metadata 和订阅状态
type webhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			Metadata map[string]string `json:"metadata"`
			Status   string            `json:"status"`
		} `json:"object"`
	} `json:"data"`
}

// HandleEvent 处理一条已验签的事件
// 订阅生命周期事件更新套餐，其余事件静默忽略（返回 200 防止重推）
func (s *BillingService) HandleEvent(ctx context.Context, payload []byte) error {
	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("无法解析回调事件: %w", err)
	}

	metadata := event.Data.Object.Metadata
	userID, err := strconv.ParseInt(metadata["user_id"], 10, 64)
	if err != nil {
		// 没带 user_id 的事件与我们无关
		log.Printf("[INFO] billing event %s (%s) without user_id, ignored", event.ID, event.Type)
		return nil
	}

	switch event.Type {
	case "checkout.session.completed":
		plan := metadata["plan_id"]
		if plan == "" {
			plan = model.PlanPremium
		}
		return s.updatePlan(ctx, userID, plan)

	case "customer.subscription.deleted", "customer.subscription.paused":
		return s.updatePlan(ctx, userID, model.PlanFree)

	case "customer.subscription.updated":
		plan := model.PlanFree
		if event.Data.Object.Status == "active" {
			plan = metadata["plan_id"]
			if plan == "" {
				plan = model.PlanPremium
			}
		}
		return s.updatePlan(ctx, userID, plan)
	}

	return nil
}

// updatePlan 更新用户套餐并留痕
func (s *BillingService) updatePlan(ctx context.Context, userID int64, plan string) error {
	if err := s.profileRepo.UpdatePlan(ctx, userID, plan); err != nil {
		return err
	}
	log.Printf("[INFO] subscription plan updated for user %d: %s", userID, plan)
	return nil
}
