// Package service 提供业务逻辑层的实现
package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"echo-companion-server/internal/cache"
	"echo-companion-server/internal/model"
	"echo-companion-server/internal/repository"
)

// FallbackQuote LLM 不可用时的兜底金句
const FallbackQuote = "Crois en toi, chaque jour est une nouvelle chance."

// quoteSystemPrompt 金句生成的系统提示词
const quoteSystemPrompt = "Tu es une IA qui écrit des citations inspirantes et émotionnelles."

// QuoteService 每日金句服务
// 根据用户资料生成个性化的激励金句，每人每天只生成一次
type QuoteService struct {
	profileRepo *repository.ProfileRepository
	cache       *cache.RedisCache
	ai          Completer
}

// NewQuoteService 创建 QuoteService 实例
func NewQuoteService(profileRepo *repository.ProfileRepository, cache *cache.RedisCache, ai Completer) *QuoteService {
	return &QuoteService{
		profileRepo: profileRepo,
		cache:       cache,
		ai:          ai,
	}
}

// QuoteResponse 金句响应
type QuoteResponse struct {
	Quote string `json:"quote"`
	Date  string `json:"date"`
}

// TodayQuote 获取今天的金句
// 命中缓存直接返回；否则生成一条并缓存到当天结束
// LLM 失败时返回兜底金句且不写缓存，下次请求还有机会生成
func (s *QuoteService) TodayQuote(ctx context.Context, userID int64) (*QuoteResponse, error) {
	today := time.Now().Format(model.CheckInDateLayout)

	if cached, err := s.cache.GetDailyQuote(ctx, userID, today); err == nil && cached != "" {
		return &QuoteResponse{Quote: cached, Date: today}, nil
	}

	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	quote := s.generate(ctx, profile)
	if quote == FallbackQuote {
		return &QuoteResponse{Quote: quote, Date: today}, nil
	}

	if err := s.cache.SetDailyQuote(ctx, userID, today, quote); err != nil {
		log.Printf("[WARN] failed to cache daily quote: %v", err)
	}
	return &QuoteResponse{Quote: quote, Date: today}, nil
}

// generate 调用 LLM 生成金句，任何失败都降级为兜底金句
func (s *QuoteService) generate(ctx context.Context, profile *model.Profile) string {
	if !profile.IsComplete() {
		return FallbackQuote
	}

	prompt := fmt.Sprintf(
		"Tu es une IA qui écrit des citations inspirantes et émotionnelles. "+
			"Génère une citation du jour pour motiver et toucher émotionnellement l'utilisateur, en t'appuyant sur ces informations :\n"+
			"Prénom : %s\nObjectifs : %s\nPassions : %s\nDéclencheurs d'humeur : %s\nRituels bien-être : %s\nType de personnalité : %s\n\n"+
			"La citation doit être courte (1 à 2 phrases), poétique, et donner de la force pour la journée. "+
			"Ne commence jamais par \"Tu\" ou \"Vous\". Utilise le prénom si possible.",
		profile.Name,
		orDefault(profile.Goals, "non précisé"),
		orDefault(profile.Interests, "non précisées"),
		orDefault(profile.MoodTriggers, "non précisés"),
		orDefault(profile.SelfCareHabits, "non précisés"),
		orDefaultStr(profile.ResolvedPersonalityType(), "non précisé"),
	)

	raw, err := s.ai.Complete(ctx, []ChatMessage{
		{Role: model.MessageRoleSystem, Content: quoteSystemPrompt},
		{Role: model.MessageRoleUser, Content: prompt},
	}, CompleteOptions{Temperature: 0.8})
	if err != nil {
		log.Printf("[WARN] quote generation failed: %v", err)
		return FallbackQuote
	}

	quote := strings.TrimSpace(raw)
	quote = strings.Trim(quote, "\"«»")
	quote = strings.TrimSpace(quote)
	if quote == "" {
		return FallbackQuote
	}
	return quote
}

// orDefault 可选字段为空时使用占位文案
func orDefault(s *string, def string) string {
	if s == nil || *s == "" {
		return def
	}
	return *s
}

// orDefaultStr 字符串为空时使用占位文案
func orDefaultStr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
