// Package service 提供业务逻辑层的实现
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"echo-companion-server/internal/model"
	"echo-companion-server/internal/repository"
)

// 会话服务相关错误
var (
	ErrSessionNotFound = errors.New("会话不存在")
	ErrInvalidRole     = errors.New("无效的消息角色")
	ErrNoMessages      = errors.New("会话没有消息，无法总结")
)

const (
	// summarizeMinMessages 触发总结的最小消息数
	// 少于 2 条（一问一答都不完整）没有总结价值，不浪费 LLM 调用
	summarizeMinMessages = 2

	// primeSummaryCount 开新会话时随响应返回的历史摘要条数
	primeSummaryCount = 5

	// summaryResumeMaxLen 摘要降级兜底时保留的原始文本长度（字符数）
	summaryResumeMaxLen = 300
)

// SessionService 会话服务
// 负责会话生命周期的状态机：开启、关闭、孤儿会话收敛和总结生成
// 唯一的共享状态约束——每个用户最多一个未结束会话——在 OpenSession 里强制执行
type SessionService struct {
	sessionRepo *repository.SessionRepository
	messageRepo *repository.MessageRepository
	checkinRepo *repository.CheckInRepository
	ai          Completer
}

// NewSessionService 创建 SessionService 实例
func NewSessionService(
	sessionRepo *repository.SessionRepository,
	messageRepo *repository.MessageRepository,
	checkinRepo *repository.CheckInRepository,
	ai Completer,
) *SessionService {
	return &SessionService{
		sessionRepo: sessionRepo,
		messageRepo: messageRepo,
		checkinRepo: checkinRepo,
		ai:          ai,
	}
}

// SessionView 会话的响应格式
type SessionView struct {
	ID           int64                 `json:"id"`
	StartedAt    string                `json:"started_at"`
	EndedAt      *string               `json:"ended_at,omitempty"`
	Summary      *model.SessionSummary `json:"summary,omitempty"`
	CheckinToday *model.CheckIn        `json:"checkin_today,omitempty"`
}

// SummaryView 历史摘要的响应格式
type SummaryView struct {
	ID      int64                `json:"id"`
	Summary model.SessionSummary `json:"summary"`
	EndedAt string               `json:"ended_at"`
}

// OpenSessionResult 开启会话的完整响应
// 除了新会话本身，还带上最近几条历史摘要供客户端组装系统提示词
type OpenSessionResult struct {
	Session       SessionView   `json:"session"`
	LastSummaries []SummaryView `json:"last_summaries"`
}

// OpenSession 开启新会话
// 先收敛该用户所有未结束的会话（正常 0 或 1 条，崩溃后可能更多）：
// 有消息的同步总结后关闭，空会话直接关闭。收敛完成前绝不返回新会话，
// 否则旧会话的摘要可能丢失，单开放会话不变量也会被破坏
func (s *SessionService) OpenSession(ctx context.Context, userID int64) (*OpenSessionResult, error) {
	stale, err := s.sessionRepo.GetOpenByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range stale {
		if err := s.closeStale(ctx, &stale[i]); err != nil {
			return nil, err
		}
	}

	session := &model.Session{UserID: userID}

	// 当天签到的快照，冗余存进会话方便回看
	today := time.Now().Format(model.CheckInDateLayout)
	checkin, err := s.checkinRepo.GetByUserAndDate(ctx, userID, today)
	if err != nil {
		return nil, err
	}
	if checkin != nil {
		if data, err := json.Marshal(checkin); err == nil {
			encoded := string(data)
			session.CheckinToday = &encoded
		}
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	recent, err := s.sessionRepo.GetRecentSummarized(ctx, userID, primeSummaryCount)
	if err != nil {
		return nil, err
	}
	summaries := make([]SummaryView, 0, len(recent))
	for i := range recent {
		decoded := recent[i].DecodedSummary()
		if decoded == nil {
			continue
		}
		summaries = append(summaries, SummaryView{
			ID:      recent[i].ID,
			Summary: *decoded,
			EndedAt: recent[i].EndedAt.Format(time.RFC3339),
		})
	}

	return &OpenSessionResult{
		Session:       *s.toSessionView(session),
		LastSummaries: summaries,
	}, nil
}

// closeStale 关闭一条孤儿会话
// 有消息就同步总结进日记，空会话只写结束时间
func (s *SessionService) closeStale(ctx context.Context, session *model.Session) error {
	count, err := s.messageRepo.CountBySessionID(ctx, session.ID)
	if err != nil {
		return err
	}

	var encoded *string
	if count >= 1 {
		messages, err := s.messageRepo.GetBySessionID(ctx, session.ID)
		if err != nil {
			return err
		}
		summary := s.generateSummary(ctx, messages)
		enc, err := summary.Encode()
		if err != nil {
			return err
		}
		encoded = &enc
	}

	// 关闭信号可能和别的路径竞争，输掉竞争时静默接受对方的结果
	_, err = s.sessionRepo.CloseIfOpen(ctx, session.ID, encoded)
	return err
}

// AppendMessage 向会话追加一条消息
// 只校验所有权，不校验会话状态：后台收尾竞争中迟到的消息照常入库
// （丢弃它们只会让日记缺一段，见 DESIGN.md 的取舍记录）
func (s *SessionService) AppendMessage(ctx context.Context, userID, sessionID int64, role, content string) (*model.Message, error) {
	if !model.ValidRole(role) {
		return nil, ErrInvalidRole
	}
	if _, err := s.getOwned(ctx, userID, sessionID); err != nil {
		return nil, err
	}

	message := &model.Message{
		SessionID: sessionID,
		UserID:    userID,
		Role:      role,
		Content:   content,
	}
	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, err
	}
	return message, nil
}

// ListMessages 获取会话的完整消息记录，按写入顺序排列
func (s *SessionService) ListMessages(ctx context.Context, userID, sessionID int64) ([]model.Message, error) {
	if _, err := s.getOwned(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	return s.messageRepo.GetBySessionID(ctx, sessionID)
}

// ListSessions 获取用户的所有会话，最新的在前
func (s *SessionService) ListSessions(ctx context.Context, userID int64) ([]SessionView, error) {
	sessions, err := s.sessionRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	result := make([]SessionView, len(sessions))
	for i := range sessions {
		result[i] = *s.toSessionView(&sessions[i])
	}
	return result, nil
}

// CloseAndSummarize 关闭会话并生成摘要
// 关闭信号来自多个互相竞争的来源（显式开新会话、退后台、定时器、离开页面），
// 所以必须满足 at-least-once 幂等：
//   - 会话已关闭：直接返回已存储的摘要，绝不重复调用 LLM
//   - 一条消息都没有：返回 ErrNoMessages，不改动任何状态
//   - 只有 1 条消息：返回 nil 且不改动任何状态，留给下次 OpenSession 收敛
//
// LLM 失败或返回的不是 JSON 时走降级路径，此方法对 LLM 错误永不报错——
// 它跑在退后台的 fire-and-forget 路径上，抛错也没人接
func (s *SessionService) CloseAndSummarize(ctx context.Context, userID, sessionID int64) (*model.SessionSummary, error) {
	session, err := s.getOwned(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	if !session.IsOpen() {
		return session.DecodedSummary(), nil
	}

	messages, err := s.messageRepo.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, ErrNoMessages
	}
	if len(messages) < summarizeMinMessages {
		return nil, nil
	}

	summary := s.generateSummary(ctx, messages)
	encoded, err := summary.Encode()
	if err != nil {
		return nil, err
	}

	closed, err := s.sessionRepo.CloseIfOpen(ctx, sessionID, &encoded)
	if err != nil {
		return nil, err
	}
	if !closed {
		// 输掉了并发关闭的竞争，以先到者写入的摘要为准
		current, err := s.sessionRepo.GetByID(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, ErrSessionNotFound
		}
		return current.DecodedSummary(), nil
	}
	return summary, nil
}

// ForceSummarize 强制为会话生成并写入摘要
// 管理/补救入口：至少要有 1 条消息，已关闭的会话允许覆盖重生成
func (s *SessionService) ForceSummarize(ctx context.Context, userID, sessionID int64) (*model.SessionSummary, error) {
	session, err := s.getOwned(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	messages, err := s.messageRepo.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, ErrNoMessages
	}

	summary := s.generateSummary(ctx, messages)
	encoded, err := summary.Encode()
	if err != nil {
		return nil, err
	}

	if session.IsOpen() {
		closed, err := s.sessionRepo.CloseIfOpen(ctx, sessionID, &encoded)
		if err != nil {
			return nil, err
		}
		if closed {
			return summary, nil
		}
		// 并发关闭先行一步，改走覆盖写入
	}
	if err := s.sessionRepo.SetSummary(ctx, sessionID, encoded); err != nil {
		return nil, err
	}
	return summary, nil
}

// getOwned 获取会话并校验所有权
// 不存在和不属于当前用户统一报 ErrSessionNotFound，
// 不向非属主确认资源是否存在
func (s *SessionService) getOwned(ctx context.Context, userID, sessionID int64) (*model.Session, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil || session.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// toSessionView 将会话模型转换为响应格式
func (s *SessionService) toSessionView(session *model.Session) *SessionView {
	view := &SessionView{
		ID:        session.ID,
		StartedAt: session.StartedAt.Format(time.RFC3339),
		Summary:   session.DecodedSummary(),
	}
	if session.EndedAt != nil {
		formatted := session.EndedAt.Format(time.RFC3339)
		view.EndedAt = &formatted
	}
	if session.CheckinToday != nil {
		var checkin model.CheckIn
		if err := json.Unmarshal([]byte(*session.CheckinToday), &checkin); err == nil {
			view.CheckinToday = &checkin
		}
	}
	return view
}

// ==================== 摘要生成 ====================

// summarizeSystemPrompt 总结调用的系统提示词
const summarizeSystemPrompt = "Tu es une IA qui résume des conversations pour un journal utilisateur. Réponds toujours en JSON strict."

// generateSummary 调用 LLM 将完整对话记录提炼成结构化摘要
// 永不失败：LLM 出错或返回无法解析的内容时降级为兜底摘要
func (s *SessionService) generateSummary(ctx context.Context, messages []model.Message) *model.SessionSummary {
	prompt := buildSummarizePrompt(messages)

	raw, err := s.ai.Complete(ctx, []ChatMessage{
		{Role: model.MessageRoleSystem, Content: summarizeSystemPrompt},
		{Role: model.MessageRoleUser, Content: prompt},
	}, CompleteOptions{
		Temperature: 0.3,
		MaxTokens:   500,
	})
	var summary *model.SessionSummary
	if err != nil {
		log.Printf("[WARN] summary generation failed, storing fallback: %v", err)
		summary = fallbackSummary("résumé indisponible")
	} else {
		summary = parseSummary(raw)
	}
	summary.Date = time.Now().Format("2006-01-02 15:04")
	return summary
}

// buildSummarizePrompt 把对话记录渲染成总结提示词
// 低温、强制 JSON 输出，四个固定的观察维度
func buildSummarizePrompt(messages []model.Message) string {
	var lines []string
	for i := range messages {
		var author string
		switch messages[i].Role {
		case model.MessageRoleUser:
			author = "Utilisatrice"
		case model.MessageRoleAssistant:
			author = "Assistante"
		default:
			author = "Système"
		}
		lines = append(lines, fmt.Sprintf("%s : %s", author, messages[i].Content))
	}

	return "Voici l'historique d'une conversation entre une utilisatrice et son assistante IA. Résume la session en 4 points :\n" +
		"1. Humeur générale de l'utilisatrice\n" +
		"2. Sujets principaux abordés\n" +
		"3. Informations clés à retenir sur l'utilisatrice (objectifs, préoccupations, événements importants, changements, etc.)\n" +
		"4. Résumé synthétique de la discussion (2-3 phrases max)\n" +
		"Réponds uniquement au format JSON : { \"humeur\": \"...\", \"sujets\": [\"...\"], \"infos_cles\": [\"...\"], \"resume\": \"...\" }\n" +
		"Historique :\n" + strings.Join(lines, "\n")
}

// parseSummary 解析 LLM 返回的摘要
// 依次尝试：整体解析 JSON → 截取第一个 {...} 块再解析 →
// 把原始文本截断塞进 resume 的兜底对象
func parseSummary(raw string) *model.SessionSummary {
	var summary model.SessionSummary
	if err := json.Unmarshal([]byte(raw), &summary); err == nil {
		return &summary
	}

	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			if err := json.Unmarshal([]byte(raw[start:end+1]), &summary); err == nil {
				return &summary
			}
		}
	}

	return fallbackSummary(truncateRunes(raw, summaryResumeMaxLen))
}

// fallbackSummary 构造结构化字段为空的兜底摘要
func fallbackSummary(resume string) *model.SessionSummary {
	return &model.SessionSummary{
		Humeur:    "",
		Sujets:    []string{},
		InfosCles: []string{},
		Resume:    resume,
	}
}

// truncateRunes 按字符截断字符串，避免把多字节字符切成半个
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
