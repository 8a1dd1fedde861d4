package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"echo-companion-server/internal/model"
	"echo-companion-server/internal/prompt"
	"echo-companion-server/internal/repository"
)

// 聊天相关错误
var (
	// ErrEmptyUserTurn 最后一条消息必须是非空的 user 消息
	ErrEmptyUserTurn = errors.New("最后一条消息必须是用户发出的非空消息")
)

// DegradedReply LLM 不可用时返回的兜底回复
// 对用户呈现为一条正常的助手消息，错误细节只进日志
const DegradedReply = "Désolé, je n'arrive pas à répondre pour le moment. Veuillez réessayer dans un instant."

// ChatService 无状态聊天轮次
// 客户端自带完整对话历史，服务端只负责在最前面注入
// 按用户资料、今日签到和历史摘要组装出来的系统提示词
type ChatService struct {
	profileRepo *repository.ProfileRepository
	sessionRepo *repository.SessionRepository
	checkinRepo *repository.CheckInRepository
	ai          Completer
}

// NewChatService 创建 ChatService 实例
func NewChatService(
	profileRepo *repository.ProfileRepository,
	sessionRepo *repository.SessionRepository,
	checkinRepo *repository.CheckInRepository,
	ai Completer,
) *ChatService {
	return &ChatService{
		profileRepo: profileRepo,
		sessionRepo: sessionRepo,
		checkinRepo: checkinRepo,
		ai:          ai,
	}
}

// ChatRequest 一轮聊天请求
type ChatRequest struct {
	Messages []ChatMessage `json:"messages" binding:"required,min=1"`
	Stream   bool          `json:"stream"`
}

// ChatResponse 非流式聊天的响应
type ChatResponse struct {
	Response string `json:"response"`
}

// ValidateUserTurn 校验对话历史以一条非空的 user 消息结尾
// Handler 在写出流式响应头之前先调用它，保证校验错误能以 400 返回
func ValidateUserTurn(messages []ChatMessage) error {
	if len(messages) == 0 {
		return ErrEmptyUserTurn
	}
	last := messages[len(messages)-1]
	if last.Role != model.MessageRoleUser || strings.TrimSpace(last.Content) == "" {
		return ErrEmptyUserTurn
	}
	return nil
}

// Chat 执行一轮聊天
// 校验最后一条消息是非空的 user 消息，组装系统提示词后转发给 LLM。
// 流式模式下增量按顺序交给 onDelta。LLM 失败时降级为固定的道歉回复，
// 调用方拿到的 error 永远为 nil 以外仅剩校验错误
func (s *ChatService) Chat(ctx context.Context, userID int64, req *ChatRequest, onDelta func(string)) (string, error) {
	if err := ValidateUserTurn(req.Messages); err != nil {
		return "", err
	}

	system := s.buildSystemMessage(ctx, userID)

	messages := make([]ChatMessage, 0, len(req.Messages)+1)
	messages = append(messages, ChatMessage{Role: model.MessageRoleSystem, Content: system})
	messages = append(messages, req.Messages...)

	reply, err := s.ai.Complete(ctx, messages, CompleteOptions{
		Stream:  req.Stream,
		OnDelta: onDelta,
	})
	if err != nil {
		log.Printf("[WARN] 聊天补全失败, 返回降级回复: user=%d, err=%v", userID, err)
		if onDelta != nil && reply == "" {
			onDelta(DegradedReply)
		}
		if reply == "" {
			reply = DegradedReply
		}
		return reply, nil
	}

	return reply, nil
}

// buildSystemMessage 拉取上下文并组装系统提示词
// 任何一路数据拉取失败都只记日志并退化为缺省值，聊天不因此中断
func (s *ChatService) buildSystemMessage(ctx context.Context, userID int64) string {
	in := prompt.Input{
		Today: time.Now().Format(model.CheckInDateLayout),
	}

	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		log.Printf("[WARN] 组装提示词: 拉取资料失败: user=%d, err=%v", userID, err)
	} else {
		in.Profile = profile
	}

	sessions, err := s.sessionRepo.GetRecentSummarized(ctx, userID, prompt.MaxSummaries)
	if err != nil {
		log.Printf("[WARN] 组装提示词: 拉取历史摘要失败: user=%d, err=%v", userID, err)
	}
	for i := range sessions {
		if decoded := sessions[i].DecodedSummary(); decoded != nil {
			in.Summaries = append(in.Summaries, *decoded)
		}
	}

	checkins, err := s.checkinRepo.GetRecentByUserID(ctx, userID, prompt.MaxRecentCheckins+1)
	if err != nil {
		log.Printf("[WARN] 组装提示词: 拉取签到失败: user=%d, err=%v", userID, err)
	} else {
		in.Checkins = checkins
	}

	return prompt.SystemMessage(in)
}
