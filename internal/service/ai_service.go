// Package service 提供业务逻辑层的实现
package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"echo-companion-server/internal/config"
)

// LLM 相关错误
var (
	// ErrAINotConfigured 缺少 API Key
	// 服务端启动时已经强校验过，这里主要服务于测试和降级路径
	ErrAINotConfigured = errors.New("LLM 服务未配置 (缺少 API Key)")
)

// ChatMessage 一条对话消息，OpenAI Chat Completions 的消息形状
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompleteOptions 补全请求的参数
type CompleteOptions struct {
	Model       string       // 模型，空值用配置里的默认模型
	Temperature float64      // 采样温度，0 表示使用服务端默认
	MaxTokens   int          // 输出上限，0 表示不限制
	Stream      bool         // 是否流式返回
	OnDelta     func(string) // 流式模式下每个增量片段的回调，按到达顺序调用
}

// Completer 补全调用的统一入口
// 会话总结、每日金句和聊天轮次都只通过它访问 LLM，测试时用假实现替换
type Completer interface {
	Complete(ctx context.Context, messages []ChatMessage, opts CompleteOptions) (string, error)
}

// AIService 基于 OpenAI Chat Completions API 的 Completer 实现
// 整个系统所有 LLM 调用的唯一出口
type AIService struct {
	config *config.Config
	client *http.Client
}

// NewAIService 创建 AIService 实例
func NewAIService(cfg *config.Config) *AIService {
	return &AIService{
		config: cfg,
		client: &http.Client{
			Timeout: 60 * time.Second, // 流式响应可能持续较久
		},
	}
}

// chatCompletionRequest OpenAI API 请求结构
type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

// chatCompletionResponse 非流式响应结构
type chatCompletionResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// chatCompletionChunk 流式响应的单个增量
type chatCompletionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Complete 发起一次补全请求
// 非流式模式返回完整文本；流式模式把增量按顺序交给 opts.OnDelta，
// 同时返回拼接后的完整文本。增量只保证顺序，不保证切分粒度
func (s *AIService) Complete(ctx context.Context, messages []ChatMessage, opts CompleteOptions) (string, error) {
	if s.config.AI.APIKey == "" {
		return "", ErrAINotConfigured
	}

	model := opts.Model
	if model == "" {
		model = s.config.AI.ChatModel
	}

	body := chatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Stream:      opts.Stream,
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	url := strings.TrimRight(s.config.AI.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.config.AI.APIKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to call LLM service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("LLM service returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if opts.Stream {
		return s.consumeStream(resp.Body, opts.OnDelta)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(bodyBytes, &completion); err != nil {
		return "", fmt.Errorf("failed to parse LLM response: %w", err)
	}
	if completion.Error != nil {
		return "", fmt.Errorf("LLM service error: %s - %s", completion.Error.Type, completion.Error.Message)
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("LLM returned no content")
	}

	return completion.Choices[0].Message.Content, nil
}

// consumeStream 逐行解析 SSE 流
// 每行形如 "data: {...}"，以 "data: [DONE]" 结束
// 增量不丢弃、不重排，依次交给 onDelta 并累积为完整文本
func (s *AIService) consumeStream(body io.Reader, onDelta func(string)) (string, error) {
	var full strings.Builder

	scanner := bufio.NewScanner(body)
	// 单行可能超过默认的 64KB 上限
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			break
		}

		var chunk chatCompletionChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			// 跳过无法解析的心跳/注释行
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}

		full.WriteString(delta)
		if onDelta != nil {
			onDelta(delta)
		}
	}
	if err := scanner.Err(); err != nil {
		return full.String(), fmt.Errorf("LLM stream interrupted: %w", err)
	}

	return full.String(), nil
}
