// Package client 封装与服务器的 HTTP API 交互
package client

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// API API 客户端
// baseURL: 例如 http://localhost:8080
type API struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPI 创建 API 客户端
func NewAPI(baseURL string) *API {
	return &API{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			// 流式聊天可能持续较久，不设整体超时
			Timeout: 0,
		},
	}
}

// --- 通用响应 ---

// APIResponse 服务端统一响应信封
type APIResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// --- 认证 ---

// TokenPair 登录/注册返回的令牌对
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Register 注册新账号
func (c *API) Register(email, password string) (*TokenPair, error) {
	body := map[string]string{"email": email, "password": password}
	resp, err := c.post("/api/auth/register", body, "")
	if err != nil {
		return nil, err
	}
	var result TokenPair
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return nil, fmt.Errorf("解析注册响应失败: %w", err)
	}
	return &result, nil
}

// Login 使用邮箱密码登录
func (c *API) Login(email, password string) (*TokenPair, error) {
	body := map[string]string{"email": email, "password": password}
	resp, err := c.post("/api/auth/login", body, "")
	if err != nil {
		return nil, err
	}
	var result TokenPair
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return nil, fmt.Errorf("解析登录响应失败: %w", err)
	}
	return &result, nil
}

// --- 会话与消息 ---

// Summary 会话总结
type Summary struct {
	Humeur    string   `json:"humeur"`
	Sujets    []string `json:"sujets"`
	InfosCles []string `json:"infos_cles"`
	Resume    string   `json:"resume"`
	Date      string   `json:"date,omitempty"`
}

// Session 服务端返回的会话视图
type Session struct {
	ID        int64    `json:"id"`
	StartedAt string   `json:"started_at"`
	EndedAt   *string  `json:"ended_at,omitempty"`
	Summary   *Summary `json:"summary,omitempty"`
}

// SummaryEntry 历史总结条目
type SummaryEntry struct {
	ID      int64   `json:"id"`
	Summary Summary `json:"summary"`
	EndedAt string  `json:"ended_at"`
}

// OpenSessionResult 开启会话的响应
type OpenSessionResult struct {
	Session       Session        `json:"session"`
	LastSummaries []SummaryEntry `json:"last_summaries"`
}

// Message 一条已持久化的消息
type Message struct {
	ID        int64  `json:"id"`
	SessionID int64  `json:"session_id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
}

// OpenSession 开启新会话（服务端会先收尾遗留的旧会话）
func (c *API) OpenSession(accessToken string) (*OpenSessionResult, error) {
	resp, err := c.post("/api/sessions", nil, accessToken)
	if err != nil {
		return nil, err
	}
	var result OpenSessionResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return nil, fmt.Errorf("解析会话响应失败: %w", err)
	}
	return &result, nil
}

// AppendMessage 向会话追加一条消息
func (c *API) AppendMessage(accessToken string, sessionID int64, role, content string) (*Message, error) {
	body := map[string]interface{}{
		"session_id": sessionID,
		"role":       role,
		"content":    content,
	}
	resp, err := c.post("/api/messages", body, accessToken)
	if err != nil {
		return nil, err
	}
	var result Message
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return nil, fmt.Errorf("解析消息响应失败: %w", err)
	}
	return &result, nil
}

// Summarize 关闭会话并生成总结
// 返回 nil 表示消息不足，服务端未做任何修改
func (c *API) Summarize(accessToken string, sessionID int64) (*SummaryEntry, error) {
	resp, err := c.post(fmt.Sprintf("/api/sessions/%d/summary", sessionID), nil, accessToken)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return nil, nil
	}
	var result SummaryEntry
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return nil, fmt.Errorf("解析总结响应失败: %w", err)
	}
	return &result, nil
}

// --- 聊天 ---

// ChatMessage 一条对话消息
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatStream 发起一轮流式聊天
// 每个增量按顺序交给 onDelta，返回拼接后的完整回复
func (c *API) ChatStream(accessToken string, messages []ChatMessage, onDelta func(string)) (string, error) {
	body := map[string]interface{}{
		"messages": messages,
		"stream":   true,
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest("POST", c.baseURL+"/api/chat", bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("聊天失败: %s", string(respBody))
	}

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			break
		}

		var event struct {
			Delta string `json:"delta"`
			Error string `json:"error"`
		}
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			continue
		}
		if event.Error != "" {
			return full.String(), fmt.Errorf("聊天失败: %s", event.Error)
		}
		if event.Delta == "" {
			continue
		}

		full.WriteString(event.Delta)
		if onDelta != nil {
			onDelta(event.Delta)
		}
	}
	if err := scanner.Err(); err != nil {
		return full.String(), fmt.Errorf("读取响应流失败: %w", err)
	}

	return full.String(), nil
}

// --- 通用请求封装 ---

func (c *API) post(path string, body interface{}, accessToken string) (*APIResponse, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest("POST", c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	return c.do(req)
}

func (c *API) do(req *http.Request) (*APIResponse, error) {
	// 普通接口设置独立超时，避免客户端卡死
	ctx := req.Context()
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}

	if apiResp.Code != 0 {
		return nil, fmt.Errorf("API 错误: %s", apiResp.Message)
	}

	return &apiResp, nil
}
