package client

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// IdleFlushInterval 空闲多久后自动收尾当前会话
const IdleFlushInterval = 5 * time.Minute

// Controller 客户端侧的会话控制器
// 持有"当前会话"句柄：启动时开一个会话，每次发送先落用户消息、
// 再走一轮流式聊天、最后落助手回复；空闲超时或退出时收尾会话。
// 会话句柄保存在结构体里，收尾后置空，下次发送自动重开
type Controller struct {
	api   *API
	token string

	mu        sync.Mutex
	sessionID int64 // 0 表示当前没有打开的会话
	history   []ChatMessage
	msgCount  int
	lastUsed  time.Time

	stopIdle chan struct{}
	stopOnce sync.Once
}

// NewController 创建会话控制器
func NewController(api *API, accessToken string) *Controller {
	return &Controller{
		api:      api,
		token:    accessToken,
		stopIdle: make(chan struct{}),
	}
}

// Start 开启会话并启动空闲收尾定时器
func (c *Controller) Start() (*OpenSessionResult, error) {
	result, err := c.api.OpenSession(c.token)
	if err != nil {
		return nil, fmt.Errorf("开启会话失败: %w", err)
	}

	c.mu.Lock()
	c.sessionID = result.Session.ID
	c.history = nil
	c.msgCount = 0
	c.lastUsed = time.Now()
	c.mu.Unlock()

	go c.idleLoop()
	return result, nil
}

// Send 发送一条用户消息并流式接收回复
// 没有打开的会话时先重开一个。用户消息先持久化再发起聊天，
// 助手回复在流式结束后持久化
func (c *Controller) Send(content string, onDelta func(string)) (string, error) {
	c.mu.Lock()
	if c.sessionID == 0 {
		c.mu.Unlock()
		if _, err := c.reopen(); err != nil {
			return "", err
		}
		c.mu.Lock()
	}
	sessionID := c.sessionID
	c.history = append(c.history, ChatMessage{Role: "user", Content: content})
	messages := make([]ChatMessage, len(c.history))
	copy(messages, c.history)
	c.lastUsed = time.Now()
	c.mu.Unlock()

	if _, err := c.api.AppendMessage(c.token, sessionID, "user", content); err != nil {
		return "", fmt.Errorf("保存消息失败: %w", err)
	}

	reply, err := c.api.ChatStream(c.token, messages, onDelta)
	if err != nil {
		return reply, err
	}

	if _, err := c.api.AppendMessage(c.token, sessionID, "assistant", reply); err != nil {
		// 回复已经展示给用户，持久化失败只记日志
		log.Printf("保存助手回复失败: %v", err)
	}

	c.mu.Lock()
	c.history = append(c.history, ChatMessage{Role: "assistant", Content: reply})
	c.msgCount += 2
	c.lastUsed = time.Now()
	c.mu.Unlock()

	return reply, nil
}

// Close 收尾当前会话并停止定时器
// 退出路径上调用，失败只记日志
func (c *Controller) Close() {
	c.stopOnce.Do(func() { close(c.stopIdle) })
	c.flush()
}

// reopen 重开一个会话（空闲收尾后的下一次发送触发）
func (c *Controller) reopen() (*OpenSessionResult, error) {
	result, err := c.api.OpenSession(c.token)
	if err != nil {
		return nil, fmt.Errorf("开启会话失败: %w", err)
	}

	c.mu.Lock()
	c.sessionID = result.Session.ID
	c.history = nil
	c.msgCount = 0
	c.lastUsed = time.Now()
	c.mu.Unlock()

	return result, nil
}

// flush 收尾当前会话：有内容则总结，然后清空句柄
func (c *Controller) flush() {
	c.mu.Lock()
	sessionID := c.sessionID
	count := c.msgCount
	c.sessionID = 0
	c.history = nil
	c.msgCount = 0
	c.mu.Unlock()

	if sessionID == 0 || count < 2 {
		return
	}
	if _, err := c.api.Summarize(c.token, sessionID); err != nil {
		log.Printf("收尾会话失败: %v", err)
	}
}

// idleLoop 空闲检测：超过 IdleFlushInterval 没有活动就收尾会话
func (c *Controller) idleLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopIdle:
			return
		case <-ticker.C:
			c.mu.Lock()
			idle := c.sessionID != 0 && time.Since(c.lastUsed) >= IdleFlushInterval
			c.mu.Unlock()
			if idle {
				c.flush()
			}
		}
	}
}
