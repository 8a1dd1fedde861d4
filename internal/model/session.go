// Package model 定义了与数据库表对应的数据结构
package model

import (
	"encoding/json"
	"time"
)

// Session 会话模型
// 对应数据库表 sessions
// 表示用户与 AI 知己的一段有界对话
// 核心不变量：同一用户在任意时刻最多只有一个未结束（EndedAt 为 NULL）的会话，
// 由 SessionService.OpenSession 在创建新会话前强制收敛
type Session struct {
	// ID 会话唯一标识，自增主键
	ID int64 `gorm:"primaryKey" json:"id"`

	// UserID 所属用户ID，外键关联 users.id
	UserID int64 `gorm:"index;not null" json:"user_id"`

	// StartedAt 会话开始时间
	StartedAt time.Time `gorm:"autoCreateTime" json:"started_at"`

	// EndedAt 会话结束时间
	// NULL 表示会话仍然开放；一旦写入则会话终结，不可重新打开
	EndedAt *time.Time `gorm:"index" json:"ended_at,omitempty"`

	// Summary 会话结束时生成的结构化日记摘要（JSON 序列化的 SessionSummary）
	// 允许为 NULL：消息太少的会话直接关闭，不做总结
	Summary *string `gorm:"type:text" json:"summary,omitempty"`

	// CheckinToday 开启会话时当天签到的快照（JSON 序列化的 CheckIn）
	// 冗余存储，方便回看会话当天的心情，没有签到则为 NULL
	CheckinToday *string `gorm:"type:text" json:"checkin_today,omitempty"`

	// Messages 会话中的所有消息（一对多关系）
	Messages []Message `gorm:"foreignKey:SessionID" json:"messages,omitempty"`
}

// TableName 指定表名
func (Session) TableName() string {
	return "sessions"
}

// IsOpen 判断会话是否仍然开放
func (s *Session) IsOpen() bool {
	return s.EndedAt == nil
}

// DecodedSummary 反序列化存储的摘要
// 摘要为 NULL 或损坏时返回 nil
func (s *Session) DecodedSummary() *SessionSummary {
	if s.Summary == nil {
		return nil
	}
	var summary SessionSummary
	if err := json.Unmarshal([]byte(*s.Summary), &summary); err != nil {
		return nil
	}
	return &summary
}

// SessionSummary 会话摘要
// 由 LLM 从完整对话记录中提炼，作为用户日记的一条结构化条目
// 字段名沿用产品文案的法语键名，前端和提示词都按这些键消费
type SessionSummary struct {
	// Humeur 用户在本次会话中的整体情绪
	Humeur string `json:"humeur"`

	// Sujets 谈到的主要话题
	Sujets []string `json:"sujets"`

	// InfosCles 值得记住的关键信息（目标、担忧、重要事件等）
	InfosCles []string `json:"infos_cles"`

	// Resume 两三句话的综合概括
	Resume string `json:"resume"`

	// Date 摘要生成时间，格式 "2006-01-02 15:04"
	Date string `json:"date,omitempty"`
}

// Encode 将摘要序列化为存储用的 JSON 字符串
func (s *SessionSummary) Encode() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
