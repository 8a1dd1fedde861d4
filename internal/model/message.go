// Package model 定义了与数据库表对应的数据结构
package model

import (
	"time"
)

// MessageRole 消息角色常量
const (
	MessageRoleUser      = "user"      // 用户消息
	MessageRoleAssistant = "assistant" // AI 知己的回复
	MessageRoleSystem    = "system"    // 系统提示
)

// ValidRole 判断角色是否合法
func ValidRole(role string) bool {
	switch role {
	case MessageRoleUser, MessageRoleAssistant, MessageRoleSystem:
		return true
	}
	return false
}

// Message 消息模型
// 对应数据库表 messages
// 只增不改：消息一旦写入永不修改或删除，
// 会话的完整记录就是其消息按 (created_at, id) 升序排列的序列
type Message struct {
	// ID 消息唯一标识，自增主键
	ID int64 `gorm:"primaryKey" json:"id"`

	// SessionID 所属会话ID，外键关联 sessions.id
	SessionID int64 `gorm:"index;not null" json:"session_id"`

	// UserID 所属用户ID，冗余存储，方便按用户清查数据
	UserID int64 `gorm:"index;not null" json:"user_id"`

	// Role 消息角色: user / assistant / system
	Role string `gorm:"size:20;not null" json:"role"`

	// Content 消息内容
	Content string `gorm:"type:text;not null" json:"content"`

	// CreatedAt 消息创建时间，由存储层在写入时赋值
	// 同一会话内的消息以它（加 ID 兜底）确定全序
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName 指定表名
func (Message) TableName() string {
	return "messages"
}
