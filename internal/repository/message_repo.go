// Package repository 提供数据访问层的实现
package repository

import (
	"context"

	"gorm.io/gorm"

	"echo-companion-server/internal/model"
)

// MessageRepository 消息数据访问层
// 消息只增不改，所以这里只有插入和查询
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建 MessageRepository 实例
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create 追加一条消息
// CreatedAt 由存储层在写入时赋值，构成会话内的全序
func (r *MessageRepository) Create(ctx context.Context, message *model.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

// GetBySessionID 获取会话的完整消息记录
// 按 (created_at, id) 升序：created_at 粒度到秒时用自增 ID 兜底，
// 保证第 n 条写入的消息就是第 n 条返回的消息
func (r *MessageRepository) GetBySessionID(ctx context.Context, sessionID int64) ([]model.Message, error) {
	var messages []model.Message
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	return messages, err
}

// CountBySessionID 统计会话的消息数量
// 用于判断会话是否值得总结
func (r *MessageRepository) CountBySessionID(ctx context.Context, sessionID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error
	return count, err
}
