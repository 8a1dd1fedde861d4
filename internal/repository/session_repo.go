// Package repository 提供数据访问层的实现
package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"echo-companion-server/internal/model"
)

// SessionRepository 会话数据访问层
// 负责会话相关的所有数据库操作
type SessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository 创建 SessionRepository 实例
func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create 创建新会话
// ID 和 StartedAt 由数据库自动填充
func (r *SessionRepository) Create(ctx context.Context, session *model.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// GetByID 根据 ID 获取会话
// 未找到返回 (nil, nil)
func (r *SessionRepository) GetByID(ctx context.Context, id int64) (*model.Session, error) {
	var session model.Session
	err := r.db.WithContext(ctx).First(&session, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

// GetOpenByUserID 获取用户所有未结束的会话
// 正常情况下 0 或 1 条，崩溃/重试后可能出现多条孤儿会话，
// 调用方必须能够全部收敛
func (r *SessionRepository) GetOpenByUserID(ctx context.Context, userID int64) ([]model.Session, error) {
	var sessions []model.Session
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND ended_at IS NULL", userID).
		Order("started_at ASC").
		Find(&sessions).Error
	return sessions, err
}

// CloseIfOpen 条件关闭会话
// 只有 ended_at 仍为 NULL 时才写入结束时间和摘要，
// 通过 WHERE 条件在存储层做一次 CAS：多个关闭信号竞争时只有一个生效，
// 返回值表示本次调用是否真的完成了关闭
func (r *SessionRepository) CloseIfOpen(ctx context.Context, id int64, summary *string) (bool, error) {
	updates := map[string]interface{}{
		"ended_at": time.Now(),
	}
	if summary != nil {
		updates["summary"] = *summary
	}
	result := r.db.WithContext(ctx).
		Model(&model.Session{}).
		Where("id = ? AND ended_at IS NULL", id).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SetSummary 写入会话摘要
// 用于对已关闭的会话补生成摘要（强制总结接口）
func (r *SessionRepository) SetSummary(ctx context.Context, id int64, summary string) error {
	return r.db.WithContext(ctx).
		Model(&model.Session{}).
		Where("id = ?", id).
		Update("summary", summary).Error
}

// GetByUserID 获取用户的所有会话，最新的在前
func (r *SessionRepository) GetByUserID(ctx context.Context, userID int64) ([]model.Session, error) {
	var sessions []model.Session
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("started_at DESC").
		Find(&sessions).Error
	return sessions, err
}

// GetRecentSummarized 获取用户最近 N 条带摘要的已结束会话
// 按结束时间倒序，用于给新会话的系统提示词注入历史
func (r *SessionRepository) GetRecentSummarized(ctx context.Context, userID int64, limit int) ([]model.Session, error) {
	var sessions []model.Session
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND summary IS NOT NULL AND ended_at IS NOT NULL", userID).
		Order("ended_at DESC").
		Limit(limit).
		Find(&sessions).Error
	return sessions, err
}
