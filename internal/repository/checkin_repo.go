// Package repository 提供数据访问层的实现
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"echo-companion-server/internal/model"
)

// CheckInRepository 每日签到数据访问层
type CheckInRepository struct {
	db *gorm.DB
}

// NewCheckInRepository 创建 CheckInRepository 实例
func NewCheckInRepository(db *gorm.DB) *CheckInRepository {
	return &CheckInRepository{db: db}
}

// Upsert 写入某一天的签到
// 依赖 (user_id, date) 唯一索引做条件插入：同一天重复提交时
// 直接在存储层覆盖旧值，而不是读取后再写入，避免竞态
func (r *CheckInRepository) Upsert(ctx context.Context, checkin *model.CheckIn) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"color", "label", "secondary", "updated_at"}),
		}).
		Create(checkin).Error
}

// GetByUserAndDate 获取用户某一天的签到
// 未找到返回 (nil, nil)
func (r *CheckInRepository) GetByUserAndDate(ctx context.Context, userID int64, date string) (*model.CheckIn, error) {
	var checkin model.CheckIn
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND date = ?", userID, date).
		First(&checkin).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &checkin, nil
}

// GetRecentByUserID 获取用户最近的 N 条签到，日期倒序
func (r *CheckInRepository) GetRecentByUserID(ctx context.Context, userID int64, limit int) ([]model.CheckIn, error) {
	var checkins []model.CheckIn
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date DESC").
		Limit(limit).
		Find(&checkins).Error
	return checkins, err
}

// GetSinceDate 获取用户从某天（含）以来的所有签到，日期升序
// 用于渲染心情时间线
func (r *CheckInRepository) GetSinceDate(ctx context.Context, userID int64, since string) ([]model.CheckIn, error) {
	var checkins []model.CheckIn
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND date >= ?", userID, since).
		Order("date ASC").
		Find(&checkins).Error
	return checkins, err
}
