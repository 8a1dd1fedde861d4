// Package repository 提供数据访问层的实现
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"echo-companion-server/internal/model"
)

// ProfileRepository 个人资料数据访问层
type ProfileRepository struct {
	db *gorm.DB
}

// NewProfileRepository 创建 ProfileRepository 实例
func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetByUserID 根据用户 ID 获取资料
// 未找到返回 (nil, nil)，表示用户尚未完成 onboarding
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID int64) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// Create 创建资料
// 首次 onboarding 提交时调用
func (r *ProfileRepository) Create(ctx context.Context, profile *model.Profile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

// Update 整体保存资料
// onboarding 和资料编辑流程都走这里，可选字段允许被清空
func (r *ProfileRepository) Update(ctx context.Context, profile *model.Profile) error {
	return r.db.WithContext(ctx).Save(profile).Error
}

// UpdatePlan 更新用户的订阅套餐
// 由支付回调触发，不触碰资料的其它字段
func (r *ProfileRepository) UpdatePlan(ctx context.Context, userID int64, plan string) error {
	return r.db.WithContext(ctx).
		Model(&model.Profile{}).
		Where("user_id = ?", userID).
		Update("subscription_plan", plan).Error
}
