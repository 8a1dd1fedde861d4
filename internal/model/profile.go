// Package model 定义了与数据库表对应的数据结构
package model

import (
	"time"
)

// 订阅套餐常量
const (
	PlanFree    = "free"    // 免费版
	PlanPremium = "premium" // 付费版
)

// OtherTag 枚举字段选择"其他"时的标记值
// 性取向和人格类型允许用户在枚举之外自由填写
// 选择该值时，实际文本存放在对应的 Custom* 字段中
const OtherTag = "Autre"

// Profile 个人资料模型
// 对应数据库表 profiles
// 每个用户有且只有一份资料，资料是否"完整"只取决于 Name 是否非空
// 不完整的资料会把用户引导到 onboarding 流程
type Profile struct {
	// ID 资料唯一标识，自增主键
	ID int64 `gorm:"primaryKey" json:"id"`

	// UserID 所属用户ID，外键关联 users.id，一个用户只有一份资料
	UserID int64 `gorm:"uniqueIndex;not null" json:"user_id"`

	// Name 昵称，资料完整性的唯一判据
	Name string `gorm:"size:100" json:"name"`

	// Age 年龄，自由文本（原始输入来自手机键盘，不强制数字）
	Age *string `gorm:"size:10" json:"age,omitempty"`

	// Pronouns 人称代词，如 "elle/她"
	Pronouns *string `gorm:"size:50" json:"pronouns,omitempty"`

	// Profession 职业
	Profession *string `gorm:"size:200" json:"profession,omitempty"`

	// DailyRoutine 日常作息描述
	DailyRoutine *string `gorm:"type:text" json:"daily_routine,omitempty"`

	// SelfCareHabits 自我关怀的习惯、仪式
	SelfCareHabits *string `gorm:"type:text" json:"self_care_habits,omitempty"`

	// MoodTriggers 情绪触发点
	MoodTriggers *string `gorm:"type:text" json:"mood_triggers,omitempty"`

	// Goals 目标
	Goals *string `gorm:"type:text" json:"goals,omitempty"`

	// FavoriteQuotes 喜欢的格言
	FavoriteQuotes *string `gorm:"type:text" json:"favorite_quotes,omitempty"`

	// Interests 兴趣爱好
	Interests *string `gorm:"type:text" json:"interests,omitempty"`

	// PersonalityType 人格类型标签（枚举值，或 OtherTag）
	PersonalityType *string `gorm:"size:100" json:"personality_type,omitempty"`

	// CustomPersonalityType 人格类型为 OtherTag 时的自由文本
	CustomPersonalityType *string `gorm:"size:200" json:"custom_personality_type,omitempty"`

	// SexualOrientation 性取向标签（枚举值，或 OtherTag）
	SexualOrientation *string `gorm:"size:100" json:"sexual_orientation,omitempty"`

	// CustomOrientation 性取向为 OtherTag 时的自由文本
	CustomOrientation *string `gorm:"size:200" json:"custom_orientation,omitempty"`

	// RelationshipStatus 感情状态标签（枚举值）
	RelationshipStatus *string `gorm:"size:100" json:"relationship_status,omitempty"`

	// SubscriptionPlan 订阅套餐，由支付回调更新
	SubscriptionPlan string `gorm:"size:50;default:free" json:"subscription_plan"`

	// CreatedAt 创建时间
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// UpdatedAt 更新时间
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (Profile) TableName() string {
	return "profiles"
}

// IsComplete 判断资料是否完整
// 完整 = 填写了昵称；其余字段全部可选
func (p *Profile) IsComplete() bool {
	return p != nil && p.Name != ""
}

// ResolvedPersonalityType 返回实际生效的人格类型
// 标签为 OtherTag 时取自由文本
func (p *Profile) ResolvedPersonalityType() string {
	return resolveTag(p.PersonalityType, p.CustomPersonalityType)
}

// ResolvedOrientation 返回实际生效的性取向
func (p *Profile) ResolvedOrientation() string {
	return resolveTag(p.SexualOrientation, p.CustomOrientation)
}

// resolveTag 处理 枚举标签 + 自由文本覆盖 的组合
func resolveTag(tag, custom *string) string {
	if tag == nil {
		return ""
	}
	if *tag == OtherTag && custom != nil && *custom != "" {
		return *custom
	}
	return *tag
}
