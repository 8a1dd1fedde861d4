// Package model 定义了与数据库表对应的数据结构
package model

import (
	"time"
)

// User 用户模型
// 对应数据库表 users
// 只存储认证凭据，个人资料在 Profile 表中单独维护
type User struct {
	// ID 用户唯一标识，自增主键
	ID int64 `gorm:"primaryKey" json:"id"`

	// Email 用户邮箱，用于登录，全局唯一
	Email string `gorm:"size:100;uniqueIndex;not null" json:"email"`

	// PasswordHash 密码的 bcrypt 哈希值
	// 永远不要存储明文密码！
	PasswordHash string `gorm:"size:255;not null" json:"-"`

	// Status 账号状态
	// 1: 正常
	// 0: 禁用
	Status int8 `gorm:"default:1" json:"status"`

	// CreatedAt 创建时间，由 GORM 自动填充
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// UpdatedAt 更新时间，由 GORM 自动更新
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Profile 用户的个人资料（一对一关系）
	Profile *Profile `gorm:"foreignKey:UserID" json:"profile,omitempty"`

	// Sessions 用户的所有对话会话（一对多关系）
	Sessions []Session `gorm:"foreignKey:UserID" json:"sessions,omitempty"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
