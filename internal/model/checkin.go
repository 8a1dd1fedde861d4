// Package model 定义了与数据库表对应的数据结构
package model

import (
	"time"
)

// CheckInDateLayout 签到日期的存储格式（ISO 日期，不含时间）
const CheckInDateLayout = "2006-01-02"

// CheckIn 每日心情签到模型
// 对应数据库表 checkins
// 每个用户每个自然日最多一条记录，同一天重复提交时后者覆盖前者
type CheckIn struct {
	// ID 签到唯一标识，自增主键
	ID int64 `gorm:"primaryKey" json:"id"`

	// UserID 所属用户ID，与 Date 组成唯一索引
	UserID int64 `gorm:"not null;uniqueIndex:uk_checkin_user_date" json:"user_id"`

	// Date 签到日期，格式 "2006-01-02"
	Date string `gorm:"size:10;not null;uniqueIndex:uk_checkin_user_date" json:"date"`

	// Color 心情颜色，十六进制色值，如 "#6CACE4"
	Color string `gorm:"size:10;not null" json:"color"`

	// Label 心情关键词，如 "Serein"
	Label string `gorm:"size:50;not null" json:"label"`

	// Secondary 心情的补充描述，如 "Posé"
	Secondary string `gorm:"size:100" json:"secondary"`

	// CreatedAt 创建时间
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// UpdatedAt 更新时间（同一天覆盖提交时刷新）
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (CheckIn) TableName() string {
	return "checkins"
}
