// Package service 提供业务逻辑层的实现
package service

import (
	"context"
	"errors"
	"time"

	"echo-companion-server/internal/model"
	"echo-companion-server/internal/repository"
)

// 签到相关错误
var (
	ErrInvalidDate = errors.New("无效的日期格式")
)

// CheckInService 每日签到服务
type CheckInService struct {
	checkinRepo *repository.CheckInRepository
}

// NewCheckInService 创建 CheckInService 实例
func NewCheckInService(checkinRepo *repository.CheckInRepository) *CheckInService {
	return &CheckInService{checkinRepo: checkinRepo}
}

// SubmitCheckInRequest 提交签到请求
// Date 可选，缺省为今天；同一天重复提交会覆盖之前的选择
type SubmitCheckInRequest struct {
	Date      string `json:"date"`
	Color     string `json:"color" binding:"required"`
	Label     string `json:"label" binding:"required"`
	Secondary string `json:"secondary"`
}

// Submit 提交某一天的心情签到
func (s *CheckInService) Submit(ctx context.Context, userID int64, req *SubmitCheckInRequest) (*model.CheckIn, error) {
	date := req.Date
	if date == "" {
		date = time.Now().Format(model.CheckInDateLayout)
	} else if _, err := time.Parse(model.CheckInDateLayout, date); err != nil {
		return nil, ErrInvalidDate
	}

	checkin := &model.CheckIn{
		UserID:    userID,
		Date:      date,
		Color:     req.Color,
		Label:     req.Label,
		Secondary: req.Secondary,
	}
	if err := s.checkinRepo.Upsert(ctx, checkin); err != nil {
		return nil, err
	}

	// Upsert 覆盖旧行时 checkin.ID 可能没有回填，重新读一次保证响应完整
	stored, err := s.checkinRepo.GetByUserAndDate(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// TimelineResponse 心情时间线响应
type TimelineResponse struct {
	Checkins []model.CheckIn `json:"checkins"` // 区间内的签到，日期升序
	Streak   int             `json:"streak"`   // 连续签到天数（截止今天）
}

// Timeline 获取最近 days 天的签到和连续签到天数
func (s *CheckInService) Timeline(ctx context.Context, userID int64, days int) (*TimelineResponse, error) {
	if days <= 0 {
		days = 7
	}
	now := time.Now()
	since := now.AddDate(0, 0, -(days - 1)).Format(model.CheckInDateLayout)

	checkins, err := s.checkinRepo.GetSinceDate(ctx, userID, since)
	if err != nil {
		return nil, err
	}

	return &TimelineResponse{
		Checkins: checkins,
		Streak:   s.streak(ctx, userID, now),
	}, nil
}

// streak 计算从今天往回数的连续签到天数
// 今天没签到则从昨天开始算（今天还来得及补）
func (s *CheckInService) streak(ctx context.Context, userID int64, now time.Time) int {
	// 往回最多看 90 天，足够渲染连续签到的火苗了
	since := now.AddDate(0, 0, -90).Format(model.CheckInDateLayout)
	checkins, err := s.checkinRepo.GetSinceDate(ctx, userID, since)
	if err != nil {
		return 0
	}

	dates := make(map[string]bool, len(checkins))
	for i := range checkins {
		dates[checkins[i].Date] = true
	}

	day := now
	if !dates[day.Format(model.CheckInDateLayout)] {
		day = day.AddDate(0, 0, -1)
	}

	count := 0
	for dates[day.Format(model.CheckInDateLayout)] {
		count++
		day = day.AddDate(0, 0, -1)
	}
	return count
}
