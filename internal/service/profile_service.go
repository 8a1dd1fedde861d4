// Package service 提供业务逻辑层的实现
package service

import (
	"context"
	"errors"
	"strings"

	"echo-companion-server/internal/model"
	"echo-companion-server/internal/repository"
)

// 资料相关错误
var (
	ErrNameRequired = errors.New("昵称不能为空")
)

// ProfileService 个人资料服务
type ProfileService struct {
	profileRepo *repository.ProfileRepository
}

// NewProfileService 创建 ProfileService 实例
func NewProfileService(profileRepo *repository.ProfileRepository) *ProfileService {
	return &ProfileService{profileRepo: profileRepo}
}

// ProfileResponse 资料响应
// Complete 告诉客户端是否需要跳转 onboarding
type ProfileResponse struct {
	Profile  *model.Profile `json:"profile"`
	Complete bool           `json:"complete"`
}

// GetProfile 获取当前用户的资料
// 尚未创建资料时 Profile 为 nil、Complete 为 false
func (s *ProfileService) GetProfile(ctx context.Context, userID int64) (*ProfileResponse, error) {
	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ProfileResponse{
		Profile:  profile,
		Complete: profile.IsComplete(),
	}, nil
}

// SaveProfileRequest 保存资料请求
// onboarding 首次提交和后续编辑共用
type SaveProfileRequest struct {
	Name                  string  `json:"name" binding:"required"`
	Age                   *string `json:"age"`
	Pronouns              *string `json:"pronouns"`
	Profession            *string `json:"profession"`
	DailyRoutine          *string `json:"daily_routine"`
	SelfCareHabits        *string `json:"self_care_habits"`
	MoodTriggers          *string `json:"mood_triggers"`
	Goals                 *string `json:"goals"`
	FavoriteQuotes        *string `json:"favorite_quotes"`
	Interests             *string `json:"interests"`
	PersonalityType       *string `json:"personality_type"`
	CustomPersonalityType *string `json:"custom_personality_type"`
	SexualOrientation     *string `json:"sexual_orientation"`
	CustomOrientation     *string `json:"custom_orientation"`
	RelationshipStatus    *string `json:"relationship_status"`
}

// SaveProfile 保存资料（不存在则创建）
// 枚举 + 自由文本的组合字段在这里规整：
// 标签不是 "Autre" 时清空对应的自由文本，避免残留脏数据
func (s *ProfileService) SaveProfile(ctx context.Context, userID int64, req *SaveProfileRequest) (*ProfileResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	isNew := profile == nil
	if isNew {
		profile = &model.Profile{UserID: userID}
	}

	profile.Name = name
	profile.Age = trimPtr(req.Age)
	profile.Pronouns = trimPtr(req.Pronouns)
	profile.Profession = trimPtr(req.Profession)
	profile.DailyRoutine = trimPtr(req.DailyRoutine)
	profile.SelfCareHabits = trimPtr(req.SelfCareHabits)
	profile.MoodTriggers = trimPtr(req.MoodTriggers)
	profile.Goals = trimPtr(req.Goals)
	profile.FavoriteQuotes = trimPtr(req.FavoriteQuotes)
	profile.Interests = trimPtr(req.Interests)
	profile.RelationshipStatus = trimPtr(req.RelationshipStatus)

	profile.PersonalityType = trimPtr(req.PersonalityType)
	profile.CustomPersonalityType = customFor(profile.PersonalityType, req.CustomPersonalityType)
	profile.SexualOrientation = trimPtr(req.SexualOrientation)
	profile.CustomOrientation = customFor(profile.SexualOrientation, req.CustomOrientation)

	if isNew {
		err = s.profileRepo.Create(ctx, profile)
	} else {
		err = s.profileRepo.Update(ctx, profile)
	}
	if err != nil {
		return nil, err
	}

	return &ProfileResponse{Profile: profile, Complete: true}, nil
}

// customFor 只有标签为 OtherTag 时才保留自由文本
func customFor(tag, custom *string) *string {
	if tag == nil || *tag != model.OtherTag {
		return nil
	}
	return trimPtr(custom)
}

// trimPtr 去掉首尾空白，空串归一为 nil
func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
