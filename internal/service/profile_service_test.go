package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echo-companion-server/internal/model"
	"echo-companion-server/internal/repository"
)

func strPtr(s string) *string { return &s }

func newProfileService(t *testing.T) *ProfileService {
	t.Helper()
	db := testDB(t)
	return NewProfileService(repository.NewProfileRepository(db))
}

func TestGetProfileBeforeOnboarding(t *testing.T) {
	svc := newProfileService(t)

	resp, err := svc.GetProfile(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, resp.Profile)
	assert.False(t, resp.Complete)
}

func TestSaveProfileCreatesThenUpdates(t *testing.T) {
	svc := newProfileService(t)
	ctx := context.Background()

	created, err := svc.SaveProfile(ctx, 1, &SaveProfileRequest{
		Name:  "Camille",
		Goals: strPtr("lancer mon studio"),
	})
	require.NoError(t, err)
	assert.True(t, created.Complete)
	assert.Equal(t, "Camille", created.Profile.Name)

	updated, err := svc.SaveProfile(ctx, 1, &SaveProfileRequest{
		Name: "Cam",
	})
	require.NoError(t, err)
	assert.Equal(t, "Cam", updated.Profile.Name)
	// 整体保存：没带的可选字段被清空
	assert.Nil(t, updated.Profile.Goals)
	assert.Equal(t, created.Profile.ID, updated.Profile.ID)
}

func TestSaveProfileNameRequired(t *testing.T) {
	svc := newProfileService(t)

	_, err := svc.SaveProfile(context.Background(), 1, &SaveProfileRequest{Name: "   "})
	assert.ErrorIs(t, err, ErrNameRequired)
}

func TestSaveProfileTrimsFields(t *testing.T) {
	svc := newProfileService(t)

	resp, err := svc.SaveProfile(context.Background(), 1, &SaveProfileRequest{
		Name:       "  Camille  ",
		Profession: strPtr("  graphiste "),
		Interests:  strPtr("   "),
	})
	require.NoError(t, err)
	assert.Equal(t, "Camille", resp.Profile.Name)
	assert.Equal(t, "graphiste", *resp.Profile.Profession)
	// 纯空白归一为未填写
	assert.Nil(t, resp.Profile.Interests)
}

func TestSaveProfileCustomTagResolution(t *testing.T) {
	svc := newProfileService(t)
	ctx := context.Background()

	// 标签为 Autre 时保留自由文本
	resp, err := svc.SaveProfile(ctx, 1, &SaveProfileRequest{
		Name:                  "Camille",
		PersonalityType:       strPtr(model.OtherTag),
		CustomPersonalityType: strPtr("rêveuse pragmatique"),
		SexualOrientation:     strPtr("bisexuelle"),
		CustomOrientation:     strPtr("ceci doit disparaître"),
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Profile.CustomPersonalityType)
	assert.Equal(t, "rêveuse pragmatique", *resp.Profile.CustomPersonalityType)
	assert.Equal(t, "rêveuse pragmatique", resp.Profile.ResolvedPersonalityType())

	// 标签不是 Autre 时自由文本被清掉，不留脏数据
	assert.Nil(t, resp.Profile.CustomOrientation)
	assert.Equal(t, "bisexuelle", resp.Profile.ResolvedOrientation())
}
