package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echo-companion-server/internal/model"
	"echo-companion-server/internal/repository"
)

func newCheckInService(t *testing.T) (*CheckInService, *repository.CheckInRepository) {
	t.Helper()
	db := testDB(t)
	checkinRepo := repository.NewCheckInRepository(db)
	return NewCheckInService(checkinRepo), checkinRepo
}

func TestSubmitCheckIn(t *testing.T) {
	svc, _ := newCheckInService(t)
	ctx := context.Background()

	checkin, err := svc.Submit(ctx, 1, &SubmitCheckInRequest{
		Date:      "2026-08-31",
		Color:     "#FFD700",
		Label:     "épanouie",
		Secondary: "motivée",
	})
	require.NoError(t, err)
	require.NotNil(t, checkin)
	assert.NotZero(t, checkin.ID)
	assert.Equal(t, "épanouie", checkin.Label)
}

func TestSubmitCheckInDefaultsToToday(t *testing.T) {
	svc, _ := newCheckInService(t)
	ctx := context.Background()

	checkin, err := svc.Submit(ctx, 1, &SubmitCheckInRequest{Color: "#87CEEB", Label: "calme"})
	require.NoError(t, err)
	assert.Equal(t, time.Now().Format(model.CheckInDateLayout), checkin.Date)
}

func TestSubmitCheckInInvalidDate(t *testing.T) {
	svc, _ := newCheckInService(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, 1, &SubmitCheckInRequest{Date: "31/08/2026", Color: "#fff", Label: "x"})
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestSubmitCheckInSameDayReplaces(t *testing.T) {
	svc, checkinRepo := newCheckInService(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, 1, &SubmitCheckInRequest{Date: "2026-08-31", Color: "#000", Label: "sombre"})
	require.NoError(t, err)

	later, err := svc.Submit(ctx, 1, &SubmitCheckInRequest{Date: "2026-08-31", Color: "#FFD700", Label: "épanouie"})
	require.NoError(t, err)
	assert.Equal(t, "épanouie", later.Label)

	// 同一天重复提交只留一行，以后写的为准
	all, err := checkinRepo.GetSinceDate(ctx, 1, "2026-08-01")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "épanouie", all[0].Label)
	assert.Equal(t, "#FFD700", all[0].Color)
}

func TestTimelineStreak(t *testing.T) {
	svc, _ := newCheckInService(t)
	ctx := context.Background()
	now := time.Now()

	// 连续三天（含今天），再往前隔了一天
	for _, offset := range []int{0, -1, -2, -4} {
		date := now.AddDate(0, 0, offset).Format(model.CheckInDateLayout)
		_, err := svc.Submit(ctx, 1, &SubmitCheckInRequest{Date: date, Color: "#fff", Label: "ok"})
		require.NoError(t, err)
	}

	resp, err := svc.Timeline(ctx, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Streak)
	assert.Len(t, resp.Checkins, 4)
}

func TestTimelineStreakStartsYesterdayWithoutToday(t *testing.T) {
	svc, _ := newCheckInService(t)
	ctx := context.Background()
	now := time.Now()

	// 今天还没签到不打断连续记录
	for _, offset := range []int{-1, -2} {
		date := now.AddDate(0, 0, offset).Format(model.CheckInDateLayout)
		_, err := svc.Submit(ctx, 1, &SubmitCheckInRequest{Date: date, Color: "#fff", Label: "ok"})
		require.NoError(t, err)
	}

	resp, err := svc.Timeline(ctx, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Streak)
}

func TestTimelineEmptyUser(t *testing.T) {
	svc, _ := newCheckInService(t)

	resp, err := svc.Timeline(context.Background(), 42, 7)
	require.NoError(t, err)
	assert.Zero(t, resp.Streak)
	assert.Empty(t, resp.Checkins)
}
