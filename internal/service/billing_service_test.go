package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echo-companion-server/internal/config"
	"echo-companion-server/internal/model"
	"echo-companion-server/internal/repository"
)

const testWebhookSecret = "whsec_test_secret"

func newBillingService(t *testing.T) (*BillingService, *repository.ProfileRepository) {
	t.Helper()
	db := testDB(t)
	profileRepo := repository.NewProfileRepository(db)
	cfg := &config.Config{}
	cfg.Stripe.WebhookSecret = testWebhookSecret
	return NewBillingService(profileRepo, cfg), profileRepo
}

// signPayload 按提供商的约定给事件体签名
func signPayload(secret string, payload []byte, ts time.Time) string {
	timestamp := fmt.Sprintf("%d", ts.Unix())
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifySignature(t *testing.T) {
	svc, _ := newBillingService(t)
	payload := []byte(`{"id":"evt_1"}`)
	now := time.Now()

	tests := []struct {
		name    string
		header  string
		wantErr bool
	}{
		{
			name:   "valid",
			header: signPayload(testWebhookSecret, payload, now),
		},
		{
			name:    "wrong-secret",
			header:  signPayload("whsec_other", payload, now),
			wantErr: true,
		},
		{
			name:    "stale-timestamp",
			header:  signPayload(testWebhookSecret, payload, now.Add(-10*time.Minute)),
			wantErr: true,
		},
		{
			name:    "future-timestamp",
			header:  signPayload(testWebhookSecret, payload, now.Add(10*time.Minute)),
			wantErr: true,
		},
		{
			name:    "empty-header",
			header:  "",
			wantErr: true,
		},
		{
			name:    "malformed-header",
			header:  "t=abc,v1=",
			wantErr: true,
		},
		{
			name:    "missing-v1",
			header:  fmt.Sprintf("t=%d", now.Unix()),
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.VerifySignature(payload, tc.header, now)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrBadSignature)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestVerifySignatureExtraCandidates(t *testing.T) {
	svc, _ := newBillingService(t)
	payload := []byte(`{"id":"evt_2"}`)
	now := time.Now()

	// 密钥轮换期会同时带新旧两个 v1，任一匹配即通过
	valid := signPayload(testWebhookSecret, payload, now)
	header := valid + ",v1=deadbeef"
	assert.NoError(t, svc.VerifySignature(payload, header, now))
}

func TestVerifySignatureTamperedPayload(t *testing.T) {
	svc, _ := newBillingService(t)
	now := time.Now()

	header := signPayload(testWebhookSecret, []byte(`{"amount":100}`), now)
	err := svc.VerifySignature([]byte(`{"amount":99999}`), header, now)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestHandleEventPlanTransitions(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantPlan string
	}{
		{
			name:     "checkout-completed-with-plan",
			payload:  `{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"metadata":{"user_id":"1","plan_id":"premium_yearly"}}}}`,
			wantPlan: "premium_yearly",
		},
		{
			name:     "checkout-completed-default-plan",
			payload:  `{"id":"evt_2","type":"checkout.session.completed","data":{"object":{"metadata":{"user_id":"1"}}}}`,
			wantPlan: model.PlanPremium,
		},
		{
			name:     "subscription-deleted",
			payload:  `{"id":"evt_3","type":"customer.subscription.deleted","data":{"object":{"metadata":{"user_id":"1"}}}}`,
			wantPlan: model.PlanFree,
		},
		{
			name:     "subscription-paused",
			payload:  `{"id":"evt_4","type":"customer.subscription.paused","data":{"object":{"metadata":{"user_id":"1"}}}}`,
			wantPlan: model.PlanFree,
		},
		{
			name:     "subscription-updated-active",
			payload:  `{"id":"evt_5","type":"customer.subscription.updated","data":{"object":{"metadata":{"user_id":"1"},"status":"active"}}}`,
			wantPlan: model.PlanPremium,
		},
		{
			name:     "subscription-updated-past-due",
			payload:  `{"id":"evt_6","type":"customer.subscription.updated","data":{"object":{"metadata":{"user_id":"1"},"status":"past_due"}}}`,
			wantPlan: model.PlanFree,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, profileRepo := newBillingService(t)
			ctx := context.Background()
			require.NoError(t, profileRepo.Create(ctx, &model.Profile{UserID: 1, Name: "Camille", SubscriptionPlan: "pending"}))

			require.NoError(t, svc.HandleEvent(ctx, []byte(tc.payload)))

			profile, err := profileRepo.GetByUserID(ctx, 1)
			require.NoError(t, err)
			require.NotNil(t, profile)
			assert.Equal(t, tc.wantPlan, profile.SubscriptionPlan)
		})
	}
}

func TestHandleEventIgnoresUnrelated(t *testing.T) {
	svc, profileRepo := newBillingService(t)
	ctx := context.Background()
	require.NoError(t, profileRepo.Create(ctx, &model.Profile{UserID: 1, Name: "Camille", SubscriptionPlan: model.PlanFree}))

	// 没带 user_id 的事件被忽略且不报错，避免平台无限重推
	require.NoError(t, svc.HandleEvent(ctx, []byte(`{"id":"evt_7","type":"checkout.session.completed","data":{"object":{"metadata":{}}}}`)))
	// 不认识的事件类型同样忽略
	require.NoError(t, svc.HandleEvent(ctx, []byte(`{"id":"evt_8","type":"invoice.created","data":{"object":{"metadata":{"user_id":"1"}}}}`)))

	profile, err := profileRepo.GetByUserID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.PlanFree, profile.SubscriptionPlan)
}

func TestHandleEventMalformedPayload(t *testing.T) {
	svc, _ := newBillingService(t)
	err := svc.HandleEvent(context.Background(), []byte("not json"))
	assert.Error(t, err)
}
