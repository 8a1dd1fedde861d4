package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echo-companion-server/internal/model"
	"echo-companion-server/internal/prompt"
	"echo-companion-server/internal/repository"
)

// recordingCompleter 记录收到的消息序列
type recordingCompleter struct {
	fakeCompleter
	received []ChatMessage
}

func (r *recordingCompleter) Complete(ctx context.Context, messages []ChatMessage, opts CompleteOptions) (string, error) {
	r.received = messages
	return r.fakeCompleter.Complete(ctx, messages, opts)
}

func newChatService(t *testing.T, ai Completer) (*ChatService, *repository.ProfileRepository) {
	t.Helper()
	db := testDB(t)
	profileRepo := repository.NewProfileRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	checkinRepo := repository.NewCheckInRepository(db)
	return NewChatService(profileRepo, sessionRepo, checkinRepo, ai), profileRepo
}

func TestChatValidatesLastTurn(t *testing.T) {
	ai := &fakeCompleter{response: "coucou"}
	svc, _ := newChatService(t, ai)
	ctx := context.Background()

	tests := []struct {
		name     string
		messages []ChatMessage
	}{
		{name: "empty", messages: nil},
		{name: "last-is-assistant", messages: []ChatMessage{{Role: model.MessageRoleAssistant, Content: "salut"}}},
		{name: "blank-content", messages: []ChatMessage{{Role: model.MessageRoleUser, Content: "   "}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Chat(ctx, 1, &ChatRequest{Messages: tc.messages}, nil)
			assert.ErrorIs(t, err, ErrEmptyUserTurn)
		})
	}
	assert.Zero(t, ai.calls)
}

func TestChatInjectsSystemMessage(t *testing.T) {
	ai := &recordingCompleter{fakeCompleter: fakeCompleter{response: "avec plaisir"}}
	svc, profileRepo := newChatService(t, ai)
	ctx := context.Background()

	require.NoError(t, profileRepo.Create(ctx, &model.Profile{UserID: 1, Name: "Camille"}))

	history := []ChatMessage{
		{Role: model.MessageRoleUser, Content: "salut"},
		{Role: model.MessageRoleAssistant, Content: "coucou"},
		{Role: model.MessageRoleUser, Content: "raconte-moi un truc"},
	}
	reply, err := svc.Chat(ctx, 1, &ChatRequest{Messages: history}, nil)
	require.NoError(t, err)
	assert.Equal(t, "avec plaisir", reply)

	// 系统提示词排在最前，客户端的历史原样跟在后面
	require.Len(t, ai.received, len(history)+1)
	assert.Equal(t, model.MessageRoleSystem, ai.received[0].Role)
	assert.Contains(t, ai.received[0].Content, "Camille")
	assert.Equal(t, history, ai.received[1:])
}

func TestChatFallbackSystemMessageWithoutProfile(t *testing.T) {
	ai := &recordingCompleter{fakeCompleter: fakeCompleter{response: "ok"}}
	svc, _ := newChatService(t, ai)
	ctx := context.Background()

	_, err := svc.Chat(ctx, 1, &ChatRequest{
		Messages: []ChatMessage{{Role: model.MessageRoleUser, Content: "salut"}},
	}, nil)
	require.NoError(t, err)

	require.NotEmpty(t, ai.received)
	assert.Equal(t, prompt.FallbackSystemMessage, ai.received[0].Content)
}

func TestChatDegradesOnLLMFailure(t *testing.T) {
	ai := &fakeCompleter{err: errors.New("upstream down")}
	svc, _ := newChatService(t, ai)
	ctx := context.Background()

	var deltas []string
	reply, err := svc.Chat(ctx, 1, &ChatRequest{
		Messages: []ChatMessage{{Role: model.MessageRoleUser, Content: "salut"}},
		Stream:   true,
	}, func(d string) { deltas = append(deltas, d) })

	// LLM 挂了对调用方不可见，拿到的是固定的道歉回复
	require.NoError(t, err)
	assert.Equal(t, DegradedReply, reply)
	assert.Equal(t, []string{DegradedReply}, deltas)
}

func TestChatStreamDeltas(t *testing.T) {
	ai := &fakeCompleter{response: "bonne nuit"}
	svc, _ := newChatService(t, ai)
	ctx := context.Background()

	var deltas []string
	reply, err := svc.Chat(ctx, 1, &ChatRequest{
		Messages: []ChatMessage{{Role: model.MessageRoleUser, Content: "bonne nuit"}},
		Stream:   true,
	}, func(d string) { deltas = append(deltas, d) })

	require.NoError(t, err)
	assert.Equal(t, "bonne nuit", reply)
	assert.NotEmpty(t, deltas)
}
