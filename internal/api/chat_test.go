package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adi4512/careercounselor/internal/database"
	"github.com/Adi4512/careercounselor/internal/llm"
	"github.com/Adi4512/careercounselor/pkg/api"
)

func TestGuestChatSpendsQuotaThenRejects(t *testing.T) {
	env := newTestEnv(t, &stubProvider{reply: "Consider a skills audit."})

	for i := 0; i < 5; i++ {
		rec := env.do(t, http.MethodPost, "/chat/guest", "", api.GuestChatRequest{
			Message:        "abc",
			GuestSessionID: "guest-1",
		})
		require.Equal(t, http.StatusOK, rec.Code, "turn %d", i+1)

		resp := decodeBody[api.GuestChatResponse](t, rec)
		assert.Equal(t, "Consider a skills audit.", resp.Message)
		assert.Equal(t, "stub-model", resp.Model)
		assert.Equal(t, 4-i, resp.RemainingChats)
		assert.Equal(t, i+1, resp.TotalChats)
	}

	rec := env.do(t, http.MethodPost, "/chat/guest", "", api.GuestChatRequest{
		Message:        "abc",
		GuestSessionID: "guest-1",
	})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	denied := decodeBody[api.QuotaExceededResponse](t, rec)
	assert.Equal(t, "Guest chat limit exceeded", denied.Error)
	assert.Equal(t, 5, denied.Limit)
	assert.Equal(t, 5, denied.Used)
}

func TestGuestChatValidation(t *testing.T) {
	env := newTestEnv(t, &stubProvider{reply: "ok"})

	rec := env.do(t, http.MethodPost, "/chat/guest", "", api.GuestChatRequest{GuestSessionID: "guest-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/chat/guest", "", api.GuestChatRequest{Message: "abc"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Neither rejected request spent a turn.
	rec = env.do(t, http.MethodGet, "/chat/guest?sessionId=guest-1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decodeBody[api.GuestQuotaResponse](t, rec)
	assert.Equal(t, 5, status.RemainingChats)
	assert.Equal(t, 0, status.TotalChats)
}

func TestGuestChatUpstreamFailure(t *testing.T) {
	env := newTestEnv(t, &stubProvider{openErr: errors.New("upstream exploded")})

	rec := env.do(t, http.MethodPost, "/chat/guest", "", api.GuestChatRequest{
		Message:        "abc",
		GuestSessionID: "guest-1",
	})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), llm.Apology)
	assert.NotContains(t, rec.Body.String(), "upstream exploded")
}

func TestGuestQuotaStatus(t *testing.T) {
	env := newTestEnv(t, &stubProvider{reply: "ok"})

	rec := env.do(t, http.MethodGet, "/chat/guest", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown sessions report a full quota and are not created by the read.
	for i := 0; i < 2; i++ {
		rec = env.do(t, http.MethodGet, "/chat/guest?sessionId=unseen", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		status := decodeBody[api.GuestQuotaResponse](t, rec)
		assert.Equal(t, 5, status.RemainingChats)
		assert.Equal(t, 0, status.TotalChats)
		assert.Equal(t, 5, status.MaxChats)
	}

	rec = env.do(t, http.MethodPost, "/chat/guest", "", api.GuestChatRequest{
		Message:        "abc",
		GuestSessionID: "guest-1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/chat/guest?sessionId=guest-1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decodeBody[api.GuestQuotaResponse](t, rec)
	assert.Equal(t, 4, status.RemainingChats)
	assert.Equal(t, 1, status.TotalChats)
}

func TestGuestChatStream(t *testing.T) {
	env := newTestEnv(t, &stubProvider{chunks: []string{"Hello", " ", "world"}})

	rec := env.do(t, http.MethodPost, "/chat/guest/stream", "", api.GuestChatRequest{
		Message:        "hi",
		GuestSessionID: "guest-1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	frames := decodeFrames(t, rec.Body.String())
	require.Equal(t, []string{"metadata", "content", "content", "content", "done"}, frameTypes(frames))

	assert.EqualValues(t, 4, frames[0]["remainingChats"])
	assert.EqualValues(t, 1, frames[0]["totalChats"])
	assert.Equal(t, "Hello", frames[1]["content"])
	assert.Equal(t, " ", frames[2]["content"])
	assert.Equal(t, "world", frames[3]["content"])
	assert.EqualValues(t, 4, frames[4]["remainingChats"])
}

func TestGuestChatStreamQuotaExceeded(t *testing.T) {
	env := newTestEnv(t, &stubProvider{chunks: []string{"x"}})

	for i := 0; i < 5; i++ {
		rec := env.do(t, http.MethodPost, "/chat/guest", "", api.GuestChatRequest{
			Message:        "abc",
			GuestSessionID: "guest-1",
		})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := env.do(t, http.MethodPost, "/chat/guest/stream", "", api.GuestChatRequest{
		Message:        "abc",
		GuestSessionID: "guest-1",
	})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	denied := decodeBody[api.QuotaExceededResponse](t, rec)
	assert.Equal(t, 5, denied.Limit)
	assert.Equal(t, 5, denied.Used)
}

func TestGuestChatStreamUpstreamFailure(t *testing.T) {
	env := newTestEnv(t, &stubProvider{
		chunks:    []string{"partial"},
		streamErr: errors.New("connection reset"),
	})

	rec := env.do(t, http.MethodPost, "/chat/guest/stream", "", api.GuestChatRequest{
		Message:        "hi",
		GuestSessionID: "guest-1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	frames := decodeFrames(t, rec.Body.String())
	require.Equal(t, []string{"metadata", "content", "error"}, frameTypes(frames))
	assert.Equal(t, llm.Apology, frames[2]["error"])
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestChatRequiresSession(t *testing.T) {
	env := newTestEnv(t, &stubProvider{reply: "ok"})

	rec := env.do(t, http.MethodPost, "/chat", "", api.ChatRequest{Message: "hi"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/chat/stream", "garbage", api.ChatRequest{Message: "hi"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChatPersistsExchange(t *testing.T) {
	env := newTestEnv(t, &stubProvider{reply: "Try networking events."})
	userId, token := env.signIn(t, "amu@example.com")

	conv := database.Conversation{Id: uuid.New(), UserId: userId, Category: database.CategoryGeneral}
	require.NoError(t, database.CreateConversation(context.Background(), env.db, &conv))

	rec := env.do(t, http.MethodPost, "/chat", token, api.ChatRequest{
		Message:        "How do I find a mentor?",
		ConversationID: conv.Id,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[api.ChatResponse](t, rec)
	assert.Equal(t, "Try networking events.", resp.Message)
	assert.EqualValues(t, 42, resp.TokensUsed)

	messages, err := database.GetMessages(context.Background(), env.db, userId, conv.Id)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, database.RoleUser, messages[0].Role)
	assert.Equal(t, "How do I find a mentor?", messages[0].Content)
	assert.Equal(t, database.RoleAssistant, messages[1].Role)
	assert.Equal(t, "Try networking events.", messages[1].Content)
	require.True(t, messages[1].ParentMessageId.Valid)
	assert.Equal(t, messages[0].Id, messages[1].ParentMessageId.UUID)

	// First exchange titles the conversation from the opening message.
	updated, err := database.GetConversation(context.Background(), env.db, userId, conv.Id)
	require.NoError(t, err)
	assert.Equal(t, "How do I find a mentor?", updated.Title)
	assert.Equal(t, "Try networking events.", updated.LastMessage)
}

func TestChatStreamPersistsOnCompletionOnly(t *testing.T) {
	env := newTestEnv(t, &stubProvider{chunks: []string{"Go ", "for ", "it."}})
	userId, token := env.signIn(t, "amu@example.com")

	conv := database.Conversation{Id: uuid.New(), UserId: userId, Title: "Mentorship", Category: database.CategoryGeneral}
	require.NoError(t, database.CreateConversation(context.Background(), env.db, &conv))

	rec := env.do(t, http.MethodPost, "/chat/stream", token, api.ChatRequest{
		Message:        "Should I ask?",
		ConversationID: conv.Id,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	frames := decodeFrames(t, rec.Body.String())
	require.Equal(t, []string{"start", "chunk", "chunk", "chunk", "done"}, frameTypes(frames))

	messages, err := database.GetMessages(context.Background(), env.db, userId, conv.Id)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "Go for it.", messages[1].Content)
}

func TestChatStreamFailureDoesNotPersist(t *testing.T) {
	env := newTestEnv(t, &stubProvider{
		chunks:    []string{"half a "},
		streamErr: fmt.Errorf("upstream died"),
	})
	userId, token := env.signIn(t, "amu@example.com")

	conv := database.Conversation{Id: uuid.New(), UserId: userId, Title: "Mentorship", Category: database.CategoryGeneral}
	require.NoError(t, database.CreateConversation(context.Background(), env.db, &conv))

	rec := env.do(t, http.MethodPost, "/chat/stream", token, api.ChatRequest{
		Message:        "Should I ask?",
		ConversationID: conv.Id,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	frames := decodeFrames(t, rec.Body.String())
	require.Equal(t, []string{"start", "chunk", "error"}, frameTypes(frames))
	assert.Equal(t, llm.Apology, frames[2]["content"])

	messages, err := database.GetMessages(context.Background(), env.db, userId, conv.Id)
	require.NoError(t, err)
	assert.Empty(t, messages)
}
