package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Adi4512/careercounselor/internal/auth"
	"github.com/Adi4512/careercounselor/internal/database"
	"github.com/Adi4512/careercounselor/internal/llm"
	"github.com/Adi4512/careercounselor/internal/quota"
)

func createDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.GetMigrator(db).Migrate())
	return db
}

// stubProvider scripts the upstream completion service for endpoint tests.
type stubProvider struct {
	reply     string
	chunks    []string
	streamErr error
	openErr   error
}

func (p *stubProvider) Complete(ctx context.Context, messages []llm.Message) (llm.Completion, error) {
	if p.openErr != nil {
		return llm.Completion{}, p.openErr
	}
	return llm.Completion{Content: p.reply, Model: p.Model(), TokensUsed: 42}, nil
}

func (p *stubProvider) StreamComplete(ctx context.Context, messages []llm.Message) (llm.Stream, error) {
	if p.openErr != nil {
		return nil, p.openErr
	}
	return &stubStream{chunks: p.chunks, err: p.streamErr}, nil
}

func (p *stubProvider) Model() string { return "stub-model" }

type stubStream struct {
	chunks  []string
	current string
	err     error
	closed  bool
}

func (s *stubStream) Next() bool {
	if len(s.chunks) == 0 {
		return false
	}
	s.current, s.chunks = s.chunks[0], s.chunks[1:]
	return true
}

func (s *stubStream) Current() string { return s.current }
func (s *stubStream) Err() error      { return s.err }
func (s *stubStream) Close() error    { s.closed = true; return nil }

type testEnv struct {
	db      *gorm.DB
	router  chi.Router
	tracker *quota.MemoryTracker
	tokens  *auth.TokenIssuer
}

func newTestEnv(t *testing.T, provider llm.Provider) *testEnv {
	db := createDB(t)
	tracker := quota.NewMemoryTracker(quota.DefaultMaxChats, quota.DefaultInactivityTTL)
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)

	chatService := NewChatService(db, tracker, provider, nil)
	chatService.SetIdleTimeout(200 * time.Millisecond)

	router := chi.NewRouter()
	chatService.AddGuestRoutes(router)
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tokens))
		chatService.AddRoutes(r)
		NewConversationService(db).AddRoutes(r)
		NewSettingsService(db).AddRoutes(r)
	})

	return &testEnv{db: db, router: router, tracker: tracker, tokens: tokens}
}

// signIn creates a user row and returns its id plus a valid session token.
func (e *testEnv) signIn(t *testing.T, email string) (uuid.UUID, string) {
	user, err := database.UpsertUser(context.Background(), e.db, email, "Test User", "")
	require.NoError(t, err)

	token, err := e.tokens.Issue(user.Id, user.Email)
	require.NoError(t, err)
	return user.Id, token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

// decodeFrames parses the `data: <json>` records of an SSE response into raw
// JSON objects.
func decodeFrames(t *testing.T, body string) []map[string]any {
	var frames []map[string]any
	for _, line := range strings.Split(body, "\n") {
		payload, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		var frame map[string]any
		require.NoError(t, json.Unmarshal([]byte(payload), &frame))
		frames = append(frames, frame)
	}
	return frames
}

func frameTypes(frames []map[string]any) []string {
	types := make([]string, len(frames))
	for i, frame := range frames {
		types[i], _ = frame["type"].(string)
	}
	return types
}
