package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Adi4512/careercounselor/internal/auth"
	"github.com/Adi4512/careercounselor/internal/chat"
	"github.com/Adi4512/careercounselor/internal/database"
	"github.com/Adi4512/careercounselor/internal/llm"
	"github.com/Adi4512/careercounselor/internal/quota"
	"github.com/Adi4512/careercounselor/pkg/api"
)

type ChatService struct {
	db          *gorm.DB
	tracker     quota.Tracker
	provider    llm.Provider
	titles      *llm.TitleGenerator
	idleTimeout time.Duration
	window      int
}

func NewChatService(db *gorm.DB, tracker quota.Tracker, provider llm.Provider, titles *llm.TitleGenerator) *ChatService {
	return &ChatService{
		db:          db,
		tracker:     tracker,
		provider:    provider,
		titles:      titles,
		idleTimeout: chat.DefaultIdleTimeout,
		window:      chat.DefaultHistoryWindow,
	}
}

// SetIdleTimeout overrides how long streams wait for the next upstream
// fragment. Mostly useful in tests.
func (s *ChatService) SetIdleTimeout(d time.Duration) {
	s.idleTimeout = d
}

// AddGuestRoutes mounts the unauthenticated guest chat endpoints.
func (s *ChatService) AddGuestRoutes(r chi.Router) {
	r.Route("/chat/guest", func(r chi.Router) {
		r.Post("/", RestHandler(s.GuestChat))
		r.Get("/", RestHandler(s.GuestQuota))
		r.Post("/stream", s.GuestChatStream)
	})
}

// AddRoutes mounts the authenticated chat endpoints. The caller is expected
// to wrap them in the session token middleware.
func (s *ChatService) AddRoutes(r chi.Router) {
	r.Route("/chat", func(r chi.Router) {
		r.Post("/", RestHandler(s.Chat))
		r.Post("/stream", s.ChatStream)
	})
}

// reserveGuestTurn validates the guest request and spends one quota turn,
// mapping exhaustion to the 429 body the client parses.
func (s *ChatService) reserveGuestTurn(ctx context.Context, req api.GuestChatRequest) (quota.Usage, error) {
	if strings.TrimSpace(req.Message) == "" {
		return quota.Usage{}, CodedErrorf(http.StatusBadRequest, "message is required")
	}
	if req.GuestSessionID == "" {
		return quota.Usage{}, CodedErrorf(http.StatusBadRequest, "guestSessionId is required")
	}

	usage, err := s.tracker.CheckAndReserve(ctx, req.GuestSessionID)
	if errors.Is(err, quota.ErrExceeded) {
		return usage, CodedErrorPayload(http.StatusTooManyRequests, api.QuotaExceededResponse{
			Error: "Guest chat limit exceeded",
			Limit: usage.Max,
			Used:  usage.Used,
		}, "guest chat limit exceeded")
	}
	if err != nil {
		slog.Error("error reserving guest chat turn", "error", err)
		return usage, CodedErrorf(http.StatusInternalServerError, "could not check guest quota")
	}
	return usage, nil
}

func (s *ChatService) GuestChat(r *http.Request) (any, error) {
	req, err := ParseRequest[api.GuestChatRequest](r)
	if err != nil {
		return nil, err
	}

	ctx := r.Context()

	usage, err := s.reserveGuestTurn(ctx, req)
	if err != nil {
		return nil, err
	}

	completion, err := s.provider.Complete(ctx, chat.BuildMessages(req.History, req.Message, s.window))
	if err != nil {
		slog.Error("guest completion failed", "error", err)
		return nil, CodedErrorf(http.StatusBadGateway, "%s", llm.Apology)
	}

	return api.GuestChatResponse{
		Message:        completion.Content,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		Model:          completion.Model,
		TokensUsed:     completion.TokensUsed,
		RemainingChats: usage.Remaining,
		TotalChats:     usage.Used,
	}, nil
}

type guestQuotaParams struct {
	SessionID string `schema:"sessionId"`
}

func (s *ChatService) GuestQuota(r *http.Request) (any, error) {
	params, err := ParseRequestQueryParams[guestQuotaParams](r)
	if err != nil {
		return nil, err
	}
	if params.SessionID == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "sessionId is required")
	}

	usage, err := s.tracker.Peek(r.Context(), params.SessionID)
	if err != nil {
		slog.Error("error reading guest quota", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "could not check guest quota")
	}

	return api.GuestQuotaResponse{
		RemainingChats: usage.Remaining,
		TotalChats:     usage.Used,
		MaxChats:       usage.Max,
	}, nil
}

func (s *ChatService) GuestChatStream(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRequest[api.GuestChatRequest](r)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx := r.Context()

	usage, err := s.reserveGuestTurn(ctx, req)
	if err != nil {
		writeError(w, err)
		return
	}

	stream, err := s.provider.StreamComplete(ctx, chat.BuildMessages(req.History, req.Message, s.window))
	if err != nil {
		slog.Error("guest stream could not be opened", "error", err)
		writeError(w, CodedErrorf(http.StatusBadGateway, "%s", llm.Apology))
		return
	}

	es, err := chat.NewEventStream(w)
	if err != nil {
		stream.Close()
		writeError(w, CodedError(http.StatusInternalServerError, err))
		return
	}

	// Headers are committed from here on; failures become in-stream frames.
	if err := es.Send(api.GuestStreamMetadata{
		Type:           api.FrameMetadata,
		RemainingChats: usage.Remaining,
		TotalChats:     usage.Used,
	}); err != nil {
		stream.Close()
		return
	}

	frames := chat.FrameBuilder{
		Content: func(chunk string) any {
			return api.StreamContent{Type: api.FrameContent, Content: chunk}
		},
		Error: func(message string) any {
			return api.GuestStreamError{Type: api.FrameError, Error: message}
		},
	}

	if _, err := chat.Relay(ctx, es, stream, frames, s.idleTimeout); err != nil {
		return
	}

	if err := es.Send(api.GuestStreamMetadata{
		Type:           api.FrameDone,
		RemainingChats: usage.Remaining,
		TotalChats:     usage.Used,
	}); err != nil {
		slog.Error("error writing stream done frame", "error", err)
	}
}

func (s *ChatService) Chat(r *http.Request) (any, error) {
	userId, ok := auth.UserID(r.Context())
	if !ok {
		return nil, CodedErrorf(http.StatusUnauthorized, "Unauthorized")
	}

	req, err := ParseRequest[api.ChatRequest](r)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "message is required")
	}

	ctx := r.Context()

	completion, err := s.provider.Complete(ctx, chat.BuildMessages(req.History, req.Message, s.window))
	if err != nil {
		slog.Error("completion failed", "user_id", userId, "error", err)
		return nil, CodedErrorf(http.StatusBadGateway, "%s", llm.Apology)
	}

	s.persistExchange(ctx, userId, req, completion.Content, completion.Model, completion.TokensUsed)

	return api.ChatResponse{
		Message:    completion.Content,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Model:      completion.Model,
		TokensUsed: completion.TokensUsed,
	}, nil
}

func (s *ChatService) ChatStream(w http.ResponseWriter, r *http.Request) {
	userId, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, CodedErrorf(http.StatusUnauthorized, "Unauthorized"))
		return
	}

	req, err := ParseRequest[api.ChatRequest](r)
	if err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, CodedErrorf(http.StatusBadRequest, "message is required"))
		return
	}

	ctx := r.Context()

	stream, err := s.provider.StreamComplete(ctx, chat.BuildMessages(req.History, req.Message, s.window))
	if err != nil {
		slog.Error("stream could not be opened", "user_id", userId, "error", err)
		writeError(w, CodedErrorf(http.StatusBadGateway, "%s", llm.Apology))
		return
	}

	es, err := chat.NewEventStream(w)
	if err != nil {
		stream.Close()
		writeError(w, CodedError(http.StatusInternalServerError, err))
		return
	}

	if err := es.Send(api.StreamMarker{Type: api.FrameStart}); err != nil {
		stream.Close()
		return
	}

	frames := chat.FrameBuilder{
		Content: func(chunk string) any {
			return api.StreamContent{Type: api.FrameChunk, Content: chunk}
		},
		Error: func(message string) any {
			return api.StreamContent{Type: api.FrameError, Content: message}
		},
	}

	full, err := chat.Relay(ctx, es, stream, frames, s.idleTimeout)
	if err != nil {
		// Incomplete turn, nothing is persisted.
		return
	}

	s.persistExchange(ctx, userId, req, full, s.provider.Model(), 0)

	if err := es.Send(api.StreamMarker{Type: api.FrameDone}); err != nil {
		slog.Error("error writing stream done frame", "error", err)
	}
}

// persistExchange saves the completed turn into the request's conversation.
// A persistence failure after the reply has been generated is logged and
// otherwise swallowed so the client still gets the response it watched
// stream in.
func (s *ChatService) persistExchange(ctx context.Context, userId uuid.UUID, req api.ChatRequest, reply, model string, tokensUsed int64) {
	if req.ConversationID == uuid.Nil {
		return
	}

	userMsg := database.Message{Content: req.Message}
	assistantMsg := database.Message{Content: reply, Model: model, TokensUsed: tokensUsed}

	if err := database.SaveExchange(ctx, s.db, userId, req.ConversationID, &userMsg, &assistantMsg); err != nil {
		slog.Error("error persisting chat exchange", "user_id", userId, "conversation_id", req.ConversationID, "error", err)
		return
	}

	s.maybeTitle(ctx, userId, req.ConversationID, req.Message, len(req.History) == 0)
}

// maybeTitle names the conversation after its opening message on the first
// exchange. Generation failures fall back to a truncation of the message.
func (s *ChatService) maybeTitle(ctx context.Context, userId, convId uuid.UUID, firstMessage string, firstExchange bool) {
	if !firstExchange {
		return
	}

	conv, err := database.GetConversation(ctx, s.db, userId, convId)
	if err != nil || conv.Title != "" {
		return
	}

	title := llm.FallbackTitle(firstMessage)
	if s.titles != nil {
		if generated, err := s.titles.Title(ctx, firstMessage); err == nil {
			title = generated
		} else {
			slog.Warn("title generation failed, using fallback", "error", err)
		}
	}

	if err := database.UpdateConversation(ctx, s.db, userId, convId, map[string]any{"title": title}); err != nil {
		slog.Error("error saving conversation title", "conversation_id", convId, "error", err)
	}
}
