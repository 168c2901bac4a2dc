package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Adi4512/careercounselor/internal/auth"
	"github.com/Adi4512/careercounselor/internal/database"
	"github.com/Adi4512/careercounselor/pkg/api"
)

var conversationCategories = map[string]bool{
	database.CategoryCareerPlanning:   true,
	database.CategoryJobSearch:        true,
	database.CategorySkillDevelopment: true,
	database.CategoryGeneral:          true,
}

type ConversationService struct {
	db *gorm.DB
}

func NewConversationService(db *gorm.DB) *ConversationService {
	return &ConversationService{db: db}
}

// AddRoutes mounts the per-user conversation CRUD. The caller is expected to
// wrap them in the session token middleware.
func (s *ConversationService) AddRoutes(r chi.Router) {
	r.Route("/conversations", func(r chi.Router) {
		r.Get("/", RestHandler(s.List))
		r.Post("/", RestHandler(s.Create))
		r.Get("/{conversation_id}", RestHandler(s.Get))
		r.Patch("/{conversation_id}", RestHandler(s.Update))
		r.Delete("/{conversation_id}", RestHandler(s.Delete))
		r.Get("/{conversation_id}/messages", RestHandler(s.GetMessages))
	})
}

func requireUser(r *http.Request) (uuid.UUID, error) {
	userId, ok := auth.UserID(r.Context())
	if !ok {
		return uuid.Nil, CodedErrorf(http.StatusUnauthorized, "Unauthorized")
	}
	return userId, nil
}

type listConversationsParams struct {
	Category string `schema:"category"`
}

func (s *ConversationService) List(r *http.Request) (any, error) {
	userId, err := requireUser(r)
	if err != nil {
		return nil, err
	}

	params, err := ParseRequestQueryParams[listConversationsParams](r)
	if err != nil {
		return nil, err
	}
	if params.Category != "" && !conversationCategories[params.Category] {
		return nil, CodedErrorf(http.StatusBadRequest, "unknown category '%s'", params.Category)
	}

	convs, err := database.GetConversations(r.Context(), s.db, userId)
	if err != nil {
		slog.Error("error listing conversations", "user_id", userId, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "could not list conversations")
	}

	resp := make([]api.Conversation, 0, len(convs))
	for _, conv := range convs {
		if params.Category != "" && conv.Category != params.Category {
			continue
		}
		resp = append(resp, toConversation(conv))
	}
	return resp, nil
}

func (s *ConversationService) Create(r *http.Request) (any, error) {
	userId, err := requireUser(r)
	if err != nil {
		return nil, err
	}

	req, err := ParseRequest[api.CreateConversationRequest](r)
	if err != nil {
		return nil, err
	}

	if req.Category == "" {
		req.Category = database.CategoryGeneral
	}
	if !conversationCategories[req.Category] {
		return nil, CodedErrorf(http.StatusBadRequest, "unknown category '%s'", req.Category)
	}

	conv := database.Conversation{
		Id:          uuid.New(),
		UserId:      userId,
		Title:       req.Title,
		Category:    req.Category,
		LastMessage: req.LastMessage,
	}
	if err := database.CreateConversation(r.Context(), s.db, &conv); err != nil {
		slog.Error("error creating conversation", "user_id", userId, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "could not create conversation")
	}

	return toConversation(conv), nil
}

func (s *ConversationService) Get(r *http.Request) (any, error) {
	userId, err := requireUser(r)
	if err != nil {
		return nil, err
	}
	convId, err := URLParamUUID(r, "conversation_id")
	if err != nil {
		return nil, err
	}

	conv, err := database.GetConversation(r.Context(), s.db, userId, convId)
	if err != nil {
		return nil, conversationError(err, userId, convId)
	}
	return toConversation(conv), nil
}

func (s *ConversationService) Update(r *http.Request) (any, error) {
	userId, err := requireUser(r)
	if err != nil {
		return nil, err
	}
	convId, err := URLParamUUID(r, "conversation_id")
	if err != nil {
		return nil, err
	}

	req, err := ParseRequest[api.UpdateConversationRequest](r)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]any)
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.LastMessage != nil {
		updates["last_message"] = *req.LastMessage
	}
	if req.Category != nil {
		if !conversationCategories[*req.Category] {
			return nil, CodedErrorf(http.StatusBadRequest, "unknown category '%s'", *req.Category)
		}
		updates["category"] = *req.Category
	}
	if len(updates) == 0 {
		return nil, CodedErrorf(http.StatusBadRequest, "no fields to update")
	}

	if err := database.UpdateConversation(r.Context(), s.db, userId, convId, updates); err != nil {
		return nil, conversationError(err, userId, convId)
	}

	conv, err := database.GetConversation(r.Context(), s.db, userId, convId)
	if err != nil {
		return nil, conversationError(err, userId, convId)
	}
	return toConversation(conv), nil
}

func (s *ConversationService) Delete(r *http.Request) (any, error) {
	userId, err := requireUser(r)
	if err != nil {
		return nil, err
	}
	convId, err := URLParamUUID(r, "conversation_id")
	if err != nil {
		return nil, err
	}

	if err := database.DeleteConversation(r.Context(), s.db, userId, convId); err != nil {
		return nil, conversationError(err, userId, convId)
	}
	return nil, nil
}

func (s *ConversationService) GetMessages(r *http.Request) (any, error) {
	userId, err := requireUser(r)
	if err != nil {
		return nil, err
	}
	convId, err := URLParamUUID(r, "conversation_id")
	if err != nil {
		return nil, err
	}

	messages, err := database.GetMessages(r.Context(), s.db, userId, convId)
	if err != nil {
		return nil, conversationError(err, userId, convId)
	}

	resp := make([]api.Message, 0, len(messages))
	for _, msg := range messages {
		resp = append(resp, toMessage(msg))
	}
	return resp, nil
}

func conversationError(err error, userId, convId uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return CodedErrorf(http.StatusNotFound, "conversation not found")
	}
	slog.Error("conversation operation failed", "user_id", userId, "conversation_id", convId, "error", err)
	return CodedErrorf(http.StatusInternalServerError, "conversation operation failed")
}

func toConversation(conv database.Conversation) api.Conversation {
	return api.Conversation{
		Id:          conv.Id,
		Title:       conv.Title,
		LastMessage: conv.LastMessage,
		Category:    conv.Category,
		CreatedAt:   conv.CreatedAt,
		UpdatedAt:   conv.UpdatedAt,
	}
}

func toMessage(msg database.Message) api.Message {
	out := api.Message{
		Id:             msg.Id,
		ConversationId: msg.ConversationId,
		Role:           msg.Role,
		Content:        msg.Content,
		Model:          msg.Model,
		TokensUsed:     msg.TokensUsed,
		CreatedAt:      msg.CreatedAt,
	}
	if msg.ParentMessageId.Valid {
		parent := msg.ParentMessageId.UUID
		out.ParentMessageId = &parent
	}
	return out
}
