package api

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	Id    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name,omitempty"`
	Image string    `json:"image,omitempty"`
}

type SignInResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type Conversation struct {
	Id          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	LastMessage string    `json:"lastMessage"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type CreateConversationRequest struct {
	Title       string `json:"title"`
	LastMessage string `json:"lastMessage"`
	Category    string `json:"category"`
}

type UpdateConversationRequest struct {
	Title       *string `json:"title,omitempty"`
	LastMessage *string `json:"lastMessage,omitempty"`
	Category    *string `json:"category,omitempty"`
}

type Message struct {
	Id              uuid.UUID  `json:"id"`
	ConversationId  uuid.UUID  `json:"conversationId"`
	ParentMessageId *uuid.UUID `json:"parentMessageId,omitempty"`
	Role            string     `json:"role"`
	Content         string     `json:"content"`
	Model           string     `json:"model,omitempty"`
	TokensUsed      int64      `json:"tokensUsed,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

type Settings struct {
	AIPersonality       string `json:"aiPersonality"`
	ResponseLength      string `json:"responseLength"`
	EnableNotifications bool   `json:"enableNotifications"`
	AutoSave            bool   `json:"autoSave"`
	Theme               string `json:"theme"`
}

type UpdateSettingsRequest struct {
	AIPersonality       *string `json:"aiPersonality,omitempty"`
	ResponseLength      *string `json:"responseLength,omitempty"`
	EnableNotifications *bool   `json:"enableNotifications,omitempty"`
	AutoSave            *bool   `json:"autoSave,omitempty"`
	Theme               *string `json:"theme,omitempty"`
}
