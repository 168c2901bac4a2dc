package api

import "github.com/google/uuid"

// ChatTurn is one prior turn of a conversation as the client submits it.
// Sender is "user" or "ai" to match what the web client stores locally.
type ChatTurn struct {
	ID        string `json:"id,omitempty"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

type GuestChatRequest struct {
	Message        string     `json:"message"`
	History        []ChatTurn `json:"history"`
	GuestSessionID string     `json:"guestSessionId"`
}

type GuestChatResponse struct {
	Message        string `json:"message"`
	Timestamp      string `json:"timestamp"`
	Model          string `json:"model"`
	TokensUsed     int64  `json:"tokensUsed"`
	RemainingChats int    `json:"remainingChats"`
	TotalChats     int    `json:"totalChats"`
}

// GuestQuotaResponse is returned by the guest quota status endpoint.
type GuestQuotaResponse struct {
	RemainingChats int `json:"remainingChats"`
	TotalChats     int `json:"totalChats"`
	MaxChats       int `json:"maxChats"`
}

// QuotaExceededResponse is the 429 body once a guest session has spent its
// free chats.
type QuotaExceededResponse struct {
	Error string `json:"error"`
	Limit int    `json:"limit"`
	Used  int    `json:"used"`
}

type ChatRequest struct {
	Message        string     `json:"message"`
	History        []ChatTurn `json:"history"`
	ConversationID uuid.UUID  `json:"conversationId"`
}

type ChatResponse struct {
	Message    string `json:"message"`
	Timestamp  string `json:"timestamp"`
	Model      string `json:"model"`
	TokensUsed int64  `json:"tokensUsed"`
}
