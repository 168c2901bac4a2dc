package chat

import (
	"strings"

	"github.com/Adi4512/careercounselor/internal/llm"
	"github.com/Adi4512/careercounselor/pkg/api"
)

// DefaultHistoryWindow bounds how many prior turns are forwarded upstream so
// the context stays small (and cheap).
const DefaultHistoryWindow = 10

// BuildMessages normalizes a client-supplied history plus the new user
// message into the provider's message list: system prompt first, then the
// trailing window of prior turns, then the new message. Client turns use
// sender "user"/"ai"; anything that is not "user" maps to the assistant role.
func BuildMessages(history []api.ChatTurn, userMessage string, window int) []llm.Message {
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	if len(history) > window {
		history = history[len(history)-window:]
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: llm.SystemPrompt})

	for _, turn := range history {
		if strings.TrimSpace(turn.Content) == "" {
			continue
		}
		role := llm.RoleAssistant
		if turn.Sender == "user" {
			role = llm.RoleUser
		}
		messages = append(messages, llm.Message{Role: role, Content: turn.Content})
	}

	return append(messages, llm.Message{Role: llm.RoleUser, Content: userMessage})
}
