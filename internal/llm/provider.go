package llm

import "context"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

// Completion is the result of a one-shot generation.
type Completion struct {
	Content    string
	Model      string
	TokensUsed int64
}

// Stream is a pull iterator over the text fragments of a streamed
// completion. Callers consume it Next/Current/Err style; Close aborts the
// upstream call and may be called at any point.
type Stream interface {
	Next() bool
	Current() string
	Err() error
	Close() error
}

// Provider is the external completion service the chat handlers talk to.
type Provider interface {
	Complete(ctx context.Context, messages []Message) (Completion, error)
	StreamComplete(ctx context.Context, messages []Message) (Stream, error)
	Model() string
}
