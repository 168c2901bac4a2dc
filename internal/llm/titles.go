package llm

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

const titleInstruction = "Summarize the user's career question as a conversation title of at most six words. Reply with the title only, no quotes or punctuation around it."

const maxFallbackTitleLen = 50

// TitleGenerator names new conversations after their opening message.
type TitleGenerator struct {
	client *lcopenai.LLM
}

func NewTitleGenerator(apiKey, baseURL, model string) (*TitleGenerator, error) {
	opts := []lcopenai.Option{
		lcopenai.WithToken(apiKey),
		lcopenai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, lcopenai.WithBaseURL(baseURL))
	}

	client, err := lcopenai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("could not create title generation client: %w", err)
	}
	return &TitleGenerator{client: client}, nil
}

func (g *TitleGenerator) Title(ctx context.Context, firstMessage string) (string, error) {
	resp, err := g.client.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, titleInstruction),
		llms.TextParts(schema.ChatMessageTypeHuman, firstMessage),
	}, llms.WithMaxTokens(16))
	if err != nil {
		return "", fmt.Errorf("title generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("title generation returned no choices")
	}

	title := strings.Trim(strings.TrimSpace(resp.Choices[0].Content), `"`)
	if title == "" {
		return "", fmt.Errorf("title generation returned empty title")
	}
	return title, nil
}

// FallbackTitle is used when no generator is configured or generation fails:
// the opening message truncated to a displayable length.
func FallbackTitle(message string) string {
	message = strings.TrimSpace(message)
	if utf8.RuneCountInString(message) <= maxFallbackTitleLen {
		return message
	}
	runes := []rune(message)
	return strings.TrimSpace(string(runes[:maxFallbackTitleLen])) + "…"
}
