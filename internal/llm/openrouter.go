package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "deepseek/deepseek-chat-v3.1"

	maxCompletionTokens = 200
	temperature         = 0.7
	presencePenalty     = 0.1
	frequencyPenalty    = 0.1
)

type OpenRouterConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// Referer is forwarded as HTTP-Referer, which OpenRouter uses for app
	// attribution.
	Referer string
	AppName string
}

// OpenRouter talks to an OpenAI-compatible chat completion endpoint.
type OpenRouter struct {
	client openai.Client
	model  string
}

func NewOpenRouter(cfg OpenRouterConfig) *OpenRouter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
	}
	if cfg.Referer != "" {
		opts = append(opts, option.WithHeader("HTTP-Referer", cfg.Referer))
	}
	if cfg.AppName != "" {
		opts = append(opts, option.WithHeader("X-Title", cfg.AppName))
	}

	return &OpenRouter{client: openai.NewClient(opts...), model: cfg.Model}
}

func (o *OpenRouter) Model() string { return o.model }

func (o *OpenRouter) params(messages []Message) openai.ChatCompletionNewParams {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}

	return openai.ChatCompletionNewParams{
		Model:            o.model,
		Messages:         msgs,
		MaxTokens:        openai.Int(maxCompletionTokens),
		Temperature:      openai.Float(temperature),
		PresencePenalty:  openai.Float(presencePenalty),
		FrequencyPenalty: openai.Float(frequencyPenalty),
	}
}

func (o *OpenRouter) Complete(ctx context.Context, messages []Message) (Completion, error) {
	res, err := o.client.Chat.Completions.New(ctx, o.params(messages))
	if err != nil {
		slog.Error("openrouter completion failed", "model", o.model, "error", err)
		return Completion{}, fmt.Errorf("completion request failed: %w", err)
	}
	if len(res.Choices) == 0 {
		return Completion{}, fmt.Errorf("completion returned no choices")
	}

	return Completion{
		Content:    res.Choices[0].Message.Content,
		Model:      o.model,
		TokensUsed: res.Usage.TotalTokens,
	}, nil
}

func (o *OpenRouter) StreamComplete(ctx context.Context, messages []Message) (Stream, error) {
	inner := o.client.Chat.Completions.NewStreaming(ctx, o.params(messages))
	if err := inner.Err(); err != nil {
		slog.Error("openrouter stream failed to open", "model", o.model, "error", err)
		return nil, fmt.Errorf("stream request failed: %w", err)
	}
	return &openRouterStream{inner: inner}, nil
}

type openRouterStream struct {
	inner *ssestream.Stream[openai.ChatCompletionChunk]
	cur   string
}

// Next advances to the next non-empty text delta. Chunks without content
// (role preludes, usage frames) are skipped rather than surfaced.
func (s *openRouterStream) Next() bool {
	for s.inner.Next() {
		chunk := s.inner.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			s.cur = delta
			return true
		}
	}
	return false
}

func (s *openRouterStream) Current() string { return s.cur }
func (s *openRouterStream) Err() error      { return s.inner.Err() }
func (s *openRouterStream) Close() error    { return s.inner.Close() }
