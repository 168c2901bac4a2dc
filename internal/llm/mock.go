package llm

import (
	"context"
	"math/rand"
	"strings"
	"time"
)

var mockResponses = []string{
	"I'd be happy to help with your career question. What specific guidance are you looking for?",
	"That's a great question. What are your main career goals right now?",
	"I can help with career advice. What's your current situation?",
	"Career decisions can be challenging. What aspect would you like to discuss?",
	"I'd love to help with your career development. What changes are you considering?",
}

// Mock stands in for the completion provider when no API key is configured.
// Streams are delivered word by word with a short delay so the client-side
// typing animation still works.
type Mock struct {
	delay time.Duration
}

func NewMock() *Mock {
	return &Mock{delay: 50 * time.Millisecond}
}

func (m *Mock) Model() string { return "mock" }

func (m *Mock) Complete(ctx context.Context, messages []Message) (Completion, error) {
	return Completion{
		Content: mockResponses[rand.Intn(len(mockResponses))],
		Model:   "mock",
	}, nil
}

func (m *Mock) StreamComplete(ctx context.Context, messages []Message) (Stream, error) {
	content := mockResponses[rand.Intn(len(mockResponses))]
	return &mockStream{
		ctx:   ctx,
		words: strings.SplitAfter(content, " "),
		delay: m.delay,
	}, nil
}

type mockStream struct {
	ctx   context.Context
	words []string
	delay time.Duration
	cur   string
	err   error
}

func (s *mockStream) Next() bool {
	if s.err != nil || len(s.words) == 0 {
		return false
	}
	select {
	case <-s.ctx.Done():
		s.err = s.ctx.Err()
		return false
	case <-time.After(s.delay):
	}
	s.cur, s.words = s.words[0], s.words[1:]
	return true
}

func (s *mockStream) Current() string { return s.cur }
func (s *mockStream) Err() error      { return s.err }
func (s *mockStream) Close() error    { return nil }
