package chat

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adi4512/careercounselor/pkg/api"
)

type scriptedStream struct {
	fragments []string
	finalErr  error
	blocking  chan struct{} // if set, Next blocks until closed
	cur       string
	closed    bool
}

func (s *scriptedStream) Next() bool {
	if s.blocking != nil {
		<-s.blocking
		return false
	}
	if len(s.fragments) == 0 {
		return false
	}
	s.cur, s.fragments = s.fragments[0], s.fragments[1:]
	return true
}

func (s *scriptedStream) Current() string { return s.cur }
func (s *scriptedStream) Err() error      { return s.finalErr }
func (s *scriptedStream) Close() error    { s.closed = true; return nil }

func testFrames() FrameBuilder {
	return FrameBuilder{
		Content: func(chunk string) any {
			return api.StreamContent{Type: api.FrameContent, Content: chunk}
		},
		Error: func(message string) any {
			return api.GuestStreamError{Type: api.FrameError, Error: message}
		},
	}
}

func decodeFrames(t *testing.T, body string) []map[string]any {
	t.Helper()

	var frames []map[string]any
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var frame map[string]any
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &frame))
		frames = append(frames, frame)
	}
	return frames
}

func TestRelayForwardsFragmentsInOrder(t *testing.T) {
	rec := httptest.NewRecorder()
	es, err := NewEventStream(rec)
	require.NoError(t, err)

	stream := &scriptedStream{fragments: []string{"Hello", " ", "world"}}
	full, err := Relay(context.Background(), es, stream, testFrames(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "Hello world", full)
	assert.True(t, stream.closed)

	frames := decodeFrames(t, rec.Body.String())
	require.Len(t, frames, 3)

	var got strings.Builder
	for _, frame := range frames {
		assert.Equal(t, "content", frame["type"])
		got.WriteString(frame["content"].(string))
	}
	assert.Equal(t, "Hello world", got.String())
}

func TestRelayUpstreamFailureEmitsSingleErrorFrame(t *testing.T) {
	rec := httptest.NewRecorder()
	es, err := NewEventStream(rec)
	require.NoError(t, err)

	stream := &scriptedStream{finalErr: assert.AnError}
	full, err := Relay(context.Background(), es, stream, testFrames(), time.Second)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Empty(t, full)

	frames := decodeFrames(t, rec.Body.String())
	require.Len(t, frames, 1)
	assert.Equal(t, "error", frames[0]["type"])
	// The provider error text never reaches the client.
	assert.NotContains(t, frames[0]["error"], assert.AnError.Error())
	assert.Contains(t, frames[0]["error"], "I apologize")
}

func TestRelayFailureAfterPartialContent(t *testing.T) {
	rec := httptest.NewRecorder()
	es, err := NewEventStream(rec)
	require.NoError(t, err)

	stream := &scriptedStream{fragments: []string{"partial "}, finalErr: assert.AnError}
	full, err := Relay(context.Background(), es, stream, testFrames(), time.Second)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, "partial ", full)

	frames := decodeFrames(t, rec.Body.String())
	require.Len(t, frames, 2)
	assert.Equal(t, "content", frames[0]["type"])
	assert.Equal(t, "error", frames[1]["type"])
}

func TestRelayIdleTimeout(t *testing.T) {
	rec := httptest.NewRecorder()
	es, err := NewEventStream(rec)
	require.NoError(t, err)

	blocking := make(chan struct{})
	defer close(blocking)

	stream := &scriptedStream{blocking: blocking}
	start := time.Now()
	_, err = Relay(context.Background(), es, stream, testFrames(), 30*time.Millisecond)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Less(t, time.Since(start), time.Second)

	frames := decodeFrames(t, rec.Body.String())
	require.Len(t, frames, 1)
	assert.Equal(t, "error", frames[0]["type"])
}

func TestRelayClientDisconnect(t *testing.T) {
	rec := httptest.NewRecorder()
	es, err := NewEventStream(rec)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	blocking := make(chan struct{})
	defer close(blocking)

	stream := &scriptedStream{blocking: blocking}
	_, err = Relay(ctx, es, stream, testFrames(), time.Second)
	assert.ErrorIs(t, err, context.Canceled)

	// No error frame: the connection is gone.
	assert.Empty(t, decodeFrames(t, rec.Body.String()))
	assert.True(t, stream.closed)
}

func TestBuildMessagesWindowAndRoles(t *testing.T) {
	history := make([]api.ChatTurn, 0, 14)
	for i := 0; i < 14; i++ {
		sender := "user"
		if i%2 == 1 {
			sender = "ai"
		}
		history = append(history, api.ChatTurn{Sender: sender, Content: strings.Repeat("x", i+1)})
	}

	messages := BuildMessages(history, "new question", 10)

	// system + 10 most recent turns + the new user message
	require.Len(t, messages, 12)
	assert.Equal(t, "system", string(messages[0].Role))
	assert.Equal(t, strings.Repeat("x", 5), messages[1].Content)
	assert.Equal(t, "new question", messages[11].Content)
	assert.Equal(t, "user", string(messages[11].Role))
	assert.Equal(t, "assistant", string(messages[2].Role))
}

func TestBuildMessagesSkipsBlankTurns(t *testing.T) {
	messages := BuildMessages([]api.ChatTurn{
		{Sender: "user", Content: "  "},
		{Sender: "ai", Content: "hi"},
	}, "question", 0)

	require.Len(t, messages, 3)
	assert.Equal(t, "hi", messages[1].Content)
}
