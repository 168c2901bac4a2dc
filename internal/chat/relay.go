package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/Adi4512/careercounselor/internal/llm"
)

// DefaultIdleTimeout bounds how long the relay waits for the next upstream
// fragment before giving up on the stream.
const DefaultIdleTimeout = 45 * time.Second

// ErrUpstream reports that the provider stream failed or timed out after the
// response had already committed; the client has been sent an in-stream error
// frame carrying the apology text.
var ErrUpstream = errors.New("upstream stream failed")

// FrameBuilder adapts the relay's frames to the endpoint's wire format: guest
// and authenticated streams use differently shaped content and error records.
type FrameBuilder struct {
	Content func(chunk string) any
	Error   func(message string) any
}

// Relay forwards upstream fragments to the event stream one frame per
// fragment, in arrival order, and returns the accumulated text. The pull loop
// hands fragments over an unbuffered channel, so a client that stops reading
// stalls consumption of the upstream stream instead of growing a buffer.
//
// A cancelled request context (client disconnect) aborts the upstream call
// without emitting further frames. Upstream errors and idle timeouts emit a
// single error frame and return ErrUpstream; callers must not persist the
// partial text in either case.
func Relay(ctx context.Context, es *EventStream, stream llm.Stream, frames FrameBuilder, idleTimeout time.Duration) (string, error) {
	defer stream.Close()

	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}

	type fragment struct {
		chunk string
		err   error
		done  bool
	}

	pulls := make(chan fragment)
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		for stream.Next() {
			select {
			case pulls <- fragment{chunk: stream.Current()}:
			case <-stop:
				return
			}
		}
		select {
		case pulls <- fragment{err: stream.Err(), done: true}:
		case <-stop:
		}
	}()

	idle := time.NewTimer(idleTimeout)
	defer idle.Stop()

	var full strings.Builder
	for {
		select {
		case <-ctx.Done():
			// Client went away; nobody is listening for an error frame.
			return full.String(), ctx.Err()

		case <-idle.C:
			slog.Warn("no upstream fragment within idle timeout, aborting stream", "timeout", idleTimeout)
			if err := es.Send(frames.Error(llm.Apology)); err != nil {
				slog.Error("error writing stream error frame", "error", err)
			}
			return full.String(), ErrUpstream

		case frag := <-pulls:
			if frag.done {
				if frag.err != nil {
					slog.Error("upstream stream failed", "error", frag.err)
					if err := es.Send(frames.Error(llm.Apology)); err != nil {
						slog.Error("error writing stream error frame", "error", err)
					}
					return full.String(), ErrUpstream
				}
				return full.String(), nil
			}

			full.WriteString(frag.chunk)
			if err := es.Send(frames.Content(frag.chunk)); err != nil {
				return full.String(), err
			}

			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(idleTimeout)
		}
	}
}
