package chat

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// EventStream frames JSON payloads as server-sent events and flushes each one
// immediately, so fragments reach the client as they arrive.
type EventStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewEventStream sets the event-stream headers and prepares the response for
// incremental writes. It fails if the transport cannot flush.
func NewEventStream(w http.ResponseWriter) (*EventStream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	return &EventStream{w: w, flusher: flusher}, nil
}

func (es *EventStream) Send(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("could not marshal stream frame: %w", err)
	}
	if _, err := fmt.Fprintf(es.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("could not write stream frame: %w", err)
	}
	es.flusher.Flush()
	return nil
}
