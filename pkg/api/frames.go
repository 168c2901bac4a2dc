package api

// Stream frame types. Every frame is serialized as one `data: <json>\n\n`
// record on the event stream.
const (
	FrameMetadata = "metadata"
	FrameContent  = "content"
	FrameDone     = "done"
	FrameError    = "error"
	FrameStart    = "start"
	FrameChunk    = "chunk"
)

// GuestStreamMetadata opens and closes a guest stream (type "metadata" and
// "done") carrying the quota counters.
type GuestStreamMetadata struct {
	Type           string `json:"type"`
	RemainingChats int    `json:"remainingChats"`
	TotalChats     int    `json:"totalChats"`
}

type StreamContent struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// GuestStreamError carries the user-safe message in the "error" field; the
// authenticated stream uses StreamContent with type "error" instead.
type GuestStreamError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// StreamMarker is a bare frame with no payload ("start", "done").
type StreamMarker struct {
	Type string `json:"type"`
}
