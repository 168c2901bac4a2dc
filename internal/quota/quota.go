package quota

import (
	"context"
	"errors"
)

// ErrExceeded is returned once a guest session has spent all of its free
// chats. The Usage returned alongside it carries the counters the client
// needs to render "you have used X of Y free chats".
var ErrExceeded = errors.New("guest chat limit exceeded")

// Usage is a snapshot of a guest session's quota counters.
type Usage struct {
	Remaining int
	Used      int
	Max       int
}

// Tracker bounds the number of free chat turns an anonymous session may
// perform. Implementations must make CheckAndReserve atomic per session id:
// concurrent callers on the same id can never push Used past Max.
type Tracker interface {
	// CheckAndReserve spends one chat turn for the session, creating it on
	// first use. It returns ErrExceeded, leaving the session untouched, when
	// the quota is exhausted.
	CheckAndReserve(ctx context.Context, sessionID string) (Usage, error)

	// Peek reports the session's counters without mutating anything. Unknown
	// sessions report a full quota.
	Peek(ctx context.Context, sessionID string) (Usage, error)

	// Sweep drops sessions idle for longer than the inactivity window and
	// returns how many were removed. Backends that expire entries themselves
	// may make this a no-op.
	Sweep(ctx context.Context) int
}
