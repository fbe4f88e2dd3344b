package client

import (
	"time"

	"github.com/spetersoncode/comicflow"
	"github.com/spetersoncode/comicflow/retry"
)

// Operations reported in [Event.Operation].
const (
	OpChat     = "chat"
	OpGenerate = "generate"
)

// EventType is the stage of a client call an [Event] reports.
type EventType string

// A call emits EventRequestStart, any number of EventRetry, then exactly one
// of EventRequestComplete or EventRequestError.
const (
	EventRequestStart    EventType = "request_start"
	EventRequestComplete EventType = "request_complete"
	EventRequestError    EventType = "request_error"
	EventRetry           EventType = "retry"
)

// Event describes one stage of a chat or structured-generation call.
type Event struct {
	Type      EventType
	Operation string
	// Schema names the result schema of a generate call; empty for chat.
	Schema   string
	Provider comicflow.Provider
	Model    string

	// Attempts is how many provider calls the request took, counting
	// schema corrections. Set once the request has finished.
	Attempts int
	Duration time.Duration
	// Usage is the token usage of the successful attempt.
	Usage *comicflow.Usage
	Error error

	// RetryEvent is set for EventRetry.
	RetryEvent *retry.Event

	Timestamp time.Time
}

// Done reports whether e ends its request.
func (e Event) Done() bool {
	return e.Type == EventRequestComplete || e.Type == EventRequestError
}

// emit stamps and delivers ev. A slow reader loses events; requests never wait.
func (c *Client) emit(ev Event) {
	if c.events == nil {
		return
	}
	ev.Timestamp = time.Now()
	select {
	case c.events <- ev:
	default:
	}
}
