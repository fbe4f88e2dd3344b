package retry

import "time"

// EventType identifies a retry event.
type EventType string

const (
	EventAttemptStart  EventType = "attempt_start"
	EventAttemptFailed EventType = "attempt_failed"
	// EventRetrying fires before the wait between attempts.
	EventRetrying EventType = "retrying"
	EventSuccess  EventType = "success"
	// EventExhausted fires when the last allowed attempt failed transiently.
	EventExhausted EventType = "exhausted"
)

// Event reports the progress of a retried call.
type Event struct {
	Type        EventType
	Attempt     int
	MaxAttempts int

	// Error is the attempt's error for EventAttemptFailed and EventExhausted.
	Error error
	// Retryable is whether Error was classified as transient.
	Retryable bool
	// Delay is the wait before the next attempt for EventRetrying.
	Delay time.Duration

	Timestamp time.Time
}

func emit(ch chan<- Event, e Event) {
	if ch == nil {
		return
	}
	e.Timestamp = time.Now()
	select {
	case ch <- e:
	default:
	}
}
