package retry

import (
	"context"
	"time"

	"github.com/spetersoncode/comicflow"
)

// Attempt describes one call made by Do.
type Attempt struct {
	// Number is the 1-indexed attempt number.
	Number int
	// Max is the total number of attempts allowed.
	Max int
	// Last is the error of the previous attempt, nil on the first.
	Last error
}

// First reports whether this is the initial attempt.
func (a Attempt) First() bool { return a.Number == 1 }

// backoff returns the wait after a failed attempt, honoring a larger Retry-After.
func backoff(cfg Config, a Attempt, err error) time.Duration {
	d := cfg.Delay(a.Number - 1)
	if server := comicflow.RetryAfterOf(err); server > d {
		return server
	}
	return d
}

// Do calls fn until it succeeds, fails with a non-transient error or runs out
// of attempts, and returns the last error in that case. Waits between
// attempts end early when ctx is done.
func Do[T any](ctx context.Context, cfg Config, fn func(Attempt) (T, error)) (T, error) {
	return DoWithEvents(ctx, cfg, nil, fn)
}

// DoWithEvents is Do reporting progress on events. Sends never block; a full
// or nil channel drops events.
func DoWithEvents[T any](ctx context.Context, cfg Config, events chan<- Event, fn func(Attempt) (T, error)) (T, error) {
	var zero T
	a := Attempt{Number: 1, Max: max(cfg.MaxAttempts, 1)}

	for {
		emit(events, Event{Type: EventAttemptStart, Attempt: a.Number, MaxAttempts: a.Max})
		result, err := fn(a)
		if err == nil {
			emit(events, Event{Type: EventSuccess, Attempt: a.Number, MaxAttempts: a.Max})
			return result, nil
		}

		retryable := IsTransient(err)
		emit(events, Event{Type: EventAttemptFailed, Attempt: a.Number, MaxAttempts: a.Max, Error: err, Retryable: retryable})
		if !retryable {
			return zero, err
		}
		if a.Number == a.Max {
			emit(events, Event{Type: EventExhausted, Attempt: a.Number, MaxAttempts: a.Max, Error: err})
			return zero, err
		}

		delay := backoff(cfg, a, err)
		emit(events, Event{Type: EventRetrying, Attempt: a.Number, MaxAttempts: a.Max, Delay: delay})
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}

		a = Attempt{Number: a.Number + 1, Max: a.Max, Last: err}
	}
}
