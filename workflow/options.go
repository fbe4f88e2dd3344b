package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/spetersoncode/comicflow/event"
)

// DefaultMaxSteps bounds the number of node executions in a single run.
const DefaultMaxSteps = 50

// Options configures a run.
type Options struct {
	// MaxSteps bounds node executions, counting nested sub-graph steps separately.
	MaxSteps int
	// MaxConcurrency caps concurrently running fan-out tasks. Zero means unlimited.
	MaxConcurrency int
	// RateInterval spaces fan-out task starts. Zero disables rate limiting.
	RateInterval time.Duration
	// RateBurst is the number of tasks allowed to start without waiting.
	RateBurst int
	// StepTimeout bounds a single node or task. Zero means no per-step timeout.
	StepTimeout time.Duration
	// Events receives progress events. Step events are dropped when the
	// channel is full; the terminal event waits for room.
	Events chan<- event.Event
	// RunID tags events emitted by the run.
	RunID string
}

// Option configures a run.
type Option func(*Options)

// WithMaxSteps sets the step budget.
func WithMaxSteps(n int) Option {
	return func(o *Options) {
		o.MaxSteps = n
	}
}

// WithMaxConcurrency caps concurrent fan-out tasks.
func WithMaxConcurrency(n int) Option {
	return func(o *Options) {
		o.MaxConcurrency = n
	}
}

// WithRateLimit spaces fan-out task starts by interval, allowing burst immediate starts.
func WithRateLimit(interval time.Duration, burst int) Option {
	return func(o *Options) {
		o.RateInterval = interval
		o.RateBurst = burst
	}
}

// WithStepTimeout bounds each step.
func WithStepTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.StepTimeout = d
	}
}

// WithEvents sends progress events to ch.
func WithEvents(ch chan<- event.Event) Option {
	return func(o *Options) {
		o.Events = ch
	}
}

// WithRunID tags emitted events with id.
func WithRunID(id string) Option {
	return func(o *Options) {
		o.RunID = id
	}
}

// ApplyOptions applies option functions over the defaults.
func ApplyOptions(opts ...Option) *Options {
	o := &Options{
		MaxSteps:  DefaultMaxSteps,
		RateBurst: 1,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.MaxSteps <= 0 {
		o.MaxSteps = DefaultMaxSteps
	}
	if o.RateBurst <= 0 {
		o.RateBurst = 1
	}
	return o
}

type scopeKey struct{}

// scope carries run options into nested sub-graph invocations.
type scope struct {
	opts  *Options
	depth int
	mu    *sync.Mutex // serializes event emission across the run
}

func withScope(ctx context.Context, sc *scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, sc)
}

func scopeFrom(ctx context.Context) (*scope, bool) {
	sc, ok := ctx.Value(scopeKey{}).(*scope)
	return sc, ok
}
