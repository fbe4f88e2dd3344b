package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/spetersoncode/comicflow/event"
)

// Compiled is a validated, immutable graph. It is safe for concurrent use;
// every invocation operates on its own copy of the state.
type Compiled[S any] struct {
	name   string
	schema *Schema[S]
	entry  string
	nodes  map[string]NodeFunc[S]
	tasks  map[string]taskFunc[S]
	next   map[string]*transition[S]
}

// Name returns the graph name.
func (c *Compiled[S]) Name() string { return c.name }

// Schema returns the state schema the graph was built over.
func (c *Compiled[S]) Schema() *Schema[S] { return c.schema }

// Invoke runs the graph from its entry point until it reaches [End] and
// returns the final state. On failure the state as of the last merged step is
// returned alongside the error.
//
// When called from inside another graph's step (see [SubgraphNode]) the run
// inherits the caller's events and run ID and emits no run lifecycle events.
func (c *Compiled[S]) Invoke(ctx context.Context, initial S, opts ...Option) (S, error) {
	sc := c.newScope(ctx, opts)
	ctx = withScope(ctx, sc)

	if sc.depth == 0 {
		c.emit(sc, event.Event{Type: event.RunStart, Index: -1})
	}
	final, steps, err := c.run(ctx, sc, initial)
	if sc.depth == 0 {
		end := event.Event{Type: event.RunEnd, Index: -1, Steps: steps}
		if err != nil {
			end = event.Event{Type: event.RunError, Index: -1, Steps: steps, Error: err, Message: err.Error()}
		}
		c.finish(ctx, sc, end)
	}
	return final, err
}

func (c *Compiled[S]) newScope(ctx context.Context, opts []Option) *scope {
	parent, nested := scopeFrom(ctx)
	if nested && len(opts) == 0 {
		return &scope{opts: parent.opts, depth: parent.depth + 1, mu: parent.mu}
	}
	o := ApplyOptions(opts...)
	depth := 0
	if nested {
		depth = parent.depth + 1
		if o.Events == nil {
			o.Events = parent.opts.Events
		}
		if o.RunID == "" {
			o.RunID = parent.opts.RunID
		}
	}
	if o.RunID == "" {
		o.RunID = "run-" + uuid.NewString()
	}
	mu := &sync.Mutex{}
	if nested {
		mu = parent.mu
	}
	return &scope{opts: o, depth: depth, mu: mu}
}

func (c *Compiled[S]) run(ctx context.Context, sc *scope, state S) (S, int, error) {
	current := c.entry
	steps := 0
	for current != End {
		if err := ctx.Err(); err != nil {
			return state, steps, err
		}
		if steps >= sc.opts.MaxSteps {
			return state, steps, fmt.Errorf("%w: graph %q ran %d steps", ErrStepLimit, c.name, steps)
		}
		steps++

		name := current
		c.emit(sc, event.Event{Type: event.StepStart, StepName: name, Index: -1, Steps: steps})
		node := c.nodes[name]
		upd, err := c.step(ctx, sc, func(ctx context.Context) (Update[S], error) {
			return node(ctx, state)
		})
		if err != nil {
			return state, steps, &StepError{StepName: name, Err: err}
		}
		if state, err = c.schema.Apply(state, upd); err != nil {
			return state, steps, &StepError{StepName: name, Err: err}
		}
		c.emit(sc, event.Event{Type: event.StepEnd, StepName: name, Index: -1, Steps: steps})

		t := c.next[name]
		switch t.kind {
		case staticEdge:
			current = t.to
		case conditionalEdge:
			dest, err := t.router(ctx, state)
			if err != nil {
				return state, steps, &StepError{StepName: name, Err: fmt.Errorf("route: %w", err)}
			}
			if !t.dests[dest] {
				return state, steps, &StepError{
					StepName: name,
					Err:      fmt.Errorf("%w %q (declared: %s)", ErrUnknownRoute, dest, joinNames(sortedKeys(t.dests))),
				}
			}
			c.emit(sc, event.Event{Type: event.RouteSelected, StepName: name, RouteName: dest, Index: -1, Steps: steps})
			current = dest
		case fanOutEdge:
			if state, err = c.fanOut(ctx, sc, name, t, state); err != nil {
				return state, steps, err
			}
			current = t.join
		}
	}
	return state, steps, nil
}

// fanOut runs every dispatched task concurrently and merges their updates in
// completion order. The whole fan-out counts as part of its source step.
func (c *Compiled[S]) fanOut(ctx context.Context, sc *scope, from string, t *transition[S], state S) (S, error) {
	sends, err := t.dispatcher(ctx, state)
	if err != nil {
		return state, &StepError{StepName: from, Err: fmt.Errorf("dispatch: %w", err)}
	}
	for i, s := range sends {
		if _, ok := c.tasks[s.Node]; !ok {
			return state, &StepError{
				StepName: from,
				Err:      fmt.Errorf("%w: send %d targets %q, which is not a task", ErrUnknownRoute, i, s.Node),
			}
		}
	}

	c.emit(sc, event.Event{Type: event.ParallelStart, StepName: from, Count: len(sends), Index: -1})
	if len(sends) == 0 {
		c.emit(sc, event.Event{Type: event.ParallelEnd, StepName: from, Index: -1})
		return state, nil
	}

	o := sc.opts
	eg, egCtx := errgroup.WithContext(ctx)
	if o.MaxConcurrency > 0 {
		eg.SetLimit(o.MaxConcurrency)
	}
	var limiter *rate.Limiter
	if o.RateInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(o.RateInterval), o.RateBurst)
	}

	var mu sync.Mutex
	updates := make([]Update[S], 0, len(sends))
	for i, s := range sends {
		task := c.tasks[s.Node]
		eg.Go(func() error {
			if limiter != nil {
				if err := limiter.Wait(egCtx); err != nil {
					return &TaskError{Node: s.Node, Index: i, Err: err}
				}
			}
			c.emit(sc, event.Event{Type: event.StepStart, StepName: s.Node, Index: i})
			upd, err := c.step(egCtx, sc, func(ctx context.Context) (Update[S], error) {
				return task(ctx, s.Input)
			})
			if err != nil {
				return &TaskError{Node: s.Node, Index: i, Err: err}
			}
			mu.Lock()
			updates = append(updates, upd)
			mu.Unlock()
			c.emit(sc, event.Event{Type: event.StepEnd, StepName: s.Node, Index: i})
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return state, &StepError{StepName: from, Err: err}
	}

	merged, err := c.schema.Apply(state, updates...)
	if err != nil {
		return state, &StepError{StepName: from, Err: err}
	}
	c.emit(sc, event.Event{Type: event.ParallelEnd, StepName: from, Count: len(sends), Index: -1})
	return merged, nil
}

// step runs fn under the configured per-step timeout.
func (c *Compiled[S]) step(ctx context.Context, sc *scope, fn func(context.Context) (Update[S], error)) (Update[S], error) {
	d := sc.opts.StepTimeout
	if d <= 0 {
		return fn(ctx)
	}
	stepCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	upd, err := fn(stepCtx)
	if err != nil && ctx.Err() == nil && errors.Is(stepCtx.Err(), context.DeadlineExceeded) {
		return upd, fmt.Errorf("%w after %s: %w", ErrStepTimeout, d, err)
	}
	return upd, err
}

// emit sends a progress event. Emitters of one run are serialized so the
// slot [event.Emit] keeps free is still free when the run finishes.
func (c *Compiled[S]) emit(sc *scope, e event.Event) {
	e.Graph = c.name
	e.RunID = sc.opts.RunID
	sc.mu.Lock()
	defer sc.mu.Unlock()
	event.Emit(sc.opts.Events, e)
}

// finish delivers the run's terminal event. It is never dropped: when the
// channel is full it waits for the consumer until ctx is done.
func (c *Compiled[S]) finish(ctx context.Context, sc *scope, e event.Event) {
	e.Graph = c.name
	e.RunID = sc.opts.RunID
	if ctx.Err() != nil {
		// Cancelled runs deliver into the reserved slot without waiting.
		event.Emit(sc.opts.Events, e)
		return
	}
	event.Deliver(ctx, sc.opts.Events, e)
}

// Run is a graph invocation started by [Compiled.Stream].
type Run[S any] struct {
	id     string
	events chan event.Event
	done   chan struct{}
	state  S
	err    error
}

// Stream starts the graph in a new goroutine and returns a handle to observe it.
// The event channel is closed after the run finishes. Slow consumers may miss
// step events once the channel buffer fills, but the terminal RunEnd or
// RunError event is always delivered; [Run.Wait] always reports the outcome.
func (c *Compiled[S]) Stream(ctx context.Context, initial S, opts ...Option) *Run[S] {
	o := ApplyOptions(opts...)
	if o.RunID == "" {
		o.RunID = "run-" + uuid.NewString()
	}
	r := &Run[S]{
		id:     o.RunID,
		events: event.NewChannel(),
		done:   make(chan struct{}),
	}
	opts = append(opts, WithEvents(r.events), WithRunID(r.id))
	go func() {
		defer close(r.done)
		defer close(r.events)
		r.state, r.err = c.Invoke(ctx, initial, opts...)
	}()
	return r
}

// ID returns the run identifier carried by every event of the run.
func (r *Run[S]) ID() string { return r.id }

// Events returns the run's event channel.
func (r *Run[S]) Events() <-chan event.Event { return r.events }

// Wait blocks until the run finishes and returns its final state and error.
func (r *Run[S]) Wait() (S, error) {
	<-r.done
	return r.state, r.err
}
