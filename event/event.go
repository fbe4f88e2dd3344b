// Package event defines the events emitted while a workflow graph runs.
// The types map 1:1 onto the AG-UI run and step lifecycle.
package event

import (
	"context"
	"time"
)

// Type identifies the kind of event.
type Type string

// Run lifecycle events
const (
	// RunStart fires when a graph invocation begins.
	RunStart Type = "run_start"

	// RunEnd fires when the graph reaches its end marker.
	RunEnd Type = "run_end"

	// RunError fires when an unrecoverable error stops the run.
	RunError Type = "run_error"
)

// Step lifecycle events
const (
	// StepStart fires when a node or fan-out task begins.
	StepStart Type = "step_start"

	// StepEnd fires when a node or fan-out task completes and its update is merged.
	StepEnd Type = "step_end"
)

// Routing events
const (
	// RouteSelected fires when a router picks the next node.
	RouteSelected Type = "route_selected"

	// ParallelStart fires when a fan-out dispatches its tasks.
	ParallelStart Type = "parallel_start"

	// ParallelEnd fires when every fan-out task has finished and been merged.
	ParallelEnd Type = "parallel_end"
)

// Event represents an observable occurrence during graph execution.
type Event struct {
	// Type identifies the kind of event.
	Type Type

	// Graph is the name of the graph that emitted the event. Sub-graphs
	// report their own name.
	Graph string

	// RunID is the identifier of the run, shared by nested sub-graphs.
	RunID string

	// StepName identifies the node or task.
	StepName string

	// Index is the 0-based fan-out task index, or -1 outside fan-out.
	Index int

	// Count is the number of dispatched tasks for ParallelStart/ParallelEnd.
	Count int

	// RouteName identifies the selected destination for RouteSelected.
	RouteName string

	// Steps is the number of steps executed so far.
	Steps int

	// Error contains the error for RunError events.
	Error error

	// Message contains additional context.
	Message string

	Timestamp time.Time
}

// Terminal reports whether events of type t end a run.
func (t Type) Terminal() bool { return t == RunEnd || t == RunError }

// Emit sends an event with timestamp to the channel (non-blocking).
// A nil channel discards the event. Non-terminal events are dropped once a
// buffered channel has a single free slot left, which stays reserved for the
// run's terminal event.
func Emit(ch chan<- Event, e Event) {
	if ch == nil {
		return
	}
	if !e.Type.Terminal() && cap(ch) > 1 && len(ch) >= cap(ch)-1 {
		return
	}
	e.Timestamp = time.Now()
	select {
	case ch <- e:
	default:
		// Channel full - don't block
	}
}

// Deliver sends an event with timestamp to the channel, waiting for room
// until ctx is done. It reports whether the event was sent.
func Deliver(ctx context.Context, ch chan<- Event, e Event) bool {
	if ch == nil {
		return false
	}
	e.Timestamp = time.Now()
	select {
	case ch <- e:
		return true
	default:
	}
	select {
	case ch <- e:
		return true
	case <-ctx.Done():
		return false
	}
}

// NewChannel creates a buffered event channel with standard capacity.
func NewChannel() chan Event {
	return make(chan Event, 256)
}
