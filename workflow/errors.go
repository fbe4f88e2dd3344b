package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownField is returned when an update writes a field the schema does not declare.
	ErrUnknownField = errors.New("workflow: unknown state field")
	// ErrUnknownRoute is returned when a router picks a destination that was not declared.
	ErrUnknownRoute = errors.New("workflow: unknown route")
	// ErrStepLimit is returned when a run exceeds its maximum number of steps.
	ErrStepLimit = errors.New("workflow: step limit exceeded")
	// ErrInvalidGraph wraps every problem found by Compile.
	ErrInvalidGraph = errors.New("workflow: invalid graph")
	// ErrStepTimeout is returned when a single step exceeds its timeout.
	ErrStepTimeout = errors.New("workflow: step timeout")
)

// StepError wraps a failure of a named step.
type StepError struct {
	StepName string
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q failed: %v", e.StepName, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// TaskError wraps the failure of one fan-out task. Index is the task's
// position in the dispatcher's send list.
type TaskError struct {
	Node  string
	Index int
	Err   error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %q[%d] failed: %v", e.Node, e.Index, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// GraphError lists every problem Compile found in a graph.
type GraphError struct {
	Graph    string
	Problems []string
}

func (e *GraphError) Error() string {
	if len(e.Problems) == 1 {
		return fmt.Sprintf("graph %q: %s", e.Graph, e.Problems[0])
	}
	return fmt.Sprintf("graph %q: %d problems, first: %s", e.Graph, len(e.Problems), e.Problems[0])
}

func (e *GraphError) Unwrap() error {
	return ErrInvalidGraph
}
