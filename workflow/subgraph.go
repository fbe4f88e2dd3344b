package workflow

import (
	"context"
	"fmt"
)

// SubgraphNode wraps a compiled child graph as a step of a parent graph.
// project builds the child's initial state from the parent state; extract
// turns the child's final state into a parent update. The child runs with its
// own step budget and reports its steps under its own graph name.
func SubgraphNode[P, C any](child *Compiled[C], project func(P) C, extract func(C) Update[P]) NodeFunc[P] {
	return func(ctx context.Context, state P) (Update[P], error) {
		final, err := child.Invoke(ctx, project(state))
		if err != nil {
			return Update[P]{}, fmt.Errorf("subgraph %q: %w", child.Name(), err)
		}
		return extract(final), nil
	}
}

// SubgraphTask wraps a compiled child graph as a fan-out task. Each send runs
// an independent child invocation.
func SubgraphTask[P, I, C any](child *Compiled[C], project func(I) C, extract func(I, C) Update[P]) TaskFunc[P, I] {
	return func(ctx context.Context, input I) (Update[P], error) {
		final, err := child.Invoke(ctx, project(input))
		if err != nil {
			return Update[P]{}, fmt.Errorf("subgraph %q: %w", child.Name(), err)
		}
		return extract(input, final), nil
	}
}
