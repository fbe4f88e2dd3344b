// Package workflow executes directed graphs of named steps over a typed state value.
//
// A graph is built from a [Schema] that declares every state field and its merge
// policy: replace (last write wins) or append (concatenate). Steps receive the
// full current state by value and return an [Update], a list of typed field
// writes that the engine merges after the step returns.
//
//	type State struct {
//	    Topic  string
//	    Drafts []string
//	}
//
//	schema := workflow.NewSchema[State]()
//	topic := workflow.Replace(schema, "topic", func(s *State) *string { return &s.Topic })
//	drafts := workflow.Append(schema, "drafts", func(s *State) *[]string { return &s.Drafts })
//
//	g := workflow.NewGraph("drafting", schema)
//	g.AddNode("draft", func(ctx context.Context, s State) (workflow.Update[State], error) {
//	    return drafts.Add("draft about " + s.Topic), nil
//	})
//	g.AddEdge(workflow.Start, "draft")
//	g.AddEdge("draft", workflow.End)
//
//	compiled, err := g.Compile()
//	final, err := compiled.Invoke(ctx, State{Topic: "redwoods"})
//
// # Transitions
//
// Each node has exactly one outgoing transition:
//
//   - [Graph.AddEdge]: static edge to the next node or [End]
//   - [Graph.AddConditionalEdge]: a [Router] picks one of a declared set of
//     destinations at run time
//   - [Graph.AddFanOut]: a [Dispatcher] returns [Send] values naming task nodes
//     (registered with [AddTask]) and their isolated inputs; every task runs,
//     their updates are merged, and execution continues at the join node
//
// # Sub-graphs
//
// [SubgraphNode] and [SubgraphTask] run a separately compiled graph with its
// own state type as a single step. The child sees only the projected initial
// state and the parent sees only the update extracted from the child's final state.
//
// # Errors
//
// Step failures are wrapped in [*StepError]. A failed fan-out task is a
// [*TaskError] inside the StepError of the node that dispatched it. A router returning an undeclared destination fails with
// [ErrUnknownRoute] and a run that exceeds its step budget with [ErrStepLimit].
package workflow
