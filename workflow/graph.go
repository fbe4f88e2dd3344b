package workflow

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Reserved node names marking the entry and exit of a graph.
const (
	Start = "__start__"
	End   = "__end__"
)

// NodeFunc is a step: it reads the current state and returns the fields to update.
type NodeFunc[S any] func(ctx context.Context, state S) (Update[S], error)

// Router picks the next node name from the current state.
type Router[S any] func(ctx context.Context, state S) (string, error)

// Send directs one fan-out invocation of a task node with an isolated input.
type Send struct {
	Node  string
	Input any
}

// Dispatcher produces the fan-out sends for the current state. Returning no
// sends continues straight to the join node.
type Dispatcher[S any] func(ctx context.Context, state S) ([]Send, error)

// TaskFunc is a fan-out task. It receives only the input of its [Send].
type TaskFunc[S, I any] func(ctx context.Context, input I) (Update[S], error)

type transitionKind int

const (
	staticEdge transitionKind = iota
	conditionalEdge
	fanOutEdge
)

type transition[S any] struct {
	kind       transitionKind
	to         string
	router     Router[S]
	dests      map[string]bool
	dispatcher Dispatcher[S]
	join       string
}

type taskFunc[S any] func(ctx context.Context, input any) (Update[S], error)

// Graph is a mutable graph definition. Build it with the Add methods and
// call [Graph.Compile] to obtain a runnable graph. Builder problems are
// collected and reported by Compile.
type Graph[S any] struct {
	name     string
	schema   *Schema[S]
	nodes    map[string]NodeFunc[S]
	tasks    map[string]taskFunc[S]
	edges    map[string][]*transition[S]
	order    []string
	entry    string
	problems []string
}

// NewGraph creates an empty graph over the given state schema.
func NewGraph[S any](name string, schema *Schema[S]) *Graph[S] {
	return &Graph[S]{
		name:   name,
		schema: schema,
		nodes:  make(map[string]NodeFunc[S]),
		tasks:  make(map[string]taskFunc[S]),
		edges:  make(map[string][]*transition[S]),
	}
}

// Name returns the graph name.
func (g *Graph[S]) Name() string { return g.name }

func (g *Graph[S]) problem(format string, args ...any) {
	g.problems = append(g.problems, fmt.Sprintf(format, args...))
}

func (g *Graph[S]) claim(name string) bool {
	switch {
	case name == "":
		g.problem("node name must not be empty")
		return false
	case name == Start || name == End:
		g.problem("node name %q is reserved", name)
		return false
	}
	if _, ok := g.nodes[name]; ok {
		g.problem("duplicate node %q", name)
		return false
	}
	if _, ok := g.tasks[name]; ok {
		g.problem("duplicate node %q", name)
		return false
	}
	g.order = append(g.order, name)
	return true
}

// AddNode registers a step.
func (g *Graph[S]) AddNode(name string, fn NodeFunc[S]) *Graph[S] {
	if fn == nil {
		g.problem("node %q has nil function", name)
		return g
	}
	if g.claim(name) {
		g.nodes[name] = fn
	}
	return g
}

// AddTask registers a fan-out task node whose input type is I. Task nodes are
// reachable only through a [Send] and take no outgoing edges; their updates are
// merged before the fan-out's join node runs.
func AddTask[S, I any](g *Graph[S], name string, fn TaskFunc[S, I]) *Graph[S] {
	if fn == nil {
		g.problem("task %q has nil function", name)
		return g
	}
	if !g.claim(name) {
		return g
	}
	g.tasks[name] = func(ctx context.Context, input any) (Update[S], error) {
		in, ok := input.(I)
		if !ok {
			var want I
			return Update[S]{}, fmt.Errorf("task %q expects input %T, got %T", name, want, input)
		}
		return fn(ctx, in)
	}
	return g
}

// SetEntryPoint sets the first node to run.
func (g *Graph[S]) SetEntryPoint(name string) *Graph[S] {
	if g.entry != "" && g.entry != name {
		g.problem("entry point set twice (%q, %q)", g.entry, name)
		return g
	}
	g.entry = name
	return g
}

// AddEdge adds a static transition. An edge from [Start] sets the entry point.
func (g *Graph[S]) AddEdge(from, to string) *Graph[S] {
	if from == Start {
		return g.SetEntryPoint(to)
	}
	g.edges[from] = append(g.edges[from], &transition[S]{kind: staticEdge, to: to})
	return g
}

// AddConditionalEdge routes from a node to one of dests, chosen by router.
// Routing to a name outside dests fails the run with [ErrUnknownRoute].
func (g *Graph[S]) AddConditionalEdge(from string, router Router[S], dests ...string) *Graph[S] {
	if router == nil {
		g.problem("conditional edge from %q has nil router", from)
		return g
	}
	if len(dests) == 0 {
		g.problem("conditional edge from %q declares no destinations", from)
		return g
	}
	set := make(map[string]bool, len(dests))
	for _, d := range dests {
		set[d] = true
	}
	g.edges[from] = append(g.edges[from], &transition[S]{kind: conditionalEdge, router: router, dests: set})
	return g
}

// AddFanOut dispatches task invocations after from, then continues at join.
func (g *Graph[S]) AddFanOut(from string, dispatcher Dispatcher[S], join string) *Graph[S] {
	if dispatcher == nil {
		g.problem("fan-out from %q has nil dispatcher", from)
		return g
	}
	g.edges[from] = append(g.edges[from], &transition[S]{kind: fanOutEdge, dispatcher: dispatcher, join: join})
	return g
}

// Compile validates the graph and returns an immutable runnable copy.
func (g *Graph[S]) Compile() (*Compiled[S], error) {
	problems := append([]string(nil), g.problems...)
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	isNode := func(name string) bool { _, ok := g.nodes[name]; return ok }
	isTask := func(name string) bool { _, ok := g.tasks[name]; return ok }
	target := func(from, to string) {
		switch {
		case to == End || isNode(to):
		case isTask(to):
			add("edge %s -> %s: task nodes are reachable only through fan-out", from, to)
		default:
			add("edge %s -> %s: unknown node", from, to)
		}
	}

	if g.schema == nil {
		add("no state schema")
	}
	switch {
	case g.entry == "":
		add("no entry point")
	case !isNode(g.entry):
		add("entry point %q is not a node", g.entry)
	}

	froms := make([]string, 0, len(g.edges))
	for from := range g.edges {
		froms = append(froms, from)
	}
	sort.Strings(froms)
	for _, from := range froms {
		ts := g.edges[from]
		switch {
		case isTask(from):
			add("task %q must not have outgoing edges", from)
			continue
		case !isNode(from):
			add("edge from unknown node %q", from)
			continue
		case len(ts) > 1:
			add("node %q has %d outgoing transitions", from, len(ts))
		}
		for _, t := range ts {
			switch t.kind {
			case staticEdge:
				target(from, t.to)
			case conditionalEdge:
				for _, d := range sortedKeys(t.dests) {
					target(from, d)
				}
			case fanOutEdge:
				target(from, t.join)
			}
		}
	}
	for _, name := range g.order {
		if isNode(name) && len(g.edges[name]) == 0 {
			add("node %q has no outgoing transition", name)
		}
	}

	if len(problems) > 0 {
		return nil, &GraphError{Graph: g.name, Problems: problems}
	}

	c := &Compiled[S]{
		name:   g.name,
		schema: g.schema,
		entry:  g.entry,
		nodes:  make(map[string]NodeFunc[S], len(g.nodes)),
		tasks:  make(map[string]taskFunc[S], len(g.tasks)),
		next:   make(map[string]*transition[S], len(g.edges)),
	}
	for k, v := range g.nodes {
		c.nodes[k] = v
	}
	for k, v := range g.tasks {
		c.tasks[k] = v
	}
	for k, v := range g.edges {
		c.next[k] = v[0]
	}
	return c, nil
}

// Passthrough returns a node that changes nothing. It is useful as a join or
// routing point.
func Passthrough[S any]() NodeFunc[S] {
	return func(context.Context, S) (Update[S], error) {
		return Update[S]{}, nil
	}
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func joinNames(names []string) string {
	return strings.Join(names, ", ")
}
