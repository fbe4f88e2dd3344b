package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, testState) (Update[testState], error) {
	return Update[testState]{}, nil
}

func toEnd(context.Context, testState) (string, error) {
	return End, nil
}

func noSends(context.Context, testState) ([]Send, error) {
	return nil, nil
}

func TestCompile(t *testing.T) {
	tests := []struct {
		name  string
		build func(g *Graph[testState])
		want  string
	}{
		{
			name:  "no entry point",
			build: func(g *Graph[testState]) { g.AddNode("a", noop).AddEdge("a", End) },
			want:  "no entry point",
		},
		{
			name: "entry point is not a node",
			build: func(g *Graph[testState]) {
				g.AddNode("a", noop).AddEdge("a", End).SetEntryPoint("missing")
			},
			want: `entry point "missing" is not a node`,
		},
		{
			name: "edge to unknown node",
			build: func(g *Graph[testState]) {
				g.AddNode("a", noop).AddEdge(Start, "a").AddEdge("a", "b")
			},
			want: "a -> b: unknown node",
		},
		{
			name: "edge from unknown node",
			build: func(g *Graph[testState]) {
				g.AddNode("a", noop).AddEdge(Start, "a").AddEdge("a", End).AddEdge("ghost", End)
			},
			want: `edge from unknown node "ghost"`,
		},
		{
			name: "dangling node",
			build: func(g *Graph[testState]) {
				g.AddNode("a", noop).AddNode("b", noop).AddEdge(Start, "a").AddEdge("a", End)
			},
			want: `node "b" has no outgoing transition`,
		},
		{
			name: "two transitions",
			build: func(g *Graph[testState]) {
				g.AddNode("a", noop).AddEdge(Start, "a").AddEdge("a", End).AddConditionalEdge("a", toEnd, End)
			},
			want: `node "a" has 2 outgoing transitions`,
		},
		{
			name: "undeclared router destination",
			build: func(g *Graph[testState]) {
				g.AddNode("a", noop).AddEdge(Start, "a").AddConditionalEdge("a", toEnd, End, "nowhere")
			},
			want: "a -> nowhere: unknown node",
		},
		{
			name: "router without destinations",
			build: func(g *Graph[testState]) {
				g.AddNode("a", noop).AddEdge(Start, "a").AddConditionalEdge("a", toEnd)
			},
			want: "declares no destinations",
		},
		{
			name: "reserved name",
			build: func(g *Graph[testState]) {
				g.AddNode(End, noop).AddNode("a", noop).AddEdge(Start, "a").AddEdge("a", End)
			},
			want: `"__end__" is reserved`,
		},
		{
			name: "duplicate node",
			build: func(g *Graph[testState]) {
				g.AddNode("a", noop).AddNode("a", noop).AddEdge(Start, "a").AddEdge("a", End)
			},
			want: `duplicate node "a"`,
		},
		{
			name: "edge into task",
			build: func(g *Graph[testState]) {
				AddTask(g, "t", func(context.Context, int) (Update[testState], error) { return Update[testState]{}, nil })
				g.AddNode("a", noop).AddEdge(Start, "a").AddEdge("a", "t")
			},
			want: "task nodes are reachable only through fan-out",
		},
		{
			name: "edge out of task",
			build: func(g *Graph[testState]) {
				AddTask(g, "t", func(context.Context, int) (Update[testState], error) { return Update[testState]{}, nil })
				g.AddNode("a", noop).AddEdge(Start, "a").AddFanOut("a", noSends, End).AddEdge("t", End)
			},
			want: `task "t" must not have outgoing edges`,
		},
		{
			name: "unknown join",
			build: func(g *Graph[testState]) {
				g.AddNode("a", noop).AddEdge(Start, "a").AddFanOut("a", noSends, "join")
			},
			want: "a -> join: unknown node",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGraph("test", testSchema)
			tt.build(g)

			c, err := g.Compile()
			require.Error(t, err)
			assert.Nil(t, c)
			assert.True(t, errors.Is(err, ErrInvalidGraph))

			var ge *GraphError
			require.True(t, errors.As(err, &ge))
			assert.Equal(t, "test", ge.Graph)
			found := false
			for _, p := range ge.Problems {
				if strings.Contains(p, tt.want) {
					found = true
				}
			}
			if !found {
				t.Errorf("problems %q do not mention %q", ge.Problems, tt.want)
			}
		})
	}
}

func TestCompile_Valid(t *testing.T) {
	g := NewGraph("valid", testSchema)
	g.AddNode("a", noop)
	g.AddNode("b", Passthrough[testState]())
	g.AddEdge(Start, "a")
	g.AddConditionalEdge("a", func(context.Context, testState) (string, error) { return "b", nil }, "b", End)
	g.AddEdge("b", End)

	c, err := g.Compile()
	require.NoError(t, err)
	assert.Equal(t, "valid", c.Name())
	assert.Same(t, testSchema, c.Schema())
}
