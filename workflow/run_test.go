package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spetersoncode/comicflow/event"
)

func counterGraph(t *testing.T, limit int) *Compiled[testState] {
	t.Helper()
	g := NewGraph("counter", testSchema)
	g.AddNode("increment", func(_ context.Context, s testState) (Update[testState], error) {
		return fCount.Set(s.Count + 1).And(fNotes.Add("tick")), nil
	})
	g.AddEdge(Start, "increment")
	g.AddConditionalEdge("increment", func(_ context.Context, s testState) (string, error) {
		if s.Count >= limit {
			return End, nil
		}
		return "increment", nil
	}, "increment", End)

	c, err := g.Compile()
	require.NoError(t, err)
	return c
}

func drain(ch <-chan event.Event) []event.Event {
	var out []event.Event
	for {
		select {
		case e := <-ch:
			out = append(out, e)
		default:
			return out
		}
	}
}

func TestInvoke_Linear(t *testing.T) {
	g := NewGraph("linear", testSchema)
	g.AddNode("name", func(context.Context, testState) (Update[testState], error) {
		return fTopic.Set("comics"), nil
	})
	g.AddNode("note", func(_ context.Context, s testState) (Update[testState], error) {
		return fNotes.Add("about " + s.Topic), nil
	})
	g.AddEdge(Start, "name")
	g.AddEdge("name", "note")
	g.AddEdge("note", End)
	c, err := g.Compile()
	require.NoError(t, err)

	initial := testState{Notes: []string{"seed"}}
	final, err := c.Invoke(context.Background(), initial)

	require.NoError(t, err)
	assert.Equal(t, "comics", final.Topic)
	assert.Equal(t, []string{"seed", "about comics"}, final.Notes)
	assert.Equal(t, []string{"seed"}, initial.Notes)
}

func TestInvoke_ConditionalLoop(t *testing.T) {
	final, err := counterGraph(t, 3).Invoke(context.Background(), testState{})

	require.NoError(t, err)
	assert.Equal(t, 3, final.Count)
	assert.Len(t, final.Notes, 3)
}

func TestInvoke_StepLimit(t *testing.T) {
	final, err := counterGraph(t, 1000).Invoke(context.Background(), testState{}, WithMaxSteps(5))

	require.ErrorIs(t, err, ErrStepLimit)
	assert.Equal(t, 5, final.Count)
}

func TestInvoke_DefaultStepLimit(t *testing.T) {
	final, err := counterGraph(t, 1000).Invoke(context.Background(), testState{})

	require.ErrorIs(t, err, ErrStepLimit)
	assert.Equal(t, DefaultMaxSteps, final.Count)
}

func TestInvoke_UnknownRoute(t *testing.T) {
	g := NewGraph("routes", testSchema)
	g.AddNode("a", noop)
	g.AddNode("b", noop)
	g.AddEdge(Start, "a")
	g.AddConditionalEdge("a", func(context.Context, testState) (string, error) {
		return "c", nil
	}, "b", End)
	g.AddEdge("b", End)
	c, err := g.Compile()
	require.NoError(t, err)

	_, err = c.Invoke(context.Background(), testState{})

	require.ErrorIs(t, err, ErrUnknownRoute)
	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, "a", stepErr.StepName)
	assert.Contains(t, err.Error(), `"c"`)
}

func TestInvoke_StepError(t *testing.T) {
	boom := errors.New("boom")
	g := NewGraph("failing", testSchema)
	g.AddNode("first", func(context.Context, testState) (Update[testState], error) {
		return fTopic.Set("kept"), nil
	})
	g.AddNode("second", func(context.Context, testState) (Update[testState], error) {
		return fTopic.Set("dropped"), boom
	})
	g.AddEdge(Start, "first")
	g.AddEdge("first", "second")
	g.AddEdge("second", End)
	c, err := g.Compile()
	require.NoError(t, err)

	final, err := c.Invoke(context.Background(), testState{})

	require.ErrorIs(t, err, boom)
	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, "second", stepErr.StepName)
	assert.Equal(t, "kept", final.Topic)
}

func TestInvoke_RouterError(t *testing.T) {
	boom := errors.New("no route")
	g := NewGraph("router", testSchema)
	g.AddNode("a", noop)
	g.AddEdge(Start, "a")
	g.AddConditionalEdge("a", func(context.Context, testState) (string, error) { return "", boom }, End)
	c, err := g.Compile()
	require.NoError(t, err)

	_, err = c.Invoke(context.Background(), testState{})
	assert.ErrorIs(t, err, boom)
}

func TestInvoke_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := counterGraph(t, 3).Invoke(ctx, testState{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInvoke_StepTimeout(t *testing.T) {
	g := NewGraph("slow", testSchema)
	g.AddNode("wait", func(ctx context.Context, _ testState) (Update[testState], error) {
		select {
		case <-ctx.Done():
			return Update[testState]{}, ctx.Err()
		case <-time.After(time.Second):
			return Update[testState]{}, nil
		}
	})
	g.AddEdge(Start, "wait")
	g.AddEdge("wait", End)
	c, err := g.Compile()
	require.NoError(t, err)

	_, err = c.Invoke(context.Background(), testState{}, WithStepTimeout(10*time.Millisecond))

	require.ErrorIs(t, err, ErrStepTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInvoke_Events(t *testing.T) {
	ch := event.NewChannel()
	_, err := counterGraph(t, 2).Invoke(context.Background(), testState{}, WithEvents(ch), WithRunID("run-1"))
	require.NoError(t, err)

	events := drain(ch)
	var types []event.Type
	for _, e := range events {
		types = append(types, e.Type)
		assert.Equal(t, "counter", e.Graph)
		assert.Equal(t, "run-1", e.RunID)
		assert.Equal(t, -1, e.Index)
	}
	assert.Equal(t, []event.Type{
		event.RunStart,
		event.StepStart, event.StepEnd, event.RouteSelected,
		event.StepStart, event.StepEnd, event.RouteSelected,
		event.RunEnd,
	}, types)
	assert.Equal(t, "increment", events[3].RouteName)
	assert.Equal(t, End, events[6].RouteName)
	assert.Equal(t, 2, events[7].Steps)
}

func TestInvoke_RunErrorEvent(t *testing.T) {
	ch := event.NewChannel()
	_, err := counterGraph(t, 100).Invoke(context.Background(), testState{}, WithEvents(ch), WithMaxSteps(1))
	require.Error(t, err)

	events := drain(ch)
	last := events[len(events)-1]
	assert.Equal(t, event.RunError, last.Type)
	assert.ErrorIs(t, last.Error, ErrStepLimit)
}

func TestStream(t *testing.T) {
	run := counterGraph(t, 2).Stream(context.Background(), testState{}, WithRunID("stream-1"))
	assert.Equal(t, "stream-1", run.ID())

	var types []event.Type
	for e := range run.Events() {
		types = append(types, e.Type)
	}
	final, err := run.Wait()

	require.NoError(t, err)
	assert.Equal(t, 2, final.Count)
	require.NotEmpty(t, types)
	assert.Equal(t, event.RunStart, types[0])
	assert.Equal(t, event.RunEnd, types[len(types)-1])
}

func TestStream_GeneratesRunID(t *testing.T) {
	run := counterGraph(t, 1).Stream(context.Background(), testState{})
	_, err := run.Wait()
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID())

	for e := range run.Events() {
		assert.Equal(t, run.ID(), e.RunID)
	}
}
