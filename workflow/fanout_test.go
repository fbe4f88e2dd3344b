package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spetersoncode/comicflow/event"
)

func fanOutGraph(t *testing.T, items []string, task TaskFunc[testState, string]) *Compiled[testState] {
	t.Helper()
	g := NewGraph("fanout", testSchema)
	g.AddNode("start", noop)
	AddTask(g, "work", task)
	g.AddNode("join", func(_ context.Context, s testState) (Update[testState], error) {
		return fCount.Set(len(s.Notes)), nil
	})
	g.AddEdge(Start, "start")
	g.AddFanOut("start", func(context.Context, testState) ([]Send, error) {
		sends := make([]Send, len(items))
		for i, it := range items {
			sends[i] = Send{Node: "work", Input: it}
		}
		return sends, nil
	}, "join")
	g.AddEdge("join", End)

	c, err := g.Compile()
	require.NoError(t, err)
	return c
}

func upper(_ context.Context, in string) (Update[testState], error) {
	return fNotes.Add("done:" + in), nil
}

func TestFanOut_MergesAllTasks(t *testing.T) {
	c := fanOutGraph(t, []string{"a", "b", "c"}, upper)

	final, err := c.Invoke(context.Background(), testState{})

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"done:a", "done:b", "done:c"}, final.Notes)
	assert.Equal(t, 3, final.Count, "join runs after every task is merged")
}

func TestFanOut_EmptySends(t *testing.T) {
	c := fanOutGraph(t, nil, upper)
	ch := event.NewChannel()

	final, err := c.Invoke(context.Background(), testState{Notes: []string{"x"}}, WithEvents(ch))

	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, final.Notes)
	assert.Equal(t, 1, final.Count)

	var sawEnd bool
	for _, e := range drain(ch) {
		if e.Type == event.ParallelEnd {
			sawEnd = true
		}
	}
	assert.True(t, sawEnd)
}

func TestFanOut_TaskError(t *testing.T) {
	boom := errors.New("boom")
	c := fanOutGraph(t, []string{"ok", "bad", "ok2"}, func(ctx context.Context, in string) (Update[testState], error) {
		if in == "bad" {
			return Update[testState]{}, boom
		}
		return fNotes.Add(in), nil
	})

	final, err := c.Invoke(context.Background(), testState{})

	require.ErrorIs(t, err, boom)
	var taskErr *TaskError
	require.True(t, errors.As(err, &taskErr))
	assert.Equal(t, "work", taskErr.Node)
	assert.Equal(t, 1, taskErr.Index)
	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, "start", stepErr.StepName)
	assert.Equal(t, `step "start" failed: task "work"[1] failed: boom`, err.Error())
	assert.Empty(t, final.Notes, "no partial merge on failure")
}

func TestFanOut_MaxConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	items := make([]string, 8)
	for i := range items {
		items[i] = fmt.Sprint(i)
	}
	c := fanOutGraph(t, items, func(_ context.Context, in string) (Update[testState], error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return fNotes.Add(in), nil
	})

	final, err := c.Invoke(context.Background(), testState{}, WithMaxConcurrency(2))

	require.NoError(t, err)
	assert.Len(t, final.Notes, 8)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestFanOut_RateLimit(t *testing.T) {
	c := fanOutGraph(t, []string{"a", "b", "c"}, upper)

	start := time.Now()
	_, err := c.Invoke(context.Background(), testState{}, WithRateLimit(20*time.Millisecond, 1))

	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 35*time.Millisecond)
}

func TestFanOut_UnknownTask(t *testing.T) {
	g := NewGraph("bad-send", testSchema)
	g.AddNode("start", noop)
	g.AddEdge(Start, "start")
	g.AddFanOut("start", func(context.Context, testState) ([]Send, error) {
		return []Send{{Node: "missing"}}, nil
	}, End)
	c, err := g.Compile()
	require.NoError(t, err)

	_, err = c.Invoke(context.Background(), testState{})
	assert.ErrorIs(t, err, ErrUnknownRoute)
}

func TestFanOut_WrongInputType(t *testing.T) {
	g := NewGraph("typed", testSchema)
	g.AddNode("start", noop)
	AddTask(g, "work", upper)
	g.AddEdge(Start, "start")
	g.AddFanOut("start", func(context.Context, testState) ([]Send, error) {
		return []Send{{Node: "work", Input: 42}}, nil
	}, End)
	c, err := g.Compile()
	require.NoError(t, err)

	_, err = c.Invoke(context.Background(), testState{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expects input string, got int")
}

func TestFanOut_TaskEvents(t *testing.T) {
	c := fanOutGraph(t, []string{"a", "b"}, upper)
	ch := event.NewChannel()

	_, err := c.Invoke(context.Background(), testState{}, WithEvents(ch))
	require.NoError(t, err)

	indexes := map[int]bool{}
	var count int
	for _, e := range drain(ch) {
		if e.Type == event.StepEnd && e.StepName == "work" {
			indexes[e.Index] = true
		}
		if e.Type == event.ParallelStart {
			count = e.Count
		}
	}
	assert.Equal(t, map[int]bool{0: true, 1: true}, indexes)
	assert.Equal(t, 2, count)
}

func TestFanOut_StreamReadAfterWait(t *testing.T) {
	items := make([]string, 300)
	for i := range items {
		items[i] = fmt.Sprintf("item-%d", i)
	}
	c := fanOutGraph(t, items, upper)

	t.Run("run end survives a full channel", func(t *testing.T) {
		run := c.Stream(context.Background(), testState{})
		final, err := run.Wait()
		require.NoError(t, err)
		assert.Equal(t, len(items), final.Count)

		var last event.Event
		var n int
		for e := range run.Events() {
			last = e
			n++
		}
		assert.Equal(t, cap(run.Events()), n, "step events beyond the buffer are dropped")
		assert.Equal(t, event.RunEnd, last.Type)
		assert.Equal(t, run.ID(), last.RunID)
	})

	t.Run("run error survives a full channel", func(t *testing.T) {
		failing := fanOutGraph(t, items, func(_ context.Context, in string) (Update[testState], error) {
			if in == "item-299" {
				return Update[testState]{}, errors.New("boom")
			}
			return fNotes.Add(in), nil
		})
		run := failing.Stream(context.Background(), testState{}, WithMaxConcurrency(1))
		_, err := run.Wait()
		require.Error(t, err)

		var last event.Event
		for e := range run.Events() {
			last = e
		}
		assert.Equal(t, event.RunError, last.Type)
		assert.ErrorContains(t, last.Error, "boom")
	})
}
