package agui

import (
	"errors"
	"testing"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spetersoncode/comicflow/event"
)

func jsonOf(t *testing.T, ev events.Event) string {
	t.Helper()
	data, err := ev.ToJSON()
	require.NoError(t, err)
	return string(data)
}

func types(evs []events.Event) []events.EventType {
	out := make([]events.EventType, len(evs))
	for i, ev := range evs {
		out[i] = ev.Type()
	}
	return out
}

func collect(ch <-chan events.Event) []events.Event {
	var out []events.Event
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func feed(evs ...event.Event) <-chan event.Event {
	ch := make(chan event.Event, len(evs))
	for _, e := range evs {
		ch <- e
	}
	close(ch)
	return ch
}

func TestNewMapper(t *testing.T) {
	m := NewMapper("thread-123", "run-456")
	assert.Equal(t, "thread-123", m.ThreadID())
	assert.Equal(t, "run-456", m.RunID())

	m = NewMapper("", "")
	assert.NotEmpty(t, m.ThreadID())
	assert.NotEmpty(t, m.RunID())
}

func TestMapEvent(t *testing.T) {
	m := NewMapper("thread-1", "run-1")
	require.NotNil(t, m.MapEvent(event.Event{Type: event.RunStart, Graph: "comic_story", Index: -1}))

	tests := []struct {
		name     string
		in       event.Event
		want     events.EventType
		wantStep string
	}{
		{
			name:     "root step",
			in:       event.Event{Type: event.StepStart, Graph: "comic_story", StepName: "plan_story", Index: -1},
			want:     events.EventTypeStepStarted,
			wantStep: `"plan_story"`,
		},
		{
			name:     "fan-out task",
			in:       event.Event{Type: event.StepEnd, Graph: "comic_story", StepName: "write_scene", Index: 1},
			want:     events.EventTypeStepFinished,
			wantStep: `"write_scene[1]"`,
		},
		{
			name:     "sub-graph step",
			in:       event.Event{Type: event.StepStart, Graph: "scene_visual", StepName: "describe_visual", Index: -1},
			want:     events.EventTypeStepStarted,
			wantStep: `"scene_visual/describe_visual"`,
		},
		{
			name: "run end",
			in:   event.Event{Type: event.RunEnd, Graph: "comic_story", Index: -1},
			want: events.EventTypeRunFinished,
		},
		{
			name: "run error",
			in:   event.Event{Type: event.RunError, Error: errors.New("boom"), Index: -1},
			want: events.EventTypeRunError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := m.MapEvent(tt.in)
			require.NotNil(t, ev)
			assert.Equal(t, tt.want, ev.Type())
			if tt.wantStep != "" {
				assert.Contains(t, jsonOf(t, ev), tt.wantStep)
			}
		})
	}

	for _, typ := range []event.Type{event.RouteSelected, event.ParallelStart, event.ParallelEnd} {
		assert.Nil(t, m.MapEvent(event.Event{Type: typ}), typ)
	}
}

func TestRunError(t *testing.T) {
	m := NewMapper("thread-1", "run-1")
	assert.Contains(t, jsonOf(t, m.RunError(errors.New("scene 2 failed"))), "scene 2 failed")
	assert.Contains(t, jsonOf(t, m.RunError(nil)), "unknown error")
}

func TestMapStream(t *testing.T) {
	m := NewMapper("thread-1", "run-1")
	out := collect(m.MapStream(feed(
		event.Event{Type: event.RunStart, Graph: "g", Index: -1},
		event.Event{Type: event.StepStart, Graph: "g", StepName: "a", Index: -1},
		event.Event{Type: event.StepEnd, Graph: "g", StepName: "a", Index: -1},
		event.Event{Type: event.RouteSelected, Graph: "g", StepName: "a", RouteName: "b", Index: -1},
		event.Event{Type: event.RunEnd, Graph: "g", Index: -1},
	)))
	assert.Equal(t, []events.EventType{
		events.EventTypeRunStarted,
		events.EventTypeStepStarted,
		events.EventTypeStepFinished,
		events.EventTypeRunFinished,
	}, types(out))
}

func TestMapRun(t *testing.T) {
	run := func() <-chan event.Event {
		return feed(
			event.Event{Type: event.RunStart, Graph: "g", Index: -1},
			event.Event{Type: event.StepStart, Graph: "g", StepName: "a", Index: -1},
			event.Event{Type: event.StepEnd, Graph: "g", StepName: "a", Index: -1},
			event.Event{Type: event.RunEnd, Graph: "g", Index: -1},
		)
	}

	t.Run("output before finish", func(t *testing.T) {
		m := NewMapper("thread-1", "run-1")
		out := collect(m.MapRun(run(), func() (any, error) {
			return map[string]string{"title": "The Last Redwood"}, nil
		}))
		assert.Equal(t, []events.EventType{
			events.EventTypeRunStarted,
			events.EventTypeStepStarted,
			events.EventTypeStepFinished,
			events.EventTypeTextMessageStart,
			events.EventTypeTextMessageContent,
			events.EventTypeTextMessageEnd,
			events.EventTypeRunFinished,
		}, types(out))
		assert.Contains(t, jsonOf(t, out[4]), "The Last Redwood")
	})

	t.Run("result error", func(t *testing.T) {
		m := NewMapper("thread-1", "run-1")
		out := collect(m.MapRun(run(), func() (any, error) {
			return nil, errors.New("no output")
		}))
		require.NotEmpty(t, out)
		last := out[len(out)-1]
		assert.Equal(t, events.EventTypeRunError, last.Type())
		assert.Contains(t, jsonOf(t, last), "no output")
	})
}

func TestMapRun_MissingTerminalEvent(t *testing.T) {
	cut := func() <-chan event.Event {
		return feed(
			event.Event{Type: event.RunStart, Graph: "g", Index: -1},
			event.Event{Type: event.StepStart, Graph: "g", StepName: "a", Index: -1},
		)
	}

	t.Run("finishes from result", func(t *testing.T) {
		m := NewMapper("thread-1", "run-1")
		out := collect(m.MapRun(cut(), func() (any, error) {
			return map[string]string{"title": "The Last Redwood"}, nil
		}))
		assert.Equal(t, []events.EventType{
			events.EventTypeRunStarted,
			events.EventTypeStepStarted,
			events.EventTypeTextMessageStart,
			events.EventTypeTextMessageContent,
			events.EventTypeTextMessageEnd,
			events.EventTypeRunFinished,
		}, types(out))
		assert.Contains(t, jsonOf(t, out[3]), "The Last Redwood")
	})

	t.Run("fails from result", func(t *testing.T) {
		m := NewMapper("thread-1", "run-1")
		out := collect(m.MapRun(cut(), func() (any, error) {
			return nil, errors.New("scene 7 failed")
		}))
		require.Len(t, out, 3)
		assert.Equal(t, events.EventTypeRunError, out[2].Type())
		assert.Contains(t, jsonOf(t, out[2]), "scene 7 failed")
	})

	t.Run("run error is not repeated", func(t *testing.T) {
		m := NewMapper("thread-1", "run-1")
		in := feed(
			event.Event{Type: event.RunStart, Graph: "g", Index: -1},
			event.Event{Type: event.RunError, Graph: "g", Index: -1, Message: "boom", Error: errors.New("boom")},
		)
		calls := 0
		out := collect(m.MapRun(in, func() (any, error) {
			calls++
			return nil, errors.New("boom")
		}))
		assert.Equal(t, 0, calls)
		assert.Equal(t, []events.EventType{
			events.EventTypeRunStarted,
			events.EventTypeRunError,
		}, types(out))
	})
}
