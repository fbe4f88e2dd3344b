package event

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmit(t *testing.T) {
	t.Run("sets timestamp", func(t *testing.T) {
		ch := NewChannel()
		Emit(ch, Event{Type: StepStart, StepName: "plan_story"})

		e := <-ch
		assert.Equal(t, StepStart, e.Type)
		assert.Equal(t, "plan_story", e.StepName)
		assert.False(t, e.Timestamp.IsZero())
	})

	t.Run("drops when full", func(t *testing.T) {
		ch := make(chan Event, 1)
		Emit(ch, Event{Type: RunStart})
		Emit(ch, Event{Type: RunEnd})

		assert.Len(t, ch, 1)
		assert.Equal(t, RunStart, (<-ch).Type)
	})

	t.Run("keeps the last slot for the terminal event", func(t *testing.T) {
		ch := make(chan Event, 3)
		for range 5 {
			Emit(ch, Event{Type: StepStart})
		}
		assert.Len(t, ch, 2)

		Emit(ch, Event{Type: RunEnd})
		assert.Len(t, ch, 3)
		<-ch
		<-ch
		assert.Equal(t, RunEnd, (<-ch).Type)
	})

	t.Run("nil channel is a no-op", func(t *testing.T) {
		assert.NotPanics(t, func() {
			Emit(nil, Event{Type: RunStart})
		})
	})
}

func TestTerminal(t *testing.T) {
	assert.True(t, RunEnd.Terminal())
	assert.True(t, RunError.Terminal())
	assert.False(t, RunStart.Terminal())
	assert.False(t, StepEnd.Terminal())
}

func TestDeliver(t *testing.T) {
	t.Run("waits for room", func(t *testing.T) {
		ch := make(chan Event, 1)
		ch <- Event{Type: StepEnd}

		go func() {
			time.Sleep(20 * time.Millisecond)
			<-ch
		}()
		require.True(t, Deliver(context.Background(), ch, Event{Type: RunEnd}))

		e := <-ch
		assert.Equal(t, RunEnd, e.Type)
		assert.False(t, e.Timestamp.IsZero())
	})

	t.Run("gives up when the context is done", func(t *testing.T) {
		ch := make(chan Event, 1)
		ch <- Event{Type: StepEnd}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.False(t, Deliver(ctx, ch, Event{Type: RunEnd}))
		assert.False(t, Deliver(ctx, nil, Event{Type: RunEnd}))
	})
}
