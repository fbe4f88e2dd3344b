package notify

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spetersoncode/comicflow/event"
)

type published struct {
	topic   string
	payload []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (f *fakePublisher) Publish(topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{topic: topic, payload: payload})
	return nil
}

func TestNotify(t *testing.T) {
	pub := &fakePublisher{}
	n := New(pub, "comicflow/runs/")
	ts := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

	evs := []event.Event{
		{Type: event.RunStart, RunID: "run-1", Graph: "comic_story", Index: -1, Timestamp: ts},
		{Type: event.StepStart, RunID: "run-1", StepName: "plan_story", Index: -1},
		{Type: event.RouteSelected, RunID: "run-1", StepName: "critique_plan", RouteName: "write_scenes", Index: -1},
		{Type: event.StepEnd, RunID: "run-1", Graph: "comic_story", StepName: "write_scene", Index: 2},
		{Type: event.RunError, RunID: "run-1", Index: -1, Error: errors.New("boom")},
	}
	for _, e := range evs {
		require.NoError(t, n.Notify(e))
	}

	require.Len(t, pub.sent, 3)
	assert.Equal(t, "comicflow/runs/run-1/run_start", pub.sent[0].topic)
	assert.Equal(t, "comicflow/runs/run-1/step_end", pub.sent[1].topic)
	assert.Equal(t, "comicflow/runs/run-1/run_error", pub.sent[2].topic)

	var msg Message
	require.NoError(t, json.Unmarshal(pub.sent[1].payload, &msg))
	assert.Equal(t, "write_scene", msg.Step)
	require.NotNil(t, msg.Index)
	assert.Equal(t, 2, *msg.Index)

	require.NoError(t, json.Unmarshal(pub.sent[0].payload, &msg))
	assert.True(t, ts.Equal(msg.Timestamp))

	msg = Message{}
	require.NoError(t, json.Unmarshal(pub.sent[2].payload, &msg))
	assert.Equal(t, "boom", msg.Error)
	assert.Nil(t, msg.Index)
}

func TestNotifyPublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	err := New(pub, "x").Notify(event.Event{Type: event.RunEnd, RunID: "r", Index: -1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestNewMQTTDoesNotConnect(t *testing.T) {
	c := NewMQTT("tcp://127.0.0.1:1", "comicflow-test")
	assert.Equal(t, "tcp://127.0.0.1:1", c.Broker())
	assert.False(t, c.IsConnected())
}

func TestTimeoutError(t *testing.T) {
	err := &TimeoutError{Op: "publish", Target: "a/b"}
	assert.Equal(t, "mqtt publish timeout: a/b", err.Error())
}
