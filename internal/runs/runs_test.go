package runs

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spetersoncode/comicflow/story"
)

func TestRegistryLifecycle(t *testing.T) {
	r := New(time.Minute)

	rec := r.Start("run-1")
	assert.Equal(t, StatusRunning, rec.Status)

	got, ok := r.Get("run-1")
	require.True(t, ok)
	assert.Equal(t, StatusRunning, got.Status)

	out := &story.FinalOutput{Title: "The Last Redwood"}
	rec = r.Finish("run-1", out, nil)
	assert.Equal(t, StatusSucceeded, rec.Status)
	assert.Equal(t, got.StartedAt, rec.StartedAt)
	assert.False(t, rec.FinishedAt.IsZero())

	got, err := r.Lookup("run-1")
	require.NoError(t, err)
	assert.Equal(t, out, got.Output)
	assert.Empty(t, got.Error)
}

func TestRegistryFailure(t *testing.T) {
	r := New(time.Minute)
	r.Start("run-2")
	rec := r.Finish("run-2", nil, errors.New(`step "plan_story" failed`))
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Nil(t, rec.Output)
	assert.Contains(t, rec.Error, "plan_story")
}

func TestRegistryUnknown(t *testing.T) {
	r := New(time.Minute)
	_, err := r.Lookup("nope")
	assert.ErrorIs(t, err, ErrNotFound)

	rec := r.Finish("late", &story.FinalOutput{}, nil)
	assert.Equal(t, StatusSucceeded, rec.Status)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryExpires(t *testing.T) {
	r := New(20 * time.Millisecond)
	r.Start("run-3")
	time.Sleep(40 * time.Millisecond)
	_, ok := r.Get("run-3")
	assert.False(t, ok)
}

func TestRegistryList(t *testing.T) {
	r := New(time.Minute)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	r.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	r.Start("a")
	r.Start("b")
	r.Start("c")

	var ids []string
	for _, rec := range r.List() {
		ids = append(ids, rec.ID)
	}
	assert.Equal(t, []string{"c", "b", "a"}, ids)
}
