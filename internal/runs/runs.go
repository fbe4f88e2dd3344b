// Package runs keeps the results of recent pipeline runs in memory for the
// dev server. Entries expire after a TTL; nothing is persisted.
package runs

import (
	"errors"
	"sort"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/spetersoncode/comicflow/story"
)

// ErrNotFound indicates the run is unknown or has expired.
var ErrNotFound = errors.New("runs: run not found")

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Record is the registry entry of one run.
type Record struct {
	ID         string             `json:"runId"`
	Status     Status             `json:"status"`
	StartedAt  time.Time          `json:"startedAt"`
	FinishedAt time.Time          `json:"finishedAt,omitzero"`
	Output     *story.FinalOutput `json:"finalOutput,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// Registry is a TTL registry of run records. It is safe for concurrent use.
type Registry struct {
	c   *cache.Cache
	now func() time.Time
}

// New creates a registry whose entries expire ttl after their last write.
func New(ttl time.Duration) *Registry {
	return &Registry{
		c:   cache.New(ttl, 2*ttl),
		now: time.Now,
	}
}

// Start records a running run.
func (r *Registry) Start(id string) Record {
	rec := Record{ID: id, Status: StatusRunning, StartedAt: r.now()}
	r.c.SetDefault(id, rec)
	return rec
}

// Finish records the outcome of a run. A run finished without Start is
// recorded with its finish time as start time.
func (r *Registry) Finish(id string, out *story.FinalOutput, err error) Record {
	rec, ok := r.Get(id)
	if !ok {
		rec = Record{ID: id, StartedAt: r.now()}
	}
	rec.FinishedAt = r.now()
	if err != nil {
		rec.Status = StatusFailed
		rec.Error = err.Error()
	} else {
		rec.Status = StatusSucceeded
		rec.Output = out
	}
	r.c.SetDefault(id, rec)
	return rec
}

// Get returns the record of a run.
func (r *Registry) Get(id string) (Record, bool) {
	v, ok := r.c.Get(id)
	if !ok {
		return Record{}, false
	}
	return v.(Record), true
}

// Lookup is Get returning ErrNotFound for unknown runs.
func (r *Registry) Lookup(id string) (Record, error) {
	rec, ok := r.Get(id)
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// List returns the live records, most recently started first.
func (r *Registry) List() []Record {
	items := r.c.Items()
	out := make([]Record, 0, len(items))
	for _, item := range items {
		out = append(out, item.Object.(Record))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}

// Len returns the number of live records, including expired ones not yet cleaned up.
func (r *Registry) Len() int { return r.c.ItemCount() }
