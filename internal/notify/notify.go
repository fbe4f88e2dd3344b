// Package notify publishes pipeline run lifecycle events to an MQTT broker,
// so displays and other listeners can follow runs as they progress.
package notify

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spetersoncode/comicflow/event"
)

// Publisher sends a payload to a topic.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Message is the JSON payload published for one event.
type Message struct {
	RunID     string    `json:"runId"`
	Type      string    `json:"type"`
	Graph     string    `json:"graph,omitempty"`
	Step      string    `json:"step,omitempty"`
	Index     *int      `json:"index,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier publishes run events under a topic prefix as
// <prefix>/<run id>/<event type>.
type Notifier struct {
	pub    Publisher
	prefix string
}

// New creates a notifier publishing through pub.
func New(pub Publisher, prefix string) *Notifier {
	return &Notifier{pub: pub, prefix: strings.TrimSuffix(prefix, "/")}
}

// Relevant reports whether e is published: run lifecycle events and
// completed steps. Routing and fan-out bookkeeping stay local.
func Relevant(e event.Event) bool {
	switch e.Type {
	case event.RunStart, event.RunEnd, event.RunError, event.StepEnd:
		return true
	default:
		return false
	}
}

// Topic returns the topic an event is published to.
func (n *Notifier) Topic(e event.Event) string {
	return fmt.Sprintf("%s/%s/%s", n.prefix, e.RunID, e.Type)
}

// Notify publishes e if it is relevant.
func (n *Notifier) Notify(e event.Event) error {
	if !Relevant(e) {
		return nil
	}
	msg := Message{
		RunID:     e.RunID,
		Type:      string(e.Type),
		Graph:     e.Graph,
		Step:      e.StepName,
		Timestamp: e.Timestamp,
	}
	if e.Index >= 0 && e.StepName != "" {
		idx := e.Index
		msg.Index = &idx
	}
	if e.Error != nil {
		msg.Error = e.Error.Error()
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", e.Type, err)
	}
	if err := n.pub.Publish(n.Topic(e), payload); err != nil {
		return fmt.Errorf("publish %s event: %w", e.Type, err)
	}
	return nil
}
