package agui

import (
	"encoding/json"
	"fmt"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"

	"github.com/spetersoncode/comicflow/event"
)

// RoleAssistant is the AG-UI role of output messages.
const RoleAssistant = "assistant"

// Mapper converts workflow events of one run to AG-UI events.
type Mapper struct {
	threadID string
	runID    string
	graph    string
}

// NewMapper creates a new Mapper for a single run.
// The threadID and runID are used in lifecycle events (RUN_STARTED, RUN_FINISHED).
func NewMapper(threadID, runID string) *Mapper {
	if threadID == "" {
		threadID = events.GenerateThreadID()
	}
	if runID == "" {
		runID = events.GenerateRunID()
	}
	return &Mapper{
		threadID: threadID,
		runID:    runID,
	}
}

// ThreadID returns the thread ID for this mapper.
func (m *Mapper) ThreadID() string {
	return m.threadID
}

// RunID returns the run ID for this mapper.
func (m *Mapper) RunID() string {
	return m.runID
}

// RunStarted returns a RUN_STARTED event.
func (m *Mapper) RunStarted() events.Event {
	return events.NewRunStartedEvent(m.threadID, m.runID)
}

// RunFinished returns a RUN_FINISHED event.
func (m *Mapper) RunFinished() events.Event {
	return events.NewRunFinishedEvent(m.threadID, m.runID)
}

// RunError returns a RUN_ERROR event.
func (m *Mapper) RunError(err error) events.Event {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return events.NewRunErrorEvent(msg)
}

// MapEvent converts a workflow event to an AG-UI event.
// Returns nil for events that have no AG-UI equivalent.
func (m *Mapper) MapEvent(e event.Event) events.Event {
	switch e.Type {
	case event.RunStart:
		m.graph = e.Graph
		return m.RunStarted()
	case event.RunEnd:
		return m.RunFinished()
	case event.RunError:
		return m.RunError(e.Error)

	case event.StepStart:
		return events.NewStepStartedEvent(m.stepName(e))
	case event.StepEnd:
		return events.NewStepFinishedEvent(m.stepName(e))

	default:
		return nil
	}
}

// stepName qualifies a step with its fan-out index and, outside the root
// graph, its graph name.
func (m *Mapper) stepName(e event.Event) string {
	name := e.StepName
	if e.Index >= 0 {
		name = fmt.Sprintf("%s[%d]", name, e.Index)
	}
	if e.Graph != "" && m.graph != "" && e.Graph != m.graph {
		name = e.Graph + "/" + name
	}
	return name
}

// MapStream converts a workflow event stream, dropping events without an
// AG-UI equivalent. The returned channel closes when in closes.
func (m *Mapper) MapStream(in <-chan event.Event) <-chan events.Event {
	out := make(chan events.Event)
	go func() {
		defer close(out)
		for e := range in {
			if ev := m.MapEvent(e); ev != nil {
				out <- ev
			}
		}
	}()
	return out
}

// Output returns the TEXT_MESSAGE_START, TEXT_MESSAGE_CONTENT and
// TEXT_MESSAGE_END events carrying v as JSON.
func (m *Mapper) Output(v any) ([]events.Event, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode output: %w", err)
	}
	id := events.GenerateMessageID()
	return []events.Event{
		events.NewTextMessageStartEvent(id, events.WithRole(RoleAssistant)),
		events.NewTextMessageContentEvent(id, string(data)),
		events.NewTextMessageEndEvent(id),
	}, nil
}

// MapRun is MapStream for a whole run. When the run ends, the value
// returned by result is emitted as an output message ahead of RUN_FINISHED;
// a result error turns the end of the run into RUN_ERROR. If in closes
// without a terminal event, the run's end is rebuilt from result.
func (m *Mapper) MapRun(in <-chan event.Event, result func() (any, error)) <-chan events.Event {
	out := make(chan events.Event)
	go func() {
		defer close(out)
		var ended bool
		for e := range in {
			if e.Type.Terminal() {
				ended = true
			}
			if e.Type == event.RunEnd {
				if !m.finish(out, result) {
					continue
				}
			}
			if ev := m.MapEvent(e); ev != nil {
				out <- ev
			}
		}
		if !ended && m.finish(out, result) {
			out <- m.RunFinished()
		}
	}()
	return out
}

// finish sends the output message of result. It reports false after sending
// RUN_ERROR in its place.
func (m *Mapper) finish(out chan<- events.Event, result func() (any, error)) bool {
	msgs, err := m.output(result)
	if err != nil {
		out <- m.RunError(err)
		return false
	}
	for _, ev := range msgs {
		out <- ev
	}
	return true
}

func (m *Mapper) output(result func() (any, error)) ([]events.Event, error) {
	v, err := result()
	if err != nil {
		return nil, err
	}
	return m.Output(v)
}
