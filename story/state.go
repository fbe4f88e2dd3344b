package story

import (
	"encoding/json"

	"github.com/spetersoncode/comicflow/workflow"
)

// State is the pipeline state. Scenes and Visuals are append-merged; every
// other field is replaced by the step that writes it.
type State struct {
	RawInputs json.RawMessage
	Inputs    []AudienceInput
	Plan      *StoryPlan
	Verdict   Verdict
	Scenes    []Scene
	Visuals   []VisualDescription
	Output    *FinalOutput
}

var (
	stateSchema = workflow.NewSchema[State]()

	fRawInputs = workflow.Replace(stateSchema, "raw_inputs", func(s *State) *json.RawMessage { return &s.RawInputs })
	fInputs    = workflow.Replace(stateSchema, "inputs", func(s *State) *[]AudienceInput { return &s.Inputs })
	fPlan      = workflow.Replace(stateSchema, "plan", func(s *State) **StoryPlan { return &s.Plan })
	fVerdict   = workflow.Replace(stateSchema, "verdict", func(s *State) *Verdict { return &s.Verdict })
	fScenes    = workflow.Append(stateSchema, "scenes", func(s *State) *[]Scene { return &s.Scenes })
	fVisuals   = workflow.Append(stateSchema, "visuals", func(s *State) *[]VisualDescription { return &s.Visuals })
	fOutput    = workflow.Replace(stateSchema, "output", func(s *State) **FinalOutput { return &s.Output })
)

// VisualState is the state of the per-scene visual sub-graph.
type VisualState struct {
	Scene      Scene
	Characters []Character
	Settings   []Setting
	Visual     *VisualDescription
	Verdict    Verdict
}

var (
	visualSchema = workflow.NewSchema[VisualState]()

	vVisual  = workflow.Replace(visualSchema, "visual", func(s *VisualState) **VisualDescription { return &s.Visual })
	vVerdict = workflow.Replace(visualSchema, "verdict", func(s *VisualState) *Verdict { return &s.Verdict })
)

// DecodeRequest reads a pipeline request body. The body is either an array
// of inputs or an object whose audience_inputs member holds them (possibly
// wrapped once more the same way). Shape checks happen in normalize_inputs.
func DecodeRequest(data []byte) (State, error) {
	raw := json.RawMessage(data)
	switch firstByte(raw) {
	case '[':
		return State{RawInputs: raw}, nil
	case '{':
		var env struct {
			AudienceInputs json.RawMessage `json:"audience_inputs"`
		}
		if err := json.Unmarshal(raw, &env); err != nil {
			return State{}, invalidInput("request body is not valid JSON", err)
		}
		return State{RawInputs: env.AudienceInputs}, nil
	default:
		return State{}, invalidInput("request body must be a JSON object or array", nil)
	}
}
