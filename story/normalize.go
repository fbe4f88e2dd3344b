package story

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spetersoncode/comicflow"
	"github.com/spetersoncode/comicflow/workflow"
)

// wrapperKey is the object member that may wrap the input array.
const wrapperKey = "audience_inputs"

func (s *Steps) normalizeInputs(_ context.Context, state State) (workflow.Update[State], error) {
	inputs, err := NormalizeInputs(state.RawInputs, s.cfg.StrictInputs)
	if err != nil {
		return workflow.Update[State]{}, err
	}
	return fInputs.Set(inputs), nil
}

// NormalizeInputs flattens the accepted input shapes into a list: an array
// of inputs, or an object whose audience_inputs member is such an array,
// optionally wrapped once more. Unrecognized shapes fail with
// [comicflow.ErrInvalidInput] when strict, and yield no inputs otherwise.
func NormalizeInputs(raw json.RawMessage, strict bool) ([]AudienceInput, error) {
	inputs, err := flatten(raw, 2)
	if err != nil {
		if strict {
			return nil, err
		}
		return []AudienceInput{}, nil
	}
	return inputs, nil
}

func flatten(raw json.RawMessage, wraps int) ([]AudienceInput, error) {
	switch firstByte(raw) {
	case '[':
		var inputs []AudienceInput
		if err := json.Unmarshal(raw, &inputs); err != nil {
			return nil, invalidInput("audience inputs must be objects with string category and description", err)
		}
		if inputs == nil {
			inputs = []AudienceInput{}
		}
		return inputs, nil
	case '{':
		if wraps == 0 {
			return nil, invalidInput("audience inputs are wrapped too deeply", nil)
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, invalidInput("audience inputs object is not valid JSON", err)
		}
		inner, ok := obj[wrapperKey]
		if !ok {
			return nil, invalidInput(fmt.Sprintf("object has no %q member", wrapperKey), nil)
		}
		return flatten(inner, wraps-1)
	case 0:
		return nil, invalidInput("audience inputs are missing", nil)
	default:
		return nil, invalidInput("audience inputs must be an array or an object wrapping one", nil)
	}
}

// firstByte returns the first non-space byte of raw, 0 when empty or null.
func firstByte(raw json.RawMessage) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return 0
	}
	return trimmed[0]
}

func invalidInput(msg string, cause error) error {
	if cause == nil {
		cause = comicflow.ErrInvalidInput
	} else {
		cause = fmt.Errorf("%w: %w", comicflow.ErrInvalidInput, cause)
	}
	return comicflow.NewUserInputError(msg, cause)
}

func isBlank(s string) bool { return strings.TrimSpace(s) == "" }
