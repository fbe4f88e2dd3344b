package comicflow

import (
	"context"
	"encoding/json"
)

// GenerateRequest is a single structured-output request to the Generation Port.
type GenerateRequest struct {
	// Name identifies the result schema (e.g. "story_plan").
	Name string
	// Description explains the result to the model.
	Description string
	// System is an optional system prompt.
	System string
	// Prompt is the user prompt.
	Prompt string
	// Schema is the JSON Schema the result must satisfy.
	Schema json.RawMessage
}

// Generator is the Generation Port: it produces a value conforming to
// req.Schema and decodes it into out, or fails with a provider error.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest, out any) error
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req GenerateRequest, out any) error

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, req GenerateRequest, out any) error {
	return f(ctx, req, out)
}

// GenerateAs runs req through g and returns the decoded result.
func GenerateAs[T any](ctx context.Context, g Generator, req GenerateRequest) (T, error) {
	var result T
	if err := g.Generate(ctx, req, &result); err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
