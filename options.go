package comicflow

import "encoding/json"

// ResponseSchema describes the structured output a request expects.
// Providers translate it to their native structured-output mechanism.
type ResponseSchema struct {
	// Name identifies the schema (e.g. "story_plan").
	Name string
	// Description tells the model what the output represents.
	Description string
	// Schema is a JSON Schema object.
	Schema json.RawMessage
}

// Options contains configuration for a chat request.
type Options struct {
	Model          string
	MaxTokens      int
	Temperature    *float64
	ResponseSchema *ResponseSchema
}

// Option is a functional option for configuring chat requests.
type Option func(*Options)

// WithModel sets the model to use for the request.
func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// WithMaxTokens sets the maximum number of tokens to generate.
func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

// WithTemperature sets the sampling temperature (0.0 to 2.0).
func WithTemperature(t float64) Option {
	return func(o *Options) {
		o.Temperature = &t
	}
}

// WithResponseSchema requests output conforming to the given schema.
func WithResponseSchema(schema ResponseSchema) Option {
	return func(o *Options) {
		o.ResponseSchema = &schema
	}
}

// ApplyOptions applies functional options to an Options struct.
func ApplyOptions(opts ...Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
