package story

import (
	"errors"
	"fmt"
	"time"
)

// SceneMode selects how scenes (and visuals) are generated.
type SceneMode string

const (
	// SceneModeSequential writes scenes one after another in a single step.
	SceneModeSequential SceneMode = "sequential"
	// SceneModeFanOut writes one scene per narrative phase concurrently.
	SceneModeFanOut SceneMode = "fanout"
)

// RevisionMode selects how a rejected plan is revised.
type RevisionMode string

const (
	// RevisionRegenerate plans from scratch with the critique feedback.
	RevisionRegenerate RevisionMode = "regenerate"
	// RevisionAmend asks the model to amend the rejected plan.
	RevisionAmend RevisionMode = "amend"
)

// Config controls the shape of the pipeline.
type Config struct {
	// SceneCount is the number of scenes, and of narrative phases in the plan.
	SceneCount int `yaml:"scene_count"`
	// Critique enables the plan critique loop.
	Critique bool `yaml:"critique"`
	// RevisionLimit is the number of critiques after which a plan is
	// approved regardless of the verdict. Zero lets the first verdict stand.
	RevisionLimit int `yaml:"revision_limit"`
	// RevisionMode is how rejected plans are revised.
	RevisionMode RevisionMode `yaml:"revision_mode"`
	// Visuals enables the per-scene visual sub-graph.
	Visuals bool `yaml:"visuals"`
	// VisualRevisionLimit is RevisionLimit for visual reviews.
	VisualRevisionLimit int `yaml:"visual_revision_limit"`
	// SceneMode is how scenes and visuals are generated.
	SceneMode SceneMode `yaml:"scene_mode"`
	// StrictInputs rejects unrecognized input shapes instead of treating them as empty.
	StrictInputs bool `yaml:"strict_inputs"`
	// MaxPromptChars bounds the audience ideas embedded in the planning prompt.
	MaxPromptChars int `yaml:"max_prompt_chars"`
	// MaxConcurrency bounds fan-out tasks. Zero means unbounded.
	MaxConcurrency int `yaml:"max_concurrency"`
	// RateInterval spaces fan-out task starts. Zero disables rate limiting.
	RateInterval time.Duration `yaml:"rate_interval"`
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		SceneCount:          3,
		Critique:            true,
		RevisionLimit:       1,
		RevisionMode:        RevisionRegenerate,
		Visuals:             true,
		VisualRevisionLimit: 1,
		SceneMode:           SceneModeSequential,
		StrictInputs:        true,
		MaxPromptChars:      6000,
	}
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.SceneCount < 1 {
		errs = append(errs, fmt.Errorf("scene_count must be at least 1, got %d", c.SceneCount))
	}
	if c.RevisionLimit < 0 {
		errs = append(errs, fmt.Errorf("revision_limit must not be negative, got %d", c.RevisionLimit))
	}
	if c.VisualRevisionLimit < 0 {
		errs = append(errs, fmt.Errorf("visual_revision_limit must not be negative, got %d", c.VisualRevisionLimit))
	}
	switch c.SceneMode {
	case SceneModeSequential, SceneModeFanOut:
	default:
		errs = append(errs, fmt.Errorf("scene_mode must be %q or %q, got %q", SceneModeSequential, SceneModeFanOut, c.SceneMode))
	}
	switch c.RevisionMode {
	case RevisionRegenerate, RevisionAmend:
	default:
		errs = append(errs, fmt.Errorf("revision_mode must be %q or %q, got %q", RevisionRegenerate, RevisionAmend, c.RevisionMode))
	}
	if c.MaxPromptChars < 0 {
		errs = append(errs, fmt.Errorf("max_prompt_chars must not be negative, got %d", c.MaxPromptChars))
	}
	if c.MaxConcurrency < 0 {
		errs = append(errs, fmt.Errorf("max_concurrency must not be negative, got %d", c.MaxConcurrency))
	}
	if c.RateInterval < 0 {
		errs = append(errs, fmt.Errorf("rate_interval must not be negative, got %s", c.RateInterval))
	}
	return errors.Join(errs...)
}

// stepBudget is the per-graph step limit. It covers the longest critique
// loop of either graph plus the fixed steps around it.
func (c Config) stepBudget() int {
	loop := max(c.RevisionLimit, c.VisualRevisionLimit) + 1
	return 8 + 2*loop
}
