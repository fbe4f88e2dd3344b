package story

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spetersoncode/comicflow"
	"github.com/spetersoncode/comicflow/workflow"
)

// GraphName is the name of the story graph.
const GraphName = "comic_story"

// ErrNoOutput is returned when a run ends without assembling output.
var ErrNoOutput = errors.New("story: run produced no output")

// Pipeline is a compiled story pipeline. It is safe for concurrent runs.
type Pipeline struct {
	cfg   Config
	steps *Steps
	graph *workflow.Compiled[State]
}

// NewPipeline validates cfg and compiles the story graph for it.
func NewPipeline(cfg Config, gen comicflow.Generator) (*Pipeline, error) {
	if gen == nil {
		return nil, errors.New("story: nil generator")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("story: invalid config: %w", err)
	}
	s := &Steps{cfg: cfg, gen: gen, planSchema: planSchema(cfg.SceneCount)}
	if cfg.Visuals {
		visual, err := s.buildVisualGraph()
		if err != nil {
			return nil, err
		}
		s.visual = visual
	}
	graph, err := s.buildGraph()
	if err != nil {
		return nil, err
	}
	return &Pipeline{cfg: cfg, steps: s, graph: graph}, nil
}

// buildGraph wires the story graph for the configured modes.
func (s *Steps) buildGraph() (*workflow.Compiled[State], error) {
	g := workflow.NewGraph(GraphName, stateSchema)
	g.AddNode(StepNormalize, s.normalizeInputs)
	g.AddNode(StepPlan, s.planStory)
	g.AddNode(StepAssemble, s.assembleOutput)
	g.AddEdge(workflow.Start, StepNormalize)
	g.AddEdge(StepNormalize, StepPlan)
	g.AddEdge(StepAssemble, workflow.End)

	// Each stage names the node that follows it, so build back to front.
	afterScenes := StepAssemble
	if s.cfg.Visuals {
		switch s.cfg.SceneMode {
		case SceneModeFanOut:
			g.AddNode(StepDispatchVisuals, workflow.Passthrough[State]())
			workflow.AddTask(g, StepDescribeScene, workflow.SubgraphTask(s.visual, projectVisual, extractVisual))
			g.AddFanOut(StepDispatchVisuals, s.dispatchVisuals, StepAssemble)
			afterScenes = StepDispatchVisuals
		default:
			g.AddNode(StepDescribeScenes, s.describeScenes)
			g.AddEdge(StepDescribeScenes, StepAssemble)
			afterScenes = StepDescribeScenes
		}
	}

	var scenes string
	switch s.cfg.SceneMode {
	case SceneModeFanOut:
		g.AddNode(StepDispatchScenes, workflow.Passthrough[State]())
		workflow.AddTask(g, StepWriteScene, s.writeSceneTask)
		g.AddFanOut(StepDispatchScenes, s.dispatchScenes, afterScenes)
		scenes = StepDispatchScenes
	default:
		g.AddNode(StepWriteScenes, s.writeScenes)
		g.AddEdge(StepWriteScenes, afterScenes)
		scenes = StepWriteScenes
	}

	if s.cfg.Critique {
		g.AddNode(StepCritique, s.critiquePlan)
		g.AddEdge(StepPlan, StepCritique)
		g.AddConditionalEdge(StepCritique, s.routeAfterCritique(scenes), StepPlan, scenes)
	} else {
		g.AddEdge(StepPlan, scenes)
	}
	return g.Compile()
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Graph returns the compiled story graph.
func (p *Pipeline) Graph() *workflow.Compiled[State] { return p.graph }

func (p *Pipeline) options(opts []workflow.Option) []workflow.Option {
	base := []workflow.Option{
		workflow.WithMaxSteps(p.cfg.stepBudget()),
		workflow.WithMaxConcurrency(p.cfg.MaxConcurrency),
	}
	if p.cfg.RateInterval > 0 {
		base = append(base, workflow.WithRateLimit(p.cfg.RateInterval, 1))
	}
	return append(base, opts...)
}

// Invoke runs the graph from initial to completion and returns the final state.
func (p *Pipeline) Invoke(ctx context.Context, initial State, opts ...workflow.Option) (State, error) {
	return p.graph.Invoke(ctx, initial, p.options(opts)...)
}

// Stream starts a run in the background. Events are delivered on the run's
// channel until it completes.
func (p *Pipeline) Stream(ctx context.Context, initial State, opts ...workflow.Option) *workflow.Run[State] {
	return p.graph.Stream(ctx, initial, p.options(opts)...)
}

// Run decodes a request body with [DecodeRequest], runs the pipeline and
// returns the assembled output.
func (p *Pipeline) Run(ctx context.Context, body json.RawMessage, opts ...workflow.Option) (*FinalOutput, error) {
	initial, err := DecodeRequest(body)
	if err != nil {
		return nil, err
	}
	final, err := p.Invoke(ctx, initial, opts...)
	if err != nil {
		return nil, err
	}
	return OutputOf(final)
}

// OutputOf returns the assembled output of a final state.
func OutputOf(final State) (*FinalOutput, error) {
	if final.Output == nil {
		return nil, ErrNoOutput
	}
	return final.Output, nil
}
