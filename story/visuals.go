package story

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/spetersoncode/comicflow"
	"github.com/spetersoncode/comicflow/workflow"
)

// Image prompt bounds.
const (
	maxPromptWords = 75
	maxPromptChars = 300
)

// Step names of the visual sub-graph.
const (
	VisualGraph        = "scene_visual"
	StepDescribeVisual = "describe_visual"
	StepReviewVisual   = "review_visual"
)

// buildVisualGraph compiles the per-scene graph: describe, then review,
// looping back to describe on a rejection within the revision limit.
func (s *Steps) buildVisualGraph() (*workflow.Compiled[VisualState], error) {
	g := workflow.NewGraph(VisualGraph, visualSchema)
	g.AddNode(StepDescribeVisual, s.describeVisual)
	g.AddNode(StepReviewVisual, s.reviewVisual)
	g.AddEdge(workflow.Start, StepDescribeVisual)
	g.AddEdge(StepDescribeVisual, StepReviewVisual)
	g.AddConditionalEdge(StepReviewVisual, func(_ context.Context, state VisualState) (string, error) {
		return reviseOrContinue(state.Verdict, s.cfg.VisualRevisionLimit, StepDescribeVisual, workflow.End), nil
	}, StepDescribeVisual, workflow.End)
	return g.Compile()
}

func (s *Steps) describeVisual(ctx context.Context, state VisualState) (workflow.Update[VisualState], error) {
	res, err := comicflow.GenerateAs[visualResult](ctx, s.gen, comicflow.GenerateRequest{
		Name:        SchemaVisual,
		Description: "Art direction for one comic scene",
		System:      artistSystem,
		Prompt:      visualPrompt(state),
		Schema:      visualSchemaJSON,
	})
	if err != nil {
		return workflow.Update[VisualState]{}, fmt.Errorf("scene %d: %w", state.Scene.SceneNumber, err)
	}
	return vVisual.Set(&VisualDescription{
		SceneNumber:    state.Scene.SceneNumber,
		VisualElements: res.VisualElements,
		ImagePrompt:    BoundImagePrompt(res.ImagePrompt),
	}), nil
}

func (s *Steps) reviewVisual(ctx context.Context, state VisualState) (workflow.Update[VisualState], error) {
	if state.Visual == nil {
		return workflow.Update[VisualState]{}, fmt.Errorf("scene %d: no visual to review", state.Scene.SceneNumber)
	}
	res, err := comicflow.GenerateAs[critiqueResult](ctx, s.gen, comicflow.GenerateRequest{
		Name:        SchemaVisualReview,
		Description: "An editorial verdict on a scene's visual description",
		System:      artCriticSystem,
		Prompt:      visualReviewPrompt(state),
		Schema:      critiqueSchema,
	})
	if err != nil {
		return workflow.Update[VisualState]{}, fmt.Errorf("scene %d: %w", state.Scene.SceneNumber, err)
	}
	return vVerdict.Set(applyCritique(state.Verdict, res, s.cfg.VisualRevisionLimit)), nil
}

// BoundImagePrompt collapses whitespace and cuts p to at most 75 words and
// 300 characters, breaking on a word boundary where one exists.
func BoundImagePrompt(p string) string {
	words := strings.Fields(p)
	if len(words) > maxPromptWords {
		words = words[:maxPromptWords]
	}
	out := strings.Join(words, " ")
	if utf8.RuneCountInString(out) <= maxPromptChars {
		return out
	}
	cut := string([]rune(out)[:maxPromptChars])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:")
}

type visualTask struct {
	scene Scene
	plan  *StoryPlan
}

func projectVisual(t visualTask) VisualState {
	vs := VisualState{Scene: t.scene}
	if t.plan != nil {
		vs.Characters = t.plan.Characters
		vs.Settings = t.plan.Settings
	}
	return vs
}

func extractVisual(_ visualTask, final VisualState) workflow.Update[State] {
	if final.Visual == nil {
		return workflow.Update[State]{}
	}
	return fVisuals.Add(*final.Visual)
}

// orderedScenes returns the scenes sorted by scene number.
func orderedScenes(scenes []Scene) []Scene {
	out := append([]Scene(nil), scenes...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].SceneNumber < out[j].SceneNumber })
	return out
}

func (s *Steps) describeScenes(ctx context.Context, state State) (workflow.Update[State], error) {
	var visuals []VisualDescription
	for _, scene := range orderedScenes(state.Scenes) {
		final, err := s.visual.Invoke(ctx, projectVisual(visualTask{scene: scene, plan: state.Plan}))
		if err != nil {
			return workflow.Update[State]{}, fmt.Errorf("subgraph %q: %w", VisualGraph, err)
		}
		if final.Visual != nil {
			visuals = append(visuals, *final.Visual)
		}
	}
	return fVisuals.Add(visuals...), nil
}

func (s *Steps) dispatchVisuals(_ context.Context, state State) ([]workflow.Send, error) {
	scenes := orderedScenes(state.Scenes)
	sends := make([]workflow.Send, len(scenes))
	for i, scene := range scenes {
		sends[i] = workflow.Send{Node: StepDescribeScene, Input: visualTask{scene: scene, plan: state.Plan}}
	}
	return sends, nil
}
