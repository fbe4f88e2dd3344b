package story

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spetersoncode/comicflow"
	"github.com/spetersoncode/comicflow/workflow"
)

// Step names of the story graph.
const (
	StepNormalize       = "normalize_inputs"
	StepPlan            = "plan_story"
	StepCritique        = "critique_plan"
	StepWriteScenes     = "write_scenes"
	StepDispatchScenes  = "dispatch_scenes"
	StepWriteScene      = "write_scene"
	StepDescribeScenes  = "describe_scenes"
	StepDispatchVisuals = "dispatch_visuals"
	StepDescribeScene   = "describe_scene"
	StepAssemble        = "assemble_output"
)

// Steps holds the step implementations of the story graph.
type Steps struct {
	cfg        Config
	gen        comicflow.Generator
	planSchema json.RawMessage
	visual     *workflow.Compiled[VisualState]
}

func (s *Steps) planStory(ctx context.Context, state State) (workflow.Update[State], error) {
	plan, err := comicflow.GenerateAs[StoryPlan](ctx, s.gen, comicflow.GenerateRequest{
		Name:        SchemaStoryPlan,
		Description: "A comic book story plan",
		System:      plannerSystem,
		Prompt:      s.planPrompt(state),
		Schema:      s.planSchema,
	})
	if err != nil {
		return workflow.Update[State]{}, err
	}
	plan.NarrativePhases = RepairPhases(plan.NarrativePhases, s.cfg.SceneCount)
	return fPlan.Set(&plan), nil
}

// RepairPhases returns exactly n phases: the first n of phases, padded with
// placeholder "Scene k" phases when there are fewer.
func RepairPhases(phases []NarrativePhase, n int) []NarrativePhase {
	out := make([]NarrativePhase, 0, n)
	out = append(out, phases[:min(len(phases), n)]...)
	for k := len(out) + 1; k <= n; k++ {
		out = append(out, NarrativePhase{
			Phase:       fmt.Sprintf("Scene %d", k),
			Description: "Continuation of the story...",
		})
	}
	return out
}

func (s *Steps) critiquePlan(ctx context.Context, state State) (workflow.Update[State], error) {
	if state.Plan == nil {
		return workflow.Update[State]{}, fmt.Errorf("no plan to critique")
	}
	res, err := comicflow.GenerateAs[critiqueResult](ctx, s.gen, comicflow.GenerateRequest{
		Name:        SchemaCritique,
		Description: "An editorial verdict on a story plan",
		System:      criticSystem,
		Prompt:      s.critiquePrompt(state),
		Schema:      critiqueSchema,
	})
	if err != nil {
		return workflow.Update[State]{}, err
	}
	return fVerdict.Set(applyCritique(state.Verdict, res, s.cfg.RevisionLimit)), nil
}

// applyCritique counts a critique against the previous verdict. Once limit
// (when positive) critiques have run, the verdict is forced to approved.
func applyCritique(prev Verdict, res critiqueResult, limit int) Verdict {
	count := prev.RevisionCount + 1
	return Verdict{
		Approved:      res.Approved || (limit >= 1 && count >= limit),
		Feedback:      res.Feedback,
		RevisionCount: count,
	}
}

// reviseOrContinue routes a critiqued work back to revise while the verdict
// is a rejection within the revision limit, and on to next otherwise.
func reviseOrContinue(v Verdict, limit int, revise, next string) string {
	if !v.Approved && v.RevisionCount < limit {
		return revise
	}
	return next
}

func (s *Steps) routeAfterCritique(next string) workflow.Router[State] {
	return func(_ context.Context, state State) (string, error) {
		return reviseOrContinue(state.Verdict, s.cfg.RevisionLimit, StepPlan, next), nil
	}
}
