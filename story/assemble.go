package story

import (
	"context"
	"fmt"

	"github.com/spetersoncode/comicflow/workflow"
)

func (s *Steps) assembleOutput(_ context.Context, state State) (workflow.Update[State], error) {
	if state.Plan == nil {
		return workflow.Update[State]{}, fmt.Errorf("no plan to assemble")
	}
	return fOutput.Set(Assemble(state.Plan, state.Scenes, state.Visuals)), nil
}

// Assemble left-joins scenes with visuals by scene number and orders the
// result by scene number. A scene without a visual gets an empty image
// prompt; visuals without a scene are dropped.
func Assemble(plan *StoryPlan, scenes []Scene, visuals []VisualDescription) *FinalOutput {
	prompts := make(map[int]string, len(visuals))
	for _, v := range visuals {
		if _, seen := prompts[v.SceneNumber]; !seen {
			prompts[v.SceneNumber] = v.ImagePrompt
		}
	}
	out := &FinalOutput{
		Title:   plan.Title,
		Premise: plan.Premise,
		Scenes:  make([]OutputScene, 0, len(scenes)),
	}
	for _, sc := range orderedScenes(scenes) {
		out.Scenes = append(out.Scenes, OutputScene{
			SceneNumber: sc.SceneNumber,
			Title:       sc.Title,
			Description: sc.Description,
			Characters:  sc.Characters,
			Setting:     sc.Setting,
			ImagePrompt: prompts[sc.SceneNumber],
		})
	}
	return out
}
