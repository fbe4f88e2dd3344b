package story

import (
	"context"
	"fmt"

	"github.com/spetersoncode/comicflow"
	"github.com/spetersoncode/comicflow/workflow"
)

// SceneTask is the isolated input of one scene-writing slot.
type SceneTask struct {
	SceneNumber int
	SceneCount  int
	Phase       NarrativePhase
	Title       string
	Premise     string
	Characters  []Character
	Settings    []Setting
}

// sceneTasks returns one task per narrative phase, numbered from 1.
func sceneTasks(plan *StoryPlan) []SceneTask {
	tasks := make([]SceneTask, len(plan.NarrativePhases))
	for i, phase := range plan.NarrativePhases {
		tasks[i] = SceneTask{
			SceneNumber: i + 1,
			SceneCount:  len(plan.NarrativePhases),
			Phase:       phase,
			Title:       plan.Title,
			Premise:     plan.Premise,
			Characters:  plan.Characters,
			Settings:    plan.Settings,
		}
	}
	return tasks
}

// writeScene generates the scene for one slot. previous is the story so far
// in sequential mode and empty in fan-out mode.
func (s *Steps) writeScene(ctx context.Context, t SceneTask, previous []Scene) (Scene, error) {
	res, err := comicflow.GenerateAs[sceneResult](ctx, s.gen, comicflow.GenerateRequest{
		Name:        SchemaScene,
		Description: "One scene of a comic book",
		System:      writerSystem,
		Prompt:      scenePrompt(t, previous),
		Schema:      sceneSchema,
	})
	if err != nil {
		return Scene{}, fmt.Errorf("scene %d: %w", t.SceneNumber, err)
	}
	return Scene{
		SceneNumber:    t.SceneNumber,
		Title:          res.Title,
		Description:    res.Description,
		Characters:     res.Characters,
		Setting:        res.Setting,
		NarrativePhase: t.Phase.Phase,
	}, nil
}

func (s *Steps) writeScenes(ctx context.Context, state State) (workflow.Update[State], error) {
	if state.Plan == nil {
		return workflow.Update[State]{}, fmt.Errorf("no plan to write scenes from")
	}
	scenes := make([]Scene, 0, len(state.Plan.NarrativePhases))
	for _, t := range sceneTasks(state.Plan) {
		scene, err := s.writeScene(ctx, t, scenes)
		if err != nil {
			return workflow.Update[State]{}, err
		}
		scenes = append(scenes, scene)
	}
	return fScenes.Add(scenes...), nil
}

func (s *Steps) dispatchScenes(_ context.Context, state State) ([]workflow.Send, error) {
	if state.Plan == nil {
		return nil, fmt.Errorf("no plan to write scenes from")
	}
	tasks := sceneTasks(state.Plan)
	sends := make([]workflow.Send, len(tasks))
	for i, t := range tasks {
		sends[i] = workflow.Send{Node: StepWriteScene, Input: t}
	}
	return sends, nil
}

func (s *Steps) writeSceneTask(ctx context.Context, t SceneTask) (workflow.Update[State], error) {
	scene, err := s.writeScene(ctx, t, nil)
	if err != nil {
		return workflow.Update[State]{}, err
	}
	return fScenes.Add(scene), nil
}
