// Package story turns audience-submitted story elements into a comic book
// story: a plan with one narrative phase per scene, the scenes themselves and,
// optionally, a bounded image prompt for each scene.
//
// The pipeline is a [workflow] graph over [State]:
//
//	normalize_inputs -> plan_story -> [critique_plan] -> scenes -> [visuals] -> assemble_output
//
// Scenes are written one after another (write_scenes) or fanned out one task
// per narrative phase (dispatch_scenes -> write_scene). Visuals run a small
// sub-graph per scene (describe -> review, looping on rejection) either
// sequentially or fanned out the same way.
//
// Every model call goes through a [comicflow.Generator], which returns values
// that conform to the step's result schema or fails. Build a pipeline with
// [NewPipeline] and run it with [Pipeline.Run].
package story
