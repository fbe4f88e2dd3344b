package story

import (
	"encoding/json"
	"fmt"

	"github.com/spetersoncode/comicflow/schema"
)

// Result schema names, also used as the GenerateRequest name.
const (
	SchemaStoryPlan    = "story_plan"
	SchemaCritique     = "plan_critique"
	SchemaScene        = "scene"
	SchemaVisual       = "visual_description"
	SchemaVisualReview = "visual_review"
)

func named(what string) schema.Builder {
	return schema.Object().
		Field("name", schema.String().Desc("Name of the "+what).MinLength(1).Required()).
		Field("description", schema.String().Desc("Short description of the "+what).Required())
}

// planSchema is the story plan result schema. The phase count is stated in
// the description only; planStory repairs the count afterwards.
func planSchema(sceneCount int) json.RawMessage {
	phase := schema.Object().
		Field("phase", schema.String().Desc("Short name of the narrative phase").MinLength(1).Required()).
		Field("description", schema.String().Desc("What happens in this phase").MinLength(1).Required())
	return schema.Object().
		Field("title", schema.String().Desc("Title of the comic").MinLength(1).Required()).
		Field("premise", schema.String().Desc("One or two sentence premise").MinLength(1).Required()).
		Field("characters", schema.Array(named("character")).Desc("Main characters").Required()).
		Field("settings", schema.Array(named("setting")).Desc("Key settings").Required()).
		Field("narrativePhases", schema.Array(phase).
			Desc(fmt.Sprintf("Exactly %d narrative phases, one per scene, in story order", sceneCount)).Required()).
		MustBuild()
}

// critiqueResult is the decoded output of a plan or visual review.
type critiqueResult struct {
	Approved bool   `json:"approved"`
	Feedback string `json:"feedback"`
}

var critiqueSchema = schema.Object().
	Field("approved", schema.Bool().Desc("Whether the work is ready as is").Required()).
	Field("feedback", schema.String().Desc("Concrete, actionable feedback; empty when approved").Required()).
	MustBuild()

// sceneResult is the decoded output of scene writing. Scene number and
// phase come from the slot being written, never from the model.
type sceneResult struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Characters  []string `json:"characters"`
	Setting     string   `json:"setting"`
}

var sceneSchema = schema.Object().
	Field("title", schema.String().Desc("Scene title").MinLength(1).Required()).
	Field("description", schema.String().Desc("What happens in the scene, in prose").MinLength(1).Required()).
	Field("characters", schema.Array(schema.String()).Desc("Names of characters appearing in the scene").Required()).
	Field("setting", schema.String().Desc("Name of the setting of the scene").Required()).
	MustBuild()

type visualResult struct {
	VisualElements string `json:"visualElements"`
	ImagePrompt    string `json:"imagePrompt"`
}

var visualSchemaJSON = schema.Object().
	Field("visualElements", schema.String().Desc("Composition, lighting, palette and key visual details").MinLength(1).Required()).
	Field("imagePrompt", schema.String().
		Desc(fmt.Sprintf("Image generation prompt of at most %d words", maxPromptWords)).MinLength(1).Required()).
	MustBuild()
