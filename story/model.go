package story

import "sort"

// AudienceInput is one audience-submitted story element.
type AudienceInput struct {
	Category    Category `json:"category"`
	Description string   `json:"description"`
}

// Groups holds input descriptions keyed by normalized category.
type Groups map[Category][]string

// GroupInputs groups descriptions by category, skipping blank descriptions.
func GroupInputs(inputs []AudienceInput) Groups {
	g := make(Groups)
	for _, in := range inputs {
		if isBlank(in.Description) {
			continue
		}
		g[in.Category] = append(g[in.Category], in.Description)
	}
	return g
}

// Lookup returns the descriptions for a category label in any accepted
// spelling ("plot-twist", "Plot Twist", "plot_twist").
func (g Groups) Lookup(label string) []string {
	return g[ParseCategory(label)]
}

// Ordered returns the non-empty categories: known ones in [Categories]
// order, then unknown ones alphabetically.
func (g Groups) Ordered() []Category {
	var out []Category
	for _, c := range categories {
		if len(g[c]) > 0 {
			out = append(out, c)
		}
	}
	var other []Category
	for c, items := range g {
		if !c.Known() && len(items) > 0 {
			other = append(other, c)
		}
	}
	sort.Slice(other, func(i, j int) bool { return other[i] < other[j] })
	return append(out, other...)
}

// Character is a named cast member of the plan.
type Character struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Setting is a named location of the plan.
type Setting struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// NarrativePhase is the plan entry for one scene.
type NarrativePhase struct {
	Phase       string `json:"phase"`
	Description string `json:"description"`
}

// StoryPlan is the planned story. After planning it always holds exactly
// one narrative phase per configured scene.
type StoryPlan struct {
	Title           string           `json:"title"`
	Premise         string           `json:"premise"`
	Characters      []Character      `json:"characters"`
	Settings        []Setting        `json:"settings"`
	NarrativePhases []NarrativePhase `json:"narrativePhases"`
}

// Verdict is the state of a critique loop. The zero value is the initial verdict.
type Verdict struct {
	Approved      bool   `json:"approved"`
	Feedback      string `json:"feedback"`
	RevisionCount int    `json:"revisionCount"`
}

// Scene is one generated scene. SceneNumber is 1-based.
type Scene struct {
	SceneNumber    int      `json:"sceneNumber"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Characters     []string `json:"characters"`
	Setting        string   `json:"setting"`
	NarrativePhase string   `json:"narrativePhase,omitempty"`
}

// VisualDescription is the art direction for the scene with the same number.
type VisualDescription struct {
	SceneNumber    int    `json:"sceneNumber"`
	VisualElements string `json:"visualElements"`
	ImagePrompt    string `json:"imagePrompt"`
}

// OutputScene is a scene in the final output.
type OutputScene struct {
	SceneNumber int      `json:"sceneNumber"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Characters  []string `json:"characters,omitempty"`
	Setting     string   `json:"setting,omitempty"`
	ImagePrompt string   `json:"imagePrompt"`
}

// FinalOutput is the assembled story with scenes in ascending scene order.
type FinalOutput struct {
	Title   string        `json:"title"`
	Premise string        `json:"premise"`
	Scenes  []OutputScene `json:"scenes"`
}
