package story

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/spetersoncode/comicflow"
)

// handler answers one request; n counts earlier requests with the same name.
type handler func(req comicflow.GenerateRequest, n int) (any, error)

// scripted is a Generator that answers each request by its schema name.
type scripted struct {
	mu       sync.Mutex
	handlers map[string]handler
	counts   map[string]int
	calls    []comicflow.GenerateRequest
}

func newScripted(handlers map[string]handler) *scripted {
	return &scripted{handlers: handlers, counts: make(map[string]int)}
}

func (g *scripted) Generate(ctx context.Context, req comicflow.GenerateRequest, out any) error {
	g.mu.Lock()
	n := g.counts[req.Name]
	g.counts[req.Name]++
	g.calls = append(g.calls, req)
	h := g.handlers[req.Name]
	g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if h == nil {
		return fmt.Errorf("unexpected request %q", req.Name)
	}
	v, err := h(req, n)
	if err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (g *scripted) count(name string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.counts[name]
}

// requests returns the recorded requests with the given name, in call order.
func (g *scripted) requests(name string) []comicflow.GenerateRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []comicflow.GenerateRequest
	for _, r := range g.calls {
		if r.Name == name {
			out = append(out, r)
		}
	}
	return out
}

func planWith(phases int) handler {
	return func(comicflow.GenerateRequest, int) (any, error) {
		plan := StoryPlan{
			Title:      "The Last Redwood",
			Premise:    "An astronaut returns to find a city grown inside a forest.",
			Characters: []Character{{Name: "Ada", Description: "a retired astronaut"}},
			Settings:   []Setting{{Name: "Redwood City", Description: "a city in the trees"}},
		}
		for i := 1; i <= phases; i++ {
			plan.NarrativePhases = append(plan.NarrativePhases, NarrativePhase{
				Phase:       fmt.Sprintf("Phase %d", i),
				Description: fmt.Sprintf("Things happen, part %d", i),
			})
		}
		return plan, nil
	}
}

func verdict(approved bool, feedback string) handler {
	return func(comicflow.GenerateRequest, int) (any, error) {
		return critiqueResult{Approved: approved, Feedback: feedback}, nil
	}
}

// sceneNumberOf reads the scene number from a scene or visual prompt.
func sceneNumberOf(prompt string) int {
	var n int
	if _, err := fmt.Sscanf(prompt, "Write scene %d of", &n); err == nil {
		return n
	}
	if _, err := fmt.Sscanf(prompt, "Describe the visuals of scene %d", &n); err == nil {
		return n
	}
	return -1
}

func writeScene(req comicflow.GenerateRequest, _ int) (any, error) {
	n := sceneNumberOf(req.Prompt)
	return sceneResult{
		Title:       fmt.Sprintf("Scene title %d", n),
		Description: fmt.Sprintf("Ada explores part %d of Redwood City.", n),
		Characters:  []string{"Ada"},
		Setting:     "Redwood City",
	}, nil
}

func describeVisual(req comicflow.GenerateRequest, _ int) (any, error) {
	n := sceneNumberOf(req.Prompt)
	return visualResult{
		VisualElements: "tall trees, silver suit",
		ImagePrompt:    fmt.Sprintf("comic panel %d, astronaut under redwoods", n),
	}, nil
}

func happyHandlers() map[string]handler {
	return map[string]handler{
		SchemaStoryPlan:    planWith(3),
		SchemaCritique:     verdict(true, ""),
		SchemaScene:        writeScene,
		SchemaVisual:       describeVisual,
		SchemaVisualReview: verdict(true, ""),
	}
}

const astronautRequest = `{"audience_inputs": [
	{"category": "character", "description": "a retired astronaut"},
	{"category": "setting", "description": "a city built inside a redwood forest"},
	{"category": "plot-twist", "description": "the trees are listening"}
]}`
