package story

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	plannerSystem = "You are a comic book writer. You turn audience ideas into a coherent, " +
		"engaging story that uses as many of the ideas as fit naturally."
	criticSystem = "You are a demanding comic book editor. Judge whether a story plan is coherent, " +
		"uses the audience ideas well and gives every phase a clear purpose."
	writerSystem = "You are a comic book scriptwriter. You write vivid, concrete scenes that stay " +
		"consistent with the story plan."
	artistSystem = "You are a comic book art director. You describe how a scene should look and " +
		"write compact prompts for an image generator."
	artCriticSystem = "You are a comic book art editor. Judge whether a visual description fits its " +
		"scene and whether the image prompt is specific and compact."

	finalSceneInstruction = "This is the final scene. End it on an unresolved, suspenseful moment " +
		"that leaves the reader wanting the next issue. Do not name or label this device in the scene."

	omittedIdeas = "(further ideas omitted)"
)

// planPrompt builds the planning prompt. The embedded ideas are bounded by
// maxChars runes (zero means unbounded). On revision the critique feedback,
// and in amend mode the rejected plan, are appended.
func (s *Steps) planPrompt(state State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Plan a comic book story told in exactly %d scenes.\n", s.cfg.SceneCount)
	b.WriteString("Give the story a title, a premise, its main characters and settings, and exactly ")
	fmt.Fprintf(&b, "%d narrative phases in story order, one per scene.\n\n", s.cfg.SceneCount)

	ideas := ideasSection(GroupInputs(state.Inputs), s.cfg.MaxPromptChars)
	if ideas == "" {
		b.WriteString("The audience submitted no ideas. Invent an original story.\n")
	} else {
		b.WriteString("Audience ideas:\n")
		b.WriteString(ideas)
	}

	if state.Verdict.RevisionCount > 0 && !state.Verdict.Approved {
		b.WriteString("\nAn editor rejected the previous plan with this feedback:\n")
		b.WriteString(state.Verdict.Feedback)
		b.WriteString("\n")
		if s.cfg.RevisionMode == RevisionAmend && state.Plan != nil {
			b.WriteString("\nAmend this plan to address the feedback, keeping what works:\n")
			b.WriteString(toJSON(state.Plan))
			b.WriteString("\n")
		} else {
			b.WriteString("Write a new plan that addresses the feedback.\n")
		}
	}
	return b.String()
}

// ideasSection renders the non-empty groups under their labels, stopping
// before maxChars runes would be exceeded.
func ideasSection(groups Groups, maxChars int) string {
	var b strings.Builder
	used := 0
	fits := func(line string) bool {
		n := utf8.RuneCountInString(line)
		if maxChars > 0 && used+n > maxChars {
			return false
		}
		used += n
		b.WriteString(line)
		return true
	}
	for _, c := range groups.Ordered() {
		if !fits(c.Label() + ":\n") {
			return finishIdeas(&b)
		}
		for _, item := range groups[c] {
			if !fits("- " + strings.TrimSpace(item) + "\n") {
				return finishIdeas(&b)
			}
		}
	}
	return b.String()
}

func finishIdeas(b *strings.Builder) string {
	b.WriteString(omittedIdeas + "\n")
	return b.String()
}

func (s *Steps) critiquePrompt(state State) string {
	var b strings.Builder
	b.WriteString("Review this comic book story plan.\n\n")
	b.WriteString(toJSON(state.Plan))
	b.WriteString("\n\n")
	if ideas := ideasSection(GroupInputs(state.Inputs), s.cfg.MaxPromptChars); ideas != "" {
		b.WriteString("It was planned from these audience ideas:\n")
		b.WriteString(ideas)
		b.WriteString("\n")
	}
	b.WriteString("Approve it if it is ready for scripting. Otherwise give concrete feedback.")
	return b.String()
}

func scenePrompt(t SceneTask, previous []Scene) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write scene %d of %d of the comic %q.\n", t.SceneNumber, t.SceneCount, t.Title)
	fmt.Fprintf(&b, "Premise: %s\n\n", t.Premise)
	writeCast(&b, t.Characters, t.Settings)
	fmt.Fprintf(&b, "\nNarrative phase %q: %s\n", t.Phase.Phase, t.Phase.Description)
	if len(previous) > 0 {
		b.WriteString("\nStory so far:\n")
		for _, p := range previous {
			fmt.Fprintf(&b, "Scene %d, %s: %s\n", p.SceneNumber, p.Title, p.Description)
		}
	}
	if t.SceneNumber == t.SceneCount {
		b.WriteString("\n" + finalSceneInstruction + "\n")
	}
	return b.String()
}

func visualPrompt(state VisualState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Describe the visuals of scene %d, %q.\n", state.Scene.SceneNumber, state.Scene.Title)
	fmt.Fprintf(&b, "Scene: %s\n", state.Scene.Description)
	if state.Scene.Setting != "" {
		fmt.Fprintf(&b, "Setting: %s\n", state.Scene.Setting)
	}
	if len(state.Scene.Characters) > 0 {
		fmt.Fprintf(&b, "Characters present: %s\n", strings.Join(state.Scene.Characters, ", "))
	}
	b.WriteString("\n")
	writeCast(&b, state.Characters, state.Settings)
	fmt.Fprintf(&b, "\nThe image prompt must be at most %d words and %d characters.\n", maxPromptWords, maxPromptChars)
	if state.Verdict.RevisionCount > 0 && !state.Verdict.Approved && state.Visual != nil {
		b.WriteString("\nAn editor rejected this previous attempt:\n")
		b.WriteString(toJSON(state.Visual))
		b.WriteString("\nFeedback: " + state.Verdict.Feedback + "\n")
	}
	return b.String()
}

func visualReviewPrompt(state VisualState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Review the visual description of scene %d, %q.\n", state.Scene.SceneNumber, state.Scene.Title)
	fmt.Fprintf(&b, "Scene: %s\n\n", state.Scene.Description)
	b.WriteString(toJSON(state.Visual))
	b.WriteString("\n\nApprove it if it is ready for the artist. Otherwise give concrete feedback.")
	return b.String()
}

func writeCast(b *strings.Builder, characters []Character, settings []Setting) {
	if len(characters) > 0 {
		b.WriteString("Characters:\n")
		for _, c := range characters {
			fmt.Fprintf(b, "- %s: %s\n", c.Name, c.Description)
		}
	}
	if len(settings) > 0 {
		b.WriteString("Settings:\n")
		for _, st := range settings {
			fmt.Fprintf(b, "- %s: %s\n", st.Name, st.Description)
		}
	}
}

func toJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(data)
}
