package story

import (
	"strings"
	"unicode"
)

// Category is the kind of an audience submission. The enumerated constants
// are the known kinds; [ParseCategory] maps any spelling onto them.
type Category string

const (
	CategoryCharacter             Category = "character"
	CategorySetting               Category = "setting"
	CategoryPlotTwist             Category = "plot_twist"
	CategorySignificantProp       Category = "significant_prop"
	CategoryCharacterBackstory    Category = "character_backstory"
	CategoryAtmosphericConditions Category = "atmospheric_conditions"
	CategorySymbolicMotif         Category = "symbolic_motif"
	CategorySpecialAbility        Category = "special_ability"
	CategoryCulturalElement       Category = "cultural_element"
	CategoryTechnologyConcept     Category = "technology_concept"
	CategoryConflict              Category = "conflict"
	CategoryTheme                 Category = "theme"
	CategoryCharacterRelationship Category = "character_relationship"
)

var categories = []Category{
	CategoryCharacter,
	CategorySetting,
	CategoryPlotTwist,
	CategorySignificantProp,
	CategoryCharacterBackstory,
	CategoryAtmosphericConditions,
	CategorySymbolicMotif,
	CategorySpecialAbility,
	CategoryCulturalElement,
	CategoryTechnologyConcept,
	CategoryConflict,
	CategoryTheme,
	CategoryCharacterRelationship,
}

// Categories returns the known categories in prompt order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// ParseCategory normalizes a free-form label to its canonical tag: case is
// folded, surrounding space trimmed, and runs of spaces, hyphens and
// underscores collapse to a single underscore. "Plot-Twist", "plot twist"
// and "plot_twist" all yield CategoryPlotTwist. Unknown labels normalize the
// same way and report Known() == false.
func ParseCategory(label string) Category {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.TrimSpace(label) {
		switch {
		case r == '-' || r == '_' || unicode.IsSpace(r):
			pendingSep = b.Len() > 0
		default:
			if pendingSep {
				b.WriteByte('_')
				pendingSep = false
			}
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return Category(b.String())
}

// Known reports whether c is one of the enumerated categories.
func (c Category) Known() bool {
	for _, k := range categories {
		if c == k {
			return true
		}
	}
	return false
}

// Label returns a human-readable plural heading for prompts.
func (c Category) Label() string {
	switch c {
	case CategoryCharacter:
		return "Characters"
	case CategorySetting:
		return "Settings"
	case CategoryPlotTwist:
		return "Plot twists"
	case CategorySignificantProp:
		return "Significant props"
	case CategoryCharacterBackstory:
		return "Character backstories"
	case CategoryAtmosphericConditions:
		return "Atmospheric conditions"
	case CategorySymbolicMotif:
		return "Symbolic motifs"
	case CategorySpecialAbility:
		return "Special abilities"
	case CategoryCulturalElement:
		return "Cultural elements"
	case CategoryTechnologyConcept:
		return "Technology concepts"
	case CategoryConflict:
		return "Conflicts"
	case CategoryTheme:
		return "Themes"
	case CategoryCharacterRelationship:
		return "Character relationships"
	case "":
		return "Other ideas"
	default:
		return "Other ideas (" + strings.ReplaceAll(string(c), "_", " ") + ")"
	}
}

// UnmarshalText normalizes the label while decoding.
func (c *Category) UnmarshalText(text []byte) error {
	*c = ParseCategory(string(text))
	return nil
}
