package story

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in    string
		want  Category
		known bool
	}{
		{"plot_twist", CategoryPlotTwist, true},
		{"plot-twist", CategoryPlotTwist, true},
		{"Plot Twist", CategoryPlotTwist, true},
		{"  PLOT--twist ", CategoryPlotTwist, true},
		{"character", CategoryCharacter, true},
		{"Atmospheric Conditions", CategoryAtmosphericConditions, true},
		{"character_relationship", CategoryCharacterRelationship, true},
		{"Villain Lair", Category("villain_lair"), false},
		{"", Category(""), false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseCategory(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.known, got.Known())
		})
	}
}

func TestCategoriesAreKnown(t *testing.T) {
	cats := Categories()
	require.Len(t, cats, 13)
	for _, c := range cats {
		assert.True(t, c.Known(), c)
		assert.Equal(t, c, ParseCategory(string(c)))
		assert.NotContains(t, c.Label(), "Other")
	}
	assert.Equal(t, "Other ideas (villain lair)", Category("villain_lair").Label())
}

func TestAudienceInputDecodeNormalizesCategory(t *testing.T) {
	var in AudienceInput
	require.NoError(t, json.Unmarshal([]byte(`{"category":"Plot-Twist","description":"x"}`), &in))
	assert.Equal(t, CategoryPlotTwist, in.Category)
}

func TestGroupsLookup(t *testing.T) {
	g := GroupInputs([]AudienceInput{
		{Category: ParseCategory("plot-twist"), Description: "the trees are listening"},
		{Category: CategoryPlotTwist, Description: "the astronaut never left"},
		{Category: CategoryCharacter, Description: "a retired astronaut"},
		{Category: CategorySetting, Description: "   "},
		{Category: Category("weather_control"), Description: "rain on demand"},
	})

	want := []string{"the trees are listening", "the astronaut never left"}
	for _, label := range []string{"plot_twist", "plot-twist", "Plot Twist"} {
		assert.Equal(t, want, g.Lookup(label), label)
	}
	assert.Empty(t, g.Lookup("setting"))
	assert.Equal(t, []Category{CategoryCharacter, CategoryPlotTwist, "weather_control"}, g.Ordered())
}
