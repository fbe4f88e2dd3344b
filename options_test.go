package comicflow

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyOptions(t *testing.T) {
	t.Run("returns empty options when no options provided", func(t *testing.T) {
		opts := ApplyOptions()
		assert.NotNil(t, opts)
		assert.Empty(t, opts.Model)
		assert.Zero(t, opts.MaxTokens)
		assert.Nil(t, opts.Temperature)
		assert.Nil(t, opts.ResponseSchema)
	})

	t.Run("applies multiple options", func(t *testing.T) {
		opts := ApplyOptions(
			WithModel("claude-sonnet-4-20250514"),
			WithMaxTokens(1000),
			WithTemperature(0.7),
		)

		assert.Equal(t, "claude-sonnet-4-20250514", opts.Model)
		assert.Equal(t, 1000, opts.MaxTokens)
		require.NotNil(t, opts.Temperature)
		assert.Equal(t, 0.7, *opts.Temperature)
	})

	t.Run("later options override earlier ones", func(t *testing.T) {
		opts := ApplyOptions(WithModel("a"), WithModel("b"))
		assert.Equal(t, "b", opts.Model)
	})
}

func TestWithResponseSchema(t *testing.T) {
	schema := ResponseSchema{
		Name:        "story_plan",
		Description: "A comic story plan",
		Schema:      json.RawMessage(`{"type":"object"}`),
	}
	opts := ApplyOptions(WithResponseSchema(schema))

	require.NotNil(t, opts.ResponseSchema)
	assert.Equal(t, "story_plan", opts.ResponseSchema.Name)
	assert.Equal(t, "A comic story plan", opts.ResponseSchema.Description)
	assert.JSONEq(t, `{"type":"object"}`, string(opts.ResponseSchema.Schema))
}

func TestProvider(t *testing.T) {
	assert.True(t, ProviderAnthropic.Valid())
	assert.True(t, ProviderOffline.Valid())
	assert.False(t, Provider("vertex").Valid())
	assert.True(t, ProviderOpenAI.Remote())
	assert.False(t, ProviderOffline.Remote())
}
