package openai

// ChatModel represents an OpenAI chat model.
type ChatModel string

const (
	GPT52     ChatModel = "gpt-5.2"
	GPT5Mini  ChatModel = "gpt-5-mini"
	GPT41     ChatModel = "gpt-4.1"
	GPT41Mini ChatModel = "gpt-4.1-mini"

	// DefaultChatModel is the model used when none is configured.
	DefaultChatModel ChatModel = GPT41Mini
)

// String returns the model identifier string.
func (m ChatModel) String() string { return string(m) }
