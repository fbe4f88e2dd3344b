// Package openai adapts the OpenAI Chat Completions API to [comicflow.ChatProvider].
//
// Response schemas are sent as json_schema response formats. Strict mode is
// enabled when the schema satisfies its rules (every property required);
// additionalProperties is forced to false on every object either way.
package openai

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/spetersoncode/comicflow"
)

// Client wraps the OpenAI SDK to implement comicflow.ChatProvider.
type Client struct {
	client *openai.Client
	model  ChatModel
}

// ClientOption configures the OpenAI client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	model   ChatModel
	baseURL string
}

// WithModel sets the default model for requests.
func WithModel(model ChatModel) ClientOption {
	return func(c *clientConfig) {
		c.model = model
	}
}

// WithBaseURL points the client at a different API endpoint, such as an
// OpenAI-compatible gateway.
func WithBaseURL(url string) ClientOption {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// New creates a client with the given API key. SDK-level retries are disabled.
func New(apiKey string, opts ...ClientOption) *Client {
	cfg := clientConfig{model: DefaultChatModel}
	for _, opt := range opts {
		opt(&cfg)
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	client := openai.NewClient(reqOpts...)
	return &Client{client: &client, model: cfg.model}
}

// Chat sends a conversation and returns a complete response.
func (c *Client) Chat(ctx context.Context, messages []comicflow.Message, opts ...comicflow.Option) (*comicflow.Response, error) {
	options := comicflow.ApplyOptions(opts...)
	model := c.model
	if options.Model != "" {
		model = ChatModel(options.Model)
	}

	params := openai.ChatCompletionNewParams{
		Model:    model.String(),
		Messages: convertMessages(messages),
	}
	if options.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(options.MaxTokens))
	}
	if options.Temperature != nil {
		params.Temperature = openai.Float(*options.Temperature)
	}
	if options.ResponseSchema != nil {
		params.ResponseFormat = buildSchemaFormat(options.ResponseSchema)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, comicflow.NewTransientError("openai: response has no choices", 0, nil)
	}

	return &comicflow.Response{
		Content:      resp.Choices[0].Message.Content,
		FinishReason: string(resp.Choices[0].FinishReason),
		Usage: comicflow.Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
		},
	}, nil
}

func convertMessages(messages []comicflow.Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case comicflow.RoleSystem:
			result = append(result, openai.SystemMessage(msg.Content))
		case comicflow.RoleAssistant:
			result = append(result, openai.AssistantMessage(msg.Content))
		default:
			result = append(result, openai.UserMessage(msg.Content))
		}
	}
	return result
}

func buildSchemaFormat(rs *comicflow.ResponseSchema) openai.ChatCompletionNewParamsResponseFormatUnion {
	var schemaMap map[string]any
	_ = json.Unmarshal(rs.Schema, &schemaMap)

	name := rs.Name
	if name == "" {
		name = "response_schema"
	}

	strict := allRequired(schemaMap)
	addAdditionalPropertiesFalse(schemaMap)

	return openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
			Type: "json_schema",
			JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:        name,
				Description: openai.String(rs.Description),
				Schema:      schemaMap,
				Strict:      openai.Bool(strict),
			},
		},
	}
}

// addAdditionalPropertiesFalse recursively adds additionalProperties: false to all object schemas.
func addAdditionalPropertiesFalse(schema map[string]any) {
	if schema == nil {
		return
	}
	if schemaType, ok := schema["type"].(string); ok && schemaType == "object" {
		schema["additionalProperties"] = false
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		for _, propSchema := range props {
			if propMap, ok := propSchema.(map[string]any); ok {
				addAdditionalPropertiesFalse(propMap)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		addAdditionalPropertiesFalse(items)
	}
}

// allRequired reports whether every object in the schema lists all of its
// properties as required.
func allRequired(schema map[string]any) bool {
	if schema == nil {
		return false
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		required := map[string]bool{}
		if req, ok := schema["required"].([]any); ok {
			for _, r := range req {
				if s, ok := r.(string); ok {
					required[s] = true
				}
			}
		}
		for name, prop := range props {
			if !required[name] {
				return false
			}
			if propMap, ok := prop.(map[string]any); ok && !allRequired(propMap) {
				return false
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		return allRequired(items)
	}
	return true
}

// wrapError categorizes SDK errors by status code and Retry-After header.
func wrapError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	var retryAfter string
	if apiErr.Response != nil {
		retryAfter = apiErr.Response.Header.Get("Retry-After")
	}
	return comicflow.NewStatusError("openai: "+err.Error(), apiErr.StatusCode, comicflow.ParseRetryAfter(retryAfter), err)
}

var _ comicflow.ChatProvider = (*Client)(nil)
