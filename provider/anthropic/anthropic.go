// Package anthropic adapts the Anthropic Messages API to [comicflow.ChatProvider].
//
// Structured output is requested by offering a single synthetic tool whose
// input schema is the response schema and forcing the model to call it; the
// tool input becomes the response content.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/spetersoncode/comicflow"
)

const (
	defaultMaxTokens = 4096
	jsonToolName     = "json_response"
)

// Client wraps the Anthropic SDK to implement comicflow.ChatProvider.
type Client struct {
	client *anthropic.Client
	model  ChatModel
}

// ClientOption configures the Anthropic client.
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

// WithBaseURL points the client at a different API endpoint.
func WithBaseURL(url string) ClientOption {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// New creates a client with the given API key. SDK-level retries are
// disabled; callers retry through the retry package.
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
	client := anthropic.NewClient(reqOpts...)
	return &Client{client: &client, model: cfg.model}
}

// Chat sends a conversation and returns a complete response.
func (c *Client) Chat(ctx context.Context, messages []comicflow.Message, opts ...comicflow.Option) (*comicflow.Response, error) {
	options := comicflow.ApplyOptions(opts...)
	params := c.buildParams(messages, options)

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, wrapError(err)
	}

	var content strings.Builder
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			content.WriteString(block.Text)
		case "tool_use":
			if options.ResponseSchema != nil {
				content.Reset()
				content.Write(block.Input)
			}
		}
	}

	return &comicflow.Response{
		Content:      content.String(),
		FinishReason: string(resp.StopReason),
		Usage: comicflow.Usage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
		},
	}, nil
}

func (c *Client) buildParams(messages []comicflow.Message, options *comicflow.Options) anthropic.MessageNewParams {
	model := c.model
	if options.Model != "" {
		model = ChatModel(options.Model)
	}
	maxTokens := int64(defaultMaxTokens)
	if options.MaxTokens > 0 {
		maxTokens = int64(options.MaxTokens)
	}

	msgs, system := convertMessages(messages)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model.String()),
		MaxTokens: maxTokens,
		Messages:  msgs,
	}
	if len(system) > 0 {
		params.System = system
	}
	if options.Temperature != nil {
		params.Temperature = anthropic.Float(*options.Temperature)
	}
	if options.ResponseSchema != nil {
		tool, choice := buildJSONTool(options.ResponseSchema)
		params.Tools = []anthropic.ToolUnionParam{tool}
		params.ToolChoice = choice
	}
	return params
}

func convertMessages(messages []comicflow.Message) ([]anthropic.MessageParam, []anthropic.TextBlockParam) {
	var result []anthropic.MessageParam
	var system []anthropic.TextBlockParam

	for _, msg := range messages {
		// The API rejects empty text blocks.
		if msg.Content == "" {
			continue
		}
		switch msg.Role {
		case comicflow.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: msg.Content})
		case comicflow.RoleAssistant:
			result = append(result, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	return result, system
}

func buildJSONTool(rs *comicflow.ResponseSchema) (anthropic.ToolUnionParam, anthropic.ToolChoiceUnionParam) {
	var schema map[string]any
	if len(rs.Schema) > 0 {
		_ = json.Unmarshal(rs.Schema, &schema)
	}

	name := rs.Name
	if name == "" {
		name = jsonToolName
	}
	description := "Output the response as structured JSON"
	if rs.Description != "" {
		description = rs.Description
	}

	var required []string
	if reqVal, ok := schema["required"].([]any); ok {
		for _, r := range reqVal {
			if s, ok := r.(string); ok {
				required = append(required, s)
			}
		}
	}

	tool := anthropic.ToolUnionParam{
		OfTool: &anthropic.ToolParam{
			Name:        name,
			Description: anthropic.String(description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: schema["properties"],
				Required:   required,
			},
		},
	}
	choice := anthropic.ToolChoiceUnionParam{
		OfTool: &anthropic.ToolChoiceToolParam{Name: name},
	}
	return tool, choice
}

// wrapError categorizes SDK errors by status code and Retry-After header.
func wrapError(err error) error {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	var retryAfter string
	if apiErr.Response != nil {
		retryAfter = apiErr.Response.Header.Get("Retry-After")
	}
	return comicflow.NewStatusError("anthropic: "+err.Error(), apiErr.StatusCode, comicflow.ParseRetryAfter(retryAfter), err)
}

var _ comicflow.ChatProvider = (*Client)(nil)
