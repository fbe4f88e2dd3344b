// Package google adapts the Gemini API (google.golang.org/genai) to
// [comicflow.ChatProvider]. Response schemas are converted to genai.Schema
// and sent with an application/json response MIME type.
package google

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	"github.com/spetersoncode/comicflow"
)

// Client wraps the Google GenAI SDK to implement comicflow.ChatProvider.
type Client struct {
	client *genai.Client
	model  ChatModel
}

// ClientOption configures the Google client.
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

// New creates a Gemini API client with the given API key.
func New(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	cfg := clientConfig{model: DefaultChatModel}
	for _, opt := range opts {
		opt(&cfg)
	}
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &Client{client: client, model: cfg.model}, nil
}

// Chat sends a conversation and returns a complete response.
func (c *Client) Chat(ctx context.Context, messages []comicflow.Message, opts ...comicflow.Option) (*comicflow.Response, error) {
	options := comicflow.ApplyOptions(opts...)
	model := c.model
	if options.Model != "" {
		model = ChatModel(options.Model)
	}

	contents, system := convertMessages(messages)
	config := &genai.GenerateContentConfig{SystemInstruction: system}
	if options.MaxTokens > 0 {
		config.MaxOutputTokens = int32(options.MaxTokens)
	}
	if options.Temperature != nil {
		temp := float32(*options.Temperature)
		config.Temperature = &temp
	}
	if options.ResponseSchema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = ConvertJSONSchema(options.ResponseSchema.Schema)
	}

	resp, err := c.client.Models.GenerateContent(ctx, model.String(), contents, config)
	if err != nil {
		return nil, wrapError(err)
	}

	var content strings.Builder
	finishReason := ""
	if len(resp.Candidates) > 0 {
		cand := resp.Candidates[0]
		finishReason = string(cand.FinishReason)
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				content.WriteString(part.Text)
			}
		}
	}

	usage := comicflow.Usage{}
	if resp.UsageMetadata != nil {
		usage.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	return &comicflow.Response{
		Content:      content.String(),
		FinishReason: finishReason,
		Usage:        usage,
	}, nil
}

// convertMessages splits system messages into a system instruction.
func convertMessages(messages []comicflow.Message) ([]*genai.Content, *genai.Content) {
	var contents []*genai.Content
	var system *genai.Content

	for _, msg := range messages {
		if msg.Content == "" {
			continue
		}
		part := &genai.Part{Text: msg.Content}
		switch msg.Role {
		case comicflow.RoleSystem:
			if system == nil {
				system = &genai.Content{}
			}
			system.Parts = append(system.Parts, part)
		case comicflow.RoleAssistant:
			contents = append(contents, &genai.Content{Role: "model", Parts: []*genai.Part{part}})
		default:
			contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{part}})
		}
	}
	return contents, system
}

// wrapError categorizes genai API errors by status code. The SDK does not
// expose response headers, so no Retry-After delay is available.
func wrapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return comicflow.NewStatusError("google: "+err.Error(), apiErr.Code, 0, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return comicflow.NewStatusError("google: "+err.Error(), apiErrPtr.Code, 0, err)
	}
	return err
}

var _ comicflow.ChatProvider = (*Client)(nil)
