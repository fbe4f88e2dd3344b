package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spetersoncode/comicflow"
	"github.com/spetersoncode/comicflow/provider/anthropic"
	"github.com/spetersoncode/comicflow/provider/google"
	"github.com/spetersoncode/comicflow/provider/offline"
	"github.com/spetersoncode/comicflow/provider/openai"
	"github.com/spetersoncode/comicflow/retry"
	"github.com/spetersoncode/comicflow/schema"
)

// DefaultTimeout bounds a single request attempt.
const DefaultTimeout = 60 * time.Second

// APIKeys holds API keys for the remote providers.
type APIKeys struct {
	Anthropic string
	OpenAI    string
	Google    string
}

// For returns the key configured for p.
func (k APIKeys) For(p comicflow.Provider) string {
	switch p {
	case comicflow.ProviderAnthropic:
		return k.Anthropic
	case comicflow.ProviderOpenAI:
		return k.OpenAI
	case comicflow.ProviderGoogle:
		return k.Google
	default:
		return ""
	}
}

// Config holds configuration for creating a client.
type Config struct {
	// Provider selects the backend. Empty means offline.
	Provider comicflow.Provider

	// Model overrides the provider's default model.
	Model string

	APIKeys APIKeys

	// BaseURL overrides the provider endpoint (ignored by the offline provider).
	BaseURL string

	// Temperature and MaxTokens are defaults for every request.
	Temperature *float64
	MaxTokens   int

	// Timeout bounds each request attempt. Zero means DefaultTimeout.
	Timeout time.Duration

	// Retry configures retry behavior for transient errors.
	// If nil, retry.DefaultConfig is used.
	Retry *retry.Config

	// Events is an optional channel for receiving client events.
	Events chan<- Event
}

// ErrMissingAPIKey is returned when a remote provider has no API key.
type ErrMissingAPIKey struct {
	Provider comicflow.Provider
}

func (e *ErrMissingAPIKey) Error() string {
	return fmt.Sprintf("no API key configured for %s", e.Provider)
}

// ErrUnsupportedProvider is returned for an unknown provider name.
var ErrUnsupportedProvider = errors.New("unsupported provider")

// Client sends requests to one provider with timeouts, retries and events.
// It implements [comicflow.Generator] and is safe for concurrent use.
type Client struct {
	provider comicflow.ChatProvider
	name     comicflow.Provider
	model    string
	defaults []comicflow.Option
	timeout  time.Duration
	retry    retry.Config
	events   chan<- Event

	mu    sync.Mutex
	usage comicflow.Usage
}

// New creates a client for cfg.Provider.
func New(ctx context.Context, cfg Config) (*Client, error) {
	name := cfg.Provider
	if name == "" {
		name = comicflow.ProviderOffline
	}
	if !name.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, name)
	}
	key := cfg.APIKeys.For(name)
	if name.Remote() && key == "" {
		return nil, &ErrMissingAPIKey{Provider: name}
	}

	var p comicflow.ChatProvider
	var defaultModel string
	switch name {
	case comicflow.ProviderAnthropic:
		defaultModel = anthropic.DefaultChatModel.String()
		opts := []anthropic.ClientOption{}
		if cfg.Model != "" {
			opts = append(opts, anthropic.WithModel(anthropic.ChatModel(cfg.Model)))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		p = anthropic.New(key, opts...)
	case comicflow.ProviderOpenAI:
		defaultModel = openai.DefaultChatModel.String()
		opts := []openai.ClientOption{}
		if cfg.Model != "" {
			opts = append(opts, openai.WithModel(openai.ChatModel(cfg.Model)))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		p = openai.New(key, opts...)
	case comicflow.ProviderGoogle:
		defaultModel = google.DefaultChatModel.String()
		opts := []google.ClientOption{}
		if cfg.Model != "" {
			opts = append(opts, google.WithModel(google.ChatModel(cfg.Model)))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, google.WithBaseURL(cfg.BaseURL))
		}
		gc, err := google.New(ctx, key, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google client: %w", err)
		}
		p = gc
	case comicflow.ProviderOffline:
		p = offline.New()
	}

	c := NewWithProvider(p, cfg)
	c.name = name
	if c.model == "" {
		c.model = defaultModel
	}
	return c, nil
}

// NewWithProvider wraps an existing provider. cfg.Provider is used only to
// label events.
func NewWithProvider(p comicflow.ChatProvider, cfg Config) *Client {
	rc := retry.DefaultConfig()
	if cfg.Retry != nil {
		rc = *cfg.Retry
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	var defaults []comicflow.Option
	if cfg.Temperature != nil {
		defaults = append(defaults, comicflow.WithTemperature(*cfg.Temperature))
	}
	if cfg.MaxTokens > 0 {
		defaults = append(defaults, comicflow.WithMaxTokens(cfg.MaxTokens))
	}
	return &Client{
		provider: p,
		name:     cfg.Provider,
		model:    cfg.Model,
		defaults: defaults,
		timeout:  timeout,
		retry:    rc,
		events:   cfg.Events,
	}
}

// Provider returns the backend name.
func (c *Client) Provider() comicflow.Provider { return c.name }

// Model returns the model requests are sent to, empty when the provider
// chooses (offline and wrapped providers without a configured model).
func (c *Client) Model() string { return c.model }

// Usage returns the token usage accumulated over all successful requests.
func (c *Client) Usage() comicflow.Usage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}

// Chat sends a conversation and returns a complete response, retrying
// transient errors according to the client's retry configuration.
func (c *Client) Chat(ctx context.Context, messages []comicflow.Message, opts ...comicflow.Option) (*comicflow.Response, error) {
	return c.do(ctx, OpChat, "", func(ctx context.Context, _ retry.Attempt) (*comicflow.Response, error) {
		return c.attempt(ctx, messages, opts)
	})
}

// Generate implements comicflow.Generator. The response must parse as JSON,
// satisfy req.Schema and decode into out; output failing any of these is
// reported as a transient *comicflow.OutputError and requested again, with
// the violation appended to the conversation.
func (c *Client) Generate(ctx context.Context, req comicflow.GenerateRequest, out any) error {
	var messages []comicflow.Message
	if req.System != "" {
		messages = append(messages, comicflow.NewSystemMessage(req.System))
	}
	messages = append(messages, comicflow.NewUserMessage(req.Prompt))
	opts := []comicflow.Option{comicflow.WithResponseSchema(comicflow.ResponseSchema{
		Name:        req.Name,
		Description: req.Description,
		Schema:      req.Schema,
	})}

	_, err := c.do(ctx, OpGenerate, req.Name, func(ctx context.Context, a retry.Attempt) (*comicflow.Response, error) {
		resp, err := c.attempt(ctx, withCorrection(messages, a.Last), opts)
		if err != nil {
			return nil, err
		}
		if err := decode(req, resp.Content, out); err != nil {
			return nil, err
		}
		return resp, nil
	})
	return err
}

// withCorrection appends the previous reply and its schema violation, so the
// model can fix its output instead of guessing again.
func withCorrection(messages []comicflow.Message, last error) []comicflow.Message {
	var oe *comicflow.OutputError
	if !errors.As(last, &oe) {
		return messages
	}
	out := make([]comicflow.Message, 0, len(messages)+2)
	out = append(out, messages...)
	if oe.Content != "" {
		out = append(out, comicflow.NewAssistantMessage(oe.Content))
	}
	return append(out, comicflow.NewUserMessage(fmt.Sprintf(
		"Your reply did not match the %s schema: %v. Reply again with only the corrected JSON.", oe.Schema, oe.Err)))
}

func decode(req comicflow.GenerateRequest, content string, out any) error {
	data := []byte(content)
	if len(req.Schema) > 0 {
		if err := schema.Validate(req.Schema, data); err != nil {
			return &comicflow.OutputError{Schema: req.Name, Content: content, Err: err}
		}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &comicflow.OutputError{Schema: req.Name, Content: content, Err: err}
	}
	return nil
}

// attempt makes one provider call under the per-attempt timeout.
func (c *Client) attempt(ctx context.Context, messages []comicflow.Message, opts []comicflow.Option) (*comicflow.Response, error) {
	all := make([]comicflow.Option, 0, len(c.defaults)+len(opts)+1)
	if c.model != "" {
		all = append(all, comicflow.WithModel(c.model))
	}
	all = append(all, c.defaults...)
	all = append(all, opts...)

	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resp, err := c.provider.Chat(attemptCtx, messages, all...)
	if err != nil {
		if ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return nil, comicflow.NewTransientError(fmt.Sprintf("request timed out after %s", c.timeout), 0, err)
		}
		return nil, err
	}
	if resp == nil {
		return nil, comicflow.NewTransientError("provider returned no response", 0, nil)
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, op, schemaName string, fn func(context.Context, retry.Attempt) (*comicflow.Response, error)) (*comicflow.Response, error) {
	start := time.Now()
	base := Event{Operation: op, Schema: schemaName, Provider: c.name, Model: c.model}

	ev := base
	ev.Type = EventRequestStart
	c.emit(ev)

	var retryEvents chan retry.Event
	var forwarded sync.WaitGroup
	if c.events != nil {
		retryEvents = make(chan retry.Event, 10)
		forwarded.Add(1)
		go func() {
			defer forwarded.Done()
			c.forwardRetryEvents(retryEvents, base)
		}()
	}

	var attempts int
	resp, err := retry.DoWithEvents(ctx, c.retry, retryEvents, func(a retry.Attempt) (*comicflow.Response, error) {
		attempts = a.Number
		return fn(ctx, a)
	})

	if retryEvents != nil {
		close(retryEvents)
		forwarded.Wait()
	}

	ev = base
	ev.Attempts = attempts
	ev.Duration = time.Since(start)
	if err != nil {
		ev.Type = EventRequestError
		ev.Error = err
		c.emit(ev)
		return nil, err
	}

	c.mu.Lock()
	c.usage = c.usage.Add(resp.Usage)
	c.mu.Unlock()

	ev.Type = EventRequestComplete
	ev.Usage = &resp.Usage
	c.emit(ev)
	return resp, nil
}

// forwardRetryEvents converts retry events to client events.
func (c *Client) forwardRetryEvents(retryEvents <-chan retry.Event, base Event) {
	for re := range retryEvents {
		ev := base
		ev.Type = EventRetry
		ev.RetryEvent = &re
		c.emit(ev)
	}
}

var (
	_ comicflow.ChatProvider = (*Client)(nil)
	_ comicflow.Generator    = (*Client)(nil)
)
