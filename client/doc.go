// Package client is the retrying, validating front end to a chat provider.
//
// A Client wraps one [comicflow.ChatProvider] (Anthropic, OpenAI, Google or the
// offline synthesizer) and provides:
//
//   - Per-attempt timeouts: a stalled request is abandoned and retried
//   - Automatic retries: exponential backoff for transient errors, honoring Retry-After
//   - Schema enforcement: [Client.Generate] validates every structured result
//     and retries non-conforming output
//   - Event emission: observable requests via channel
//   - Usage accounting across all requests
//
// # Basic Usage
//
//	c, err := client.New(ctx, client.Config{
//	    Provider: comicflow.ProviderAnthropic,
//	    APIKeys:  client.APIKeys{Anthropic: os.Getenv("ANTHROPIC_API_KEY")},
//	})
//
//	plan, err := comicflow.GenerateAs[Plan](ctx, c, comicflow.GenerateRequest{
//	    Name:   "plan",
//	    Prompt: "Plan a three-scene comic about moths.",
//	    Schema: planSchema,
//	})
//
// # Events
//
// Supply a channel to observe requests. Sends never block; a full channel
// drops events.
//
//	events := make(chan client.Event, 100)
//	c, _ := client.New(ctx, client.Config{Provider: comicflow.ProviderOffline, Events: events})
package client
