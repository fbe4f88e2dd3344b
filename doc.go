// Package comicflow turns audience-submitted story elements into a structured
// comic book story: a plan with a fixed number of narrative phases, one scene per
// phase, and optional image-prompt text per scene.
//
// The root package holds the Generation Port shared by every other package:
// the [ChatProvider] interface implemented by the provider adapters, the
// structured-output [Generator] consumed by the story steps, request options,
// and the categorized error model used for retry decisions.
//
// # Packages
//
//   - [github.com/spetersoncode/comicflow/workflow]: graph engine with typed
//     state fields, routers, fan-out and sub-graphs
//   - [github.com/spetersoncode/comicflow/story]: the comic pipeline itself
//   - [github.com/spetersoncode/comicflow/client]: retrying, schema-validating
//     Generator over a ChatProvider
//   - [github.com/spetersoncode/comicflow/config]: YAML and environment loading
//
// # Basic Usage
//
//	gen, err := client.New(ctx, client.Config{Provider: comicflow.ProviderOffline})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	p, err := story.NewPipeline(story.DefaultConfig(), gen)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	out, err := p.Run(ctx, json.RawMessage(`[{"category":"character","description":"A retired astronaut"}]`))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(out.Title)
//
// # Error Handling
//
// Provider failures are wrapped in [*Error] with a category. Use [IsTransient],
// [IsPermanent] and [IsUserInput] to decide how to react:
//
//	if comicflow.IsUserInput(err) {
//	    // reject the request
//	}
package comicflow
