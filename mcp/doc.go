// Package mcp exposes the comic story pipeline as an MCP (Model Context
// Protocol) server, so assistants can generate comics as a tool call.
//
// The server has one tool, generate_comic, whose audience_inputs argument
// is the list of story elements. The result is the assembled story as JSON
// text; pipeline failures are returned as tool errors.
//
//	pipeline, err := story.NewPipeline(story.DefaultConfig(), gen)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := mcp.ServeStdio(pipeline); err != nil {
//	    log.Fatal(err)
//	}
package mcp
