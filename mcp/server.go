package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/spetersoncode/comicflow/schema"
	"github.com/spetersoncode/comicflow/story"
)

// ToolName is the name of the comic generation tool.
const ToolName = "generate_comic"

// ServerOption configures a Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	name    string
	version string
}

// WithName sets the server name reported to MCP clients.
func WithName(name string) ServerOption {
	return func(c *serverConfig) {
		c.name = name
	}
}

// WithVersion sets the server version reported to MCP clients.
func WithVersion(version string) ServerOption {
	return func(c *serverConfig) {
		c.version = version
	}
}

var inputSchema = schema.Object().
	Field("audience_inputs", schema.Array(
		schema.Object().
			Field("category", schema.String().
				Desc("Kind of element, e.g. character, setting, plot_twist, theme").Required()).
			Field("description", schema.String().Desc("The submitted idea").Required()),
	).Desc("Story elements submitted by the audience").Required()).
	MustBuild()

// Tool returns the generate_comic tool definition.
func Tool() mcp.Tool {
	return mcp.NewToolWithRawSchema(ToolName,
		"Turn audience-submitted story elements into a comic book story with scenes and image prompts",
		inputSchema)
}

// NewServer creates an MCP server exposing p as the generate_comic tool.
func NewServer(p *story.Pipeline, opts ...ServerOption) *server.MCPServer {
	cfg := &serverConfig{
		name:    "comicflow",
		version: "1.0.0",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	s := server.NewMCPServer(
		cfg.name,
		cfg.version,
		server.WithToolCapabilities(true),
	)
	s.AddTool(Tool(), generateHandler(p))
	return s
}

// generateHandler runs the pipeline on the tool arguments.
func generateHandler(p *story.Pipeline) func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.Params.Arguments
		if args == nil {
			args = map[string]any{}
		}
		body, err := json.Marshal(args)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal arguments: %v", err)), nil
		}

		out, err := p.Run(ctx, body)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		data, err := json.Marshal(out)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to encode output: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

// ServeStdio starts an MCP server that communicates over stdin/stdout.
// This is the standard transport for MCP servers invoked as subprocesses.
func ServeStdio(p *story.Pipeline, opts ...ServerOption) error {
	return server.ServeStdio(NewServer(p, opts...))
}
