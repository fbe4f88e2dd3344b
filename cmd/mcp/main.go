// Command mcp serves the comic story pipeline as an MCP tool over stdio.
//
// Configuration is read like the comicflow command. Logs go to stderr since
// stdout carries the protocol.
//
// Configuration for Claude Desktop (~/Library/Application Support/Claude/claude_desktop_config.json):
//
//	{
//	    "mcpServers": {
//	        "comicflow": {
//	            "command": "go",
//	            "args": ["run", "./cmd/mcp"],
//	            "cwd": "/path/to/comicflow",
//	            "env": {"COMICFLOW_PROVIDER": "anthropic", "ANTHROPIC_API_KEY": "..."}
//	        }
//	    }
//	}
package main

import (
	"context"
	"flag"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/spetersoncode/comicflow/client"
	"github.com/spetersoncode/comicflow/config"
	"github.com/spetersoncode/comicflow/mcp"
	"github.com/spetersoncode/comicflow/story"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("configuration error")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	c, err := client.New(context.Background(), cfg.Client())
	if err != nil {
		logrus.WithError(err).Fatal("failed to create client")
	}
	p, err := story.NewPipeline(cfg.Pipeline(), c)
	if err != nil {
		logrus.WithError(err).Fatal("failed to create pipeline")
	}

	logrus.WithFields(logrus.Fields{
		"provider": c.Provider(),
		"model":    c.Model(),
		"tool":     mcp.ToolName,
	}).Info("mcp server starting on stdio")

	if err := mcp.ServeStdio(p,
		mcp.WithName("comicflow"),
		mcp.WithVersion("1.0.0"),
	); err != nil {
		logrus.WithError(err).Fatal("mcp server stopped")
	}
}
