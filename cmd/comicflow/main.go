// Command comicflow turns audience ideas into a comic story outline.
//
// It reads a request (an array of audience inputs, or an object with an
// "audience_inputs" member) from a file or stdin, runs the story pipeline
// and prints the final output as JSON.
//
// Configuration comes from an optional YAML file, a .env file and
// COMICFLOW_* environment variables; flags override both:
//
//	COMICFLOW_PROVIDER  - anthropic, openai, google or offline (default: offline)
//	COMICFLOW_MODEL     - Model override (optional, uses provider default)
//	ANTHROPIC_API_KEY   - Anthropic API key
//	OPENAI_API_KEY      - OpenAI API key
//	GOOGLE_API_KEY      - Google API key
//
// Usage:
//
//	comicflow -input ideas.json -scenes 4 -mode fanout
//	echo '[{"category":"character","description":"a lonely astronaut"}]' | comicflow
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/spetersoncode/comicflow/client"
	"github.com/spetersoncode/comicflow/config"
	"github.com/spetersoncode/comicflow/event"
	"github.com/spetersoncode/comicflow/model"
	"github.com/spetersoncode/comicflow/story"
	"github.com/spetersoncode/comicflow/workflow"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetOutput(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		logrus.WithError(err).Fatal("comicflow failed")
	}
}

type options struct {
	configPath string
	input      string
	output     string
	scenes     int
	mode       string
	visuals    bool
	critique   bool
	pretty     bool
}

func parseFlags(args []string) (*options, *flag.FlagSet, error) {
	fs := flag.NewFlagSet("comicflow", flag.ContinueOnError)
	o := &options{}
	fs.StringVar(&o.configPath, "config", "", "path to a YAML config file")
	fs.StringVar(&o.input, "input", "-", "request file, or - for stdin")
	fs.StringVar(&o.output, "output", "-", "output file, or - for stdout")
	fs.IntVar(&o.scenes, "scenes", 0, "number of scenes (overrides config)")
	fs.StringVar(&o.mode, "mode", "", "scene mode: sequential or fanout (overrides config)")
	fs.BoolVar(&o.visuals, "visuals", true, "generate visual descriptions (overrides config when set)")
	fs.BoolVar(&o.critique, "critique", true, "critique and revise the plan (overrides config when set)")
	fs.BoolVar(&o.pretty, "pretty", true, "indent the JSON output")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return o, fs, nil
}

// apply copies the flags that were given on the command line onto cfg.
func (o *options) apply(fs *flag.FlagSet, cfg *config.Config) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "scenes":
			cfg.Story.SceneCount = o.scenes
		case "mode":
			cfg.Story.SceneMode = story.SceneMode(o.mode)
		case "visuals":
			cfg.Story.Visuals = o.visuals
		case "critique":
			cfg.Story.Critique = o.critique
		}
	})
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	o, fs, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	o.apply(fs, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	body, err := readInput(o.input, stdin)
	if err != nil {
		return err
	}

	c, err := client.New(ctx, cfg.Client())
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	p, err := story.NewPipeline(cfg.Pipeline(), c)
	if err != nil {
		return err
	}

	log := logrus.WithFields(logrus.Fields{
		"provider": c.Provider(),
		"model":    c.Model(),
		"scenes":   cfg.Story.SceneCount,
		"mode":     cfg.Story.SceneMode,
	})
	log.Info("generating comic story")

	events := event.NewChannel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		logEvents(events)
	}()
	out, err := p.Run(ctx, body, workflow.WithEvents(events))
	close(events)
	<-done
	if err != nil {
		return err
	}

	fields := logrus.Fields{
		"scenes":        len(out.Scenes),
		"input_tokens":  c.Usage().InputTokens,
		"output_tokens": c.Usage().OutputTokens,
	}
	if price, ok := model.Lookup(c.Model()); ok {
		fields["estimated_cost_usd"] = fmt.Sprintf("%.4f", price.Cost(c.Usage()))
	}
	log.WithFields(fields).Info("comic story complete")

	return writeOutput(o.output, stdout, out, o.pretty)
}

// logEvents logs step progress at debug level until events is closed.
func logEvents(events <-chan event.Event) {
	for e := range events {
		entry := logrus.WithFields(logrus.Fields{
			"graph": e.Graph,
			"step":  e.StepName,
		})
		if e.Index >= 0 {
			entry = entry.WithField("index", e.Index)
		}
		switch e.Type {
		case event.RunError:
			entry.WithError(e.Error).Warn("run failed")
		case event.RouteSelected:
			entry.WithField("route", e.RouteName).Debug("route selected")
		case event.ParallelStart:
			entry.WithField("tasks", e.Count).Debug("fan-out started")
		default:
			entry.Debug(string(e.Type))
		}
	}
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return b, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return b, nil
}

func writeOutput(path string, stdout io.Writer, out *story.FinalOutput, pretty bool) error {
	w := stdout
	if path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
