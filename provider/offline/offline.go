// Package offline is a deterministic [comicflow.ChatProvider] that needs no
// network access. Given a response schema it synthesizes a document that
// satisfies the schema; without one it returns a fixed text reply.
//
// It backs the "offline" provider used for demos, smoke tests and CI.
package offline

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/spetersoncode/comicflow"
	"github.com/spetersoncode/comicflow/schema"
)

// Reply is the content returned for requests without a response schema.
const Reply = "offline provider: no response schema requested"

// Client synthesizes schema-conforming responses.
type Client struct {
	calls atomic.Int64
}

// New creates an offline client.
func New() *Client {
	return &Client{}
}

// Calls returns the number of Chat calls served.
func (c *Client) Calls() int64 {
	return c.calls.Load()
}

// Chat returns a synthesized response. Context cancellation is honored.
func (c *Client) Chat(ctx context.Context, messages []comicflow.Message, opts ...comicflow.Option) (*comicflow.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.calls.Add(1)
	options := comicflow.ApplyOptions(opts...)

	content := Reply
	if options.ResponseSchema != nil {
		node, err := schema.Parse(options.ResponseSchema.Schema)
		if err != nil {
			return nil, comicflow.NewUserInputError("offline: invalid response schema", err)
		}
		data, err := json.Marshal(Synthesize(node))
		if err != nil {
			return nil, fmt.Errorf("offline: encode: %w", err)
		}
		content = string(data)
	}

	var in int
	for _, m := range messages {
		in += len(m.Content)
	}
	return &comicflow.Response{
		Content:      content,
		FinishReason: "stop",
		Usage: comicflow.Usage{
			InputTokens:  in/4 + 1,
			OutputTokens: len(content)/4 + 1,
		},
	}, nil
}

// Synthesize builds a value that satisfies n. Strings are derived from field
// names and numbered in document order, so output is stable for a schema.
func Synthesize(n *schema.Node) any {
	s := &synth{}
	return s.value("value", n)
}

type synth struct {
	seq int
}

func (s *synth) value(name string, n *schema.Node) any {
	if n == nil {
		return nil
	}
	if len(n.Enum) > 0 {
		return n.Enum[0]
	}
	switch n.Type {
	case "object":
		obj := make(map[string]any, len(n.Properties))
		keys := make([]string, 0, len(n.Properties))
		for k := range n.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			obj[k] = s.value(k, n.Properties[k])
		}
		return obj
	case "array":
		count := 1
		if n.MinItems != nil && *n.MinItems > count {
			count = *n.MinItems
		}
		if n.MaxItems != nil && *n.MaxItems < count {
			count = *n.MaxItems
		}
		items := make([]any, count)
		for i := range items {
			items[i] = s.value(singular(name), n.Items)
		}
		return items
	case "string":
		return s.text(name, n)
	case "integer":
		return int64(bounded(n, 1))
	case "number":
		return bounded(n, 1)
	case "boolean":
		return true
	default:
		return nil
	}
}

func (s *synth) text(name string, n *schema.Node) string {
	s.seq++
	text := fmt.Sprintf("%s %d", humanize(name), s.seq)
	if n.MinLength != nil {
		for len([]rune(text)) < *n.MinLength {
			text += " and more"
		}
	}
	if n.MaxLength != nil {
		if r := []rune(text); len(r) > *n.MaxLength {
			text = string(r[:*n.MaxLength])
		}
	}
	return text
}

func bounded(n *schema.Node, v float64) float64 {
	if n.Minimum != nil && v < *n.Minimum {
		v = *n.Minimum
	}
	if n.Maximum != nil && v > *n.Maximum {
		v = *n.Maximum
	}
	return v
}

// humanize turns "imagePrompt" into "Image prompt".
func humanize(name string) string {
	var b strings.Builder
	for i, r := range name {
		switch {
		case r == '_' || r == '-':
			b.WriteRune(' ')
		case unicode.IsUpper(r) && i > 0:
			b.WriteRune(' ')
			b.WriteRune(unicode.ToLower(r))
		case i == 0:
			b.WriteRune(unicode.ToUpper(r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func singular(name string) string {
	if strings.HasSuffix(name, "ies") {
		return strings.TrimSuffix(name, "ies") + "y"
	}
	if strings.HasSuffix(name, "s") && len(name) > 1 {
		return strings.TrimSuffix(name, "s")
	}
	return name
}

var _ comicflow.ChatProvider = (*Client)(nil)
