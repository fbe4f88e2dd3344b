package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

// Builder is the interface implemented by all schema builders.
type Builder interface {
	// Build serializes the schema to json.RawMessage.
	// Returns an error if the schema is invalid.
	Build() (json.RawMessage, error)

	// MustBuild is like Build but panics on error.
	MustBuild() json.RawMessage

	node() *Node
}

// Node is the decoded form of a JSON Schema. Only the keywords used for
// structured output are represented.
type Node struct {
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
	Enum        []any  `json:"enum,omitempty"`

	MinLength *int   `json:"minLength,omitempty"`
	MaxLength *int   `json:"maxLength,omitempty"`
	Pattern   string `json:"pattern,omitempty"`

	Minimum *float64 `json:"minimum,omitempty"`
	Maximum *float64 `json:"maximum,omitempty"`

	Items    *Node `json:"items,omitempty"`
	MinItems *int  `json:"minItems,omitempty"`
	MaxItems *int  `json:"maxItems,omitempty"`

	Properties           map[string]*Node `json:"properties,omitempty"`
	Required             []string         `json:"required,omitempty"`
	AdditionalProperties *bool            `json:"additionalProperties,omitempty"`
}

// Sentinel errors for schema construction.
var (
	// ErrInvalidRange is returned when a minimum exceeds its maximum.
	ErrInvalidRange = errors.New("schema: minimum exceeds maximum")

	// ErrInvalidPattern is returned when a regex pattern is invalid.
	ErrInvalidPattern = errors.New("schema: invalid regex pattern")

	// ErrNilItems is returned when an array has no items schema.
	ErrNilItems = errors.New("schema: array requires items schema")
)

// DefinitionError reports an internally inconsistent schema.
type DefinitionError struct {
	Field   string
	Message string
	Err     error
}

func (e *DefinitionError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("schema: field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("schema: %s", e.Message)
}

func (e *DefinitionError) Unwrap() error {
	return e.Err
}

// Parse decodes a JSON Schema document and checks it for consistency.
func Parse(raw json.RawMessage) (*Node, error) {
	var n Node
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("schema: decode: %w", err)
	}
	if err := n.check(); err != nil {
		return nil, err
	}
	return &n, nil
}

func (n *Node) check() error {
	switch n.Type {
	case "string":
		if n.MinLength != nil && n.MaxLength != nil && *n.MinLength > *n.MaxLength {
			return &DefinitionError{Message: "minLength exceeds maxLength", Err: ErrInvalidRange}
		}
		if n.Pattern != "" {
			if _, err := regexp.Compile(n.Pattern); err != nil {
				return &DefinitionError{
					Message: fmt.Sprintf("invalid pattern %q: %v", n.Pattern, err),
					Err:     ErrInvalidPattern,
				}
			}
		}

	case "integer", "number":
		if n.Minimum != nil && n.Maximum != nil && *n.Minimum > *n.Maximum {
			return &DefinitionError{Message: "minimum exceeds maximum", Err: ErrInvalidRange}
		}

	case "array":
		if n.Items == nil {
			return &DefinitionError{Message: "array requires items schema", Err: ErrNilItems}
		}
		if n.MinItems != nil && n.MaxItems != nil && *n.MinItems > *n.MaxItems {
			return &DefinitionError{Message: "minItems exceeds maxItems", Err: ErrInvalidRange}
		}
		if err := n.Items.check(); err != nil {
			return &DefinitionError{Message: fmt.Sprintf("invalid items schema: %v", err), Err: err}
		}

	case "object":
		for name, prop := range n.Properties {
			if err := prop.check(); err != nil {
				return &DefinitionError{Field: name, Message: err.Error(), Err: err}
			}
		}
	}
	return nil
}

func build(n *Node) (json.RawMessage, error) {
	if err := n.check(); err != nil {
		return nil, err
	}
	return json.Marshal(n)
}

func mustBuild(n *Node) json.RawMessage {
	data, err := build(n)
	if err != nil {
		panic(err)
	}
	return data
}

func ptr[T any](v T) *T {
	return &v
}
