package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"unicode/utf8"
)

// ErrViolation is matched by every ViolationError.
var ErrViolation = errors.New("schema: value does not conform")

// ViolationError reports the first place a value departs from its schema.
type ViolationError struct {
	Path    string // JSON path, e.g. $.scenes[2].title
	Message string
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("schema: %s: %s", e.Path, e.Message)
}

func (e *ViolationError) Unwrap() error {
	return ErrViolation
}

// Validate checks that data is a JSON document conforming to the schema.
func Validate(raw json.RawMessage, data []byte) error {
	n, err := Parse(raw)
	if err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return &ViolationError{Path: "$", Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if dec.More() {
		return &ViolationError{Path: "$", Message: "unexpected data after JSON value"}
	}
	return n.ValidateValue(v)
}

// ValidateValue checks a decoded JSON value against the schema.
// Numbers may be json.Number or float64.
func (n *Node) ValidateValue(v any) error {
	return n.validate("$", v)
}

func (n *Node) validate(path string, v any) error {
	if v == nil && n.Type != "" {
		return violation(path, "expected %s, got null", n.Type)
	}

	switch n.Type {
	case "object":
		m, ok := v.(map[string]any)
		if !ok {
			return violation(path, "expected object, got %s", kindOf(v))
		}
		for _, name := range n.Required {
			if _, ok := m[name]; !ok {
				return violation(path, "missing required property %q", name)
			}
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			prop, ok := n.Properties[k]
			if !ok {
				if n.AdditionalProperties != nil && !*n.AdditionalProperties {
					return violation(path, "unexpected property %q", k)
				}
				continue
			}
			if err := prop.validate(path+"."+k, m[k]); err != nil {
				return err
			}
		}

	case "array":
		items, ok := v.([]any)
		if !ok {
			return violation(path, "expected array, got %s", kindOf(v))
		}
		if n.MinItems != nil && len(items) < *n.MinItems {
			return violation(path, "expected at least %d items, got %d", *n.MinItems, len(items))
		}
		if n.MaxItems != nil && len(items) > *n.MaxItems {
			return violation(path, "expected at most %d items, got %d", *n.MaxItems, len(items))
		}
		for i, item := range items {
			if err := n.Items.validate(fmt.Sprintf("%s[%d]", path, i), item); err != nil {
				return err
			}
		}

	case "string":
		s, ok := v.(string)
		if !ok {
			return violation(path, "expected string, got %s", kindOf(v))
		}
		length := utf8.RuneCountInString(s)
		if n.MinLength != nil && length < *n.MinLength {
			return violation(path, "expected at least %d characters, got %d", *n.MinLength, length)
		}
		if n.MaxLength != nil && length > *n.MaxLength {
			return violation(path, "expected at most %d characters, got %d", *n.MaxLength, length)
		}
		if n.Pattern != "" {
			re, err := regexp.Compile(n.Pattern)
			if err != nil {
				return &DefinitionError{Message: err.Error(), Err: ErrInvalidPattern}
			}
			if !re.MatchString(s) {
				return violation(path, "does not match pattern %q", n.Pattern)
			}
		}

	case "integer", "number":
		f, ok := toFloat(v)
		if !ok {
			return violation(path, "expected %s, got %s", n.Type, kindOf(v))
		}
		if n.Type == "integer" && f != math.Trunc(f) {
			return violation(path, "expected integer, got %v", f)
		}
		if n.Minimum != nil && f < *n.Minimum {
			return violation(path, "%v is below minimum %v", f, *n.Minimum)
		}
		if n.Maximum != nil && f > *n.Maximum {
			return violation(path, "%v is above maximum %v", f, *n.Maximum)
		}

	case "boolean":
		if _, ok := v.(bool); !ok {
			return violation(path, "expected boolean, got %s", kindOf(v))
		}
	}

	if len(n.Enum) > 0 && !enumContains(n.Enum, v) {
		return violation(path, "value %v is not one of %v", v, n.Enum)
	}
	return nil
}

func violation(path, format string, args ...any) error {
	return &ViolationError{Path: path, Message: fmt.Sprintf(format, args...)}
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case float64:
		return x, true
	case int:
		return float64(x), true
	}
	return 0, false
}

func enumContains(enum []any, v any) bool {
	vf, vNumeric := toFloat(v)
	for _, e := range enum {
		if ef, ok := toFloat(e); ok && vNumeric {
			if ef == vf {
				return true
			}
			continue
		}
		switch v.(type) {
		case string, bool:
			if e == v {
				return true
			}
		}
	}
	return false
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64, int:
		return "number"
	}
	return fmt.Sprintf("%T", v)
}
