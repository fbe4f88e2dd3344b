package schema

import (
	"encoding/json"
	"fmt"
)

// RequiredField wraps a Builder to mark it as required in an object.
type RequiredField struct {
	builder Builder
}

// String creates a new string schema builder.
func String() *StringBuilder {
	return &StringBuilder{n: &Node{Type: "string"}}
}

// StringBuilder constructs string type schemas.
type StringBuilder struct{ n *Node }

// Desc sets the description for this field.
func (b *StringBuilder) Desc(description string) *StringBuilder {
	b.n.Description = description
	return b
}

// Enum restricts the value to one of the provided options.
func (b *StringBuilder) Enum(values ...string) *StringBuilder {
	b.n.Enum = make([]any, len(values))
	for i, v := range values {
		b.n.Enum[i] = v
	}
	return b
}

// MinLength sets the minimum string length in characters.
func (b *StringBuilder) MinLength(n int) *StringBuilder {
	b.n.MinLength = ptr(n)
	return b
}

// MaxLength sets the maximum string length in characters.
func (b *StringBuilder) MaxLength(n int) *StringBuilder {
	b.n.MaxLength = ptr(n)
	return b
}

// Pattern sets a regex pattern the string must match.
func (b *StringBuilder) Pattern(regex string) *StringBuilder {
	b.n.Pattern = regex
	return b
}

// Required marks this field as required when used in an object.
func (b *StringBuilder) Required() *RequiredField { return &RequiredField{builder: b} }

// Build serializes the schema to json.RawMessage.
func (b *StringBuilder) Build() (json.RawMessage, error) { return build(b.n) }

// MustBuild is like Build but panics on error.
func (b *StringBuilder) MustBuild() json.RawMessage { return mustBuild(b.n) }

func (b *StringBuilder) node() *Node { return b.n }

// Int creates a new integer schema builder.
func Int() *IntBuilder {
	return &IntBuilder{n: &Node{Type: "integer"}}
}

// IntBuilder constructs integer type schemas.
type IntBuilder struct{ n *Node }

// Desc sets the description.
func (b *IntBuilder) Desc(description string) *IntBuilder {
	b.n.Description = description
	return b
}

// Min sets the minimum value (inclusive).
func (b *IntBuilder) Min(n int) *IntBuilder {
	b.n.Minimum = ptr(float64(n))
	return b
}

// Max sets the maximum value (inclusive).
func (b *IntBuilder) Max(n int) *IntBuilder {
	b.n.Maximum = ptr(float64(n))
	return b
}

// Required marks this field as required when used in an object.
func (b *IntBuilder) Required() *RequiredField { return &RequiredField{builder: b} }

// Build serializes the schema to json.RawMessage.
func (b *IntBuilder) Build() (json.RawMessage, error) { return build(b.n) }

// MustBuild is like Build but panics on error.
func (b *IntBuilder) MustBuild() json.RawMessage { return mustBuild(b.n) }

func (b *IntBuilder) node() *Node { return b.n }

// Number creates a new number schema builder.
func Number() *NumberBuilder {
	return &NumberBuilder{n: &Node{Type: "number"}}
}

// NumberBuilder constructs number type schemas.
type NumberBuilder struct{ n *Node }

// Desc sets the description.
func (b *NumberBuilder) Desc(description string) *NumberBuilder {
	b.n.Description = description
	return b
}

// Min sets the minimum value (inclusive).
func (b *NumberBuilder) Min(v float64) *NumberBuilder {
	b.n.Minimum = ptr(v)
	return b
}

// Max sets the maximum value (inclusive).
func (b *NumberBuilder) Max(v float64) *NumberBuilder {
	b.n.Maximum = ptr(v)
	return b
}

// Required marks this field as required when used in an object.
func (b *NumberBuilder) Required() *RequiredField { return &RequiredField{builder: b} }

// Build serializes the schema to json.RawMessage.
func (b *NumberBuilder) Build() (json.RawMessage, error) { return build(b.n) }

// MustBuild is like Build but panics on error.
func (b *NumberBuilder) MustBuild() json.RawMessage { return mustBuild(b.n) }

func (b *NumberBuilder) node() *Node { return b.n }

// Bool creates a new boolean schema builder.
func Bool() *BoolBuilder {
	return &BoolBuilder{n: &Node{Type: "boolean"}}
}

// BoolBuilder constructs boolean type schemas.
type BoolBuilder struct{ n *Node }

// Desc sets the description.
func (b *BoolBuilder) Desc(description string) *BoolBuilder {
	b.n.Description = description
	return b
}

// Required marks this field as required when used in an object.
func (b *BoolBuilder) Required() *RequiredField { return &RequiredField{builder: b} }

// Build serializes the schema to json.RawMessage.
func (b *BoolBuilder) Build() (json.RawMessage, error) { return build(b.n) }

// MustBuild is like Build but panics on error.
func (b *BoolBuilder) MustBuild() json.RawMessage { return mustBuild(b.n) }

func (b *BoolBuilder) node() *Node { return b.n }

// Array creates a new array schema builder with the specified item type.
func Array(items Builder) *ArrayBuilder {
	return &ArrayBuilder{n: &Node{Type: "array", Items: items.node()}}
}

// ArrayBuilder constructs array type schemas.
type ArrayBuilder struct{ n *Node }

// Desc sets the description.
func (b *ArrayBuilder) Desc(description string) *ArrayBuilder {
	b.n.Description = description
	return b
}

// MinItems sets the minimum number of items.
func (b *ArrayBuilder) MinItems(n int) *ArrayBuilder {
	b.n.MinItems = ptr(n)
	return b
}

// MaxItems sets the maximum number of items.
func (b *ArrayBuilder) MaxItems(n int) *ArrayBuilder {
	b.n.MaxItems = ptr(n)
	return b
}

// Required marks this field as required when used in an object.
func (b *ArrayBuilder) Required() *RequiredField { return &RequiredField{builder: b} }

// Build serializes the schema to json.RawMessage.
func (b *ArrayBuilder) Build() (json.RawMessage, error) { return build(b.n) }

// MustBuild is like Build but panics on error.
func (b *ArrayBuilder) MustBuild() json.RawMessage { return mustBuild(b.n) }

func (b *ArrayBuilder) node() *Node { return b.n }

// Object creates a new object schema builder.
func Object() *ObjectBuilder {
	return &ObjectBuilder{n: &Node{Type: "object", Properties: make(map[string]*Node)}}
}

// ObjectBuilder constructs object type schemas.
type ObjectBuilder struct{ n *Node }

// Desc sets the description for the object itself.
func (b *ObjectBuilder) Desc(description string) *ObjectBuilder {
	b.n.Description = description
	return b
}

// Field adds a field with its schema.
// The field argument can be a Builder or a *RequiredField.
func (b *ObjectBuilder) Field(name string, field any) *ObjectBuilder {
	switch f := field.(type) {
	case *RequiredField:
		b.n.Properties[name] = f.builder.node()
		b.addRequired(name)
	case Builder:
		b.n.Properties[name] = f.node()
	default:
		panic(fmt.Sprintf("schema: Field %q requires a Builder or *RequiredField, got %T", name, field))
	}
	return b
}

func (b *ObjectBuilder) addRequired(name string) {
	for _, r := range b.n.Required {
		if r == name {
			return
		}
	}
	b.n.Required = append(b.n.Required, name)
}

// StrictMode rejects properties that are not declared.
func (b *ObjectBuilder) StrictMode() *ObjectBuilder {
	b.n.AdditionalProperties = ptr(false)
	return b
}

// Required marks this object as required when nested in another object.
func (b *ObjectBuilder) Required() *RequiredField { return &RequiredField{builder: b} }

// Build serializes the schema to json.RawMessage.
func (b *ObjectBuilder) Build() (json.RawMessage, error) { return build(b.n) }

// MustBuild is like Build but panics on error.
func (b *ObjectBuilder) MustBuild() json.RawMessage { return mustBuild(b.n) }

func (b *ObjectBuilder) node() *Node { return b.n }
