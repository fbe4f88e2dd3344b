package workflow

import "fmt"

// Policy is the merge policy of a state field.
type Policy int

const (
	// PolicyReplace overwrites the field; the last write in a merge wins.
	PolicyReplace Policy = iota
	// PolicyAppend concatenates onto the existing sequence.
	PolicyAppend
)

func (p Policy) String() string {
	switch p {
	case PolicyReplace:
		return "replace"
	case PolicyAppend:
		return "append"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// Schema declares the fields of state type S and their merge policies.
// Declare all fields before building graphs from the schema.
type Schema[S any] struct {
	fields map[string]Policy
	order  []string
}

// NewSchema creates an empty schema for S.
func NewSchema[S any]() *Schema[S] {
	return &Schema[S]{fields: make(map[string]Policy)}
}

// Fields returns the declared field names in declaration order.
func (s *Schema[S]) Fields() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Policy returns the merge policy of a declared field.
func (s *Schema[S]) Policy(name string) (Policy, bool) {
	p, ok := s.fields[name]
	return p, ok
}

func (s *Schema[S]) declare(name string, p Policy) {
	if name == "" {
		panic("workflow: field name must not be empty")
	}
	if _, dup := s.fields[name]; dup {
		panic(fmt.Sprintf("workflow: field %q declared twice", name))
	}
	s.fields[name] = p
	s.order = append(s.order, name)
}

// Field is a replace-merged state field of type T.
type Field[S, T any] struct {
	name string
	get  func(*S) *T
}

// Replace declares a replace-merged field. get must return a pointer into the
// state it is given.
func Replace[S, T any](s *Schema[S], name string, get func(*S) *T) Field[S, T] {
	s.declare(name, PolicyReplace)
	return Field[S, T]{name: name, get: get}
}

// Name returns the field name.
func (f Field[S, T]) Name() string { return f.name }

// Get reads the field from a state value.
func (f Field[S, T]) Get(state S) T { return *f.get(&state) }

// Set returns an update that overwrites the field with v.
func (f Field[S, T]) Set(v T) Update[S] {
	return Update[S]{writes: []write[S]{{
		field: f.name,
		apply: func(s *S) { *f.get(s) = v },
	}}}
}

// ListField is an append-merged state field holding a sequence of E.
type ListField[S, E any] struct {
	name string
	get  func(*S) *[]E
}

// Append declares an append-merged field.
func Append[S, E any](s *Schema[S], name string, get func(*S) *[]E) ListField[S, E] {
	s.declare(name, PolicyAppend)
	return ListField[S, E]{name: name, get: get}
}

// Name returns the field name.
func (f ListField[S, E]) Name() string { return f.name }

// Get reads the sequence from a state value.
func (f ListField[S, E]) Get(state S) []E { return *f.get(&state) }

// Add returns an update that appends items to the sequence.
func (f ListField[S, E]) Add(items ...E) Update[S] {
	items = append([]E(nil), items...)
	return Update[S]{writes: []write[S]{{
		field: f.name,
		apply: func(s *S) {
			cur := *f.get(s)
			// Always copy so states handed to earlier steps never share a backing array.
			next := make([]E, 0, len(cur)+len(items))
			next = append(next, cur...)
			*f.get(s) = append(next, items...)
		},
	}}}
}

// Update is a partial state update: an ordered list of field writes.
// The zero value is an empty update.
type Update[S any] struct {
	writes []write[S]
}

type write[S any] struct {
	field string
	apply func(*S)
}

// Merge combines updates, preserving order.
func Merge[S any](updates ...Update[S]) Update[S] {
	var out Update[S]
	for _, u := range updates {
		out.writes = append(out.writes, u.writes...)
	}
	return out
}

// And returns u followed by other.
func (u Update[S]) And(other ...Update[S]) Update[S] {
	return Merge(append([]Update[S]{u}, other...)...)
}

// Empty reports whether the update writes nothing.
func (u Update[S]) Empty() bool { return len(u.writes) == 0 }

// Fields returns the names of the written fields in write order.
func (u Update[S]) Fields() []string {
	names := make([]string, len(u.writes))
	for i, w := range u.writes {
		names[i] = w.field
	}
	return names
}

// Apply merges updates into state according to the schema. Writes to fields
// the schema does not declare fail with ErrUnknownField and leave state unchanged.
func (s *Schema[S]) Apply(state S, updates ...Update[S]) (S, error) {
	for _, u := range updates {
		for _, w := range u.writes {
			if _, ok := s.fields[w.field]; !ok {
				return state, fmt.Errorf("%w: %q", ErrUnknownField, w.field)
			}
		}
	}
	for _, u := range updates {
		for _, w := range u.writes {
			w.apply(&state)
		}
	}
	return state, nil
}
