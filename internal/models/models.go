// Package models holds the field tree being edited and the JSON values produced from it.
package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Kind is the variant tag of a field.
type Kind string

const (
	String Kind = "string"
	Number Kind = "number"
	Nested Kind = "nested"
)

// Kinds lists every supported kind in selector order.
var Kinds = []Kind{String, Number, Nested}

// ParseKind converts a kind name (case-insensitive) into a Kind
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case String:
		return String, nil
	case Number:
		return Number, nil
	case Nested:
		return Nested, nil
	}
	return "", fmt.Errorf("unknown field type %q (expected string, number or nested)", s)
}

// FieldNode is one user-defined field.
//
// DefaultValue is populated for String and Number fields, Children for Nested
// fields. SetKind keeps exactly one of them populated.
type FieldNode struct {
	ID           string      `json:"id" yaml:"id,omitempty" toml:"id"`
	Name         string      `json:"name" yaml:"name" toml:"name"`
	Kind         Kind        `json:"type" yaml:"type" toml:"type"`
	DefaultValue *Scalar     `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty" toml:"defaultValue,omitempty"`
	Children     []FieldNode `json:"nested,omitempty" yaml:"nested,omitempty" toml:"nested,omitempty"`
}

// FieldTree is the root-level ordered list of fields.
type FieldTree []FieldNode

// NewID returns a fresh field identifier
func NewID() string {
	return uuid.NewString()
}

// NewField creates an empty string field, the shape used for every newly added field.
func NewField() FieldNode {
	return FieldNode{
		ID:           NewID(),
		Kind:         String,
		DefaultValue: StringValue(""),
	}
}

// SetKind switches the variant and resets the payload to the canonical
// empty value for the new kind.
func (f *FieldNode) SetKind(k Kind) {
	f.Kind = k
	switch k {
	case Number:
		f.DefaultValue = NumberValue(0)
		f.Children = nil
	case Nested:
		f.DefaultValue = nil
		f.Children = []FieldNode{NewField()}
	default:
		f.DefaultValue = StringValue("")
		f.Children = nil
	}
}

// IsNested reports whether the field is a nested group
func (f FieldNode) IsNested() bool {
	return f.Kind == Nested
}

// Clone returns a deep copy of the field and its descendants.
func (f FieldNode) Clone() FieldNode {
	out := f
	if f.DefaultValue != nil {
		v := *f.DefaultValue
		out.DefaultValue = &v
	}
	if f.Children != nil {
		out.Children = make([]FieldNode, len(f.Children))
		for i, c := range f.Children {
			out.Children[i] = c.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the tree.
func (t FieldTree) Clone() FieldTree {
	if t == nil {
		return nil
	}
	out := make(FieldTree, len(t))
	for i, f := range t {
		out[i] = f.Clone()
	}
	return out
}

// EnsureIDs assigns identifiers to fields loaded without one.
func (t FieldTree) EnsureIDs() {
	for i := range t {
		ensureID(&t[i])
	}
}

func ensureID(f *FieldNode) {
	if f.ID == "" {
		f.ID = NewID()
	}
	for i := range f.Children {
		ensureID(&f.Children[i])
	}
}

// DefaultTree returns the document a new editing session starts from.
func DefaultTree() FieldTree {
	return FieldTree{
		{
			ID:           "1",
			Name:         "example_field",
			Kind:         String,
			DefaultValue: StringValue("default_value"),
		},
	}
}
