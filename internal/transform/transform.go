// Package transform turns a field tree into the example JSON object it describes.
package transform

import (
	"github.com/mcncl/jsonbuilder/internal/models"
)

// Transformer converts field trees into JSON objects
type Transformer struct {
	keyName func(string) string
}

// Option configures a Transformer
type Option func(*Transformer)

// WithKeyName rewrites every emitted key. The empty-name check is made on the
// field name before rewriting.
func WithKeyName(fn func(string) string) Option {
	return func(t *Transformer) {
		if fn != nil {
			t.keyName = fn
		}
	}
}

// NewTransformer creates a new Transformer instance
func NewTransformer(opts ...Option) *Transformer {
	t := &Transformer{keyName: func(s string) string { return s }}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Key returns the JSON key emitted for a field name
func (t *Transformer) Key(name string) string {
	return t.keyName(name)
}

// ToJSONValue converts a field tree using field names as keys.
func ToJSONValue(tree models.FieldTree) *models.JSONObject {
	return NewTransformer().Transform(tree)
}

// Transform builds the JSON object for tree. It never fails: fields without
// a name are skipped, nested fields become objects, and a missing or falsy
// default falls back to "" for string fields and 0 otherwise.
func (t *Transformer) Transform(tree models.FieldTree) *models.JSONObject {
	return t.transform(tree)
}

func (t *Transformer) transform(fields []models.FieldNode) *models.JSONObject {
	obj := models.NewJSONObject()
	for _, field := range fields {
		if field.Name == "" {
			continue
		}
		key := t.Key(field.Name)
		if field.IsNested() {
			obj.Set(key, t.transform(field.Children))
			continue
		}
		obj.Set(key, DefaultFor(field))
	}
	return obj
}

// DefaultFor returns the value emitted for a leaf field. A truthy default is
// kept as-is, whatever its type; otherwise the empty value of the field's
// kind is substituted.
func DefaultFor(field models.FieldNode) models.JSONValue {
	if field.DefaultValue != nil && field.DefaultValue.Truthy() {
		return field.DefaultValue.Value()
	}
	if field.Kind == models.String {
		return ""
	}
	return 0.0
}
