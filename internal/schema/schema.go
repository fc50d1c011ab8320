// Package schema converts between field trees and JSON Schema documents
package schema

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/mcncl/jsonbuilder/internal/errors"
	"github.com/mcncl/jsonbuilder/internal/models"
	"github.com/mcncl/jsonbuilder/internal/transform"
)

// Draft is the dialect written by Export
const Draft = "https://json-schema.org/draft/2020-12/schema"

// SchemaType handles JSON Schema type field which can be string or array of strings
type SchemaType struct {
	Types []string
}

// UnmarshalJSON handles both string and array forms of type
func (st *SchemaType) UnmarshalJSON(data []byte) error {
	// Try string first
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		st.Types = []string{s}
		return nil
	}

	// Try array of strings
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		st.Types = arr
		return nil
	}

	return fmt.Errorf("type must be string or array of strings")
}

// MarshalJSON writes a single type as a plain string
func (st SchemaType) MarshalJSON() ([]byte, error) {
	if len(st.Types) == 1 {
		return json.Marshal(st.Types[0])
	}
	return json.Marshal(st.Types)
}

// Primary returns the first non-null type, or empty string if none
func (st SchemaType) Primary() string {
	for _, t := range st.Types {
		if t != "null" {
			return t
		}
	}
	if len(st.Types) > 0 {
		return st.Types[0]
	}
	return ""
}

// Schema represents the subset of a JSON Schema document a field tree can express
type Schema struct {
	// Meta
	Schema      string `json:"$schema,omitempty"`
	ID          string `json:"$id,omitempty"`
	Ref         string `json:"$ref,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`

	// Type - can be string or array of strings in JSON Schema
	Type *SchemaType `json:"type,omitempty"`

	// Object properties
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	AdditionalProperties *bool              `json:"additionalProperties,omitempty"`

	// Composition (basic support)
	AllOf []*Schema `json:"allOf,omitempty"`

	// Definitions for $ref resolution
	Definitions map[string]*Schema `json:"definitions,omitempty"`
	Defs        map[string]*Schema `json:"$defs,omitempty"` // JSON Schema draft 2019-09+

	// Default value
	Default interface{} `json:"default,omitempty"`
}

// ParseFile reads and parses a JSON Schema from a file
func ParseFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewInputError(fmt.Sprintf("schema file '%s' not found", path), errors.ErrFileNotFound)
		}
		return nil, errors.NewInputError("failed to read schema file", err)
	}

	return ParseBytes(data)
}

// ParseBytes parses JSON Schema from bytes
func ParseBytes(data []byte) (*Schema, error) {
	var schema Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, errors.NewParsingError(fmt.Sprintf("failed to parse JSON Schema: %v", err), errors.ErrInvalidDocument)
	}

	return &schema, nil
}

// ParseString parses JSON Schema from a string
func ParseString(s string) (*Schema, error) {
	return ParseBytes([]byte(s))
}

// Export describes the object a field tree produces. Every named field is
// required and carries the value the preview shows as its default. Keys go
// through t, so naming rules apply; a repeated key keeps the last field.
func Export(tree models.FieldTree, t *transform.Transformer) *Schema {
	if t == nil {
		t = transform.NewTransformer()
	}
	root := exportObject(tree, t)
	root.Schema = Draft
	return root
}

func exportObject(fields []models.FieldNode, t *transform.Transformer) *Schema {
	closed := false
	s := &Schema{
		Type:                 &SchemaType{Types: []string{"object"}},
		Properties:           make(map[string]*Schema),
		AdditionalProperties: &closed,
	}

	seen := make(map[string]bool)
	for _, field := range fields {
		if field.Name == "" {
			continue
		}
		key := t.Key(field.Name)
		if !seen[key] {
			seen[key] = true
			s.Required = append(s.Required, key)
		}
		if field.IsNested() {
			s.Properties[key] = exportObject(field.Children, t)
			continue
		}
		kind := "string"
		if field.Kind == models.Number {
			kind = "number"
		}
		s.Properties[key] = &Schema{
			Type:    &SchemaType{Types: []string{kind}},
			Default: transform.DefaultFor(field),
		}
	}
	return s
}

// Converter turns a JSON Schema into a field tree
type Converter struct {
	schema      *Schema
	definitions map[string]*Schema // Merged definitions for $ref resolution
	resolving   map[string]bool    // $refs currently being expanded
	skipped     []string
}

// NewConverter creates a new schema converter
func NewConverter(schema *Schema) *Converter {
	// Merge definitions and $defs
	definitions := make(map[string]*Schema)
	for k, v := range schema.Definitions {
		definitions[k] = v
	}
	for k, v := range schema.Defs {
		definitions[k] = v
	}

	return &Converter{
		schema:      schema,
		definitions: definitions,
		resolving:   make(map[string]bool),
	}
}

// Skipped lists the properties that have no field equivalent (booleans,
// arrays, null), as dotted property paths.
func (c *Converter) Skipped() []string {
	return c.skipped
}

// Convert builds the field tree for the root object schema. Properties are
// visited in name order.
func (c *Converter) Convert() (models.FieldTree, error) {
	var followed []string
	root, err := c.resolve(c.schema, &followed)
	defer c.release(followed)
	if err != nil {
		return nil, err
	}
	if kindOf(root) != "object" {
		return nil, errors.NewParsingError(
			fmt.Sprintf("root schema must describe an object, got '%s'", kindOf(root)),
			errors.ErrInvalidDocument,
		)
	}

	tree, err := c.convertObject(root, "")
	if err != nil {
		return nil, err
	}
	tree.EnsureIDs()
	return tree, nil
}

// Import parses a JSON Schema document and converts it to a field tree.
func Import(data []byte) (models.FieldTree, []string, error) {
	s, err := ParseBytes(data)
	if err != nil {
		return nil, nil, err
	}
	c := NewConverter(s)
	tree, err := c.Convert()
	if err != nil {
		return nil, nil, err
	}
	return tree, c.Skipped(), nil
}

func (c *Converter) convertObject(s *Schema, path string) (models.FieldTree, error) {
	// Sort property names for deterministic output
	propNames := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		propNames = append(propNames, name)
	}
	sort.Strings(propNames)

	tree := make(models.FieldTree, 0, len(propNames))
	for _, propName := range propNames {
		propPath := propName
		if path != "" {
			propPath = path + "." + propName
		}

		var followed []string
		prop, err := c.resolve(s.Properties[propName], &followed)
		if err != nil {
			c.release(followed)
			return nil, fmt.Errorf("failed to convert property %s: %w", propPath, err)
		}

		field := models.FieldNode{Name: propName}
		switch kindOf(prop) {
		case "object":
			field.Kind = models.Nested
			field.Children, err = c.convertObject(prop, propPath)
			if err != nil {
				c.release(followed)
				return nil, err
			}
		case "string":
			field.Kind = models.String
			value := ""
			if d, ok := prop.Default.(string); ok {
				value = d
			}
			field.DefaultValue = models.StringValue(value)
		case "number", "integer":
			field.Kind = models.Number
			value := 0.0
			if d, ok := prop.Default.(float64); ok {
				value = d
			}
			field.DefaultValue = models.NumberValue(value)
		default:
			c.skipped = append(c.skipped, propPath)
		}
		c.release(followed)
		if field.Kind != "" {
			tree = append(tree, field)
		}
	}
	return tree, nil
}

// resolve follows $ref and merges allOf until a concrete schema remains.
// Every followed $ref is appended to followed and stays marked until
// released, so a reference reached again inside its own subtree is caught.
func (c *Converter) resolve(s *Schema, followed *[]string) (*Schema, error) {
	if s == nil {
		return &Schema{}, nil
	}
	if s.Ref != "" {
		if c.resolving[s.Ref] {
			return nil, errors.NewParsingError(fmt.Sprintf("recursive $ref: %s", s.Ref), errors.ErrInvalidDocument)
		}
		target, err := c.lookup(s.Ref)
		if err != nil {
			return nil, err
		}
		c.resolving[s.Ref] = true
		*followed = append(*followed, s.Ref)
		return c.resolve(target, followed)
	}
	if len(s.AllOf) > 0 {
		return c.mergeAllOf(s.AllOf, followed)
	}
	return s, nil
}

func (c *Converter) release(followed []string) {
	for _, ref := range followed {
		delete(c.resolving, ref)
	}
}

// lookup handles local references like "#/definitions/User" or "#/$defs/User"
func (c *Converter) lookup(ref string) (*Schema, error) {
	for _, prefix := range []string{"#/definitions/", "#/$defs/"} {
		if !strings.HasPrefix(ref, prefix) {
			continue
		}
		if def, ok := c.definitions[strings.TrimPrefix(ref, prefix)]; ok {
			return def, nil
		}
		return nil, errors.NewParsingError(fmt.Sprintf("unresolved $ref: %s", ref), errors.ErrInvalidDocument)
	}

	// External refs not supported
	return nil, errors.NewParsingError(fmt.Sprintf("external $ref not supported: %s", ref), errors.ErrInvalidDocument)
}

// mergeAllOf merges multiple object schemas from allOf
func (c *Converter) mergeAllOf(schemas []*Schema, followed *[]string) (*Schema, error) {
	merged := &Schema{
		Type:       &SchemaType{Types: []string{"object"}},
		Properties: make(map[string]*Schema),
	}

	for _, s := range schemas {
		resolved, err := c.resolve(s, followed)
		if err != nil {
			return nil, err
		}

		for k, v := range resolved.Properties {
			merged.Properties[k] = v
		}
		merged.Required = append(merged.Required, resolved.Required...)

		// Take first non-empty title/description
		if merged.Title == "" && resolved.Title != "" {
			merged.Title = resolved.Title
		}
		if merged.Description == "" && resolved.Description != "" {
			merged.Description = resolved.Description
		}
	}

	return merged, nil
}

// kindOf returns the schema's primary type, inferring "object" from properties
func kindOf(s *Schema) string {
	if s.Type != nil {
		if t := s.Type.Primary(); t != "" {
			return t
		}
	}
	if len(s.Properties) > 0 {
		return "object"
	}
	return ""
}
