package schema

import (
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/mcncl/jsonbuilder/internal/errors"
	"github.com/mcncl/jsonbuilder/internal/models"
	"github.com/mcncl/jsonbuilder/internal/transform"
)

func TestParseString(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:    "valid simple schema",
			input:   `{"type": "object"}`,
			wantErr: false,
		},
		{
			name:    "valid schema with properties",
			input:   `{"type": "object", "properties": {"name": {"type": "string"}}}`,
			wantErr: false,
		},
		{
			name:    "type array",
			input:   `{"type": ["object", "null"]}`,
			wantErr: false,
		},
		{
			name:    "invalid type",
			input:   `{"type": 3}`,
			wantErr: true,
		},
		{
			name:    "invalid JSON",
			input:   `{invalid}`,
			wantErr: true,
		},
		{
			name:    "empty object",
			input:   `{}`,
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema, err := ParseString(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, errors.Is(err, apperrors.ErrInvalidDocument))
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, schema)
			}
		})
	}
}

func TestSchemaType_Primary(t *testing.T) {
	assert.Equal(t, "string", SchemaType{Types: []string{"null", "string"}}.Primary())
	assert.Equal(t, "null", SchemaType{Types: []string{"null"}}.Primary())
	assert.Equal(t, "", SchemaType{}.Primary())
}

func TestExport(t *testing.T) {
	tree := models.FieldTree{
		{Name: "name", Kind: models.String, DefaultValue: models.StringValue("Ada")},
		{Name: "age", Kind: models.Number, DefaultValue: models.NumberValue(0)},
		{Name: "", Kind: models.String, DefaultValue: models.StringValue("skipped")},
		{Name: "address", Kind: models.Nested, Children: []models.FieldNode{
			{Name: "city", Kind: models.String},
		}},
		{Name: "name", Kind: models.String, DefaultValue: models.StringValue("Grace")},
	}

	s := Export(tree, nil)
	data, err := json.Marshal(s)
	require.NoError(t, err)

	want := `{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"type": "object",
		"properties": {
			"address": {
				"type": "object",
				"properties": {"city": {"type": "string", "default": ""}},
				"required": ["city"],
				"additionalProperties": false
			},
			"age": {"type": "number", "default": 0},
			"name": {"type": "string", "default": "Grace"}
		},
		"required": ["name", "age", "address"],
		"additionalProperties": false
	}`
	assert.JSONEq(t, want, string(data))
}

func TestExport_KeyNames(t *testing.T) {
	tree := models.FieldTree{
		{Name: "firstName", Kind: models.String, DefaultValue: models.StringValue("Ada")},
	}
	upper := transform.NewTransformer(transform.WithKeyName(func(s string) string { return "x_" + s }))

	s := Export(tree, upper)
	assert.Equal(t, []string{"x_firstName"}, s.Required)
	assert.Contains(t, s.Properties, "x_firstName")
}

func TestImport(t *testing.T) {
	input := `{
		"type": "object",
		"properties": {
			"name": {"type": "string", "default": "Ada"},
			"age": {"type": "integer"},
			"score": {"type": ["number", "null"], "default": 9.5},
			"active": {"type": "boolean"},
			"tags": {"type": "array", "items": {"type": "string"}},
			"address": {"$ref": "#/$defs/Address"},
			"meta": {"properties": {"version": {"type": "string", "default": 3}}}
		},
		"$defs": {
			"Address": {
				"type": "object",
				"properties": {"city": {"type": "string", "default": "Paris"}}
			}
		}
	}`

	tree, skipped, err := Import([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"active", "tags"}, skipped)

	got := transform.ToJSONValue(tree)
	data, err := json.Marshal(got)
	require.NoError(t, err)
	assert.Equal(t, `{"address":{"city":"Paris"},"age":0,"meta":{"version":""},"name":"Ada","score":9.5}`, string(data))

	for _, field := range tree {
		assert.NotEmpty(t, field.ID)
	}
}

func TestImport_AllOf(t *testing.T) {
	input := `{
		"allOf": [
			{"$ref": "#/definitions/Base"},
			{"type": "object", "properties": {"extra": {"type": "number", "default": 2}}}
		],
		"definitions": {
			"Base": {"type": "object", "properties": {"id": {"type": "string", "default": "x"}}}
		}
	}`

	tree, skipped, err := Import([]byte(input))
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, tree, 2)
	assert.Equal(t, "extra", tree[0].Name)
	assert.Equal(t, models.Number, tree[0].Kind)
	assert.Equal(t, "id", tree[1].Name)
}

func TestImport_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"root not object", `{"type": "string"}`},
		{"unresolved ref", `{"type": "object", "properties": {"a": {"$ref": "#/$defs/Missing"}}}`},
		{"external ref", `{"type": "object", "properties": {"a": {"$ref": "https://example.com/a.json"}}}`},
		{"recursive ref", `{"$ref": "#/$defs/Node", "$defs": {"Node": {"type": "object", "properties": {"child": {"$ref": "#/$defs/Node"}}}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Import([]byte(tt.input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidDocument))
		})
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	tree := models.FieldTree{
		{Name: "b", Kind: models.Number, DefaultValue: models.NumberValue(4)},
		{Name: "a", Kind: models.Nested, Children: []models.FieldNode{
			{Name: "c", Kind: models.String, DefaultValue: models.StringValue("d")},
		}},
	}

	data, err := json.Marshal(Export(tree, nil))
	require.NoError(t, err)

	imported, skipped, err := Import(data)
	require.NoError(t, err)
	assert.Empty(t, skipped)

	before, err := json.Marshal(transform.ToJSONValue(tree))
	require.NoError(t, err)
	after, err := json.Marshal(transform.ToJSONValue(imported))
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}
