package transform

import (
	"math"
	"strings"
	"testing"

	"github.com/mcncl/jsonbuilder/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func str(name, value string) models.FieldNode {
	return models.FieldNode{ID: name, Name: name, Kind: models.String, DefaultValue: models.StringValue(value)}
}

func num(name string, value float64) models.FieldNode {
	return models.FieldNode{ID: name, Name: name, Kind: models.Number, DefaultValue: models.NumberValue(value)}
}

func nested(name string, children ...models.FieldNode) models.FieldNode {
	return models.FieldNode{ID: name, Name: name, Kind: models.Nested, Children: children}
}

func TestToJSONValue(t *testing.T) {
	tests := []struct {
		name     string
		tree     models.FieldTree
		expected map[string]interface{}
	}{
		{
			name:     "empty tree",
			tree:     nil,
			expected: map[string]interface{}{},
		},
		{
			name:     "number zero",
			tree:     models.FieldTree{num("age", 0)},
			expected: map[string]interface{}{"age": 0.0},
		},
		{
			name:     "empty name skipped",
			tree:     models.FieldTree{{Name: "", Kind: models.String, DefaultValue: models.StringValue("x")}},
			expected: map[string]interface{}{},
		},
		{
			name: "nested object",
			tree: models.FieldTree{nested("user", str("email", "a@b.com"))},
			expected: map[string]interface{}{
				"user": map[string]interface{}{"email": "a@b.com"},
			},
		},
		{
			name:     "nested without children",
			tree:     models.FieldTree{nested("g")},
			expected: map[string]interface{}{"g": map[string]interface{}{}},
		},
		{
			name: "deep nesting",
			tree: models.FieldTree{nested("a", nested("b", nested("c", num("d", 1.5))))},
			expected: map[string]interface{}{
				"a": map[string]interface{}{"b": map[string]interface{}{"c": map[string]interface{}{"d": 1.5}}},
			},
		},
		{
			name:     "undefined string default",
			tree:     models.FieldTree{{Name: "s", Kind: models.String}},
			expected: map[string]interface{}{"s": ""},
		},
		{
			name:     "undefined number default",
			tree:     models.FieldTree{{Name: "n", Kind: models.Number}},
			expected: map[string]interface{}{"n": 0.0},
		},
		{
			name:     "NaN falls back to zero",
			tree:     models.FieldTree{num("n", math.NaN())},
			expected: map[string]interface{}{"n": 0.0},
		},
		{
			name:     "empty string on number field falls back to zero",
			tree:     models.FieldTree{{Name: "n", Kind: models.Number, DefaultValue: models.StringValue("")}},
			expected: map[string]interface{}{"n": 0.0},
		},
		{
			name:     "truthy default kept whatever its type",
			tree:     models.FieldTree{{Name: "s", Kind: models.String, DefaultValue: models.NumberValue(5)}},
			expected: map[string]interface{}{"s": 5.0},
		},
		{
			name:     "blank name is still a key",
			tree:     models.FieldTree{str(" ", "v")},
			expected: map[string]interface{}{" ": "v"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ToJSONValue(tt.tree)
			require.NotNil(t, result)
			assert.Equal(t, tt.expected, result.ToMap())
		})
	}
}

func TestToJSONValue_DuplicateNamesLastWriteWins(t *testing.T) {
	tree := models.FieldTree{str("id", "first"), num("other", 1), str("id", "second")}
	result := ToJSONValue(tree)

	assert.Equal(t, []string{"id", "other"}, result.Keys())
	v, ok := result.Get("id")
	require.True(t, ok)
	assert.Equal(t, "second", v)
}

func TestToJSONValue_KeysMatchTopLevelNames(t *testing.T) {
	tree := models.FieldTree{
		str("a", "1"),
		{Name: "", Kind: models.Number},
		nested("b", str("inner", "x")),
		str("a", "2"),
		num("c", 3),
	}
	result := ToJSONValue(tree)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, result.Keys())
}

func TestToJSONValue_DoesNotMutateTree(t *testing.T) {
	tree := models.FieldTree{nested("user", str("email", ""), num("age", 0))}
	before := tree.Clone()
	_ = ToJSONValue(tree)
	assert.Equal(t, before, tree)
}

func TestTransformer_WithKeyName(t *testing.T) {
	tr := NewTransformer(WithKeyName(strings.ToUpper))
	result := tr.Transform(models.FieldTree{
		nested("user", str("email", "a@b.com")),
		{Name: "", Kind: models.String, DefaultValue: models.StringValue("skipped")},
	})
	assert.Equal(t, map[string]interface{}{
		"USER": map[string]interface{}{"EMAIL": "a@b.com"},
	}, result.ToMap())

	assert.NotNil(t, NewTransformer(WithKeyName(nil)).Transform(models.FieldTree{str("a", "b")}))
}

func TestTransformer_Key(t *testing.T) {
	assert.Equal(t, "userName", NewTransformer().Key("userName"))
	upper := NewTransformer(WithKeyName(strings.ToUpper))
	assert.Equal(t, "USERNAME", upper.Key("userName"))
}

func TestDefaultFor(t *testing.T) {
	tests := []struct {
		name  string
		field models.FieldNode
		want  models.JSONValue
	}{
		{"truthy string", models.FieldNode{Kind: models.String, DefaultValue: models.StringValue("x")}, "x"},
		{"empty string", models.FieldNode{Kind: models.String, DefaultValue: models.StringValue("")}, ""},
		{"undefined string", models.FieldNode{Kind: models.String}, ""},
		{"truthy number", models.FieldNode{Kind: models.Number, DefaultValue: models.NumberValue(2)}, 2.0},
		{"NaN number", models.FieldNode{Kind: models.Number, DefaultValue: models.NumberValue(math.NaN())}, 0.0},
		{"string default on number field", models.FieldNode{Kind: models.Number, DefaultValue: models.StringValue("7")}, "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultFor(tt.field))
		})
	}
}
