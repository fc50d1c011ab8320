package formatter

import (
	"testing"

	"github.com/mcncl/jsonbuilder/internal/models"
	"github.com/mcncl/jsonbuilder/internal/transform"
	"github.com/mcncl/jsonbuilder/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatJSON(t *testing.T) {
	user := models.NewJSONObject()
	user.Set("email", "a@b.com")
	user.Set("age", 30.5)

	obj := models.NewJSONObject()
	obj.Set("user", user)
	obj.Set("empty", models.NewJSONObject())
	obj.Set("html", "<b>&</b>")
	obj.Set("count", 0.0)

	formatter := NewPlainFormatter()
	text, err := formatter.FormatJSON(obj)
	require.NoError(t, err)

	expectedOutput := `{
  "user": {
    "email": "a@b.com",
    "age": 30.5
  },
  "empty": {},
  "html": "<b>&</b>",
  "count": 0
}`
	assert.Equal(t, expectedOutput, text)
}

func TestFormatJSON_EmptyObject(t *testing.T) {
	text, err := NewPlainFormatter().FormatJSON(models.NewJSONObject())
	require.NoError(t, err)
	assert.Equal(t, "{}", text)
}

func TestFormatJSON_IndexKeysFirst(t *testing.T) {
	tree := models.FieldTree{
		{Name: "name", Kind: models.String, DefaultValue: models.StringValue("x")},
		{Name: "2", Kind: models.Number, DefaultValue: models.NumberValue(2)},
		{Name: "1", Kind: models.Number, DefaultValue: models.NumberValue(1)},
	}
	text, err := NewPlainFormatter().FormatJSON(transform.ToJSONValue(tree))
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"1\": 1,\n  \"2\": 2,\n  \"name\": \"x\"\n}", text)
}

func TestFormatJSON_Exponents(t *testing.T) {
	tests := []struct {
		value    float64
		expected string
	}{
		{1e-7, "1e-7"},
		{-2.5e-8, "-2.5e-8"},
		{0.000001, "0.000001"},
		{1e21, "1e+21"},
		{1.5e300, "1.5e+300"},
		{1e20, "100000000000000000000"},
		{123.456, "123.456"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			tree := models.FieldTree{
				{Name: "n", Kind: models.Number, DefaultValue: models.NumberValue(tt.value)},
			}
			text, err := NewPlainFormatter().FormatJSON(transform.ToJSONValue(tree))
			require.NoError(t, err)
			assert.Equal(t, "{\n  \"n\": "+tt.expected+"\n}", text)
		})
	}
}

func TestSummarizeErrors(t *testing.T) {
	messages := []string{"a", "b", "c", "d", "e"}

	tests := []struct {
		name     string
		messages []string
		limit    int
		expected string
	}{
		{"under limit", messages[:2], 3, "a\nb"},
		{"at limit", messages[:3], 3, "a\nb\nc"},
		{"over limit", messages, 3, "a\nb\nc\n...and 2 more"},
		{"no limit", messages, 0, "a\nb\nc\nd\ne"},
		{"empty", nil, 3, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SummarizeErrors(tt.messages, tt.limit))
		})
	}
}

func TestFormatValidation(t *testing.T) {
	formatter := NewPlainFormatter()

	valid := validator.Validate(models.FieldTree{{Name: "a", Kind: models.String, DefaultValue: models.StringValue("b")}})
	assert.Equal(t, "All fields are valid.", formatter.FormatValidation(valid))

	invalid := validator.Validate(models.FieldTree{{Name: "", Kind: models.Nested}})
	assert.Equal(t,
		"2 problem(s) found:\n"+
			"  - Field 1: Field name is required\n"+
			"  - Field 1: Nested field must have at least one child field",
		formatter.FormatValidation(invalid))
}

func TestFormatTree(t *testing.T) {
	tree := models.FieldTree{
		{Name: "user", Kind: models.Nested, Children: []models.FieldNode{
			{Name: "email", Kind: models.String, DefaultValue: models.StringValue("a@b.com")},
			{Name: "", Kind: models.Number},
		}},
	}

	expected := "0        user (nested)\n" +
		"  0.0      email (string) = \"a@b.com\"\n" +
		"  0.1      <unnamed> (number) = undefined"
	assert.Equal(t, expected, NewPlainFormatter().FormatTree(tree))
	assert.Equal(t, "(no fields)", NewPlainFormatter().FormatTree(nil))
}
