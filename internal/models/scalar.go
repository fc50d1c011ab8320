package models

import (
	"fmt"
	"math"
	"strconv"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Scalar is the literal default value of a String or Number field.
// A nil *Scalar means the value is undefined.
type Scalar struct {
	str   string
	num   float64
	isNum bool
}

// StringValue returns a string scalar
func StringValue(s string) *Scalar {
	return &Scalar{str: s}
}

// NumberValue returns a numeric scalar
func NumberValue(n float64) *Scalar {
	return &Scalar{num: n, isNum: true}
}

// IsNumber reports whether the scalar holds a number.
func (s Scalar) IsNumber() bool {
	return s.isNum
}

// Str returns the string payload; it is empty for numbers.
func (s Scalar) Str() string {
	return s.str
}

// Num returns the numeric payload; it is zero for strings.
func (s Scalar) Num() float64 {
	return s.num
}

// IsEmptyString reports whether the scalar is the empty string.
func (s Scalar) IsEmptyString() bool {
	return !s.isNum && s.str == ""
}

// Truthy follows JavaScript truthiness: "", 0, -0 and NaN are falsy.
func (s Scalar) Truthy() bool {
	if s.isNum {
		return s.num != 0 && !math.IsNaN(s.num)
	}
	return s.str != ""
}

// Value returns the scalar as a plain JSON value (string or float64).
func (s Scalar) Value() JSONValue {
	if s.isNum {
		return s.num
	}
	return s.str
}

// String renders the scalar for display.
func (s Scalar) String() string {
	if s.isNum {
		if math.IsNaN(s.num) {
			return "NaN"
		}
		return strconv.FormatFloat(s.num, 'g', -1, 64)
	}
	return strconv.Quote(s.str)
}

// MarshalJSON encodes strings as strings and numbers as numbers. NaN has no
// JSON form and is written as null.
func (s Scalar) MarshalJSON() ([]byte, error) {
	if s.isNum {
		if math.IsNaN(s.num) || math.IsInf(s.num, 0) {
			return []byte("null"), nil
		}
		return appendNumber(nil, s.num), nil
	}
	return json.MarshalNoEscape(s.str)
}

// appendNumber writes f the way JSON.stringify does: plain digits between
// 1e-6 and 1e21, exponent form outside with no zero padding (1e-7, 1e+21).
func appendNumber(b []byte, f float64) []byte {
	if f == 0 {
		return append(b, '0')
	}
	abs := math.Abs(f)
	format := byte('f')
	if abs < 1e-6 || abs >= 1e21 {
		format = 'e'
	}
	b = strconv.AppendFloat(b, f, format, -1, 64)
	if format == 'e' {
		n := len(b)
		if n >= 4 && b[n-4] == 'e' && b[n-3] == '-' && b[n-2] == '0' {
			b[n-2] = b[n-1]
			b = b[:n-1]
		}
	}
	return b
}

// UnmarshalJSON accepts a JSON string or number.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		*s = Scalar{str: v}
	case float64:
		*s = Scalar{num: v, isNum: true}
	case nil:
		// null leaves the scalar untouched; a *Scalar field decodes null as undefined
	default:
		return fmt.Errorf("default value must be a string or a number, got %T", raw)
	}
	return nil
}

// MarshalYAML encodes the scalar as a plain YAML scalar.
func (s Scalar) MarshalYAML() (interface{}, error) {
	if s.isNum {
		if math.IsNaN(s.num) {
			return nil, nil
		}
		return s.num, nil
	}
	return s.str, nil
}

// UnmarshalYAML accepts a YAML string, int or float scalar.
func (s *Scalar) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: default value must be a scalar", node.Line)
	}
	switch node.Tag {
	case "!!int", "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return fmt.Errorf("line %d: invalid number %q: %w", node.Line, node.Value, err)
		}
		*s = Scalar{num: f, isNum: true}
	case "!!str":
		*s = Scalar{str: node.Value}
	default:
		return fmt.Errorf("line %d: default value must be a string or a number, got %s", node.Line, node.Tag)
	}
	return nil
}
