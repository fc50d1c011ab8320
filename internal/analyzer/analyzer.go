// Package analyzer builds a field tree from an example JSON object, so an
// existing payload can seed an editing session.
package analyzer

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/mcncl/jsonbuilder/internal/errors"
	"github.com/mcncl/jsonbuilder/internal/models"
)

// Skip records an example value that has no field equivalent
type Skip struct {
	Path string // dotted key path, e.g. "user.tags"
	Kind string // boolean, null, array or empty key
}

// Analyzer walks an example object and derives the fields that produce it.
//
// Strings and numbers become String and Number fields whose default is the
// example value. Objects become Nested fields. An array whose elements are
// all objects becomes a single Nested field with the keys of every element
// merged in first-seen order. Booleans, null, other arrays and empty keys are
// skipped and reported.
type Analyzer struct {
	skipped []Skip
}

// NewAnalyzer creates a new Analyzer instance.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Skipped lists the values left out by the last Analyze call
func (a *Analyzer) Skipped() []Skip {
	return a.skipped
}

// Analyze decodes data and returns the field tree for its root object.
func (a *Analyzer) Analyze(data []byte) (models.FieldTree, error) {
	a.skipped = nil

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.NewParsingError("input is empty or contains only whitespace", errors.ErrEmptyInput)
	}
	if !json.Valid(data) {
		return nil, errors.NewParsingError("example is not valid JSON", errors.ErrInvalidDocument)
	}

	root, err := decodeValue(json.NewDecoder(bytes.NewReader(data)))
	if err != nil {
		return nil, errors.NewParsingError("failed to decode example", err)
	}
	obj, ok := root.(*models.JSONObject)
	if !ok {
		return nil, errors.NewParsingError(
			fmt.Sprintf("example must be a JSON object, got %s", kindName(root)),
			errors.ErrInvalidDocument,
		)
	}

	tree := a.analyzeObject(obj, "")
	tree.EnsureIDs()
	return tree, nil
}

// AnalyzeFile reads and analyzes the example stored at path
func (a *Analyzer) AnalyzeFile(path string) (models.FieldTree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewInputError(fmt.Sprintf("file not found: %s", path), errors.ErrFileNotFound)
		}
		return nil, errors.NewInputError("failed to read example", err)
	}
	return a.Analyze(data)
}

// Analyze is a shorthand for NewAnalyzer().Analyze
func Analyze(data []byte) (models.FieldTree, []Skip, error) {
	a := NewAnalyzer()
	tree, err := a.Analyze(data)
	if err != nil {
		return nil, nil, err
	}
	return tree, a.Skipped(), nil
}

func (a *Analyzer) analyzeObject(obj *models.JSONObject, path string) models.FieldTree {
	tree := make(models.FieldTree, 0, obj.Len())
	for _, key := range obj.Keys() {
		keyPath := key
		if path != "" {
			keyPath = path + "." + key
		}
		if key == "" {
			a.skip(keyPath, "empty key")
			continue
		}

		value, _ := obj.Get(key)
		field, ok := a.analyzeValue(key, value, keyPath)
		if ok {
			tree = append(tree, field)
		}
	}
	return tree
}

func (a *Analyzer) analyzeValue(name string, value models.JSONValue, path string) (models.FieldNode, bool) {
	field := models.FieldNode{Name: name}
	switch v := value.(type) {
	case string:
		field.Kind = models.String
		field.DefaultValue = models.StringValue(v)
	case float64:
		field.Kind = models.Number
		field.DefaultValue = models.NumberValue(v)
	case *models.JSONObject:
		field.Kind = models.Nested
		field.Children = a.analyzeObject(v, path)
	case []models.JSONValue:
		merged, ok := mergeObjects(v)
		if !ok {
			a.skip(path, "array")
			return field, false
		}
		field.Kind = models.Nested
		field.Children = a.analyzeObject(merged, path)
	default:
		a.skip(path, kindName(value))
		return field, false
	}
	return field, true
}

func (a *Analyzer) skip(path, kind string) {
	a.skipped = append(a.skipped, Skip{Path: path, Kind: kind})
}

// mergeObjects folds a non-empty array of objects into one object holding
// every key. The first value seen for a key wins, except that objects under
// the same key are merged recursively.
func mergeObjects(arr []models.JSONValue) (*models.JSONObject, bool) {
	if len(arr) == 0 {
		return nil, false
	}
	merged := models.NewJSONObject()
	for _, element := range arr {
		obj, ok := element.(*models.JSONObject)
		if !ok {
			return nil, false
		}
		mergeInto(merged, obj)
	}
	return merged, true
}

func mergeInto(dst, src *models.JSONObject) {
	for _, key := range src.Keys() {
		value, _ := src.Get(key)
		existing, found := dst.Get(key)
		if !found || existing == nil {
			if child, ok := value.(*models.JSONObject); ok {
				value = child.Clone()
			}
			dst.Set(key, value)
			continue
		}
		dstChild, ok1 := existing.(*models.JSONObject)
		srcChild, ok2 := value.(*models.JSONObject)
		if ok1 && ok2 {
			mergeInto(dstChild, srcChild)
		}
	}
}

// decodeValue reads one JSON value from the token stream, keeping object keys
// in a JSONObject so their enumeration order is preserved.
func decodeValue(dec *json.Decoder) (models.JSONValue, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		obj := models.NewJSONObject()
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected object key %v", keyTok)
			}
			value, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			obj.Set(key, value)
		}
		if _, err := dec.Token(); err != nil && err != io.EOF {
			return nil, err
		}
		return obj, nil
	case '[':
		arr := make([]models.JSONValue, 0)
		for dec.More() {
			value, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, value)
		}
		if _, err := dec.Token(); err != nil && err != io.EOF {
			return nil, err
		}
		return arr, nil
	}
	return nil, fmt.Errorf("unexpected delimiter %v", delim)
}

func kindName(value models.JSONValue) string {
	switch value.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case float64:
		return "number"
	case []models.JSONValue:
		return "array"
	case *models.JSONObject:
		return "object"
	}
	return fmt.Sprintf("%T", value)
}
