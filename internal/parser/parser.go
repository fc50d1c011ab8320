package parser

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/mcncl/jsonbuilder/internal/errors"
	"github.com/mcncl/jsonbuilder/internal/models"
	"gopkg.in/yaml.v3"
)

// Format names a field document encoding
type Format string

const (
	FormatAuto Format = ""
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// document is the object form of a field document: {"fields": [...]}.
// A bare list of fields is accepted as well.
type document struct {
	Fields models.FieldTree `json:"fields" yaml:"fields"`
}

// ParseFormat converts a format flag value into a Format
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return FormatAuto, fmt.Errorf("unknown document format '%s'", s)
}

// DetectFormat guesses the encoding from the first significant character.
func DetectFormat(data []byte) Format {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{') {
		return FormatJSON
	}
	return FormatYAML
}

// Parse reads a field document from reader
func Parse(reader io.Reader, format Format) (models.FieldTree, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.NewInputError("failed to read input", err)
	}
	return ParseBytes(data, format)
}

// ParseBytes decodes a field document held in memory
func ParseBytes(data []byte, format Format) (models.FieldTree, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.NewParsingError("input is empty or contains only whitespace", errors.ErrEmptyInput)
	}
	if format == FormatAuto {
		format = DetectFormat(data)
	}

	var tree models.FieldTree
	var err error
	switch format {
	case FormatJSON:
		tree, err = decodeJSON(data)
	case FormatYAML:
		tree, err = decodeYAML(data)
	default:
		return nil, errors.NewInputError(fmt.Sprintf("unsupported document format '%s'", format), errors.ErrInvalidDocument)
	}
	if err != nil {
		return nil, err
	}

	if err := normalize(tree, "fields"); err != nil {
		return nil, err
	}
	tree.EnsureIDs()
	return tree, nil
}

func decodeJSON(data []byte) (models.FieldTree, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))

	var tree models.FieldTree
	var err error
	if bytes.TrimSpace(data)[0] == '{' {
		var doc document
		err = decoder.Decode(&doc)
		tree = doc.Fields
	} else {
		err = decoder.Decode(&tree)
	}
	if err != nil {
		var syntaxError *json.SyntaxError
		if stderrors.As(err, &syntaxError) {
			return nil, errors.NewParsingError(
				fmt.Sprintf("JSON syntax error at offset %d", syntaxError.Offset),
				errors.ErrInvalidDocument,
			)
		}
		return nil, errors.NewParsingError(fmt.Sprintf("failed to decode JSON document: %v", err), errors.ErrInvalidDocument)
	}

	// Anything after the first value other than whitespace is rejected.
	if decoder.More() {
		var trailing interface{}
		if err := decoder.Decode(&trailing); err == nil || !stderrors.Is(err, io.EOF) {
			return nil, errors.NewParsingError("unexpected data after the field document", errors.ErrInvalidDocument)
		}
	}
	return tree, nil
}

func decodeYAML(data []byte) (models.FieldTree, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, errors.NewParsingError(fmt.Sprintf("failed to decode YAML document: %v", err), errors.ErrInvalidDocument)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, errors.NewParsingError("input is empty or contains only whitespace", errors.ErrEmptyInput)
	}

	body := root.Content[0]
	var tree models.FieldTree
	switch body.Kind {
	case yaml.SequenceNode:
		if err := body.Decode(&tree); err != nil {
			return nil, errors.NewParsingError(fmt.Sprintf("failed to decode YAML document: %v", err), errors.ErrInvalidDocument)
		}
	case yaml.MappingNode:
		var doc document
		if err := body.Decode(&doc); err != nil {
			return nil, errors.NewParsingError(fmt.Sprintf("failed to decode YAML document: %v", err), errors.ErrInvalidDocument)
		}
		tree = doc.Fields
	default:
		return nil, errors.NewParsingError(
			fmt.Sprintf("line %d: expected a list of fields or a mapping with 'fields'", body.Line),
			errors.ErrInvalidDocument,
		)
	}
	return tree, nil
}

// normalize checks every type tag; a missing tag means string. A field keeps
// only the payload of its kind: nested fields drop any default and leaf
// fields drop any children.
func normalize(fields []models.FieldNode, path string) error {
	for i := range fields {
		field := &fields[i]
		fieldPath := fmt.Sprintf("%s.%d", path, i)
		if field.Kind == "" {
			field.Kind = models.String
		}
		kind, err := models.ParseKind(string(field.Kind))
		if err != nil {
			return errors.NewParsingError(fmt.Sprintf("%s: %v", fieldPath, err), errors.ErrInvalidDocument)
		}
		field.Kind = kind
		if kind == models.Nested {
			field.DefaultValue = nil
		} else {
			field.Children = nil
			continue
		}
		if err := normalize(field.Children, fieldPath+".nested"); err != nil {
			return err
		}
	}
	return nil
}

// ParseString parses a field document from a string, detecting its format
func ParseString(s string) (models.FieldTree, error) {
	if strings.TrimSpace(s) == "" {
		return nil, errors.NewInputError("input string is empty or consists only of whitespace", errors.ErrEmptyInput)
	}
	return ParseBytes([]byte(s), FormatAuto)
}

// ParseFile parses a field document from a file path. The extension picks
// the format; other extensions are detected from content.
func ParseFile(filePath string) (models.FieldTree, error) {
	if strings.TrimSpace(filePath) == "" {
		return nil, errors.NewInputError("file path is empty", errors.ErrInvalidFilePath)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewInputError(
				fmt.Sprintf("file '%s' not found", filePath),
				errors.ErrFileNotFound,
			)
		}
		return nil, errors.NewInputError(
			fmt.Sprintf("failed to open file '%s'", filePath),
			err,
		)
	}
	if len(data) == 0 {
		return nil, errors.NewInputError(
			fmt.Sprintf("input file '%s' is empty", filePath),
			errors.ErrFileEmpty,
		)
	}

	format := FormatAuto
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".json":
		format = FormatJSON
	case ".yml", ".yaml":
		format = FormatYAML
	}
	return ParseBytes(data, format)
}

// Encode writes tree as a field document in the given format.
func Encode(w io.Writer, tree models.FieldTree, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(document{Fields: tree}); err != nil {
			return errors.NewOutputError("failed to encode YAML document", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(document{Fields: tree}); err != nil {
			return errors.NewOutputError("failed to encode JSON document", err)
		}
		return nil
	}
}
