package formatter

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/mcncl/jsonbuilder/internal/models"
	"github.com/mcncl/jsonbuilder/internal/validator"
)

// Indent is the indentation of rendered JSON text.
const Indent = "  "

// Formatter renders JSON values, field trees and validation results as text
type Formatter struct {
	color bool
}

// NewFormatter creates a new Formatter instance with colored output
func NewFormatter() *Formatter {
	return &Formatter{color: true}
}

// NewPlainFormatter creates a Formatter that never emits color codes
func NewPlainFormatter() *Formatter {
	return &Formatter{color: false}
}

// FormatJSON renders v as pretty-printed JSON text with 2-space indentation,
// the same text JSON.stringify(v, null, 2) produces. HTML characters are not escaped.
func (f *Formatter) FormatJSON(v models.JSONValue) (string, error) {
	compact, err := json.MarshalNoEscape(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode JSON: %w", err)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", Indent); err != nil {
		return "", fmt.Errorf("failed to indent JSON: %w", err)
	}
	return buf.String(), nil
}

// SummarizeErrors joins at most limit messages, one per line, and reports how
// many were left out as "...and N more". A limit of 0 or less shows all.
func SummarizeErrors(messages []string, limit int) string {
	if limit <= 0 || len(messages) <= limit {
		return strings.Join(messages, "\n")
	}
	shown := strings.Join(messages[:limit], "\n")
	return fmt.Sprintf("%s\n...and %d more", shown, len(messages)-limit)
}

// FormatValidation renders a validation result for the terminal
func (f *Formatter) FormatValidation(result validator.Result) string {
	if result.Valid {
		return f.paint(color.FgGreen, "All fields are valid.")
	}
	var b strings.Builder
	b.WriteString(f.paint(color.FgRed, fmt.Sprintf("%d problem(s) found:", len(result.Errors))))
	for _, msg := range result.Messages() {
		b.WriteString("\n  - ")
		b.WriteString(msg)
	}
	return b.String()
}

// FormatTree renders an outline of the tree with the dotted path of every
// field, the address used by editing commands.
func (f *Formatter) FormatTree(tree models.FieldTree) string {
	if len(tree) == 0 {
		return "(no fields)"
	}
	var lines []string
	f.formatFields(tree, "", 0, &lines)
	return strings.Join(lines, "\n")
}

func (f *Formatter) formatFields(fields []models.FieldNode, parent string, depth int, lines *[]string) {
	for i, field := range fields {
		path := fmt.Sprintf("%d", i)
		if parent != "" {
			path = parent + "." + path
		}

		name := field.Name
		if name == "" {
			name = f.paint(color.FgRed, "<unnamed>")
		}

		line := fmt.Sprintf("%s%-8s %s %s", strings.Repeat(Indent, depth), path, name, f.paint(color.FgCyan, "("+string(field.Kind)+")"))
		if !field.IsNested() {
			value := "undefined"
			if field.DefaultValue != nil {
				value = field.DefaultValue.String()
			}
			line += " = " + value
		}
		*lines = append(*lines, line)

		if field.IsNested() {
			f.formatFields(field.Children, path, depth+1, lines)
		}
	}
}

// Banner renders a highlighted heading line
func (f *Formatter) Banner(text string, ok bool) string {
	if ok {
		return f.paint(color.FgGreen, text)
	}
	return f.paint(color.FgRed, text)
}

func (f *Formatter) paint(attr color.Attribute, s string) string {
	c := color.New(attr, color.Bold)
	if !f.color {
		c.DisableColor()
	}
	return c.Sprint(s)
}
