// Package validator checks a field tree and reports every problem with a
// human-readable path to the field it was found on.
package validator

import (
	"fmt"
	"strings"

	apperrors "github.com/mcncl/jsonbuilder/internal/errors"
	"github.com/mcncl/jsonbuilder/internal/models"
)

// Result is the outcome of validating a tree.
type Result struct {
	Valid  bool                         `json:"valid"`
	Errors []apperrors.ValidationError `json:"errors"`
}

// Messages returns the display strings in traversal order.
func (r Result) Messages() []string {
	out := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		out[i] = e.Error()
	}
	return out
}

// Validate walks the tree depth-first and collects every problem. Root fields
// are labelled "Field <n>" counting from 1; children of a nested field are
// labelled "<parent> > Nested[<i>]" counting from 0.
func Validate(tree models.FieldTree) Result {
	v := &walker{errors: []apperrors.ValidationError{}}
	v.walk(tree, "")
	return Result{Valid: len(v.errors) == 0, Errors: v.errors}
}

type walker struct {
	errors []apperrors.ValidationError
}

func (w *walker) add(path, reason string) {
	w.errors = append(w.errors, apperrors.ValidationError{Path: path, Reason: reason})
}

func (w *walker) walk(fields []models.FieldNode, path string) {
	for i, field := range fields {
		fieldPath := fmt.Sprintf("Field %d", i+1)
		if path != "" {
			fieldPath = fmt.Sprintf("%s[%d]", path, i)
		}

		if strings.TrimSpace(field.Name) == "" {
			w.add(fieldPath, apperrors.ReasonNameRequired)
		}

		if field.IsNested() {
			if len(field.Children) == 0 {
				w.add(fieldPath, apperrors.ReasonNestedEmpty)
				continue
			}
			w.walk(field.Children, fieldPath+" > Nested")
			continue
		}

		// 0 and NaN are accepted; only undefined and "" are missing.
		if field.DefaultValue == nil || field.DefaultValue.IsEmptyString() {
			w.add(fieldPath, apperrors.ReasonDefaultRequired)
		}
	}
}
