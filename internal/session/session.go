// Package session holds an editing session: a mutable field tree, its live
// preview and the finalized snapshot.
package session

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mcncl/jsonbuilder/internal/errors"
	"github.com/mcncl/jsonbuilder/internal/formatter"
	"github.com/mcncl/jsonbuilder/internal/models"
	"github.com/mcncl/jsonbuilder/internal/transform"
	"github.com/mcncl/jsonbuilder/internal/validator"
)

// State is the session-level editing state.
type State string

const (
	StateEditing   State = "editing"
	StateFinalized State = "finalized"
)

// Banner titles shown when finalize is refused or succeeds.
const (
	FailureTitle = "Validation Failed"
	SuccessTitle = "Schema Finalized!"
)

// Session is one user's editing session. It is not safe for concurrent use;
// callers sharing a session serialize access themselves.
type Session struct {
	ID           string           `json:"id"`
	Tree         models.FieldTree `json:"fields"`
	State        State            `json:"state"`
	CreatedAt    time.Time        `json:"created_at"`
	LastActiveAt time.Time        `json:"last_active_at"`

	snapshot    *models.JSONObject
	transformer *transform.Transformer
}

// Option configures a Session
type Option func(*Session)

// WithTransformer sets the transformer used for previews and snapshots
func WithTransformer(t *transform.Transformer) Option {
	return func(s *Session) {
		if t != nil {
			s.transformer = t
		}
	}
}

// WithTree starts the session from tree instead of the default document
func WithTree(tree models.FieldTree) Option {
	return func(s *Session) {
		s.Tree = tree.Clone()
		s.Tree.EnsureIDs()
	}
}

// New creates a session seeded with the default document.
func New(opts ...Option) *Session {
	now := time.Now()
	s := &Session{
		ID:           uuid.New().String(),
		Tree:         models.DefaultTree(),
		State:        StateEditing,
		CreatedAt:    now,
		LastActiveAt: now,
		transformer:  transform.NewTransformer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Touch updates the last activity timestamp.
func (s *Session) Touch() {
	s.LastActiveAt = time.Now()
}

// IsFinalized reports whether a snapshot is currently held
func (s *Session) IsFinalized() bool {
	return s.State == StateFinalized
}

// Snapshot returns a copy of the finalized JSON, or nil while editing.
func (s *Session) Snapshot() *models.JSONObject {
	if s.snapshot == nil {
		return nil
	}
	return s.snapshot.Clone()
}

// Preview computes the live JSON for the current tree.
func (s *Session) Preview() *models.JSONObject {
	return s.transformer.Transform(s.Tree)
}

// Validate checks the current tree
func (s *Session) Validate() validator.Result {
	return validator.Validate(s.Tree)
}

// Failure describes a refused finalize attempt.
type Failure struct {
	Title   string           `json:"title"`
	Summary string           `json:"summary"`
	Result  validator.Result `json:"result"`
}

// Description is the user-facing message body.
func (f Failure) Description() string {
	return "Please fix the following issues:\n" + f.Summary
}

// Finalize validates the tree and, when it is valid, freezes the JSON it
// produces. An invalid tree leaves the session untouched and returns a
// Failure summarizing at most maxShown messages.
func (s *Session) Finalize(maxShown int) (*models.JSONObject, *Failure) {
	result := s.Validate()
	if !result.Valid {
		return nil, &Failure{
			Title:   FailureTitle,
			Summary: formatter.SummarizeErrors(result.Messages(), maxShown),
			Result:  result,
		}
	}
	s.snapshot = s.transformer.Transform(s.Tree)
	s.State = StateFinalized
	s.Touch()
	return s.snapshot.Clone(), nil
}

// Update runs several edits as one: when fn fails, the tree, the state and
// the snapshot are restored to what they were before the call.
func (s *Session) Update(fn func(*Session) error) error {
	tree := s.Tree.Clone()
	state, snapshot, lastActive := s.State, s.snapshot, s.LastActiveAt
	if err := fn(s); err != nil {
		s.Tree = tree
		s.State, s.snapshot, s.LastActiveAt = state, snapshot, lastActive
		return err
	}
	return nil
}

// edited records a mutation: any edit discards the snapshot.
func (s *Session) edited() {
	s.snapshot = nil
	s.State = StateEditing
	s.Touch()
}

// Load replaces the whole tree
func (s *Session) Load(tree models.FieldTree) {
	s.Tree = tree.Clone()
	s.Tree.EnsureIDs()
	s.edited()
}

// AddField appends a new empty string field to the root list (parent "")
// or to the children of the nested field at parent. It returns the new
// field's path.
func (s *Session) AddField(parent string) (string, error) {
	list, err := s.listAt(parent)
	if err != nil {
		return "", err
	}
	*list = append(*list, models.NewField())
	s.edited()
	return JoinPath(parent, len(*list)-1), nil
}

// RemoveField deletes the field at path with all its descendants. The last
// field of a list cannot be removed.
func (s *Session) RemoveField(path string) error {
	parent, index, err := SplitPath(path)
	if err != nil {
		return err
	}
	list, err := s.listAt(parent)
	if err != nil {
		return err
	}
	if index >= len(*list) {
		return errors.NewSessionError(fmt.Sprintf("no field at path '%s'", path), errors.ErrFieldNotFound)
	}
	if len(*list) == 1 {
		return errors.NewSessionError(fmt.Sprintf("cannot remove field '%s'", path), errors.ErrLastField)
	}
	*list = append((*list)[:index], (*list)[index+1:]...)
	s.edited()
	return nil
}

// SetName renames the field at path
func (s *Session) SetName(path, name string) error {
	field, err := s.fieldAt(path)
	if err != nil {
		return err
	}
	field.Name = name
	s.edited()
	return nil
}

// SetKind switches the type of the field at path, resetting its payload.
func (s *Session) SetKind(path string, kind models.Kind) error {
	field, err := s.fieldAt(path)
	if err != nil {
		return err
	}
	field.SetKind(kind)
	s.edited()
	return nil
}

// SetDefault sets the default value from raw input text. For number fields
// the text is parsed as a number; empty or unparsable text gives NaN, the
// value a browser number input reports for it.
func (s *Session) SetDefault(path, raw string) error {
	field, err := s.fieldAt(path)
	if err != nil {
		return err
	}
	switch field.Kind {
	case models.Nested:
		return errors.NewSessionError(fmt.Sprintf("field '%s' is nested", path), errors.ErrNoDefault)
	case models.Number:
		field.DefaultValue = models.NumberValue(parseNumber(raw))
	default:
		field.DefaultValue = models.StringValue(raw)
	}
	s.edited()
	return nil
}

// SetDefaultValue sets an already typed default value; nil makes it undefined.
func (s *Session) SetDefaultValue(path string, value *models.Scalar) error {
	field, err := s.fieldAt(path)
	if err != nil {
		return err
	}
	if field.IsNested() {
		return errors.NewSessionError(fmt.Sprintf("field '%s' is nested", path), errors.ErrNoDefault)
	}
	field.DefaultValue = value
	s.edited()
	return nil
}

// Field returns a copy of the field at path
func (s *Session) Field(path string) (models.FieldNode, error) {
	field, err := s.fieldAt(path)
	if err != nil {
		return models.FieldNode{}, err
	}
	return field.Clone(), nil
}

func parseNumber(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return math.NaN()
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(n, 0) {
		return math.NaN()
	}
	return n
}

func (s *Session) fieldAt(path string) (*models.FieldNode, error) {
	parent, index, err := SplitPath(path)
	if err != nil {
		return nil, err
	}
	list, err := s.listAt(parent)
	if err != nil {
		return nil, err
	}
	if index >= len(*list) {
		return nil, errors.NewSessionError(fmt.Sprintf("no field at path '%s'", path), errors.ErrFieldNotFound)
	}
	return &(*list)[index], nil
}

// listAt returns the sibling list addressed by parent: the root list for ""
// or the children of a nested field.
func (s *Session) listAt(parent string) (*[]models.FieldNode, error) {
	root := (*[]models.FieldNode)(&s.Tree)
	if parent == "" {
		return root, nil
	}
	indices, err := ParsePath(parent)
	if err != nil {
		return nil, err
	}
	list := root
	for depth, idx := range indices {
		if idx >= len(*list) {
			return nil, errors.NewSessionError(
				fmt.Sprintf("no field at path '%s'", JoinIndices(indices[:depth+1])),
				errors.ErrFieldNotFound,
			)
		}
		field := &(*list)[idx]
		if !field.IsNested() {
			return nil, errors.NewSessionError(
				fmt.Sprintf("field '%s' is not nested", JoinIndices(indices[:depth+1])),
				errors.ErrNotNested,
			)
		}
		list = &field.Children
	}
	return list, nil
}
