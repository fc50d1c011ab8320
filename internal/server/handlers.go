package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"

	apperrors "github.com/mcncl/jsonbuilder/internal/errors"
	"github.com/mcncl/jsonbuilder/internal/models"
	"github.com/mcncl/jsonbuilder/internal/parser"
	"github.com/mcncl/jsonbuilder/internal/session"
)

const maxBodySize = 1 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Len(),
	})
}

// handleCreateSession starts a session. The optional body is a field
// document used instead of the default tree.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		s.writeError(w, r, goerr.Wrap(err, "failed to read body"))
		return
	}

	var opts []session.Option
	if len(bytes.TrimSpace(body)) > 0 {
		tree, err := parser.ParseBytes(body, parser.FormatAuto)
		if err != nil {
			s.writeError(w, r, goerr.Wrap(err, "failed to parse seed document"))
			return
		}
		opts = append(opts, session.WithTree(tree))
	}

	id := s.sessions.Create(opts...)
	s.logger.Info("session created", "session_id", id)

	var view SessionView
	err = s.sessions.With(id, func(sess *session.Session) error {
		view = viewOf(sess)
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s.respondWithSession(w, r, http.StatusOK, func(*session.Session) error { return nil })
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.sessions.Remove(id) {
		s.writeError(w, r, sessionNotFound(id))
		return
	}
	s.logger.Info("session deleted", "session_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddField(w http.ResponseWriter, r *http.Request) {
	var req AddFieldRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	var resp AddFieldResponse
	err := s.sessions.With(chi.URLParam(r, "id"), func(sess *session.Session) error {
		path, err := sess.AddField(req.Parent)
		if err != nil {
			return goerr.Wrap(err, "failed to add field", goerr.V("parent", req.Parent))
		}
		resp = AddFieldResponse{Path: path, Session: viewOf(sess)}
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleUpdateField(w http.ResponseWriter, r *http.Request) {
	var patch FieldPatch
	if err := decodeBody(r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	path := chi.URLParam(r, "path")
	s.respondWithSession(w, r, http.StatusOK, func(sess *session.Session) error {
		if err := applyPatch(sess, path, patch); err != nil {
			return goerr.Wrap(err, "failed to update field", goerr.V("path", path))
		}
		return nil
	})
}

func (s *Server) handleRemoveField(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "path")
	s.respondWithSession(w, r, http.StatusOK, func(sess *session.Session) error {
		if err := sess.RemoveField(path); err != nil {
			return goerr.Wrap(err, "failed to remove field", goerr.V("path", path))
		}
		return nil
	})
}

// handlePreview writes the live preview exactly as it is displayed.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var text string
	err := s.sessions.With(chi.URLParam(r, "id"), func(sess *session.Session) error {
		var err error
		text, err = s.formatter.FormatJSON(sess.Preview())
		return err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, text+"\n")
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	var (
		resp    FinalizeResponse
		failure *session.Failure
	)
	id := chi.URLParam(r, "id")
	err := s.sessions.With(id, func(sess *session.Session) error {
		snapshot, f := sess.Finalize(s.maxShown)
		if f != nil {
			failure = f
			return nil
		}
		text, err := s.formatter.FormatJSON(snapshot)
		if err != nil {
			return err
		}
		resp = FinalizeResponse{State: sess.State, Snapshot: snapshot, JSON: text}
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if failure != nil {
		s.logger.Debug("finalize refused", "session_id", id, "errors", len(failure.Result.Errors))
		s.writeJSON(w, http.StatusUnprocessableEntity, newFinalizeFailure(failure))
		return
	}
	s.logger.Info("schema finalized", "session_id", id)
	s.writeJSON(w, http.StatusOK, resp)
}

// respondWithSession runs fn under the session lock and answers with the
// resulting session view.
func (s *Server) respondWithSession(w http.ResponseWriter, r *http.Request, status int, fn func(*session.Session) error) {
	var view SessionView
	err := s.sessions.With(chi.URLParam(r, "id"), func(sess *session.Session) error {
		if err := fn(sess); err != nil {
			return err
		}
		view = viewOf(sess)
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, status, view)
}

func viewOf(sess *session.Session) SessionView {
	return SessionView{
		ID:       sess.ID,
		State:    sess.State,
		Fields:   sess.Tree.Clone(),
		Preview:  sess.Preview(),
		Snapshot: sess.Snapshot(),
	}
}

// applyPatch changes the type first, then the name, then the default. The
// patch is applied as a whole or not at all.
func applyPatch(sess *session.Session, path string, patch FieldPatch) error {
	return sess.Update(func(sess *session.Session) error {
		if patch.Type != nil {
			kind, err := models.ParseKind(*patch.Type)
			if err != nil {
				return apperrors.NewInputError(err.Error(), apperrors.ErrInvalidDocument)
			}
			if err := sess.SetKind(path, kind); err != nil {
				return err
			}
		}
		if patch.Name != nil {
			if err := sess.SetName(path, *patch.Name); err != nil {
				return err
			}
		}
		if len(patch.DefaultValue) > 0 {
			return applyDefault(sess, path, patch.DefaultValue)
		}
		return nil
	})
}

// applyDefault sets a default from its JSON form. Strings sent for a number
// field go through the same parsing as typed input.
func applyDefault(sess *session.Session, path string, raw json.RawMessage) error {
	if string(bytes.TrimSpace(raw)) == "null" {
		return sess.SetDefaultValue(path, nil)
	}
	var value models.Scalar
	if err := json.Unmarshal(raw, &value); err != nil {
		return apperrors.NewInputError("defaultValue must be a string or a number", apperrors.ErrInvalidDocument)
	}
	field, err := sess.Field(path)
	if err != nil {
		return err
	}
	if field.Kind == models.Number && !value.IsNumber() {
		return sess.SetDefault(path, value.Str())
	}
	return sess.SetDefaultValue(path, &value)
}

// ── helpers ─────────────────────────────────────────────────────────────────

// writeJSON marshals v as JSON and writes it with the given status code.
// The status is already sent when encoding fails, so the error is only logged.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to write response", "status", status, "error", err)
	}
}

// decodeBody decodes the request body into v. An empty body leaves v unchanged.
func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return apperrors.NewInputError("request body is not valid JSON", apperrors.ErrInvalidDocument)
}

// writeError logs err with its context and writes a structured JSON error.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)

	attrs := []any{"status", status, "error", err.Error(), "path", r.URL.Path}
	var ge *goerr.Error
	if errors.As(err, &ge) {
		attrs = append(attrs, "values", ge.Values())
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", attrs...)
	} else {
		s.logger.Debug("request rejected", attrs...)
	}

	s.writeJSON(w, status, ErrorResponse{Code: code, Message: messageOf(err)})
}

// classify maps an error to an HTTP status and a machine-readable code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, apperrors.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, apperrors.ErrFieldNotFound):
		return http.StatusNotFound, "field_not_found"
	case errors.Is(err, apperrors.ErrLastField):
		return http.StatusConflict, "last_field"
	case errors.Is(err, apperrors.ErrInvalidPath):
		return http.StatusBadRequest, "invalid_path"
	case errors.Is(err, apperrors.ErrNotNested):
		return http.StatusBadRequest, "not_nested"
	case errors.Is(err, apperrors.ErrNoDefault):
		return http.StatusBadRequest, "no_default"
	case errors.Is(err, apperrors.ErrEmptyInput), errors.Is(err, apperrors.ErrInvalidDocument):
		return http.StatusBadRequest, "invalid_document"
	}
	return http.StatusInternalServerError, "internal"
}

func sessionNotFound(id string) error {
	return apperrors.NewSessionError("session '"+id+"' not found", apperrors.ErrSessionNotFound)
}

// messageOf returns the innermost application message, without the
// wrapping added for logs.
func messageOf(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
