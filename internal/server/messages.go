package server

import (
	"encoding/json"

	"github.com/mcncl/jsonbuilder/internal/models"
	"github.com/mcncl/jsonbuilder/internal/session"
)

// ── REST bodies ─────────────────────────────────────────────────────────────

// SessionView is the representation of a session returned by the API.
type SessionView struct {
	ID       string             `json:"id"`
	State    session.State      `json:"state"`
	Fields   models.FieldTree   `json:"fields"`
	Preview  *models.JSONObject `json:"preview"`
	Snapshot *models.JSONObject `json:"snapshot,omitempty"`
}

// AddFieldRequest is the body of POST /fields. An empty parent adds to the root.
type AddFieldRequest struct {
	Parent string `json:"parent"`
}

// AddFieldResponse reports where the new field was added
type AddFieldResponse struct {
	Path    string      `json:"path"`
	Session SessionView `json:"session"`
}

// FieldPatch changes one field. Absent members are left alone; the type is
// applied first, so a patch can switch the type and set the new default.
// A null defaultValue makes the default undefined.
type FieldPatch struct {
	Name         *string         `json:"name,omitempty"`
	Type         *string         `json:"type,omitempty"`
	DefaultValue json.RawMessage `json:"defaultValue,omitempty"`
}

// FinalizeResponse is returned by a successful finalize
type FinalizeResponse struct {
	State    session.State      `json:"state"`
	Snapshot *models.JSONObject `json:"snapshot"`
	JSON     string             `json:"json"`
}

// FinalizeFailure is returned when the tree is invalid
type FinalizeFailure struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Errors      []string `json:"errors"`
}

// ErrorResponse carries an error message.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"error"`
}

// ── WebSocket protocol ──────────────────────────────────────────────────────

// ClientMessage is the envelope for all client-to-server WebSocket messages.
type ClientMessage struct {
	Type string          `json:"type"` // "add", "remove", "update", "load", "finalize", "ping"
	ID   string          `json:"id"`   // Client-assigned request ID
	Data json.RawMessage `json:"data,omitempty"`
}

// RemoveData is the payload for "remove" messages.
type RemoveData struct {
	Path string `json:"path"`
}

// UpdateData is the payload for "update" messages.
type UpdateData struct {
	Path string `json:"path"`
	FieldPatch
}

// LoadData is the payload for "load" messages.
type LoadData struct {
	Fields json.RawMessage `json:"fields"`
}

// ServerMessage is the envelope for all server-to-client WebSocket messages.
type ServerMessage struct {
	Type      string `json:"type"`                 // "session", "preview", "finalized", "invalid", "error", "pong"
	RequestID string `json:"request_id,omitempty"` // Echoes client ID
	Data      any    `json:"data,omitempty"`
}

// PreviewData is pushed after every edit.
type PreviewData struct {
	State   session.State      `json:"state"`
	Fields  models.FieldTree   `json:"fields"`
	Preview *models.JSONObject `json:"preview"`
	JSON    string             `json:"json"`
}

// ErrorData carries an error message.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SessionData carries session information.
type SessionData struct {
	SessionID string        `json:"session_id"`
	State     session.State `json:"state"`
}

func newFinalizeFailure(f *session.Failure) FinalizeFailure {
	return FinalizeFailure{
		Title:       f.Title,
		Description: f.Description(),
		Errors:      f.Result.Messages(),
	}
}
