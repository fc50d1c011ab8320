package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"github.com/mcncl/jsonbuilder/internal/parser"
	"github.com/mcncl/jsonbuilder/internal/session"
)

// handleWebSocket attaches a connection to an existing session. Every edit
// is answered with a fresh preview.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.sessions.Exists(id) {
		s.writeError(w, r, sessionNotFound(id))
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	log := s.logger.With("session_id", id)
	log.Debug("websocket connected")

	var state session.State
	err = s.sessions.With(id, func(sess *session.Session) error {
		state = sess.State
		return nil
	})
	if err != nil {
		s.sendError(ctx, conn, "", err)
		return
	}
	s.send(ctx, conn, ServerMessage{
		Type: "session",
		Data: SessionData{SessionID: id, State: state},
	})
	s.sendPreview(ctx, conn, id, "")

	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if websocket.CloseStatus(err) != -1 {
				log.Debug("websocket closed", "status", websocket.CloseStatus(err))
			}
			return
		}

		switch msg.Type {
		case "add":
			s.handleAddMessage(ctx, conn, id, msg)
		case "remove":
			s.handleRemoveMessage(ctx, conn, id, msg)
		case "update":
			s.handleUpdateMessage(ctx, conn, id, msg)
		case "load":
			s.handleLoadMessage(ctx, conn, id, msg)
		case "finalize":
			s.handleFinalizeMessage(ctx, conn, id, msg)
		case "ping":
			s.send(ctx, conn, ServerMessage{Type: "pong", RequestID: msg.ID})
		default:
			s.send(ctx, conn, ServerMessage{
				Type:      "error",
				RequestID: msg.ID,
				Data:      ErrorData{Code: "unknown_type", Message: fmt.Sprintf("unknown message type: %s", msg.Type)},
			})
		}
	}
}

func (s *Server) handleAddMessage(ctx context.Context, conn *websocket.Conn, id string, msg ClientMessage) {
	var data AddFieldRequest
	if !s.decodeData(ctx, conn, msg, &data) {
		return
	}
	s.edit(ctx, conn, id, msg.ID, func(sess *session.Session) error {
		_, err := sess.AddField(data.Parent)
		return err
	})
}

func (s *Server) handleRemoveMessage(ctx context.Context, conn *websocket.Conn, id string, msg ClientMessage) {
	var data RemoveData
	if !s.decodeData(ctx, conn, msg, &data) {
		return
	}
	s.edit(ctx, conn, id, msg.ID, func(sess *session.Session) error {
		return sess.RemoveField(data.Path)
	})
}

func (s *Server) handleUpdateMessage(ctx context.Context, conn *websocket.Conn, id string, msg ClientMessage) {
	var data UpdateData
	if !s.decodeData(ctx, conn, msg, &data) {
		return
	}
	s.edit(ctx, conn, id, msg.ID, func(sess *session.Session) error {
		return applyPatch(sess, data.Path, data.FieldPatch)
	})
}

func (s *Server) handleLoadMessage(ctx context.Context, conn *websocket.Conn, id string, msg ClientMessage) {
	var data LoadData
	if !s.decodeData(ctx, conn, msg, &data) {
		return
	}
	tree, err := parser.ParseBytes(data.Fields, parser.FormatJSON)
	if err != nil {
		s.sendError(ctx, conn, msg.ID, err)
		return
	}
	s.edit(ctx, conn, id, msg.ID, func(sess *session.Session) error {
		sess.Load(tree)
		return nil
	})
}

func (s *Server) handleFinalizeMessage(ctx context.Context, conn *websocket.Conn, id string, msg ClientMessage) {
	var reply ServerMessage
	err := s.sessions.With(id, func(sess *session.Session) error {
		snapshot, failure := sess.Finalize(s.maxShown)
		if failure != nil {
			reply = ServerMessage{Type: "invalid", RequestID: msg.ID, Data: newFinalizeFailure(failure)}
			return nil
		}
		text, err := s.formatter.FormatJSON(snapshot)
		if err != nil {
			return err
		}
		reply = ServerMessage{
			Type:      "finalized",
			RequestID: msg.ID,
			Data:      FinalizeResponse{State: sess.State, Snapshot: snapshot, JSON: text},
		}
		return nil
	})
	if err != nil {
		s.sendError(ctx, conn, msg.ID, err)
		return
	}
	s.send(ctx, conn, reply)
}

// edit applies fn under the session lock and pushes the new preview.
func (s *Server) edit(ctx context.Context, conn *websocket.Conn, id, requestID string, fn func(*session.Session) error) {
	if err := s.sessions.With(id, fn); err != nil {
		s.sendError(ctx, conn, requestID, err)
		return
	}
	s.sendPreview(ctx, conn, id, requestID)
}

func (s *Server) sendPreview(ctx context.Context, conn *websocket.Conn, id, requestID string) {
	var data PreviewData
	err := s.sessions.With(id, func(sess *session.Session) error {
		preview := sess.Preview()
		text, err := s.formatter.FormatJSON(preview)
		if err != nil {
			return err
		}
		data = PreviewData{State: sess.State, Fields: sess.Tree.Clone(), Preview: preview, JSON: text}
		return nil
	})
	if err != nil {
		s.sendError(ctx, conn, requestID, err)
		return
	}
	s.send(ctx, conn, ServerMessage{Type: "preview", RequestID: requestID, Data: data})
}

func (s *Server) decodeData(ctx context.Context, conn *websocket.Conn, msg ClientMessage, v any) bool {
	if len(msg.Data) == 0 {
		return true
	}
	if err := json.Unmarshal(msg.Data, v); err != nil {
		s.send(ctx, conn, ServerMessage{
			Type:      "error",
			RequestID: msg.ID,
			Data:      ErrorData{Code: "invalid_data", Message: fmt.Sprintf("invalid %s data", msg.Type)},
		})
		return false
	}
	return true
}

func (s *Server) send(ctx context.Context, conn *websocket.Conn, msg ServerMessage) {
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		s.logger.Debug("websocket write failed", "error", err)
	}
}

func (s *Server) sendError(ctx context.Context, conn *websocket.Conn, requestID string, err error) {
	_, code := classify(err)
	s.send(ctx, conn, ServerMessage{
		Type:      "error",
		RequestID: requestID,
		Data:      ErrorData{Code: code, Message: messageOf(err)},
	})
}
