package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/plotplay/engine/internal/engine"
)

// wsAction is one client message: an action to run on the session.
type wsAction struct {
	Action engine.Action `json:"action"`
}

// handleWS carries the stream contract over a websocket: the client sends
// actions, the server answers each with the turn's stream frames as JSON
// messages. The socket outlives any single turn.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.mgr.Get(r.Context(), id); err != nil {
		writeError(w, httpStatus(err), err.Error())
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.String("session", id), zap.Error(err))
		return
	}
	defer conn.Close()
	s.log.Info("websocket open", zap.String("session", id))

	for {
		var req wsAction
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("websocket read", zap.String("session", id), zap.Error(err))
			}
			return
		}

		start := time.Now()
		res, err := s.mgr.RunTurnStream(r.Context(), id, req.Action, func(ev engine.StreamEvent) {
			// A dead socket must not abort the turn.
			_ = conn.WriteJSON(ev)
		})
		s.metrics.observeTurn(req.Action.Type, time.Since(start), res, err)
		if err != nil {
			if werr := conn.WriteJSON(engine.StreamEvent{Type: "error", Text: err.Error()}); werr != nil {
				return
			}
		}
	}
}
