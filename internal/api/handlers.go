package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/plotplay/engine/internal/engine"
	"github.com/plotplay/engine/internal/session"
	"github.com/plotplay/engine/internal/state"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// httpStatus maps the engine and session sentinels onto status codes.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrUnknownGame):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrInvalidAction), errors.Is(err, engine.ErrUnknownChoice):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrSessionEnded):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

type startRequest struct {
	GameID string `json:"game_id"`
}

type startResponse struct {
	SessionID    string          `json:"session_id"`
	GameID       string          `json:"game_id"`
	StateSummary *engine.Summary `json:"state_summary"`
	Choices      []engine.Choice `json:"choices"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	sess, sum, choices, err := s.mgr.Start(r.Context(), req.GameID)
	if err != nil {
		writeError(w, httpStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, startResponse{
		SessionID:    sess.ID,
		GameID:       sess.GameID,
		StateSummary: sum,
		Choices:      choices,
	})
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var action engine.Action
	if err := json.NewDecoder(r.Body).Decode(&action); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	start := time.Now()
	res, err := s.mgr.RunTurn(r.Context(), id, action)
	s.metrics.observeTurn(action.Type, time.Since(start), res, err)
	if err != nil {
		writeError(w, httpStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleActionStream runs a turn and delivers its progress as server-sent
// events. Errors before the first frame are plain HTTP errors; after that
// the stream carries a terminal error frame.
func (s *Server) handleActionStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var action engine.Action
	if err := json.NewDecoder(r.Body).Decode(&action); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if _, err := s.mgr.Get(r.Context(), id); err != nil {
		writeError(w, httpStatus(err), err.Error())
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	start := time.Now()
	res, err := s.mgr.RunTurnStream(r.Context(), id, action, func(ev engine.StreamEvent) {
		writeSSE(w, ev)
		flusher.Flush()
	})
	s.metrics.observeTurn(action.Type, time.Since(start), res, err)
	if err != nil {
		writeSSE(w, engine.StreamEvent{Type: "error", Text: err.Error()})
		flusher.Flush()
	}
}

// writeSSE renders one stream event as an SSE frame.
func writeSSE(w io.Writer, ev engine.StreamEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
}

type stateResponse struct {
	StateSummary *engine.Summary `json:"state_summary"`
	Choices      []engine.Choice `json:"choices"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sum, choices, err := s.mgr.Describe(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, httpStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{StateSummary: sum, Choices: choices})
}

func (s *Server) handleCharacters(w http.ResponseWriter, r *http.Request) {
	list, err := s.mgr.Characters(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, httpStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCharacter(w http.ResponseWriter, r *http.Request) {
	card, err := s.mgr.Character(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "char_id"))
	if err != nil {
		writeError(w, httpStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, card)
}

type storyEventsResponse struct {
	Memories []state.Memory `json:"memories"`
}

func (s *Server) handleStoryEvents(w http.ResponseWriter, r *http.Request) {
	mems, err := s.mgr.StoryEvents(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, httpStatus(err), err.Error())
		return
	}
	if mems == nil {
		mems = []state.Memory{}
	}
	writeJSON(w, http.StatusOK, storyEventsResponse{Memories: mems})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.mgr.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, httpStatus(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type gameEntry struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Author  string `json:"author,omitempty"`
	Version string `json:"version,omitempty"`
}

type gamesResponse struct {
	Games []gameEntry `json:"games"`
}

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	games := s.lib.List()
	out := make([]gameEntry, 0, len(games))
	for _, g := range games {
		out = append(out, gameEntry{
			ID:      g.Meta.ID,
			Title:   g.Meta.Title,
			Author:  g.Meta.Author,
			Version: g.Meta.Version,
		})
	}
	writeJSON(w, http.StatusOK, gamesResponse{Games: out})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.log.Warn("health check: store unreachable")
		writeError(w, http.StatusServiceUnavailable, "store unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
