package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/plotplay/engine/internal/ai"
	"github.com/plotplay/engine/internal/config"
	"github.com/plotplay/engine/internal/engine"
	"github.com/plotplay/engine/internal/game"
	"github.com/plotplay/engine/internal/persist"
)

func newTestServer(t *testing.T, store persist.Store) *Server {
	t.Helper()
	g, err := game.Load(filepath.Join("..", "game", "testdata", "cafe"))
	require.NoError(t, err)
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	return NewServer(game.NewLibrary(g), store, ai.NewMock(), zap.NewNop(), cfg)
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func startSession(t *testing.T, s *Server) startResponse {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/session/start", startRequest{GameID: "cafe_date"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp startResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestStartAndAction(t *testing.T) {
	s := newTestServer(t, persist.NewMemory())
	started := startSession(t, s)
	require.NotEmpty(t, started.SessionID)
	require.Equal(t, "cafe_date", started.GameID)
	require.Equal(t, "cafe_patio", started.StateSummary.Location.ID)
	require.NotEmpty(t, started.Choices)

	rec := doJSON(t, s, http.MethodPost, "/session/"+started.SessionID+"/action",
		engine.Action{Type: engine.ActSay, Text: "morning", SkipAI: true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res engine.TurnResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, 1, res.Turn)
	require.NotEmpty(t, res.ActionSummary)
	require.NotNil(t, res.StateSummary)
}

func TestStartUnknownGame(t *testing.T) {
	s := newTestServer(t, persist.NewMemory())
	rec := doJSON(t, s, http.MethodPost, "/session/start", startRequest{GameID: "space_opera"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestActionValidation(t *testing.T) {
	s := newTestServer(t, persist.NewMemory())
	started := startSession(t, s)

	req := httptest.NewRequest(http.MethodPost, "/session/"+started.SessionID+"/action",
		strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/session/"+started.SessionID+"/action",
		engine.Action{Type: "dance"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/session/nope/action",
		engine.Action{Type: engine.ActSay, Text: "hi", SkipAI: true})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStateAndCharacterEndpoints(t *testing.T) {
	s := newTestServer(t, persist.NewMemory())
	started := startSession(t, s)
	base := "/session/" + started.SessionID

	rec := doJSON(t, s, http.MethodGet, base+"/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var st stateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	require.Equal(t, "cafe_patio", st.StateSummary.Location.ID)
	require.NotEmpty(t, st.Choices)

	rec = doJSON(t, s, http.MethodGet, base+"/characters", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list engine.CharacterList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, "Alex", list.Player.Name)

	rec = doJSON(t, s, http.MethodGet, base+"/character/emma", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var card engine.CharacterView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &card))
	require.Equal(t, "Emma", card.Name)
	require.NotEmpty(t, card.Gates)

	rec = doJSON(t, s, http.MethodGet, base+"/character/nobody", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, s, http.MethodGet, base+"/story-events", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"memories":[]}`, rec.Body.String())
}

func TestGamesList(t *testing.T) {
	s := newTestServer(t, persist.NewMemory())
	rec := doJSON(t, s, http.MethodGet, "/games", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp gamesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Games, 1)
	require.Equal(t, "cafe_date", resp.Games[0].ID)
	require.Equal(t, "A Riverside Morning", resp.Games[0].Title)
}

func TestDeleteSession(t *testing.T) {
	s := newTestServer(t, persist.NewMemory())
	started := startSession(t, s)

	rec := doJSON(t, s, http.MethodDelete, "/session/"+started.SessionID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/session/"+started.SessionID+"/action",
		engine.Action{Type: engine.ActSay, Text: "hi", SkipAI: true})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, s, http.MethodDelete, "/session/"+started.SessionID, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSSEStream(t *testing.T) {
	s := newTestServer(t, persist.NewMemory())
	started := startSession(t, s)

	rec := doJSON(t, s, http.MethodPost, "/session/"+started.SessionID+"/action/stream",
		engine.Action{Type: engine.ActSay, Text: "hello"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	require.Contains(t, body, "event: action_summary\n")
	require.Contains(t, body, "event: narrative_chunk\n")
	require.Contains(t, body, "event: checker_status\n")
	require.Contains(t, body, "event: complete\n")

	// The complete frame carries the whole TurnResult.
	var last engine.StreamEvent
	for _, frame := range strings.Split(body, "\n\n") {
		if !strings.HasPrefix(frame, "event: complete") {
			continue
		}
		data := strings.TrimPrefix(strings.SplitN(frame, "\n", 2)[1], "data: ")
		require.NoError(t, json.Unmarshal([]byte(data), &last))
	}
	require.NotNil(t, last.Result)
	require.Equal(t, 1, last.Result.Turn)
	require.Contains(t, last.Result.Narrative, "The moment passes.")
}

func TestSSEUnknownSessionFailsBeforeStreaming(t *testing.T) {
	s := newTestServer(t, persist.NewMemory())
	rec := doJSON(t, s, http.MethodPost, "/session/nope/action/stream",
		engine.Action{Type: engine.ActSay, Text: "hi"})
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestWebsocketTurn(t *testing.T) {
	s := newTestServer(t, persist.NewMemory())
	started := startSession(t, s)

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/session/" + started.SessionID + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(wsAction{
		Action: engine.Action{Type: engine.ActSay, Text: "over the wire"},
	}))

	var types []string
	for {
		var ev engine.StreamEvent
		require.NoError(t, conn.ReadJSON(&ev))
		types = append(types, ev.Type)
		if ev.Type == engine.StreamComplete {
			require.NotNil(t, ev.Result)
			require.Equal(t, 1, ev.Result.Turn)
			break
		}
	}
	require.Equal(t, engine.StreamActionSummary, types[0])
	require.Contains(t, types, engine.StreamNarrativeChunk)
	require.Contains(t, types, engine.StreamCheckerStatus)
}

type unhealthyStore struct {
	persist.Store
}

func (unhealthyStore) Ping(context.Context) error { return errors.New("store down") }

func TestHealthz(t *testing.T) {
	s := newTestServer(t, persist.NewMemory())
	rec := doJSON(t, s, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	s = newTestServer(t, unhealthyStore{persist.NewMemory()})
	rec = doJSON(t, s, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, persist.NewMemory())
	started := startSession(t, s)
	rec := doJSON(t, s, http.MethodPost, "/session/"+started.SessionID+"/action",
		engine.Action{Type: engine.ActSay, Text: "hi", SkipAI: true})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "plotplay_turn_duration_seconds")
	require.Contains(t, body, "plotplay_active_sessions 1")
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, persist.NewMemory())
	req := httptest.NewRequest(http.MethodOptions, "/games", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[error]int{
		engine.ErrInvalidAction: http.StatusBadRequest,
		engine.ErrUnknownChoice: http.StatusBadRequest,
		engine.ErrSessionEnded:  http.StatusConflict,
		engine.ErrInternal:      http.StatusInternalServerError,
	}
	for err, want := range cases {
		require.Equal(t, want, httpStatus(err), err.Error())
	}
}
