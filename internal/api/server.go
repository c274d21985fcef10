// Package api serves the engine over HTTP: a chi-routed JSON surface for
// sessions and turns, SSE and websocket streams that deliver a turn's
// narration as it arrives, and the operational endpoints.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/plotplay/engine/internal/ai"
	"github.com/plotplay/engine/internal/config"
	"github.com/plotplay/engine/internal/engine"
	"github.com/plotplay/engine/internal/game"
	"github.com/plotplay/engine/internal/persist"
	"github.com/plotplay/engine/internal/session"
)

// Server routes the HTTP surface. It owns the session manager and the
// metrics registry; cmd/plotplay owns listening and shutdown.
type Server struct {
	mgr      *session.Manager
	lib      *game.Library
	store    persist.Store
	log      *zap.Logger
	metrics  *metrics
	router   *chi.Mux
	origin   string
	upgrader websocket.Upgrader
}

func NewServer(lib *game.Library, store persist.Store, client ai.Client, log *zap.Logger, cfg *config.Config) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	m := newMetrics()
	mgr := session.NewManager(lib, store, m.wrapAI(client), log.Named("session"), session.Config{
		Engine: engine.Options{
			WriterDeadline:        cfg.AI.WriterDeadline,
			CheckerDeadline:       cfg.AI.CheckerDeadline,
			HistoryWindow:         cfg.AI.HistoryWindow,
			MemorySummaryInterval: cfg.AI.MemorySummaryInterval,
		},
		IdleTimeout: cfg.Session.IdleTimeout,
	})
	s := &Server{
		mgr:     mgr,
		lib:     lib,
		store:   store,
		log:     log.Named("api"),
		metrics: m,
		origin:  cfg.Server.CORSOrigin,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	m.trackSessions(func() float64 { return float64(mgr.Active()) })
	s.router = s.routes()
	return s
}

// Handler returns the assembled HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Manager exposes the session manager; cmd/plotplay drives eviction.
func (s *Server) Manager() *session.Manager { return s.mgr }

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(s.recoverer, s.requestLogger, s.cors)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	r.Get("/games", s.handleGames)

	r.Route("/session", func(r chi.Router) {
		r.Post("/start", s.handleStart)
		r.Route("/{id}", func(r chi.Router) {
			r.Post("/action", s.handleAction)
			r.Post("/action/stream", s.handleActionStream)
			r.Get("/state", s.handleState)
			r.Get("/characters", s.handleCharacters)
			r.Get("/character/{char_id}", s.handleCharacter)
			r.Get("/story-events", s.handleStoryEvents)
			r.Get("/ws", s.handleWS)
			r.Delete("/", s.handleDelete)
		})
	})
	return r
}
