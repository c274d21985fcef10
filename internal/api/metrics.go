package api

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/plotplay/engine/internal/ai"
	"github.com/plotplay/engine/internal/engine"
	"github.com/plotplay/engine/internal/session"
)

// metrics owns the server's Prometheus registry. Every Server gets its own
// so tests can stand servers up side by side.
type metrics struct {
	registry *prometheus.Registry

	turnDuration   *prometheus.HistogramVec
	turnFailures   *prometheus.CounterVec
	degradedTurns  prometheus.Counter
	aiCallDuration *prometheus.HistogramVec
	aiCallFailures *prometheus.CounterVec
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		turnDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "plotplay",
			Name:      "turn_duration_seconds",
			Help:      "Wall time of one committed turn, by action type.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
		turnFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plotplay",
			Name:      "turn_failures_total",
			Help:      "Turns rejected or rolled back, by reason.",
		}, []string{"reason"}),
		degradedTurns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "plotplay",
			Name:      "degraded_turns_total",
			Help:      "Turns that committed without AI output.",
		}),
		aiCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "plotplay",
			Name:      "ai_call_duration_seconds",
			Help:      "Model call latency, by prompt kind.",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"kind"}),
		aiCallFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plotplay",
			Name:      "ai_call_failures_total",
			Help:      "Model calls that returned an error, by prompt kind.",
		}, []string{"kind"}),
	}
	m.registry.MustRegister(
		m.turnDuration,
		m.turnFailures,
		m.degradedTurns,
		m.aiCallDuration,
		m.aiCallFailures,
	)
	return m
}

// trackSessions registers the resident-session gauge once the manager
// exists.
func (m *metrics) trackSessions(f func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "plotplay",
		Name:      "active_sessions",
		Help:      "Sessions resident in memory.",
	}, f))
}

func (m *metrics) observeTurn(action string, d time.Duration, res *engine.TurnResult, err error) {
	if action == "" {
		action = "unknown"
	}
	if err != nil {
		m.turnFailures.WithLabelValues(failureReason(err)).Inc()
		return
	}
	m.turnDuration.WithLabelValues(action).Observe(d.Seconds())
	if res != nil && res.AIFailed {
		m.degradedTurns.Inc()
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, engine.ErrInvalidAction):
		return "invalid_action"
	case errors.Is(err, engine.ErrUnknownChoice):
		return "unknown_choice"
	case errors.Is(err, engine.ErrSessionEnded):
		return "session_ended"
	case errors.Is(err, session.ErrNotFound):
		return "not_found"
	case errors.Is(err, engine.ErrInternal):
		return "internal"
	}
	return "error"
}

// wrapAI times every model call behind the engine.
func (m *metrics) wrapAI(c ai.Client) ai.Client {
	if c == nil {
		return nil
	}
	return &instrumentedAI{inner: c, m: m}
}

type instrumentedAI struct {
	inner ai.Client
	m     *metrics
}

func (a *instrumentedAI) Generate(ctx context.Context, req ai.Request) (string, error) {
	start := time.Now()
	text, err := a.inner.Generate(ctx, req)
	a.m.observeAI(string(req.Kind), time.Since(start), err)
	return text, err
}

func (a *instrumentedAI) GenerateStream(ctx context.Context, req ai.Request, recv func(string)) (string, error) {
	start := time.Now()
	text, err := a.inner.GenerateStream(ctx, req, recv)
	a.m.observeAI(string(req.Kind), time.Since(start), err)
	return text, err
}

func (m *metrics) observeAI(kind string, d time.Duration, err error) {
	m.aiCallDuration.WithLabelValues(kind).Observe(d.Seconds())
	if err != nil {
		m.aiCallFailures.WithLabelValues(kind).Inc()
	}
}
