package service

import (
	"net/http"
	"time"

	"github.com/aiwolfdial/studybuddy/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry       *prometheus.Registry
	turns          *prometheus.CounterVec
	turnDuration   *prometheus.HistogramVec
	gamesStarted   prometheus.Counter
	gamesEnded     *prometheus.CounterVec
	activeSessions prometheus.Gauge
	oracleRequests *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studybuddy",
			Subsystem: "mafia",
			Name:      "turns_total",
			Help:      "Number of narrator turns by phase and outcome.",
		}, []string{"phase", "outcome"}),
		turnDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "studybuddy",
			Subsystem: "mafia",
			Name:      "turn_duration_seconds",
			Help:      "Time spent waiting for the narrator per turn.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
		}, []string{"phase"}),
		gamesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "studybuddy",
			Subsystem: "mafia",
			Name:      "games_started_total",
			Help:      "Number of games dealt.",
		}),
		gamesEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studybuddy",
			Subsystem: "mafia",
			Name:      "games_ended_total",
			Help:      "Number of finished games by winner.",
		}, []string{"winner"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "studybuddy",
			Subsystem: "mafia",
			Name:      "active_sessions",
			Help:      "Number of game sessions held in memory.",
		}),
		oracleRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studybuddy",
			Subsystem: "oracle",
			Name:      "requests_total",
			Help:      "Number of assistant requests by kind and result.",
		}, []string{"kind", "result"}),
	}
	m.registry.MustRegister(
		m.turns,
		m.turnDuration,
		m.gamesStarted,
		m.gamesEnded,
		m.activeSessions,
		m.oracleRequests,
		prometheus.NewGoCollector(),
	)
	return m
}

func (m *Metrics) ObserveTurn(phase model.Phase, outcome string, elapsed time.Duration) {
	m.turns.WithLabelValues(phase.String(), outcome).Inc()
	m.turnDuration.WithLabelValues(phase.String()).Observe(elapsed.Seconds())
}

func (m *Metrics) GameStarted() {
	m.gamesStarted.Inc()
}

func (m *Metrics) GameEnded(winner model.Team) {
	m.gamesEnded.WithLabelValues(winner.String()).Inc()
}

func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

func (m *Metrics) ObserveAssistant(kind string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.oracleRequests.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
