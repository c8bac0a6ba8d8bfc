package server

import (
	"github.com/prometheus/client_golang/prometheus"

	"phishtrainer/internal/session"
)

var (
	sessionsStarted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "phishtrainer_sessions_started_total",
		Help: "Sessions started, by level.",
	}, []string{"level"})

	sessionsEnded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "phishtrainer_sessions_ended_total",
		Help: "Recorded session outcomes, by level and status.",
	}, []string{"level", "status"})

	wrongClicksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "phishtrainer_wrong_clicks_total",
		Help: "Penalized clicks, by level.",
	}, []string{"level"})

	scoreObserved = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "phishtrainer_attempt_score",
		Help:    "Leaderboard-facing score of recorded attempts.",
		Buckets: prometheus.LinearBuckets(0, 150, 10),
	}, []string{"level"})
)

func init() {
	prometheus.MustRegister(sessionsStarted, sessionsEnded, wrongClicksTotal, scoreObserved)
}

// metricsSaver counts outcomes on their way to the leaderboard.
type metricsSaver struct {
	next session.Saver
}

func newMetricsSaver(next session.Saver) session.Saver {
	return &metricsSaver{next: next}
}

func (m *metricsSaver) SaveAttempt(a session.Attempt) {
	sessionsEnded.WithLabelValues(a.LevelID, string(a.Status)).Inc()
	scoreObserved.WithLabelValues(a.LevelID).Observe(float64(a.Score))
	m.next.SaveAttempt(a)
}
