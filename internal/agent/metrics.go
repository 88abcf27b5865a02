package agent

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/p-n-ai/pai-ask/internal/knowledge"
)

var (
	// answersTotal counts replies to questions.
	// Labels: subject (science, maths, none), source (guidance, exact, fuzzy, fallback)
	answersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pai_ask",
		Subsystem: "agent",
		Name:      "answers_total",
		Help:      "Total answered questions by subject and answer source",
	}, []string{"subject", "source"})

	// subjectSelectionsTotal counts subject selections. Labels: subject
	subjectSelectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pai_ask",
		Subsystem: "agent",
		Name:      "subject_selections_total",
		Help:      "Total subject selections by subject",
	}, []string{"subject"})

	// fallbackDuration measures online search latency. Labels: provider, stale (true, false)
	fallbackDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pai_ask",
		Subsystem: "agent",
		Name:      "fallback_duration_seconds",
		Help:      "Online search fallback latency",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"provider", "stale"})

	fallbacksInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pai_ask",
		Subsystem: "agent",
		Name:      "fallbacks_in_flight",
		Help:      "Online search fallbacks currently running",
	})
)

func subjectLabel(s knowledge.SubjectID) string {
	if !s.IsSet() {
		return "none"
	}
	return string(s)
}
