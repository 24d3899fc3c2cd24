package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpRequestsTotal     *prometheus.CounterVec
	httpLatencySeconds    *prometheus.HistogramVec
	submissionsTotal      *prometheus.CounterVec
	roundsJudgedTotal     *prometheus.CounterVec
	judgeDurationSeconds  prometheus.Histogram
	behaviorMarksTotal    *prometheus.CounterVec
	roundTransitionsTotal *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the quiz service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quiz_http_requests_total",
			Help: "Total number of classroom API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "quiz_http_latency_seconds",
			Help:    "Latency distribution for classroom API requests.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"method", "route"})

		submissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quiz_submissions_total",
			Help: "Answer submissions by outcome.",
		}, []string{"result"})

		roundsJudgedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quiz_rounds_judged_total",
			Help: "Rounds judged by outcome.",
		}, []string{"result"})

		judgeDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "quiz_judge_duration_seconds",
			Help:    "Time spent judging a round inside its transaction.",
			Buckets: prometheus.DefBuckets,
		})

		behaviorMarksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quiz_behavior_marks_total",
			Help: "Behaviour penalties applied by kind.",
		}, []string{"kind"})

		roundTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quiz_round_transitions_total",
			Help: "Course lifecycle transitions (start, advance, end, repair).",
		}, []string{"transition"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			submissionsTotal,
			roundsJudgedTotal,
			judgeDurationSeconds,
			behaviorMarksTotal,
			roundTransitionsTotal,
		)
	})
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// Submissions exposes the submission outcome counter.
func Submissions() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsTotal
}

// RoundsJudged exposes the judging outcome counter.
func RoundsJudged() *prometheus.CounterVec {
	RegisterMetrics()
	return roundsJudgedTotal
}

// JudgeDuration exposes the judging latency histogram.
func JudgeDuration() prometheus.Histogram {
	RegisterMetrics()
	return judgeDurationSeconds
}

// BehaviorMarks exposes the behaviour mark counter.
func BehaviorMarks() *prometheus.CounterVec {
	RegisterMetrics()
	return behaviorMarksTotal
}

// RoundTransitions exposes the course transition counter.
func RoundTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return roundTransitionsTotal
}
