package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FetchRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recommender_fetch_request_duration_seconds",
		Help:    "Duration of bibliographic API requests",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30, 60},
	}, []string{"operation", "status"})

	FetchRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recommender_fetch_request_total",
		Help: "Number of bibliographic API requests",
	}, []string{"operation", "status"})

	PipelineRunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "recommender_pipeline_run_seconds",
		Help:    "Duration of fetch-and-recommend runs",
		Buckets: prometheus.DefBuckets,
	})

	CandidatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recommender_candidates_total",
		Help: "Candidates seen by the pipeline, by outcome",
	}, []string{"outcome"})

	JournalErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recommender_journal_errors_total",
		Help: "Journals whose processing failed during a run",
	})

	StatusUpdatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recommender_status_updates_total",
		Help: "Review status changes",
	}, []string{"status"})
)

// Candidate outcomes.
const (
	OutcomeFetched     = "fetched"
	OutcomeExcluded    = "excluded"
	OutcomeUnmatched   = "unmatched"
	OutcomeDuplicate   = "duplicate"
	OutcomeRecommended = "recommended"
)

// MustRegister registers all collectors.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		FetchRequestDuration,
		FetchRequestTotal,
		PipelineRunDuration,
		CandidatesTotal,
		JournalErrorsTotal,
		StatusUpdatesTotal,
	)
}

// Handler serves the default gatherer.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch records duration and status of one API request.
func ObserveFetch(operation string, duration time.Duration, err error) {
	if operation == "" {
		operation = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	FetchRequestDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
	FetchRequestTotal.WithLabelValues(operation, status).Inc()
}

// AddCandidates increases the candidate counter for outcome by n.
func AddCandidates(outcome string, n int) {
	if n <= 0 {
		return
	}
	CandidatesTotal.WithLabelValues(outcome).Add(float64(n))
}
