package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	casesEvaluated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sweepr_cases_evaluated_total",
		Help: "Completed case evaluations, labelled by terminal solve status.",
	}, []string{"status"})

	caseRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sweepr_case_retries_total",
		Help: "Failed cases that entered the recover-and-retry path.",
	})

	caseDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sweepr_case_duration_seconds",
		Help:    "Wall time per case evaluation, retries included.",
		Buckets: prometheus.DefBuckets,
	})

	sweepsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sweepr_sweeps_completed_total",
		Help: "Finished sweep runs, labelled by outcome.",
	}, []string{"outcome"})
)
