package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LLMRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_requests_total",
			Help: "Total number of LLM calls by provider, method and status",
		},
		[]string{"provider", "method", "status"},
	)

	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "Duration of LLM calls in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider", "method"},
	)

	LLMFallbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_fallback_total",
			Help: "Number of times a provider was marked failed and the chain moved on",
		},
		[]string{"provider", "method"},
	)

	LLMMockFloorTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_mock_floor_total",
			Help: "Number of calls served by the mock after every provider failed",
		},
		[]string{"method"},
	)

	RouteSuggestionStepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "route_suggestion_step_duration_seconds",
			Help: "Duration of each route suggestion pipeline step",
		},
		[]string{"step"},
	)

	RouteCandidatesGenerated = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "route_candidates_generated",
			Help:    "Number of route candidates produced per request",
			Buckets: []float64{0, 1, 2, 3, 4, 6, 8, 10},
		},
	)
)
