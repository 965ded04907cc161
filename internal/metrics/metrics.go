// Package metrics provides Prometheus metrics collection for the prediction
// service: prediction throughput and latency, training runs and model health,
// feature builds, collector activity and storage failures, all exposed via
// the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the prediction service.
type Metrics struct {
	// Prediction metrics
	PredictionsTotal   prometheus.Counter   // Total predictions served
	PredictionFailures prometheus.Counter   // Predictions that returned an error
	PredictionLatency  prometheus.Histogram // End-to-end predict latency in seconds
	PredictionScores   prometheus.Histogram // Distribution of confidence scores

	// Training and model metrics
	TrainingRuns     prometheus.Counter   // Training runs started
	TrainingFailures prometheus.Counter   // Training runs that failed
	TrainingDuration prometheus.Histogram // Duration of training runs in seconds
	ModelAccuracy    prometheus.Gauge     // Held-out accuracy of the live model
	ModelAge         prometheus.Gauge     // Age of the live model in seconds

	// Feature pipeline metrics
	FeatureBuilds prometheus.Counter // Feature vectors assembled
	FeatureErrors prometheus.Counter // Contract errors surfaced by the pipeline

	// Collector and storage metrics
	GamesFetched    prometheus.Counter // Game records fetched from upstream
	GamesDiscarded  prometheus.Counter // Upstream records dropped as malformed
	StreamReconnect prometheus.Counter // Score-stream reconnections
	StoreErrors     prometheus.Counter // Persistence failures
}

// New creates and registers all metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry, keeping tests
// isolated from the global state.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		PredictionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of predictions served",
		}),
		PredictionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "prediction_failures_total",
			Help: "Total number of predictions that returned an error",
		}),
		PredictionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_latency_seconds",
			Help:    "End-to-end prediction latency in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
		PredictionScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_confidence_scores",
			Help:    "Distribution of prediction confidence scores",
			Buckets: prometheus.LinearBuckets(0.5, 0.05, 11),
		}),
		TrainingRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "training_runs_total",
			Help: "Total number of training runs started",
		}),
		TrainingFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "training_failures_total",
			Help: "Total number of training runs that failed",
		}),
		TrainingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "training_duration_seconds",
			Help:    "Duration of training runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		ModelAccuracy: factory.NewGauge(prometheus.GaugeOpts{
			Name: "model_accuracy",
			Help: "Held-out accuracy of the live model",
		}),
		ModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "model_age_seconds",
			Help: "Age of the live model in seconds",
		}),
		FeatureBuilds: factory.NewCounter(prometheus.CounterOpts{
			Name: "feature_builds_total",
			Help: "Total number of feature vectors assembled",
		}),
		FeatureErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "feature_errors_total",
			Help: "Total number of contract errors surfaced by the feature pipeline",
		}),
		GamesFetched: factory.NewCounter(prometheus.CounterOpts{
			Name: "games_fetched_total",
			Help: "Total number of game records fetched from upstream",
		}),
		GamesDiscarded: factory.NewCounter(prometheus.CounterOpts{
			Name: "games_discarded_total",
			Help: "Total number of upstream records dropped as malformed",
		}),
		StreamReconnect: factory.NewCounter(prometheus.CounterOpts{
			Name: "score_stream_reconnects_total",
			Help: "Total number of score-stream reconnections",
		}),
		StoreErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "store_errors_total",
			Help: "Total number of persistence failures",
		}),
	}
}
