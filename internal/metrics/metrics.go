package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Tracker metrics for local monitoring, served at /metrics.
var (
	// Lifecycle metrics
	AttacksStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attacklog_attacks_started_total",
			Help: "Total number of attacks started",
		},
	)

	AttacksEnded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attacklog_attacks_ended_total",
			Help: "Total number of attacks ended",
		},
	)

	MitigationsRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attacklog_mitigations_recorded_total",
			Help: "Total number of mitigation attempts recorded",
		},
	)

	AttackDurationHours = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "attacklog_attack_duration_hours",
			Help:    "Duration of ended attacks in hours",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8), // 15min to ~32h
		},
	)

	// Store operation metrics
	StoreOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attacklog_store_operation_errors_total",
			Help: "Total number of rejected store operations",
		},
		[]string{"operation", "kind"}, // kind: validation/no_active/duplicate_tag
	)

	// Persistence metrics
	SnapshotSaves = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attacklog_snapshot_saves_total",
			Help: "Total number of successful snapshot writes",
		},
	)

	SnapshotSaveFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attacklog_snapshot_save_failures_total",
			Help: "Total number of failed snapshot writes",
		},
	)

	DataInconsistencies = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attacklog_data_inconsistencies_total",
			Help: "Total number of multiple-active-attack conditions found on load",
		},
	)

	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "attacklog_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "route", "status"},
	)
)
