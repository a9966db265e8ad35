package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActionRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "examroom_action_requests_total",
			Help: "Total number of API actions by outcome",
		},
		[]string{"action", "outcome"},
	)

	ActionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "examroom_action_duration_seconds",
			Help:    "API action duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action"},
	)

	LockWaitSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "examroom_write_lock_wait_seconds",
			Help:    "Time spent waiting for the global write lock",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 9),
		},
	)

	LockBusyTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "examroom_write_lock_busy_total",
			Help: "Mutating actions rejected because the write lock was busy",
		},
		[]string{"action"},
	)

	BlobOffloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "examroom_blob_offloads_total",
			Help: "Cells moved to blob storage because they exceeded the cell size limit",
		},
		[]string{"table", "column"},
	)

	AnalysisRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "examroom_item_analysis_runs_total",
			Help: "Item analysis runs by outcome",
		},
		[]string{"outcome"},
	)

	DifficultyIndex = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "examroom_item_difficulty_index",
			Help:    "Distribution of analysed item difficulty indices",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)
)
