package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransfersTotal counts finished transfers by outcome kind.
	TransfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipferry_transfers_total",
			Help: "Finished transfer pipeline runs by outcome.",
		},
		[]string{"outcome"},
	)

	// TransferBytes observes the size of completed download artifacts.
	TransferBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clipferry_transfer_bytes",
			Help:    "Size distribution of downloaded artifacts.",
			Buckets: prometheus.ExponentialBuckets(1<<20, 4, 8),
		},
	)

	// OversizeFallbacks counts video transfers that re-entered as audio.
	OversizeFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clipferry_oversize_fallbacks_total",
			Help: "Video transfers abandoned for exceeding the platform cap.",
		},
	)

	// ActiveSessions tracks the number of live download sessions.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clipferry_active_sessions",
			Help: "Download sessions currently held in the session store.",
		},
	)

	// SessionsExpired counts sessions removed by the background sweep.
	SessionsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clipferry_sessions_expired_total",
			Help: "Sessions expired by the inactivity sweep.",
		},
	)

	// TempFilesSwept counts orphaned temp files removed by the sweep.
	TempFilesSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clipferry_temp_files_swept_total",
			Help: "Orphaned temporary files removed by the sweep.",
		},
	)

	// UpdatesTotal counts inbound platform updates by type.
	UpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipferry_updates_total",
			Help: "Inbound messaging platform updates by type.",
		},
		[]string{"type"},
	)
)
