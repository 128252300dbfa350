// Package metrics exposes Prometheus instrumentation for the ingestion pipeline.
//
// Counters are fire-and-forget: callers increment and never block or fail on
// the metrics path.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Catalog ingestion
	IngestedTracksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replay_ingested_tracks_total",
			Help: "Total number of new tracks stored in the catalog",
		},
		[]string{"user"},
	)

	IngestedAlbumsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replay_ingested_albums_total",
			Help: "Total number of new albums stored in the catalog",
		},
		[]string{"user"},
	)

	IngestedArtistsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replay_ingested_artists_total",
			Help: "Total number of new artists stored in the catalog",
		},
		[]string{"user"},
	)

	ListensIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replay_listens_ingested_total",
			Help: "Total number of listen events appended",
		},
		[]string{"user"},
	)

	// Gateway
	GatewayOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replay_gateway_operations_total",
			Help: "Total number of serialized gateway operations by outcome",
		},
		[]string{"outcome"},
	)

	GatewayQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "replay_gateway_queue_depth",
			Help: "Operations currently waiting for the gateway lane",
		},
	)

	TokenRefreshesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "replay_token_refreshes_total",
			Help: "Total number of OAuth token refreshes performed",
		},
	)

	// Sync loop
	SyncIterationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replay_sync_iterations_total",
			Help: "Total number of history sync iterations by status",
		},
		[]string{"status"},
	)
)
