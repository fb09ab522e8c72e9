// Package metrics defines the Prometheus collectors shared by the pipeline
// workers. Counters are registered once at init and incremented directly by
// the owning component; the health server exposes them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Trade stream
	TradeEventsIn = promauto.NewCounter(prometheus.CounterOpts{
		Name: "strikefeed_trade_events_in_total",
		Help: "Canonical trade events emitted by the trade source.",
	})
	MalformedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "strikefeed_malformed_frames_total",
		Help: "Unparseable feed frames counted and discarded.",
	})
	StreamReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "strikefeed_stream_reconnects_total",
		Help: "Trade feed reconnection attempts after a lost connection.",
	})

	// Hydrator
	TradesMatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "strikefeed_trades_matched_total",
		Help: "Trade events applied to a contract record.",
	})
	TradesUnmatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "strikefeed_trades_unmatched_total",
		Help: "Trade events discarded by the hydrator, by reason.",
	}, []string{"reason"})

	// Chain refresh
	EpochsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "strikefeed_epochs_created_total",
		Help: "Epochs created from successful full chain fetches.",
	})
	ChainFetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "strikefeed_chain_fetch_failures_total",
		Help: "Full chain fetch attempts that failed and were retried.",
	})

	// Snapshot publisher
	SnapshotsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "strikefeed_snapshots_published_total",
		Help: "Snapshots written and pointed to by the latest pointer.",
	})
	PublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "strikefeed_publish_failures_total",
		Help: "Snapshot publish attempts that left the previous pointer intact.",
	})

	// Model builder
	ModelsBuilt = promauto.NewCounter(prometheus.CounterOpts{
		Name: "strikefeed_models_built_total",
		Help: "Derived models computed and published.",
	})
	ModelsDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "strikefeed_models_discarded_total",
		Help: "In-progress model computations discarded after an epoch swap.",
	})

	// Archive writers
	ArchiveInserts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "strikefeed_archive_inserts_total",
		Help: "Rows archived to the database, by table.",
	}, []string{"table"})
	ArchiveErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "strikefeed_archive_errors_total",
		Help: "Failed archive batch flushes, by table.",
	}, []string{"table"})
)
