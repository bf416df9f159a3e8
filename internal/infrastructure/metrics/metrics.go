package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Replay metrics
	ReplaysTotal    prometheus.Counter
	ReplayDuration  prometheus.Histogram
	RecordsApplied  *prometheus.CounterVec
	RecordsRejected *prometheus.CounterVec

	// Account metrics
	Accounts       prometheus.Gauge
	FrozenAccounts prometheus.Gauge

	// Export metrics
	ExportDuration *prometheus.HistogramVec
	ExportErrors   *prometheus.CounterVec
}

// New creates all metrics and registers them with reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Replay metrics
		ReplaysTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "txengine_replays_total",
			Help: "Total number of completed replays",
		}),
		ReplayDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "txengine_replay_duration_seconds",
			Help:    "Duration of a full replay",
			Buckets: prometheus.DefBuckets,
		}),
		RecordsApplied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txengine_records_applied_total",
				Help: "Total records applied to an account by transaction type",
			},
			[]string{"type"},
		),
		RecordsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txengine_records_rejected_total",
				Help: "Total records rejected by reason",
			},
			[]string{"reason"},
		),

		// Account metrics
		Accounts: factory.NewGauge(prometheus.GaugeOpts{
			Name: "txengine_accounts",
			Help: "Number of accounts produced by the last replay",
		}),
		FrozenAccounts: factory.NewGauge(prometheus.GaugeOpts{
			Name: "txengine_frozen_accounts",
			Help: "Number of frozen accounts produced by the last replay",
		}),

		// Export metrics
		ExportDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "txengine_export_duration_seconds",
				Help:    "Duration of balance exports",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"exporter"},
		),
		ExportErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txengine_export_errors_total",
				Help: "Total failed balance exports",
			},
			[]string{"exporter"},
		),
	}
}
