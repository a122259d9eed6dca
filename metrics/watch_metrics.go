package metrics

import "github.com/prometheus/client_golang/prometheus"

// WatchMetrics groups chain tip watcher metrics
type WatchMetrics struct {
	TipHeight      prometheus.Gauge
	TipChanges     prometheus.Counter
	PollsTotal     *prometheus.CounterVec
	ServerVersion  prometheus.Gauge
	PublishedTotal *prometheus.CounterVec
}

// NewWatchMetrics creates and returns watcher metrics
func NewWatchMetrics() *WatchMetrics {
	return &WatchMetrics{
		TipHeight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "corerpc_tip_height",
				Help: "Height of the best block last observed",
			},
		),
		TipChanges: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "corerpc_tip_changes_total",
				Help: "Total number of best block changes observed",
			},
		),
		PollsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corerpc_polls_total",
				Help: "Total number of tip polls by result",
			},
			[]string{"result"},
		),
		ServerVersion: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "corerpc_server_version",
				Help: "Numeric version reported by the node",
			},
		),
		PublishedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corerpc_tip_events_published_total",
				Help: "Total number of tip events published to the stream by result",
			},
			[]string{"result"},
		),
	}
}

// Register registers all watcher metrics with the given registry
func (w *WatchMetrics) Register(reg *prometheus.Registry) {
	reg.MustRegister(
		w.TipHeight,
		w.TipChanges,
		w.PollsTotal,
		w.ServerVersion,
		w.PublishedTotal,
	)
}
