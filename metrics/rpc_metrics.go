package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	LatencyBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
)

// RPCMetrics groups node JSON-RPC request metrics
type RPCMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	Latency         *prometheus.HistogramVec
	InFlight        prometheus.Gauge
	HTTPStatusTotal *prometheus.CounterVec
	ResponseBytes   *prometheus.HistogramVec
}

// NewRPCMetrics creates and returns node JSON-RPC metrics
func NewRPCMetrics() *RPCMetrics {
	return &RPCMetrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corerpc_requests_total",
				Help: "Total number of JSON-RPC requests by method and outcome",
			},
			[]string{"method", "outcome"}, // outcome: ok or an error class
		),
		Latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "corerpc_request_latency_seconds",
				Help:    "JSON-RPC request latency in seconds",
				Buckets: LatencyBuckets,
			},
			[]string{"method"},
		),
		InFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "corerpc_requests_in_flight",
				Help: "Number of JSON-RPC requests currently awaiting a response",
			},
		),
		HTTPStatusTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corerpc_http_responses_total",
				Help: "Total number of HTTP responses by status code",
			},
			[]string{"status_code"},
		),
		ResponseBytes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "corerpc_response_bytes",
				Help:    "Size of JSON-RPC response bodies in bytes",
				Buckets: prometheus.ExponentialBuckets(64, 4, 10),
			},
			[]string{"method"},
		),
	}
}

// Register registers all RPC metrics with the given registry
func (r *RPCMetrics) Register(reg *prometheus.Registry) {
	reg.MustRegister(
		r.RequestsTotal,
		r.Latency,
		r.InFlight,
		r.HTTPStatusTotal,
		r.ResponseBytes,
	)
}
