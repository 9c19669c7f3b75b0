// Package metrics exposes the Prometheus-style counters the server exports
// for each registered model. Counters are updated lock-free by convention
// (prometheus client_golang's primitives are themselves safe for concurrent
// use without an external mutex) and are read only by the metrics
// interceptor and /metrics handler, never by the batcher's own decision
// logic.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// BatcherMetrics is the per-model counter set grounded on
// concurrentbatchprocessor's batchProcessorTelemetry.
type BatcherMetrics struct {
	Submitted   prometheus.Counter
	Dispatched  prometheus.Counter
	ItemErrors  prometheus.Counter
	BatchSize   prometheus.Histogram
	QueueDepth  prometheus.Gauge
}

// Registry wraps a dedicated prometheus.Registry (not prometheus' default
// registerer) holding the per-model counters and any collectors added
// through MustRegister.
type Registry struct {
	reg *prometheus.Registry
}

func NewRegistry() *Registry {
	return &Registry{reg: prometheus.NewRegistry()}
}

// Gatherer exposes the underlying prometheus.Gatherer for wiring into an
// HTTP /metrics handler; serving that endpoint is the caller's job.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// MustRegister registers additional collectors (e.g. go-grpc-prometheus's
// ServerMetrics) into the same registry the per-model counters live in, so
// a single /metrics endpoint exposes both.
func (r *Registry) MustRegister(cs ...prometheus.Collector) { r.reg.MustRegister(cs...) }

// ForModel creates and registers a BatcherMetrics set labeled by model name.
func (r *Registry) ForModel(modelName string) *BatcherMetrics {
	m := &BatcherMetrics{
		Submitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "blazerpc_batcher_submitted_total",
			Help:        "Slots submitted to the batcher.",
			ConstLabels: prometheus.Labels{"model": modelName},
		}),
		Dispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "blazerpc_batcher_dispatched_total",
			Help:        "Batches dispatched to the model callable.",
			ConstLabels: prometheus.Labels{"model": modelName},
		}),
		ItemErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "blazerpc_batcher_item_errors_total",
			Help:        "Per-item failures isolated within a batch.",
			ConstLabels: prometheus.Labels{"model": modelName},
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "blazerpc_batcher_batch_size",
			Help:        "Dispatched batch size.",
			ConstLabels: prometheus.Labels{"model": modelName},
			Buckets:     prometheus.ExponentialBuckets(1, 2, 10),
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "blazerpc_batcher_queue_depth",
			Help:        "Slots currently collected but not yet dispatched.",
			ConstLabels: prometheus.Labels{"model": modelName},
		}),
	}
	r.reg.MustRegister(m.Submitted, m.Dispatched, m.ItemErrors, m.BatchSize, m.QueueDepth)
	return m
}
