// Package metrics instruments the column store and selection optimizer
// with Prometheus metrics: promauto-registered counters/gauges/
// histograms under a namespace/subsystem pair.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Store instruments PreparedColumnStore chunk residency and fill errors.
type Store struct {
	ChunksCreated   prometheus.Counter
	ChunkLoads      prometheus.Counter
	ChunkEvictions  prometheus.Counter
	ResidentChunks  prometheus.Gauge
	FillErrors      prometheus.Counter
	MaterializeTime prometheus.Histogram
}

// NewStore registers and returns column-store metrics under the
// snbgrid_colstore subsystem.
func NewStore(reg prometheus.Registerer) *Store {
	factory := promauto.With(reg)
	const namespace, subsystem = "snbgrid", "colstore"
	return &Store{
		ChunksCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "chunks_created_total", Help: "Chunk files created during materialization.",
		}),
		ChunkLoads: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "chunk_loads_total", Help: "Chunk load operations (hits and misses).",
		}),
		ChunkEvictions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "chunk_evictions_total", Help: "LRU chunk evictions.",
		}),
		ResidentChunks: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "resident_chunks", Help: "Chunks currently resident in memory.",
		}),
		FillErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "fill_errors_total", Help: "I/O errors latched during fill operations.",
		}),
		MaterializeTime: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "materialize_seconds", Help: "Wall time spent in computePreparedData.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Optimizer instruments the SelectionOptimizer inner loop.
type Optimizer struct {
	AttributeEvaluations prometheus.Counter
	AcceptedAdds         prometheus.Counter
	AcceptedRemoves      prometheus.Counter
	Restarts             prometheus.Counter
	BestCost             prometheus.Gauge
}

// NewOptimizer registers and returns optimizer metrics under the
// snbgrid_optimizer subsystem.
func NewOptimizer(reg prometheus.Registerer) *Optimizer {
	factory := promauto.With(reg)
	const namespace, subsystem = "snbgrid", "optimizer"
	return &Optimizer{
		AttributeEvaluations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "attribute_evaluations_total", Help: "Per-attribute cost evaluations performed.",
		}),
		AcceptedAdds: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "accepted_adds_total", Help: "Attribute additions accepted by the search.",
		}),
		AcceptedRemoves: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "accepted_removes_total", Help: "Attribute removals accepted by the search.",
		}),
		Restarts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "restarts_total", Help: "Multi-start restarts performed (MS_FFWBW).",
		}),
		BestCost: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "best_cost", Help: "Best MAP cost found so far.",
		}),
	}
}
