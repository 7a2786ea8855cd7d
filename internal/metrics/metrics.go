// Package metrics provides Prometheus metrics for the ingestion and retrieval pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all collectors exposed by the service.
type Metrics struct {
	registry *prometheus.Registry

	// Embedding chain
	EmbeddingCalls      *prometheus.CounterVec
	EmbeddingExhausted  prometheus.Counter
	EmbeddingRetries    *prometheus.CounterVec
	EmbeddingBatchTexts prometheus.Histogram

	// Vector store
	VectorSearches   *prometheus.CounterVec
	VectorUpserts    *prometheus.CounterVec
	VectorSearchTime *prometheus.HistogramVec

	// Ingestion
	IngestRuns     *prometheus.CounterVec
	IngestDuration prometheus.Histogram
	IngestChunks   prometheus.Counter

	// QA
	QACompletions *prometheus.CounterVec
	QADuration    prometheus.Histogram
}

// New creates a metric set registered on its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{registry: reg}

	m.EmbeddingCalls = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jurisrag_embedding_calls_total",
			Help: "Embedding provider calls by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)
	m.EmbeddingExhausted = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "jurisrag_embedding_chain_exhausted_total",
			Help: "Calls where every embedding provider failed and zero vectors were returned",
		},
	)
	m.EmbeddingRetries = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jurisrag_embedding_retries_total",
			Help: "Rate-limit retries issued by remote embedding providers",
		},
		[]string{"provider"},
	)
	m.EmbeddingBatchTexts = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "jurisrag_embedding_batch_texts",
			Help:    "Number of texts per embedding call",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	m.VectorSearches = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jurisrag_vector_searches_total",
			Help: "Vector similarity searches by backend and status",
		},
		[]string{"backend", "status"},
	)
	m.VectorUpserts = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jurisrag_vector_upserts_total",
			Help: "Vectors written by backend",
		},
		[]string{"backend"},
	)
	m.VectorSearchTime = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jurisrag_vector_search_duration_seconds",
			Help:    "Duration of vector searches in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend"},
	)

	m.IngestRuns = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jurisrag_ingest_runs_total",
			Help: "Document pipeline runs by final status",
		},
		[]string{"status"},
	)
	m.IngestDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "jurisrag_ingest_duration_seconds",
			Help:    "Duration of a full document pipeline run",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)
	m.IngestChunks = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "jurisrag_ingest_chunks_total",
			Help: "Chunks produced by the ingestion pipeline",
		},
	)

	m.QACompletions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jurisrag_qa_completions_total",
			Help: "Question answering completions by outcome",
		},
		[]string{"outcome"},
	)
	m.QADuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "jurisrag_qa_duration_seconds",
			Help:    "Duration of question answering requests",
			Buckets: prometheus.DefBuckets,
		},
	)

	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
