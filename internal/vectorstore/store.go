package vectorstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"jurisrag/internal/config"
	"jurisrag/internal/metrics"
	"jurisrag/internal/platform/postgres"
)

// Embedder is the subset of the embedding chain the store needs.
type Embedder interface {
	Dimension() int
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
}

// QueryVectorCache memoizes query embeddings per embedding provider.
type QueryVectorCache interface {
	GetQueryVector(ctx context.Context, provider, text string) ([]float32, bool, error)
	SetQueryVector(ctx context.Context, provider, text string, vector []float32) error
}

// activeProvider is implemented by embedders that fail over between providers.
type activeProvider interface {
	ActiveProvider() string
}

// SearchResult is a retrieved chunk with normalized metadata.
type SearchResult struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
	Score    float64        `json:"score"`
}

// Store embeds text and delegates indexing to the backend selected at startup.
type Store struct {
	backend  Backend
	embedder Embedder
	log      zerolog.Logger
	metrics  *metrics.Metrics
	cache    QueryVectorCache
	closers  []func()
}

type Option func(*Store)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

func WithQueryCache(c QueryVectorCache) Option {
	return func(s *Store) { s.cache = c }
}

// New wraps an already initialised backend.
func New(backend Backend, embedder Embedder, opts ...Option) *Store {
	s := &Store{
		backend:  backend,
		embedder: embedder,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open picks the configured backend once. An unconfigured backend or one that fails
// to initialise is replaced by the in-memory index.
func Open(ctx context.Context, cfg config.VectorConfig, embedder Embedder, opts ...Option) *Store {
	s := New(nil, embedder, opts...)
	dim := embedder.Dimension()

	var backend Backend
	switch cfg.Backend {
	case "qdrant":
		if cfg.QdrantURL != "" {
			backend = NewQdrantBackend(QdrantConfig{URL: cfg.QdrantURL, APIKey: cfg.QdrantAPIKey, Collection: cfg.Collection})
		}
	case "pgvector":
		if cfg.PostgresDSN != "" {
			pool, err := postgres.New(ctx, cfg.PostgresDSN)
			if err != nil {
				s.log.Warn().Err(err).Msg("pgvector unavailable, using in-memory vector index")
				break
			}
			s.closers = append(s.closers, pool.Close)
			backend = NewPgvectorBackend(pool, cfg.Collection)
		}
	}

	if backend != nil {
		if err := backend.Init(ctx, dim); err != nil {
			s.log.Warn().Err(err).Str("backend", backend.Name()).Msg("vector backend init failed, using in-memory vector index")
			s.Close()
			backend = nil
		}
	}
	if backend == nil {
		backend = NewMemoryBackend()
		_ = backend.Init(ctx, dim)
	}
	s.backend = backend
	s.log.Info().Str("backend", backend.Name()).Int("dimension", dim).Msg("vector store ready")
	return s
}

// Backend names the active backend.
func (s *Store) Backend() string { return s.backend.Name() }

func (s *Store) Close() {
	for _, c := range s.closers {
		c()
	}
	s.closers = nil
}

// Add embeds texts in one batch and upserts them. Ids are "{id}_chunk_{n}" when the
// metadata carries both id and chunk, otherwise random UUIDs.
func (s *Store) Add(ctx context.Context, texts []string, metadatas []map[string]any) ([]string, error) {
	if len(texts) == 0 {
		return []string{}, nil
	}
	if metadatas != nil && len(metadatas) != len(texts) {
		return nil, fmt.Errorf("texts and metadatas length mismatch: %d != %d", len(texts), len(metadatas))
	}

	vectors, err := s.embedder.EmbedMany(ctx, texts)
	if err != nil {
		return nil, err
	}

	records := make([]Record, len(texts))
	ids := make([]string, len(texts))
	for i, text := range texts {
		var meta map[string]any
		if metadatas != nil {
			meta = metadatas[i]
		}
		ids[i] = recordID(meta)
		records[i] = Record{ID: ids[i], Text: text, Vector: vectors[i], Metadata: copyMap(meta)}
	}

	if err := s.backend.Upsert(ctx, records); err != nil {
		return nil, fmt.Errorf("%s upsert: %w", s.backend.Name(), err)
	}
	if s.metrics != nil {
		s.metrics.VectorUpserts.WithLabelValues(s.backend.Name()).Add(float64(len(records)))
	}
	return ids, nil
}

// Search embeds the query and returns up to topK hits with normalized metadata.
// An empty index yields an empty slice.
func (s *Store) Search(ctx context.Context, query string, filter map[string]any, topK int) ([]SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	start := time.Now()

	vector, err := s.queryVector(ctx, query)
	if err != nil {
		return nil, err
	}
	matches, err := s.backend.Query(ctx, vector, filter, topK)
	s.observeSearch(start, err)
	if err != nil {
		return nil, fmt.Errorf("%s query: %w", s.backend.Name(), err)
	}

	results := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, SearchResult{
			ID:       m.ID,
			Text:     m.Text,
			Metadata: NormalizeMetadata(m.Metadata),
			Score:    m.Score,
		})
	}
	return results, nil
}

func (s *Store) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.backend.Delete(ctx, ids)
}

func (s *Store) DeleteAll(ctx context.Context) error {
	return s.backend.DeleteAll(ctx)
}

// queryVector caches under the provider that produced the vector, so vectors
// from a fallback provider are never served once the primary is back.
func (s *Store) queryVector(ctx context.Context, query string) ([]float32, error) {
	provider := s.provider()
	if s.cache != nil {
		if v, ok, err := s.cache.GetQueryVector(ctx, provider, query); err != nil {
			s.log.Warn().Err(err).Msg("query vector cache read failed")
		} else if ok && len(v) == s.embedder.Dimension() {
			return v, nil
		}
	}
	v, err := s.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, err
	}
	// a failover during EmbedOne means provider did not produce v
	if s.cache != nil && !isZero(v) && s.provider() == provider {
		if err := s.cache.SetQueryVector(ctx, provider, query, v); err != nil {
			s.log.Warn().Err(err).Msg("query vector cache write failed")
		}
	}
	return v, nil
}

func (s *Store) provider() string {
	if p, ok := s.embedder.(activeProvider); ok {
		return p.ActiveProvider()
	}
	return "default"
}

func (s *Store) observeSearch(start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	name := s.backend.Name()
	s.metrics.VectorSearches.WithLabelValues(name, status).Inc()
	s.metrics.VectorSearchTime.WithLabelValues(name).Observe(time.Since(start).Seconds())
}

func recordID(meta map[string]any) string {
	if present(meta, "id") && present(meta, "chunk") {
		return fmt.Sprintf("%s_chunk_%s", str(meta["id"]), str(meta["chunk"]))
	}
	return uuid.NewString()
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
