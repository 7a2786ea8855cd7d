package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jurisrag/internal/config"
	"jurisrag/internal/embedding"
	"jurisrag/internal/metrics"
)

func newMemoryStore(t *testing.T) *Store {
	t.Helper()
	chain := embedding.NewChain([]embedding.Provider{embedding.NewHashProvider(256)})
	return Open(context.Background(), config.VectorConfig{Backend: "memory"}, chain, WithMetrics(metrics.New()))
}

func TestSearchEmptyStore(t *testing.T) {
	s := newMemoryStore(t)
	res, err := s.Search(context.Background(), "anything", nil, 5)
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Empty(t, res)
}

func TestAddAndSearchRanksExactText(t *testing.T) {
	s := newMemoryStore(t)
	ctx := context.Background()
	texts := []string{
		"Article 1 The register of land shall be public.",
		"Article 2 Every owner must notify the registrar within thirty days.",
		"Article 3 Fees are set by the ministry each year.",
	}
	metas := make([]map[string]any, len(texts))
	for i := range texts {
		metas[i] = map[string]any{"id": "doc-1", "chunk": i, "document_type": "law"}
	}

	ids, err := s.Add(ctx, texts, metas)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc-1_chunk_0", "doc-1_chunk_1", "doc-1_chunk_2"}, ids)

	res, err := s.Search(ctx, texts[1], nil, 3)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, "doc-1_chunk_1", res[0].ID)
	assert.GreaterOrEqual(t, res[0].Score, res[1].Score)
	assert.InDelta(t, 1.0, res[0].Score, 1e-5)
	assert.Equal(t, "law", res[0].Metadata["document_type"])
	assert.Equal(t, "active", res[0].Metadata["status"])
}

func TestAddGeneratesIDsWithoutChunkMetadata(t *testing.T) {
	s := newMemoryStore(t)
	ids, err := s.Add(context.Background(), []string{"a text", "b text"}, nil)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])
}

func TestAddLengthMismatch(t *testing.T) {
	s := newMemoryStore(t)
	_, err := s.Add(context.Background(), []string{"a"}, []map[string]any{{}, {}})
	assert.Error(t, err)
}

func TestSearchFilterAndDelete(t *testing.T) {
	s := newMemoryStore(t)
	ctx := context.Background()
	ids, err := s.Add(ctx, []string{"tenant rent", "tenant deposit"}, []map[string]any{
		{"id": "a", "chunk": 0, "document_type": "contract"},
		{"id": "b", "chunk": 0, "document_type": "law"},
	})
	require.NoError(t, err)

	res, err := s.Search(ctx, "tenant", map[string]any{"document_type": "law"}, 5)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "b_chunk_0", res[0].ID)

	require.NoError(t, s.Delete(ctx, ids[1:]))
	res, err = s.Search(ctx, "tenant", map[string]any{"document_type": "law"}, 5)
	require.NoError(t, err)
	assert.Empty(t, res)

	require.NoError(t, s.DeleteAll(ctx))
	res, err = s.Search(ctx, "tenant", nil, 5)
	require.NoError(t, err)
	assert.Empty(t, res)
}

type mapCache struct {
	mu   sync.Mutex
	data map[string][]float32
	hits int
}

func (c *mapCache) GetQueryVector(_ context.Context, provider, text string) ([]float32, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[provider+"/"+text]
	if ok {
		c.hits++
	}
	return v, ok, nil
}

func (c *mapCache) SetQueryVector(_ context.Context, provider, text string, v []float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[provider+"/"+text] = v
	return nil
}

func TestSearchUsesQueryCache(t *testing.T) {
	cache := &mapCache{data: map[string][]float32{}}
	chain := embedding.NewChain([]embedding.Provider{embedding.NewHashProvider(64)})
	s := New(NewMemoryBackend(), chain, WithQueryCache(cache))
	ctx := context.Background()

	_, err := s.Search(ctx, "notice period", nil, 1)
	require.NoError(t, err)
	_, err = s.Search(ctx, "notice period", nil, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)
	assert.Len(t, cache.data["hash/notice period"], 64)
}

type primaryProvider struct {
	down bool
}

func (p *primaryProvider) Name() string   { return "remote" }
func (p *primaryProvider) Dimension() int { return 8 }

func (p *primaryProvider) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	out, err := p.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (p *primaryProvider) EmbedMany(_ context.Context, texts []string) ([][]float32, error) {
	if p.down {
		return nil, errors.New("upstream unavailable")
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{0, 1, 0, 0, 0, 0, 0, 0}
	}
	return out, nil
}

func TestQueryCacheIsScopedByProvider(t *testing.T) {
	cache := &mapCache{data: map[string][]float32{}}
	ctx := context.Background()

	degraded := embedding.NewChain([]embedding.Provider{&primaryProvider{down: true}, embedding.NewHashProvider(8)})
	s := New(NewMemoryBackend(), degraded, WithQueryCache(cache))
	_, err := s.Search(ctx, "notice period", nil, 1)
	require.NoError(t, err)
	// the failover happened inside this call, nothing is cached
	assert.Empty(t, cache.data)

	_, err = s.Search(ctx, "notice period", nil, 1)
	require.NoError(t, err)
	assert.Contains(t, cache.data, "hash/notice period")

	recovered := embedding.NewChain([]embedding.Provider{&primaryProvider{}, embedding.NewHashProvider(8)})
	s = New(NewMemoryBackend(), recovered, WithQueryCache(cache))
	_, err = s.Search(ctx, "notice period", nil, 1)
	require.NoError(t, err)
	assert.Zero(t, cache.hits)
	assert.Equal(t, []float32{0, 1, 0, 0, 0, 0, 0, 0}, cache.data["remote/notice period"])
}

func TestOpenFallsBackToMemory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	chain := embedding.NewChain([]embedding.Provider{embedding.NewHashProvider(8)})

	s := Open(context.Background(), config.VectorConfig{Backend: "qdrant", QdrantURL: srv.URL, Collection: "c"}, chain)
	assert.Equal(t, "memory", s.Backend())

	s = Open(context.Background(), config.VectorConfig{Backend: "qdrant"}, chain)
	assert.Equal(t, "memory", s.Backend())

	s = Open(context.Background(), config.VectorConfig{Backend: "pgvector", PostgresDSN: "postgres://nobody@127.0.0.1:1/none?connect_timeout=1"}, chain)
	assert.Equal(t, "memory", s.Backend())
}

func TestQdrantBackendRoundTrip(t *testing.T) {
	var mu sync.Mutex
	var upserted []map[string]any
	var searchBody map[string]any
	var deleted []any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/collections/legal":
			w.WriteHeader(http.StatusNotFound)
			return
		case r.Method == http.MethodPut && r.URL.Path == "/collections/legal":
			vectors := body["vectors"].(map[string]any)
			assert.Equal(t, float64(8), vectors["size"])
			assert.Equal(t, "Cosine", vectors["distance"])
		case r.Method == http.MethodPut && r.URL.Path == "/collections/legal/points":
			for _, p := range body["points"].([]any) {
				upserted = append(upserted, p.(map[string]any))
			}
		case r.Method == http.MethodPost && r.URL.Path == "/collections/legal/points/search":
			searchBody = body
			_, _ = w.Write([]byte(`{"result":[{"score":0.91,"payload":{"chunk_id":"d_chunk_0","text":"Article 1","metadata":{"law_number":"12/2020"}}}]}`))
			return
		case r.Method == http.MethodPost && r.URL.Path == "/collections/legal/points/delete":
			deleted = body["points"].([]any)
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"result":true}`))
	}))
	defer srv.Close()

	chain := embedding.NewChain([]embedding.Provider{embedding.NewHashProvider(8)})
	s := Open(context.Background(), config.VectorConfig{Backend: "qdrant", QdrantURL: srv.URL + "/", Collection: "legal"}, chain)
	require.Equal(t, "qdrant", s.Backend())
	ctx := context.Background()

	ids, err := s.Add(ctx, []string{"Article 1"}, []map[string]any{{"id": "d", "chunk": 0}})
	require.NoError(t, err)
	require.Len(t, upserted, 1)
	assert.Equal(t, pointID("d_chunk_0"), upserted[0]["id"])
	assert.Equal(t, "d_chunk_0", upserted[0]["payload"].(map[string]any)["chunk_id"])

	res, err := s.Search(ctx, "Article 1", map[string]any{"document_type": "law"}, 3)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "d_chunk_0", res[0].ID)
	assert.Equal(t, "law", res[0].Metadata["document_type"])
	assert.InDelta(t, 0.91, res[0].Score, 1e-9)
	must := searchBody["filter"].(map[string]any)["must"].([]any)
	assert.Equal(t, "metadata.document_type", must[0].(map[string]any)["key"])

	require.NoError(t, s.Delete(ctx, ids))
	assert.Equal(t, []any{pointID("d_chunk_0")}, deleted)
}

// collectionServer answers like Qdrant for a collection that may already exist.
type collectionServer struct {
	mu      sync.Mutex
	size    int
	creates int
	// conflict makes creation fail as if another process won the race
	conflict bool
}

func (c *collectionServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch r.Method {
	case http.MethodGet:
		if c.size == 0 || c.conflict {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"result":{"status":"green","config":{"params":{"vectors":{"size":` + strconv.Itoa(c.size) + `,"distance":"Cosine"}}}}}`))
	case http.MethodPut:
		if c.size != 0 || c.conflict {
			w.WriteHeader(http.StatusConflict)
			return
		}
		var body struct {
			Vectors struct {
				Size int `json:"size"`
			} `json:"vectors"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		c.size = body.Vectors.Size
		c.creates++
		_, _ = w.Write([]byte(`{"result":true}`))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestQdrantKeepsExistingCollection(t *testing.T) {
	qs := &collectionServer{}
	srv := httptest.NewServer(qs)
	defer srv.Close()
	chain := embedding.NewChain([]embedding.Provider{embedding.NewHashProvider(8)})
	cfg := config.VectorConfig{Backend: "qdrant", QdrantURL: srv.URL, Collection: "legal"}

	first := Open(context.Background(), cfg, chain)
	restart := Open(context.Background(), cfg, chain)

	assert.Equal(t, "qdrant", first.Backend())
	assert.Equal(t, "qdrant", restart.Backend())
	assert.Equal(t, 1, qs.creates)
}

func TestQdrantInitCollectionStates(t *testing.T) {
	cases := []struct {
		name    string
		server  *collectionServer
		wantErr bool
	}{
		{"created by a concurrent start", &collectionServer{conflict: true}, false},
		{"dimension mismatch", &collectionServer{size: 16}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.server)
			defer srv.Close()
			err := NewQdrantBackend(QdrantConfig{URL: srv.URL, Collection: "legal"}).Init(context.Background(), 8)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	err := NewQdrantBackend(QdrantConfig{URL: srv.URL, Collection: "legal"}).Init(context.Background(), 8)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Code)
}

func TestPointIDIsStableUUID(t *testing.T) {
	a := pointID("doc_chunk_1")
	assert.Equal(t, a, pointID("doc_chunk_1"))
	assert.NotEqual(t, a, pointID("doc_chunk_2"))
	assert.Len(t, a, 36)
	assert.Equal(t, 4, strings.Count(a, "-"))
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float32{1, 1}, []float32{2, 2}), 1e-9)
	assert.InDelta(t, -1.0, cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, cosine([]float32{0, 0}, []float32{1, 0}))
}
