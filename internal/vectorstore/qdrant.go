package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// QdrantConfig points at a Qdrant REST endpoint.
type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// QdrantBackend is a minimal REST client to Qdrant using cosine distance.
// Point ids are UUIDv5 values derived from chunk ids; the chunk id travels in the payload.
type QdrantBackend struct {
	url        string
	apiKey     string
	collection string
	dimension  int
	client     *http.Client
}

func NewQdrantBackend(cfg QdrantConfig) *QdrantBackend {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &QdrantBackend{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

func (q *QdrantBackend) Name() string { return "qdrant" }

// Init reuses an existing collection when its vector size matches dimension and
// creates it otherwise.
func (q *QdrantBackend) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	q.dimension = dimension

	var info struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	err := q.do(ctx, http.MethodGet, q.collectionURL(""), nil, &info)
	if err == nil {
		if size := info.Result.Config.Params.Vectors.Size; size != 0 && size != dimension {
			return fmt.Errorf("qdrant collection %s has dimension %d, embeddings have %d", q.collection, size, dimension)
		}
		return nil
	}
	if !hasStatus(err, http.StatusNotFound) {
		return err
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	err = q.do(ctx, http.MethodPut, q.collectionURL(""), body, nil)
	// another instance created it between the two calls
	if hasStatus(err, http.StatusConflict) {
		return nil
	}
	return err
}

func (q *QdrantBackend) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	points := make([]map[string]any, len(records))
	for i, r := range records {
		points[i] = map[string]any{
			"id":     pointID(r.ID),
			"vector": r.Vector,
			"payload": map[string]any{
				"chunk_id": r.ID,
				"text":     r.Text,
				"metadata": r.Metadata,
			},
		}
	}
	return q.do(ctx, http.MethodPut, q.collectionURL("/points?wait=true"), map[string]any{"points": points}, nil)
}

func (q *QdrantBackend) Query(ctx context.Context, vector []float32, filter map[string]any, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	if f := qdrantFilter(filter); f != nil {
		req["filter"] = f
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := q.do(ctx, http.MethodPost, q.collectionURL("/points/search"), req, &resp); err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(resp.Result))
	for _, r := range resp.Result {
		m := Match{Score: r.Score, Metadata: map[string]any{}}
		if v, ok := r.Payload["chunk_id"].(string); ok {
			m.ID = v
		}
		if v, ok := r.Payload["text"].(string); ok {
			m.Text = v
		}
		if v, ok := r.Payload["metadata"].(map[string]any); ok {
			m.Metadata = v
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func (q *QdrantBackend) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	points := make([]string, len(ids))
	for i, id := range ids {
		points[i] = pointID(id)
	}
	return q.do(ctx, http.MethodPost, q.collectionURL("/points/delete?wait=true"), map[string]any{"points": points}, nil)
}

// DeleteAll drops the collection and recreates it with the same dimension.
func (q *QdrantBackend) DeleteAll(ctx context.Context) error {
	if err := q.do(ctx, http.MethodDelete, q.collectionURL(""), nil, nil); err != nil {
		return err
	}
	return q.Init(ctx, q.dimension)
}

func (q *QdrantBackend) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", q.url, q.collection, suffix)
}

func (q *QdrantBackend) do(ctx context.Context, method, url string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("qdrant marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("qdrant build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}
	resp, err := q.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return &StatusError{Method: method, URL: url, Code: resp.StatusCode, Status: resp.Status}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// StatusError is a non-2xx answer from Qdrant.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("qdrant %s %s failed: %s", e.Method, e.URL, e.Status)
}

func hasStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

func pointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(chunkID)).String()
}

func qdrantFilter(filter map[string]any) map[string]any {
	if len(filter) == 0 {
		return nil
	}
	must := make([]map[string]any, 0, len(filter))
	for k, v := range filter {
		must = append(must, map[string]any{
			"key":   "metadata." + k,
			"match": map[string]any{"value": v},
		})
	}
	return map[string]any{"must": must}
}
