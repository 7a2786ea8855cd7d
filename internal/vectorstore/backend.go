// Package vectorstore indexes chunk embeddings and answers similarity queries.
package vectorstore

import (
	"context"
	"fmt"
)

// Record is one chunk vector with its payload.
type Record struct {
	ID       string
	Text     string
	Vector   []float32
	Metadata map[string]any
}

// Match is a backend hit. Score is cosine similarity for the memory and pgvector
// backends and the native score for managed indexes.
type Match struct {
	ID       string
	Text     string
	Metadata map[string]any
	Score    float64
}

// Backend is a vector index implementation. Filters are exact matches on metadata keys.
type Backend interface {
	Name() string
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, records []Record) error
	Query(ctx context.Context, vector []float32, filter map[string]any, topK int) ([]Match, error)
	Delete(ctx context.Context, ids []string) error
	DeleteAll(ctx context.Context) error
}

func matchesFilter(meta, filter map[string]any) bool {
	for k, want := range filter {
		got, ok := meta[k]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
