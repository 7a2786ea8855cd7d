package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryBackend is an exact brute-force cosine index held in process memory.
type MemoryBackend struct {
	mu      sync.RWMutex
	dim     int
	order   []string
	records map[string]Record
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: make(map[string]Record)}
}

func (m *MemoryBackend) Name() string { return "memory" }

func (m *MemoryBackend) Init(_ context.Context, dimension int) error {
	m.mu.Lock()
	m.dim = dimension
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Upsert(ctx context.Context, records []Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		if _, exists := m.records[r.ID]; !exists {
			m.order = append(m.order, r.ID)
		}
		r.Metadata = copyMap(r.Metadata)
		m.records[r.ID] = r
	}
	return nil
}

func (m *MemoryBackend) Query(ctx context.Context, vector []float32, filter map[string]any, topK int) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]Match, 0, len(m.records))
	for _, id := range m.order {
		r := m.records[id]
		if !matchesFilter(r.Metadata, filter) {
			continue
		}
		matches = append(matches, Match{
			ID:       r.ID,
			Text:     r.Text,
			Metadata: copyMap(r.Metadata),
			Score:    cosine(vector, r.Vector),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (m *MemoryBackend) Delete(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := m.records[id]; ok {
			drop[id] = true
			delete(m.records, id)
		}
	}
	if len(drop) == 0 {
		return nil
	}
	kept := m.order[:0]
	for _, id := range m.order {
		if !drop[id] {
			kept = append(kept, id)
		}
	}
	m.order = kept
	return nil
}

func (m *MemoryBackend) DeleteAll(context.Context) error {
	m.mu.Lock()
	m.records = make(map[string]Record)
	m.order = nil
	m.mu.Unlock()
	return nil
}

// Len reports the number of indexed records.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// cosine returns 0 when either vector has zero norm.
func cosine(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	for _, x := range a {
		na += float64(x) * float64(x)
	}
	for _, x := range b {
		nb += float64(x) * float64(x)
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
