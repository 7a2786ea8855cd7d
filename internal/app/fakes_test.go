package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"jurisrag/internal/model"
	"jurisrag/internal/repository"
)

type memDocs struct {
	mu   sync.Mutex
	docs map[string]*model.LegalDocument
}

func newMemDocs() *memDocs { return &memDocs{docs: map[string]*model.LegalDocument{}} }

func (m *memDocs) Create(_ context.Context, doc *model.LegalDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc.CreatedAt = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	cp := *doc
	m.docs[doc.ID] = &cp
	return nil
}

func (m *memDocs) GetByID(_ context.Context, id string) (*model.LegalDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (m *memDocs) Update(_ context.Context, doc *model.LegalDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *doc
	m.docs[doc.ID] = &cp
	return nil
}

func (m *memDocs) UpdateStatus(_ context.Context, id string, status model.DocumentStatus, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.docs[id]; ok {
		d.Status = status
		d.ErrorMessage = errMsg
	}
	return nil
}

func (m *memDocs) MarkAbolished(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.docs[id]; ok {
		d.IsAbolished = true
	}
	return nil
}

func (m *memDocs) MarkUpdated(_ context.Context, id, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.docs[id]; ok {
		d.IsUpdated = true
	}
	return nil
}

func (m *memDocs) List(_ context.Context, f repository.DocumentFilter) ([]model.LegalDocument, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.LegalDocument
	for _, d := range m.docs {
		if f.DocumentType != "" && d.DocumentType != f.DocumentType {
			continue
		}
		if f.Status != "" && d.Status != f.Status {
			continue
		}
		if !f.UpdatedBefore.IsZero() && !d.UpdatedAt.Before(f.UpdatedBefore) {
			continue
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (m *memDocs) ListChildren(_ context.Context, parentID string) ([]model.LegalDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.LegalDocument
	for _, d := range m.docs {
		if d.ParentDocumentID != nil && *d.ParentDocumentID == parentID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *memDocs) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	return nil
}

func (m *memDocs) get(id string) model.LegalDocument {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.docs[id]
}

type memVersions struct {
	list []model.DocumentVersion
}

func (m *memVersions) Create(_ context.Context, v *model.DocumentVersion) error {
	v.ID = uint(len(m.list) + 1)
	m.list = append(m.list, *v)
	return nil
}

func (m *memVersions) ListByDocumentID(_ context.Context, documentID string) ([]model.DocumentVersion, error) {
	var out []model.DocumentVersion
	for _, v := range m.list {
		if v.DocumentID == documentID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *memVersions) Get(_ context.Context, documentID string, version int) (*model.DocumentVersion, error) {
	for _, v := range m.list {
		if v.DocumentID == documentID && v.Version == version {
			cp := v
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memVersions) DeleteByDocumentID(_ context.Context, documentID string) error {
	kept := m.list[:0]
	for _, v := range m.list {
		if v.DocumentID != documentID {
			kept = append(kept, v)
		}
	}
	m.list = kept
	return nil
}

type memChunks struct {
	mu   sync.Mutex
	rows map[string][]model.DocumentChunk
}

func newMemChunks() *memChunks { return &memChunks{rows: map[string][]model.DocumentChunk{}} }

func (m *memChunks) CreateBatch(_ context.Context, chunks []model.DocumentChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range chunks {
		m.rows[c.DocumentID] = append(m.rows[c.DocumentID], c)
	}
	return nil
}

func (m *memChunks) ListByDocumentID(_ context.Context, documentID string) ([]model.DocumentChunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.DocumentChunk(nil), m.rows[documentID]...), nil
}

func (m *memChunks) DeleteByDocumentID(_ context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, documentID)
	return nil
}

type memRelations struct {
	list []model.DocumentRelation
}

func (m *memRelations) Create(_ context.Context, rel *model.DocumentRelation) error {
	m.list = append(m.list, *rel)
	return nil
}

func (m *memRelations) ListBySource(_ context.Context, sourceID string, typ model.RelationType) ([]model.DocumentRelation, error) {
	var out []model.DocumentRelation
	for _, r := range m.list {
		if r.SourceID == sourceID && (typ == "" || r.RelationType == typ) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRelations) ListByTarget(_ context.Context, targetID string) ([]model.DocumentRelation, error) {
	var out []model.DocumentRelation
	for _, r := range m.list {
		if r.TargetID == targetID {
			out = append(out, r)
		}
	}
	return out, nil
}

type memObjects struct {
	data map[string][]byte
}

func (m *memObjects) Put(_ context.Context, key string, data []byte, _ string) error {
	m.data[key] = data
	return nil
}

func (m *memObjects) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://objects.test/" + key, nil
}

func (m *memObjects) Delete(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

// queuedJobs records published ids instead of running them.
type queuedJobs struct {
	ids []string
}

func (q *queuedJobs) PublishIngest(_ context.Context, id string) error {
	q.ids = append(q.ids, id)
	return nil
}
