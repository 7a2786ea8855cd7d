package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"jurisrag/internal/chunker"
	"jurisrag/internal/extract"
	"jurisrag/internal/langdetect"
	"jurisrag/internal/logger"
	"jurisrag/internal/metrics"
	"jurisrag/internal/model"
	"jurisrag/internal/parser"
	"jurisrag/internal/platform/objectstore"
	"jurisrag/internal/preprocess"
	"jurisrag/internal/repository"
)

const (
	// summaryLength caps the summary stored in document metadata, in runes.
	summaryLength = 300
	recoverPage   = 200
)

type DocumentRepository interface {
	Create(ctx context.Context, doc *model.LegalDocument) error
	GetByID(ctx context.Context, id string) (*model.LegalDocument, error)
	Update(ctx context.Context, doc *model.LegalDocument) error
	UpdateStatus(ctx context.Context, id string, status model.DocumentStatus, errMsg string) error
	MarkAbolished(ctx context.Context, id string) error
	MarkUpdated(ctx context.Context, id, updatedBy string) error
	List(ctx context.Context, f repository.DocumentFilter) ([]model.LegalDocument, int64, error)
	ListChildren(ctx context.Context, parentID string) ([]model.LegalDocument, error)
	Delete(ctx context.Context, id string) error
}

type VersionRepository interface {
	Create(ctx context.Context, v *model.DocumentVersion) error
	ListByDocumentID(ctx context.Context, documentID string) ([]model.DocumentVersion, error)
	Get(ctx context.Context, documentID string, version int) (*model.DocumentVersion, error)
	DeleteByDocumentID(ctx context.Context, documentID string) error
}

type ChunkRepository interface {
	CreateBatch(ctx context.Context, chunks []model.DocumentChunk) error
	ListByDocumentID(ctx context.Context, documentID string) ([]model.DocumentChunk, error)
	DeleteByDocumentID(ctx context.Context, documentID string) error
}

type RelationRepository interface {
	Create(ctx context.Context, rel *model.DocumentRelation) error
	ListBySource(ctx context.Context, sourceID string, typ model.RelationType) ([]model.DocumentRelation, error)
	ListByTarget(ctx context.Context, targetID string) ([]model.DocumentRelation, error)
}

type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// VectorIndex is the write path of the vector store.
type VectorIndex interface {
	Add(ctx context.Context, texts []string, metadatas []map[string]any) ([]string, error)
	Delete(ctx context.Context, ids []string) error
}

// JobPublisher hands a stored document to the detached pipeline.
type JobPublisher interface {
	PublishIngest(ctx context.Context, documentID string) error
}

type IngestConfig struct {
	ChunkSize      int
	ChunkOverlap   int
	MaxUploadBytes int64
	Workers        int
	StripURLs      bool
	PresignTTL     time.Duration
	StaleAfter     time.Duration
}

type IngestDeps struct {
	Documents DocumentRepository
	Versions  VersionRepository
	Chunks    ChunkRepository
	Relations RelationRepository
	Objects   ObjectStore
	Vectors   VectorIndex
	Jobs      JobPublisher
	Extractor *extract.Extractor
	Detector  *langdetect.Detector
	Logger    zerolog.Logger
	Metrics   *metrics.Metrics
}

type IngestService struct {
	docs      DocumentRepository
	versions  VersionRepository
	chunks    ChunkRepository
	relations RelationRepository
	objects   ObjectStore
	vectors   VectorIndex
	jobs      JobPublisher
	extractor *extract.Extractor
	detector  *langdetect.Detector
	chunker   *chunker.Chunker
	cfg       IngestConfig
	log       zerolog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewIngestService(deps IngestDeps, cfg IngestConfig) *IngestService {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 30 * time.Minute
	}
	if cfg.PresignTTL <= 0 {
		cfg.PresignTTL = time.Hour
	}
	extractor := deps.Extractor
	if extractor == nil {
		extractor = extract.New()
	}
	detector := deps.Detector
	if detector == nil {
		detector = langdetect.New()
	}
	return &IngestService{
		docs:      deps.Documents,
		versions:  deps.Versions,
		chunks:    deps.Chunks,
		relations: deps.Relations,
		objects:   deps.Objects,
		vectors:   deps.Vectors,
		jobs:      deps.Jobs,
		extractor: extractor,
		detector:  detector,
		chunker:   chunker.New(chunker.WithChunkSize(cfg.ChunkSize), chunker.WithOverlap(cfg.ChunkOverlap)),
		cfg:       cfg,
		log:       logger.Component(deps.Logger, "ingest"),
		metrics:   deps.Metrics,
		now:       time.Now,
	}
}

type UploadInput struct {
	OwnerID      string
	Title        string
	DocumentType string
	Filename     string
	MIMEType     string
	Data         []byte
	Metadata     map[string]any
}

type CreateInput struct {
	OwnerID          string
	Title            string
	Content          string
	DocumentType     string
	Metadata         map[string]any
	ParentDocumentID string
	AmendsID         string
}

// Upload extracts text synchronously so format and corruption errors reach the
// caller, stores the raw file, records the document as pending and queues processing.
func (s *IngestService) Upload(ctx context.Context, in UploadInput) (*model.LegalDocument, error) {
	if len(in.Data) == 0 {
		return nil, ErrInvalidInput
	}
	if s.cfg.MaxUploadBytes > 0 && int64(len(in.Data)) > s.cfg.MaxUploadBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, len(in.Data), s.cfg.MaxUploadBytes)
	}

	text, err := s.extractor.Extract(ctx, extract.RawDocument{Data: in.Data, MIMEType: in.MIMEType, Filename: in.Filename})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyDocument
	}

	doc := &model.LegalDocument{
		ID:           uuid.NewString(),
		Title:        strings.TrimSpace(in.Title),
		Content:      text,
		DocumentType: string(parser.ParseDocumentType(in.DocumentType)),
		Status:       model.StatusPending,
		FileName:     in.Filename,
		MIMEType:     in.MIMEType,
		OwnerID:      in.OwnerID,
		Version:      1,
	}
	if err := doc.SetMetadata(in.Metadata); err != nil {
		return nil, fmt.Errorf("%w: metadata: %v", ErrInvalidInput, err)
	}

	if s.objects != nil {
		key := objectstore.GenerateKey(in.OwnerID, in.Filename, s.now())
		if err := s.objects.Put(ctx, key, in.Data, in.MIMEType); err != nil {
			return nil, err
		}
		doc.ObjectKey = key
	}

	if err := s.docs.Create(ctx, doc); err != nil {
		s.removeObject(ctx, doc.ObjectKey)
		return nil, err
	}
	s.enqueue(ctx, doc.ID)
	return doc, nil
}

// BatchItem is the outcome of one file in UploadBatch.
type BatchItem struct {
	Filename string               `json:"filename"`
	Document *model.LegalDocument `json:"document,omitempty"`
	Error    string               `json:"error,omitempty"`
}

// UploadBatch uploads files independently; one bad file does not stop the rest.
func (s *IngestService) UploadBatch(ctx context.Context, inputs []UploadInput) []BatchItem {
	out := make([]BatchItem, len(inputs))
	for i, in := range inputs {
		out[i].Filename = in.Filename
		doc, err := s.Upload(ctx, in)
		if err != nil {
			out[i].Error = err.Error()
			continue
		}
		out[i].Document = doc
	}
	return out
}

// CreateText records a document from already extracted text and queues processing.
func (s *IngestService) CreateText(ctx context.Context, in CreateInput) (*model.LegalDocument, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, ErrInvalidInput
	}
	doc := &model.LegalDocument{
		ID:           uuid.NewString(),
		Title:        strings.TrimSpace(in.Title),
		Content:      in.Content,
		DocumentType: string(parser.ParseDocumentType(in.DocumentType)),
		Status:       model.StatusPending,
		OwnerID:      in.OwnerID,
		Version:      1,
	}
	if err := doc.SetMetadata(in.Metadata); err != nil {
		return nil, fmt.Errorf("%w: metadata: %v", ErrInvalidInput, err)
	}

	if in.ParentDocumentID != "" {
		parent, err := s.mustGet(ctx, in.ParentDocumentID)
		if err != nil {
			return nil, err
		}
		doc.ParentDocumentID = &parent.ID
	}
	if in.AmendsID != "" {
		if _, err := s.mustGet(ctx, in.AmendsID); err != nil {
			return nil, err
		}
	}

	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, err
	}
	if doc.ParentDocumentID != nil {
		rel := &model.DocumentRelation{SourceID: *doc.ParentDocumentID, TargetID: doc.ID, RelationType: model.RelationParentOf, CreatedBy: in.OwnerID}
		if err := s.relations.Create(ctx, rel); err != nil {
			return nil, err
		}
	}
	if in.AmendsID != "" {
		if err := s.docs.MarkUpdated(ctx, in.AmendsID, doc.ID); err != nil {
			return nil, err
		}
	}
	s.enqueue(ctx, doc.ID)
	return doc, nil
}

// Process runs the pipeline for one stored document. Any failure leaves the
// document marked failed with the error message.
func (s *IngestService) Process(ctx context.Context, documentID string) error {
	start := time.Now()
	doc, err := s.mustGet(ctx, documentID)
	if err != nil {
		return err
	}
	if err := s.docs.UpdateStatus(ctx, doc.ID, model.StatusProcessing, ""); err != nil {
		return err
	}

	n, err := s.run(ctx, doc)
	logger.LogStage(s.log, "process", doc.ID, time.Since(start), err)
	if err != nil {
		s.observe("failed", start, 0)
		// the status write must survive a cancelled job context
		if uerr := s.docs.UpdateStatus(context.WithoutCancel(ctx), doc.ID, model.StatusFailed, err.Error()); uerr != nil {
			s.log.Error().Err(uerr).Str("document_id", doc.ID).Msg("mark document failed")
		}
		return err
	}
	s.observe("processed", start, n)
	return nil
}

func (s *IngestService) run(ctx context.Context, doc *model.LegalDocument) (int, error) {
	if err := s.clearIndex(ctx, doc.ID); err != nil {
		return 0, err
	}

	text := preprocess.Normalize(doc.Content, preprocess.Options{StripURLs: s.cfg.StripURLs})
	if text == "" {
		return 0, ErrEmptyDocument
	}
	lang := s.detector.Detect(ctx, text)
	parsed := parser.Parse(text, parser.ParseDocumentType(doc.DocumentType), doc.FileName)
	if doc.Title == "" {
		doc.Title = parsed.Title
	}

	meta := doc.MetadataMap()
	for k, v := range parsed.Metadata {
		meta[k] = v
	}
	meta["language"] = lang.Code
	meta["summary"] = preprocess.Summary(text, summaryLength)

	pieces := s.split(text, parsed)
	if len(pieces) == 0 {
		return 0, ErrEmptyDocument
	}
	chunks := make([]chunker.Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = p.chunk
		chunks[i].Ordinal = i
	}
	texts := chunker.Texts(chunks)
	metas := chunker.Annotate(chunks, vectorMetadata(doc, meta, lang.Code))
	for i, p := range pieces {
		metas[i]["section_title"] = p.section.Title
		if p.section.Number != "" {
			metas[i]["section_number"] = p.section.Number
		}
	}

	ids, err := s.vectors.Add(ctx, texts, metas)
	if err != nil {
		return 0, fmt.Errorf("index chunks: %w", err)
	}

	rows := make([]model.DocumentChunk, len(pieces))
	for i, p := range pieces {
		rows[i] = model.DocumentChunk{
			DocumentID:  doc.ID,
			Ordinal:     i,
			Content:     p.chunk.Text,
			StartOffset: p.offset + p.chunk.Start,
			EndOffset:   p.offset + p.chunk.End,
			VectorID:    ids[i],
		}
	}
	if err := s.chunks.CreateBatch(ctx, rows); err != nil {
		return 0, s.dropVectors(ctx, ids, err)
	}

	doc.Content = text
	doc.Language = lang.Code
	doc.LanguageConfidence = lang.Confidence
	doc.VectorID = ids[0]
	doc.Status = model.StatusProcessed
	doc.ErrorMessage = ""
	if err := doc.SetMetadata(meta); err != nil {
		return 0, s.dropVectors(ctx, ids, err)
	}
	if err := s.docs.Update(ctx, doc); err != nil {
		if cerr := s.chunks.DeleteByDocumentID(context.WithoutCancel(ctx), doc.ID); cerr != nil {
			s.log.Error().Err(cerr).Str("document_id", doc.ID).Msg("drop orphan chunk rows")
		}
		return 0, s.dropVectors(ctx, ids, err)
	}
	return len(pieces), nil
}

// dropVectors removes vectors indexed by a run that failed afterwards, so no
// vector outlives the chunk rows that reference it. It returns cause.
func (s *IngestService) dropVectors(ctx context.Context, ids []string, cause error) error {
	if err := s.vectors.Delete(context.WithoutCancel(ctx), ids); err != nil {
		s.log.Error().Err(err).Int("vectors", len(ids)).Msg("drop orphan vectors")
	}
	return cause
}

type piece struct {
	section parser.Section
	chunk   chunker.Chunk
	offset  int
}

// region is a byte range of the normalized text owned by one section.
type region struct {
	section    parser.Section
	start, end int
}

// sectionRegions cuts text where each parsed section begins, in order. Text ahead
// of the first section becomes a preamble region, so together the regions cover
// all of text. Sections that cannot be located stay inside their predecessor.
func sectionRegions(text string, parsed *parser.Document) []region {
	var out []region
	cursor := 0
	for _, sec := range parsed.Sections {
		at, width := locateSection(text, cursor, sec)
		if at < 0 {
			continue
		}
		if n := len(out); n > 0 {
			out[n-1].end = at
		} else if strings.TrimSpace(text[:at]) != "" {
			out = append(out, region{
				section: parser.Section{Title: parsed.Title, Kind: "preamble"},
				end:     at,
			})
		}
		out = append(out, region{section: sec, start: at, end: len(text)})
		cursor = at + width
	}
	if len(out) == 0 {
		out = append(out, region{section: parser.Section{Title: parsed.Title, Kind: "document"}, end: len(text)})
	}
	return out
}

// locateSection finds where sec starts at or after from. A title sitting at the
// start of a line ahead of the content wins, so header lines stay with their body.
func locateSection(text string, from int, sec parser.Section) (int, int) {
	first := sec.Content
	if i := strings.IndexByte(first, '\n'); i >= 0 {
		first = first[:i]
	}
	first = strings.TrimSpace(first)
	ci := -1
	if first != "" {
		ci = strings.Index(text[from:], first)
	}
	if title := strings.TrimSpace(sec.Title); title != "" {
		if ti := strings.Index(text[from:], title); ti >= 0 && (ci < 0 || ti <= ci) && lineStart(text, from+ti) {
			return from + ti, len(title)
		}
	}
	if ci < 0 {
		return -1, 0
	}
	return from + ci, len(first)
}

func lineStart(text string, at int) bool {
	return at == 0 || text[at-1] == '\n'
}

// split chunks every region separately. Offsets are rune positions inside text.
func (s *IngestService) split(text string, parsed *parser.Document) []piece {
	var out []piece
	for _, r := range sectionRegions(text, parsed) {
		body := text[r.start:r.end]
		lead := len(body) - len(strings.TrimLeftFunc(body, unicode.IsSpace))
		body = strings.TrimSpace(body)
		if body == "" {
			continue
		}
		offset := utf8.RuneCountInString(text[:r.start+lead])
		for _, ch := range s.chunker.Split(body) {
			out = append(out, piece{section: r.section, chunk: ch, offset: offset})
		}
	}
	return out
}

func vectorMetadata(doc *model.LegalDocument, meta map[string]any, lang string) map[string]any {
	out := map[string]any{
		"id":            doc.ID,
		"document_id":   doc.ID,
		"title":         doc.Title,
		"document_type": doc.DocumentType,
		"language":      lang,
		"is_abolished":  doc.IsAbolished,
		"version":       doc.Version,
	}
	if doc.FileName != "" {
		out["file_name"] = doc.FileName
	}
	if !doc.CreatedAt.IsZero() {
		out["created_at"] = doc.CreatedAt.UTC().Format(time.RFC3339)
	}
	for _, k := range []string{"law_number", "date", "published_at", "court", "parties"} {
		if v, ok := meta[k]; ok {
			out[k] = v
		}
	}
	return out
}

// Recover requeues work an earlier process left unfinished: pending documents
// and processing documents untouched for StaleAfter. It returns how many
// documents were queued.
func (s *IngestService) Recover(ctx context.Context) (int, error) {
	pending, err := s.collectIDs(ctx, repository.DocumentFilter{Status: model.StatusPending})
	if err != nil {
		return 0, err
	}
	stale, err := s.collectIDs(ctx, repository.DocumentFilter{
		Status:        model.StatusProcessing,
		UpdatedBefore: time.Now().Add(-s.cfg.StaleAfter),
	})
	if err != nil {
		return 0, err
	}
	for _, id := range stale {
		if err := s.docs.UpdateStatus(ctx, id, model.StatusPending, ""); err != nil {
			return 0, err
		}
	}

	ids := append(pending, stale...)
	for _, id := range ids {
		s.enqueue(ctx, id)
	}
	if len(ids) > 0 {
		s.log.Info().Int("pending", len(pending)).Int("stale", len(stale)).Msg("requeued unfinished documents")
	}
	return len(ids), nil
}

// collectIDs reads every page before returning, since requeueing changes the
// statuses the filter matches on.
func (s *IngestService) collectIDs(ctx context.Context, f repository.DocumentFilter) ([]string, error) {
	var ids []string
	f.Limit = recoverPage
	for f.Offset = 0; ; f.Offset += recoverPage {
		docs, total, err := s.docs.List(ctx, f)
		if err != nil {
			return nil, err
		}
		for _, d := range docs {
			ids = append(ids, d.ID)
		}
		if len(docs) == 0 || int64(f.Offset+len(docs)) >= total {
			return ids, nil
		}
	}
}

// ProcessBatch runs Process for each id with at most Workers documents in flight.
// The returned map holds the error of every failed id.
func (s *IngestService) ProcessBatch(ctx context.Context, ids []string) map[string]error {
	sem := make(chan struct{}, s.cfg.Workers)
	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		errs = map[string]error{}
	)
	for _, id := range ids {
		select {
		case <-ctx.Done():
			mu.Lock()
			errs[id] = ctx.Err()
			mu.Unlock()
			continue
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := s.Process(ctx, id); err != nil {
				mu.Lock()
				errs[id] = err
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()
	return errs
}

// Reprocess snapshots the current content as a version, replaces it and runs the
// pipeline again in the background. An empty content re-runs on the current text.
func (s *IngestService) Reprocess(ctx context.Context, id, content, changeSummary, userID string) (*model.LegalDocument, error) {
	doc, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) != "" {
		snapshot := &model.DocumentVersion{
			DocumentID:    doc.ID,
			Version:       doc.Version,
			Title:         doc.Title,
			Content:       doc.Content,
			ChangeSummary: changeSummary,
			CreatedBy:     userID,
		}
		if err := s.versions.Create(ctx, snapshot); err != nil {
			return nil, err
		}
		doc.Content = content
		doc.Version++
	}
	doc.Status = model.StatusPending
	doc.ErrorMessage = ""
	if err := s.docs.Update(ctx, doc); err != nil {
		return nil, err
	}
	s.enqueue(ctx, doc.ID)
	return doc, nil
}

// Abolish flags the document, records who abolished it and re-indexes so search
// results carry the new status.
func (s *IngestService) Abolish(ctx context.Context, id, abolishedBy, userID string) error {
	doc, err := s.mustGet(ctx, id)
	if err != nil {
		return err
	}
	if abolishedBy != "" {
		if _, err := s.mustGet(ctx, abolishedBy); err != nil {
			return err
		}
	}
	if err := s.docs.MarkAbolished(ctx, doc.ID); err != nil {
		return err
	}
	if abolishedBy != "" {
		rel := &model.DocumentRelation{SourceID: abolishedBy, TargetID: doc.ID, RelationType: model.RelationAbolishes, CreatedBy: userID}
		if err := s.relations.Create(ctx, rel); err != nil {
			return err
		}
	}
	s.enqueue(ctx, doc.ID)
	return nil
}

// Relate records a typed edge from sourceID to targetID. Amends and abolishes
// edges also flag the target the way CreateText and Abolish do.
func (s *IngestService) Relate(ctx context.Context, sourceID, targetID string, typ model.RelationType, userID string) (*model.DocumentRelation, error) {
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: unknown relation type %q", ErrInvalidInput, typ)
	}
	if sourceID == targetID {
		return nil, fmt.Errorf("%w: a document cannot relate to itself", ErrInvalidInput)
	}
	if _, err := s.mustGet(ctx, sourceID); err != nil {
		return nil, err
	}
	if _, err := s.mustGet(ctx, targetID); err != nil {
		return nil, err
	}

	rel := &model.DocumentRelation{SourceID: sourceID, TargetID: targetID, RelationType: typ, CreatedBy: userID}
	switch typ {
	case model.RelationAbolishes:
		if err := s.Abolish(ctx, targetID, sourceID, userID); err != nil {
			return nil, err
		}
		return rel, nil
	case model.RelationAmends:
		// the repository writes the amends edge together with the flag
		if err := s.docs.MarkUpdated(ctx, targetID, sourceID); err != nil {
			return nil, err
		}
		return rel, nil
	}
	if err := s.relations.Create(ctx, rel); err != nil {
		return nil, err
	}
	return rel, nil
}

// RelatedDocument is the document at the other end of a relation.
type RelatedDocument struct {
	RelationType model.RelationType   `json:"relation_type"`
	Direction    string               `json:"direction"`
	Document     *model.LegalDocument `json:"document"`
}

const (
	DirectionOutgoing = "outgoing"
	DirectionIncoming = "incoming"
)

// Related lists documents linked to id in either direction. Edges to documents
// that no longer exist are skipped.
func (s *IngestService) Related(ctx context.Context, id string) ([]RelatedDocument, error) {
	if _, err := s.mustGet(ctx, id); err != nil {
		return nil, err
	}
	out, err := s.relations.ListBySource(ctx, id, "")
	if err != nil {
		return nil, err
	}
	in, err := s.relations.ListByTarget(ctx, id)
	if err != nil {
		return nil, err
	}

	related := make([]RelatedDocument, 0, len(out)+len(in))
	seen := map[string]bool{}
	add := func(otherID string, typ model.RelationType, dir string) error {
		key := otherID + "|" + string(typ) + "|" + dir
		if seen[key] {
			return nil
		}
		seen[key] = true
		doc, err := s.docs.GetByID(ctx, otherID)
		if err != nil || doc == nil {
			return err
		}
		doc.Content = ""
		related = append(related, RelatedDocument{RelationType: typ, Direction: dir, Document: doc})
		return nil
	}
	for _, r := range out {
		if err := add(r.TargetID, r.RelationType, DirectionOutgoing); err != nil {
			return nil, err
		}
	}
	for _, r := range in {
		if err := add(r.SourceID, r.RelationType, DirectionIncoming); err != nil {
			return nil, err
		}
	}
	return related, nil
}

// DocumentDetail is a document with its relations resolved by id.
type DocumentDetail struct {
	*model.LegalDocument
	Children     []model.LegalDocument    `json:"children"`
	Relations    []model.DocumentRelation `json:"relations"`
	ReferencedBy []model.DocumentRelation `json:"referenced_by"`
}

func (s *IngestService) Get(ctx context.Context, id string) (*DocumentDetail, error) {
	doc, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	children, err := s.docs.ListChildren(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	rels, err := s.relations.ListBySource(ctx, doc.ID, "")
	if err != nil {
		return nil, err
	}
	incoming, err := s.relations.ListByTarget(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	return &DocumentDetail{LegalDocument: doc, Children: children, Relations: rels, ReferencedBy: incoming}, nil
}

func (s *IngestService) List(ctx context.Context, f repository.DocumentFilter) ([]model.LegalDocument, int64, error) {
	return s.docs.List(ctx, f)
}

func (s *IngestService) Versions(ctx context.Context, id string) ([]model.DocumentVersion, error) {
	if _, err := s.mustGet(ctx, id); err != nil {
		return nil, err
	}
	return s.versions.ListByDocumentID(ctx, id)
}

func (s *IngestService) Version(ctx context.Context, id string, version int) (*model.DocumentVersion, error) {
	v, err := s.versions.Get(ctx, id, version)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("%w: %s v%d", ErrVersionNotFound, id, version)
	}
	return v, nil
}

// DownloadURL presigns the stored raw file.
func (s *IngestService) DownloadURL(ctx context.Context, id string) (string, error) {
	doc, err := s.mustGet(ctx, id)
	if err != nil {
		return "", err
	}
	if doc.ObjectKey == "" || s.objects == nil {
		return "", ErrNoObject
	}
	return s.objects.PresignedURL(ctx, doc.ObjectKey, s.cfg.PresignTTL)
}

// Delete removes vectors, chunks, versions, the stored file and the record.
func (s *IngestService) Delete(ctx context.Context, id string) error {
	doc, err := s.mustGet(ctx, id)
	if err != nil {
		return err
	}
	if err := s.clearIndex(ctx, doc.ID); err != nil {
		return err
	}
	if err := s.versions.DeleteByDocumentID(ctx, doc.ID); err != nil {
		return err
	}
	s.removeObject(ctx, doc.ObjectKey)
	return s.docs.Delete(ctx, doc.ID)
}

func (s *IngestService) clearIndex(ctx context.Context, documentID string) error {
	old, err := s.chunks.ListByDocumentID(ctx, documentID)
	if err != nil {
		return err
	}
	if len(old) == 0 {
		return nil
	}
	ids := make([]string, 0, len(old))
	for _, c := range old {
		if c.VectorID != "" {
			ids = append(ids, c.VectorID)
		}
	}
	if err := s.vectors.Delete(ctx, ids); err != nil {
		return fmt.Errorf("delete old vectors: %w", err)
	}
	return s.chunks.DeleteByDocumentID(ctx, documentID)
}

func (s *IngestService) mustGet(ctx context.Context, id string) (*model.LegalDocument, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidInput
	}
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}
	return doc, nil
}

// enqueue never fails the caller: the record is already stored as pending and a
// failed publish is marked on it.
func (s *IngestService) enqueue(ctx context.Context, id string) {
	if s.jobs == nil {
		return
	}
	if err := s.jobs.PublishIngest(ctx, id); err != nil {
		s.log.Error().Err(err).Str("document_id", id).Msg("publish ingest job failed")
		if uerr := s.docs.UpdateStatus(context.WithoutCancel(ctx), id, model.StatusFailed, "enqueue: "+err.Error()); uerr != nil {
			s.log.Error().Err(uerr).Str("document_id", id).Msg("mark document failed")
		}
	}
}

func (s *IngestService) removeObject(ctx context.Context, key string) {
	if key == "" || s.objects == nil {
		return
	}
	if err := s.objects.Delete(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("delete stored file failed")
	}
}

func (s *IngestService) observe(status string, start time.Time, chunks int) {
	if s.metrics == nil {
		return
	}
	s.metrics.IngestRuns.WithLabelValues(status).Inc()
	s.metrics.IngestDuration.Observe(time.Since(start).Seconds())
	s.metrics.IngestChunks.Add(float64(chunks))
}

