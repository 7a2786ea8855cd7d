package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"jurisrag/internal/app"
	"jurisrag/internal/extract"
	"jurisrag/internal/model"
	"jurisrag/internal/repository"
	"jurisrag/internal/transport/http/middleware"
	"jurisrag/internal/transport/http/response"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// DocumentService is the document side of the ingestion service.
type DocumentService interface {
	Upload(ctx context.Context, in app.UploadInput) (*model.LegalDocument, error)
	UploadBatch(ctx context.Context, in []app.UploadInput) []app.BatchItem
	CreateText(ctx context.Context, in app.CreateInput) (*model.LegalDocument, error)
	Get(ctx context.Context, id string) (*app.DocumentDetail, error)
	List(ctx context.Context, f repository.DocumentFilter) ([]model.LegalDocument, int64, error)
	Versions(ctx context.Context, id string) ([]model.DocumentVersion, error)
	Version(ctx context.Context, id string, version int) (*model.DocumentVersion, error)
	DownloadURL(ctx context.Context, id string) (string, error)
	Reprocess(ctx context.Context, id, content, changeSummary, userID string) (*model.LegalDocument, error)
	Abolish(ctx context.Context, id, abolishedBy, userID string) error
	Relate(ctx context.Context, sourceID, targetID string, typ model.RelationType, userID string) (*model.DocumentRelation, error)
	Related(ctx context.Context, id string) ([]app.RelatedDocument, error)
	Delete(ctx context.Context, id string) error
}

type DocumentHandler struct {
	docs           DocumentService
	maxUploadBytes int64
}

type CreateDocumentRequest struct {
	Title            string         `json:"title" binding:"max=512"`
	Content          string         `json:"content" binding:"required"`
	DocumentType     string         `json:"document_type"`
	Metadata         map[string]any `json:"metadata"`
	ParentDocumentID string         `json:"parent_document_id"`
	AmendsID         string         `json:"amends_id"`
}

type ReprocessRequest struct {
	Content       string `json:"content"`
	ChangeSummary string `json:"change_summary" binding:"max=512"`
}

type AbolishRequest struct {
	AbolishedBy string `json:"abolished_by"`
}

// RelationRequest links the path document (the source) to TargetID.
type RelationRequest struct {
	TargetID     string `json:"target_id" binding:"required"`
	RelationType string `json:"relation_type" binding:"required"`
}

type ListDocumentsResponse struct {
	Items    []model.LegalDocument `json:"items"`
	Total    int64                 `json:"total"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
}

func NewDocumentHandler(docs DocumentService, maxUploadBytes int64) *DocumentHandler {
	return &DocumentHandler{docs: docs, maxUploadBytes: maxUploadBytes}
}

func (h *DocumentHandler) Create(c *gin.Context) {
	var req CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	userID, _ := middleware.UserID(c)

	doc, err := h.docs.CreateText(c.Request.Context(), app.CreateInput{
		OwnerID:          userID,
		Title:            req.Title,
		Content:          req.Content,
		DocumentType:     req.DocumentType,
		Metadata:         req.Metadata,
		ParentDocumentID: req.ParentDocumentID,
		AmendsID:         req.AmendsID,
	})
	if err != nil {
		writeError(c, err, "create document failed")
		return
	}
	response.Accepted(c, doc)
}

// Upload accepts a multipart form with "file" and optional "title", "document_type"
// and "metadata" (a JSON object).
func (h *DocumentHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	in, err := h.uploadInput(c, file)
	if err != nil {
		writeError(c, err, "read upload failed")
		return
	}

	doc, err := h.docs.Upload(c.Request.Context(), in)
	if err != nil {
		writeError(c, err, "upload document failed")
		return
	}
	response.Accepted(c, doc)
}

// Batch uploads every "files" part. Per-file failures are reported in the result.
func (h *DocumentHandler) Batch(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil || len(form.File["files"]) == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing files")
		return
	}

	inputs := make([]app.UploadInput, 0, len(form.File["files"]))
	var rejected []app.BatchItem
	for _, file := range form.File["files"] {
		in, err := h.uploadInput(c, file)
		if err != nil {
			rejected = append(rejected, app.BatchItem{Filename: file.Filename, Error: err.Error()})
			continue
		}
		inputs = append(inputs, in)
	}

	items := h.docs.UploadBatch(c.Request.Context(), inputs)
	response.Accepted(c, append(items, rejected...))
}

func (h *DocumentHandler) uploadInput(c *gin.Context, file *multipart.FileHeader) (app.UploadInput, error) {
	if h.maxUploadBytes > 0 && file.Size > h.maxUploadBytes {
		return app.UploadInput{}, app.ErrFileTooLarge
	}
	var meta map[string]any
	if raw := c.PostForm("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			return app.UploadInput{}, app.ErrInvalidInput
		}
	}

	f, err := file.Open()
	if err != nil {
		return app.UploadInput{}, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return app.UploadInput{}, err
	}

	userID, _ := middleware.UserID(c)
	return app.UploadInput{
		OwnerID:      userID,
		Title:        c.PostForm("title"),
		DocumentType: c.PostForm("document_type"),
		Filename:     file.Filename,
		MIMEType:     file.Header.Get("Content-Type"),
		Data:         data,
		Metadata:     meta,
	}, nil
}

func (h *DocumentHandler) List(c *gin.Context) {
	page := queryInt(c, "page", 1)
	if page < 1 {
		page = 1
	}
	size := queryInt(c, "page_size", defaultPageSize)
	if size < 1 || size > maxPageSize {
		size = defaultPageSize
	}

	filter := repository.DocumentFilter{
		DocumentType: c.Query("document_type"),
		Status:       model.DocumentStatus(c.Query("status")),
		OwnerID:      c.Query("owner_id"),
		Offset:       (page - 1) * size,
		Limit:        size,
	}
	if raw := c.Query("is_abolished"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid is_abolished")
			return
		}
		filter.IsAbolished = &v
	}

	items, total, err := h.docs.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err, "list documents failed")
		return
	}
	if items == nil {
		items = []model.LegalDocument{}
	}
	response.OK(c, ListDocumentsResponse{Items: items, Total: total, Page: page, PageSize: size})
}

func (h *DocumentHandler) Get(c *gin.Context) {
	detail, err := h.docs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "get document failed")
		return
	}
	response.OK(c, detail)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.docs.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err, "delete document failed")
		return
	}
	response.OK(c, gin.H{"deleted_document_id": id})
}

func (h *DocumentHandler) Download(c *gin.Context) {
	url, err := h.docs.DownloadURL(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "download document failed")
		return
	}
	response.OK(c, gin.H{"url": url})
}

func (h *DocumentHandler) Versions(c *gin.Context) {
	versions, err := h.docs.Versions(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "list versions failed")
		return
	}
	if versions == nil {
		versions = []model.DocumentVersion{}
	}
	response.OK(c, versions)
}

func (h *DocumentHandler) Version(c *gin.Context) {
	n, err := strconv.Atoi(c.Param("version"))
	if err != nil || n < 1 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid version")
		return
	}
	v, err := h.docs.Version(c.Request.Context(), c.Param("id"), n)
	if err != nil {
		writeError(c, err, "get version failed")
		return
	}
	response.OK(c, v)
}

func (h *DocumentHandler) Reprocess(c *gin.Context) {
	var req ReprocessRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	userID, _ := middleware.UserID(c)

	doc, err := h.docs.Reprocess(c.Request.Context(), c.Param("id"), req.Content, req.ChangeSummary, userID)
	if err != nil {
		writeError(c, err, "reprocess document failed")
		return
	}
	response.Accepted(c, doc)
}

func (h *DocumentHandler) Abolish(c *gin.Context) {
	var req AbolishRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	userID, _ := middleware.UserID(c)

	id := c.Param("id")
	if err := h.docs.Abolish(c.Request.Context(), id, req.AbolishedBy, userID); err != nil {
		writeError(c, err, "abolish document failed")
		return
	}
	response.Accepted(c, gin.H{"abolished_document_id": id})
}

func (h *DocumentHandler) Relate(c *gin.Context) {
	var req RelationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	userID, _ := middleware.UserID(c)

	rel, err := h.docs.Relate(c.Request.Context(), c.Param("id"), req.TargetID, model.RelationType(req.RelationType), userID)
	if err != nil {
		writeError(c, err, "create relation failed")
		return
	}
	response.OK(c, rel)
}

func (h *DocumentHandler) Related(c *gin.Context) {
	related, err := h.docs.Related(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "list related documents failed")
		return
	}
	if related == nil {
		related = []app.RelatedDocument{}
	}
	response.OK(c, related)
}

// writeError maps service errors onto the response envelope. Unknown errors are
// reported with fallback and logged by gin.
func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrEmptyDocument):
		response.Error(c, http.StatusBadRequest, response.CodeEmptyDocument, err.Error())
	case errors.Is(err, app.ErrDocumentNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
	case errors.Is(err, app.ErrVersionNotFound):
		response.Error(c, http.StatusNotFound, response.CodeVersionNotFound, err.Error())
	case errors.Is(err, app.ErrNoObject):
		response.Error(c, http.StatusNotFound, response.CodeNoStoredFile, err.Error())
	case errors.Is(err, app.ErrFileTooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodeFileTooLarge, err.Error())
	case errors.Is(err, extract.ErrUnsupportedFormat):
		response.Error(c, http.StatusUnsupportedMediaType, response.CodeUnsupportedFormat, err.Error())
	case errors.Is(err, extract.ErrExtractionFailure):
		response.Error(c, http.StatusUnprocessableEntity, response.CodeExtractionFailed, err.Error())
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
