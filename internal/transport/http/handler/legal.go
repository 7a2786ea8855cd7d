package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"jurisrag/internal/app"
	"jurisrag/internal/transport/http/response"
)

// LegalService answers questions over the indexed documents.
type LegalService interface {
	Search(ctx context.Context, in app.SearchInput) ([]app.Source, error)
	Ask(ctx context.Context, in app.AskInput) (*app.AskResult, error)
}

type LegalHandler struct {
	qa LegalService
}

type SearchRequest struct {
	Query        string         `json:"query" binding:"required"`
	DocumentType string         `json:"document_type"`
	Filter       map[string]any `json:"filter"`
	Limit        int            `json:"limit" binding:"min=0,max=50"`
}

type AskRequest struct {
	Question     string         `json:"question" binding:"required"`
	DocumentType string         `json:"document_type"`
	Filter       map[string]any `json:"filter"`
	TopK         int            `json:"top_k" binding:"min=0,max=50"`
}

func NewLegalHandler(qa LegalService) *LegalHandler {
	return &LegalHandler{qa: qa}
}

func (h *LegalHandler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	sources, err := h.qa.Search(c.Request.Context(), app.SearchInput{
		Query:  req.Query,
		Filter: withDocumentType(req.Filter, req.DocumentType),
		Limit:  req.Limit,
	})
	if err != nil {
		writeError(c, err, "search failed")
		return
	}
	response.OK(c, gin.H{"results": sources, "count": len(sources)})
}

func (h *LegalHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	result, err := h.qa.Ask(c.Request.Context(), app.AskInput{
		Question: req.Question,
		Filter:   withDocumentType(req.Filter, req.DocumentType),
		TopK:     req.TopK,
	})
	if err != nil {
		writeError(c, err, "ask failed")
		return
	}
	response.OK(c, result)
}

func withDocumentType(filter map[string]any, docType string) map[string]any {
	if docType == "" {
		return filter
	}
	out := make(map[string]any, len(filter)+1)
	for k, v := range filter {
		out[k] = v
	}
	out["document_type"] = docType
	return out
}
