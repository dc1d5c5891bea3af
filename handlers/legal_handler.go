package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"legalrag-backend/models"
	"legalrag-backend/service"
	"legalrag-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// LegalQuerier answers and searches legal questions
type LegalQuerier interface {
	Query(ctx context.Context, question, country string, topK int) models.CitedAnswer
	Search(ctx context.Context, question, country string, topK int) ([]models.RetrievedChunk, error)
}

// SourceIngester exposes the source catalog and ad-hoc ingestion
type SourceIngester interface {
	Catalog() models.SourceCatalog
	IngestURL(ctx context.Context, req service.IngestRequest) (service.SourceReport, error)
}

// RunTracker starts and reports catalog index runs
type RunTracker interface {
	Start(ctx context.Context, trigger string) (*models.IndexRun, error)
	Get(ctx context.Context, id uuid.UUID) (*models.IndexRun, error)
	List(ctx context.Context, limit int) ([]*models.IndexRun, error)
}

// SnapshotReader opens archived source snapshots
type SnapshotReader interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// ModelLister lists models of the configured oracle
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
	Name() string
}

// LegalHandler handles HTTP requests for legal questions and source maintenance
type LegalHandler struct {
	engine    LegalQuerier
	indexer   SourceIngester
	runs      RunTracker
	lister    ModelLister
	snapshots SnapshotReader
	markdown  goldmark.Markdown
}

// NewLegalHandler creates a new legal handler. snapshots may be nil when archival is off.
func NewLegalHandler(engine LegalQuerier, indexer SourceIngester, runs RunTracker, lister ModelLister, snapshots SnapshotReader) *LegalHandler {
	return &LegalHandler{
		engine:    engine,
		indexer:   indexer,
		runs:      runs,
		lister:    lister,
		snapshots: snapshots,
		markdown:  goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// LegalQuestionRequest represents the request body for a legal question
type LegalQuestionRequest struct {
	Question string `json:"question" binding:"required"`
	Country  string `json:"country"`
	TopK     int    `json:"top_k"`
}

// IngestSourceRequest represents the request body for ingesting a page
type IngestSourceRequest struct {
	URL       string `json:"url" binding:"required"`
	Title     string `json:"title"`
	Country   string `json:"country"`
	Category  string `json:"category"`
	Authority string `json:"authority"`
}

// SearchResult is one retrieved chunk as returned by the search endpoint
type SearchResult struct {
	ID        string               `json:"id"`
	Text      string               `json:"text"`
	Metadata  models.ChunkMetadata `json:"metadata"`
	Distance  float64              `json:"distance"`
	Relevance float64              `json:"relevance"`
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// AskLegalQuestion handles POST /ai/chat/legal
func (h *LegalHandler) AskLegalQuestion(c *gin.Context) {
	var req LegalQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", "question is required")
		return
	}

	answer := h.engine.Query(c.Request.Context(), req.Question, req.Country, req.TopK)

	resp := gin.H{
		"success":    true,
		"answer":     answer.Answer,
		"citations":  answer.Citations,
		"confidence": answer.Confidence,
	}
	if c.Query("format") == "html" {
		var buf bytes.Buffer
		if err := h.markdown.Convert([]byte(answer.Answer), &buf); err != nil {
			log.Warn().Err(err).Msg("failed to render answer html")
		} else {
			resp["answer_html"] = buf.String()
		}
	}
	c.JSON(http.StatusOK, resp)
}

// SearchLegalSources handles POST /api/legal/search
func (h *LegalHandler) SearchLegalSources(c *gin.Context) {
	var req LegalQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	chunks, err := h.engine.Search(c.Request.Context(), req.Question, req.Country, req.TopK)
	if err != nil {
		if errors.Is(err, service.ErrEmptyQuestion) {
			abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
			return
		}
		log.Error().Err(err).Msg("legal search failed")
		abortWithError(c, http.StatusServiceUnavailable, "SEARCH_FAILED", "Unable to search legal sources at this time")
		return
	}

	results := make([]SearchResult, 0, len(chunks))
	for _, chunk := range chunks {
		results = append(results, SearchResult{
			ID:        chunk.ID,
			Text:      chunk.Text,
			Metadata:  chunk.Metadata,
			Distance:  chunk.Distance,
			Relevance: chunk.Relevance(),
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    results,
	})
}

// ListLegalSources handles GET /api/legal/sources
func (h *LegalHandler) ListLegalSources(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    h.indexer.Catalog(),
	})
}

// ListModels handles GET /ai/models
func (h *LegalHandler) ListModels(c *gin.Context) {
	names, err := h.lister.ListModels(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Str("provider", h.lister.Name()).Msg("failed to list models")
		abortWithError(c, http.StatusBadGateway, "MODELS_UNAVAILABLE", "Unable to list models")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"provider": h.lister.Name(),
		"models":   names,
	})
}

// IngestSource handles POST /api/legal/ingest
func (h *LegalHandler) IngestSource(c *gin.Context) {
	var req IngestSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	report, err := h.indexer.IngestURL(c.Request.Context(), service.IngestRequest{
		URL:       req.URL,
		Title:     req.Title,
		Country:   req.Country,
		Category:  req.Category,
		Authority: models.Authority(strings.ToLower(strings.TrimSpace(req.Authority))),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSource):
			abortWithError(c, http.StatusBadRequest, "INVALID_SOURCE", err.Error())
		case errors.Is(err, service.ErrEmptyScrape):
			abortWithError(c, http.StatusUnprocessableEntity, "EMPTY_SOURCE", "No text could be extracted from the page")
		default:
			abortWithError(c, http.StatusInternalServerError, "INGEST_FAILED", err.Error())
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    report,
	})
}

// StartIndexRun handles POST /api/legal/index-runs
func (h *LegalHandler) StartIndexRun(c *gin.Context) {
	run, err := h.runs.Start(c.Request.Context(), "api")
	if err != nil {
		if errors.Is(err, service.ErrIndexRunInProgress) {
			abortWithError(c, http.StatusConflict, "RUN_IN_PROGRESS", err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "RUN_FAILED", err.Error())
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"data": gin.H{
			"run_id":  run.ID,
			"status":  run.Status,
			"steps":   run.Steps,
			"message": "Index run created. Poll /api/legal/index-runs/:id for updates.",
		},
	})
}

// GetIndexRun handles GET /api/legal/index-runs/:id
func (h *LegalHandler) GetIndexRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_ID", "Invalid index run ID format")
		return
	}

	run, err := h.runs.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrIndexRunNotFound) {
			abortWithError(c, http.StatusNotFound, "NOT_FOUND", "Index run not found")
			return
		}
		abortWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    run,
	})
}

const (
	defaultRunListLimit = 20
	maxRunListLimit     = 100
)

// ListIndexRuns handles GET /api/legal/index-runs
func (h *LegalHandler) ListIndexRuns(c *gin.Context) {
	limit := defaultRunListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			abortWithError(c, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer")
			return
		}
		limit = min(n, maxRunListLimit)
	}

	runs, err := h.runs.List(c.Request.Context(), limit)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if runs == nil {
		runs = []*models.IndexRun{}
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    runs,
	})
}

// GetSnapshot handles GET /api/legal/snapshots/*key
func (h *LegalHandler) GetSnapshot(c *gin.Context) {
	if h.snapshots == nil {
		abortWithError(c, http.StatusNotFound, "NOT_FOUND", "Snapshot archival is disabled")
		return
	}
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" {
		abortWithError(c, http.StatusBadRequest, "INVALID_KEY", "Snapshot key is required")
		return
	}

	rc, err := h.snapshots.Get(c.Request.Context(), key)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrSnapshotNotFound):
			abortWithError(c, http.StatusNotFound, "NOT_FOUND", "Snapshot not found")
		case errors.Is(err, storage.ErrInvalidKey):
			abortWithError(c, http.StatusBadRequest, "INVALID_KEY", err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		}
		return
	}
	defer rc.Close()

	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/plain; charset=utf-8")
	if _, err := io.Copy(c.Writer, rc); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to stream snapshot")
	}
}
