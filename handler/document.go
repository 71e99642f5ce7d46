package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/quimbellmunt/medscan/config"
	"github.com/quimbellmunt/medscan/middleware"
	"github.com/quimbellmunt/medscan/model"
	"github.com/quimbellmunt/medscan/pkg/logger"
	"github.com/quimbellmunt/medscan/service"
)

// Storage is the slice of object storage the handler needs.
type Storage interface {
	Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	PresignedURL(ctx context.Context, objectName string) (string, error)
	Delete(ctx context.Context, objectName string) error
}

// Annotator runs text through the entity-annotation service.
type Annotator interface {
	AnnotateText(ctx context.Context, text string) ([]model.Entity, error)
}

type DocumentHandler struct {
	storage      Storage
	collector    *service.Collector
	annotator    Annotator
	store        *service.DocumentStore
	featureTypes []string
}

func NewDocumentHandler(storage Storage, collector *service.Collector, annotator Annotator, store *service.DocumentStore, cfg *config.AnalysisConfig) *DocumentHandler {
	return &DocumentHandler{
		storage:      storage,
		collector:    collector,
		annotator:    annotator,
		store:        store,
		featureTypes: cfg.FeatureTypes,
	}
}

// Upload handles document file upload
func (h *DocumentHandler) Upload(c *gin.Context) {
	tenant := middleware.GetTenant(c)

	// Get file from form
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	// Validate file type - PDF and common image formats allowed
	ext := strings.ToLower(filepath.Ext(header.Filename))
	contentType, ok := allowedContentTypes[ext]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF, PNG and JPEG files are allowed"})
		return
	}

	if ct := header.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		contentType = ct
	}

	// Generate unique ID and object name
	docID := uuid.New().String()
	objectName := fmt.Sprintf("%s/%s/%s", tenant, docID, header.Filename)

	// Stage the document in object storage
	err = h.storage.Upload(c.Request.Context(), objectName, file, header.Size, contentType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload file: " + err.Error()})
		return
	}

	// The analysis service pulls the input from a presigned URL
	sourceURL, err := h.storage.PresignedURL(c.Request.Context(), objectName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate URL: " + err.Error()})
		return
	}

	// Create document record
	doc := &model.Document{
		ID:        docID,
		Filename:  header.Filename,
		Tenant:    tenant,
		ObjectKey: objectName,
		SourceURL: sourceURL,
		Status:    model.StatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	h.store.Save(doc)

	// Run the analysis job in the background
	go h.processAnalysisJob(doc.ID, sourceURL)

	c.JSON(http.StatusOK, gin.H{
		"id":       docID,
		"filename": header.Filename,
		"status":   model.StatusPending,
	})
}

var allowedContentTypes = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// processAnalysisJob drives one document through the external analysis
// service: submit, await completion, collect the page chain, aggregate.
func (h *DocumentHandler) processAnalysisJob(docID, sourceURL string) {
	ctx := logger.WithDocument(context.Background(), docID)

	h.store.UpdateStatus(docID, model.StatusProcessing, "")

	handle, err := h.collector.Submit(ctx, sourceURL, h.featureTypes)
	if err != nil {
		logger.Error(ctx, "job submission rejected", "error", err)
		h.store.UpdateStatus(docID, model.StatusFailed, err.Error())
		return
	}

	ctx = logger.WithJob(ctx, handle.JobID)
	logger.Info(ctx, "analysis job submitted")
	h.store.UpdateJobID(docID, handle.JobID)

	if err := h.collector.AwaitCompletion(ctx, handle); err != nil {
		var failErr *service.JobFailedError
		var toErr *service.TimeoutError
		switch {
		case errors.As(err, &failErr):
			logger.Error(ctx, "analysis job failed", "reason", failErr.Reason)
		case errors.As(err, &toErr):
			logger.Error(ctx, "analysis job timed out", "waited", toErr.Waited)
		default:
			logger.Error(ctx, "analysis job wait failed", "error", err)
		}
		h.store.UpdateStatus(docID, model.StatusFailed, err.Error())
		return
	}

	pages, err := h.collector.CollectPages(ctx, handle)
	if err != nil {
		logger.Error(ctx, "result collection failed", "error", err)
		h.store.UpdateStatus(docID, model.StatusFailed, err.Error())
		return
	}

	aggregated := service.AggregateText(pages)
	h.store.UpdatePages(docID, aggregated)
	logger.Info(ctx, "analysis job completed", "pages", len(aggregated))
}

// List returns all documents for the current tenant
func (h *DocumentHandler) List(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	documents := h.store.GetByTenant(tenant)

	// Return without page text for list view
	result := make([]gin.H, len(documents))
	for i, doc := range documents {
		result[i] = gin.H{
			"id":         doc.ID,
			"filename":   doc.Filename,
			"status":     doc.Status,
			"created_at": doc.CreatedAt.Format(time.RFC3339),
			"updated_at": doc.UpdatedAt.Format(time.RFC3339),
		}
	}

	c.JSON(http.StatusOK, gin.H{"documents": result})
}

// Get returns a single document with its aggregated pages
func (h *DocumentHandler) Get(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	id := c.Param("id")

	doc := h.store.Get(id)
	if doc == nil || doc.Tenant != tenant {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	c.JSON(http.StatusOK, doc)
}

// GetStatus returns the processing status of a document
func (h *DocumentHandler) GetStatus(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	id := c.Param("id")

	doc := h.store.Get(id)
	if doc == nil || doc.Tenant != tenant {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":        doc.ID,
		"status":    doc.Status,
		"job_id":    doc.JobID,
		"error_msg": doc.ErrorMsg,
	})
}

// Annotate runs the document's aggregated text through the entity service,
// chunked to its input limit, and stores the entities on the document.
func (h *DocumentHandler) Annotate(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	id := c.Param("id")

	doc := h.store.Get(id)
	if doc == nil || doc.Tenant != tenant {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}
	if doc.Status != model.StatusCompleted {
		c.JSON(http.StatusConflict, gin.H{"error": "Document analysis has not completed"})
		return
	}

	texts := make([]string, len(doc.Pages))
	for i, page := range doc.Pages {
		texts[i] = page.Text
	}

	entities, err := h.annotator.AnnotateText(c.Request.Context(), strings.Join(texts, "\n"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Entity annotation failed: " + err.Error()})
		return
	}

	h.store.UpdateEntities(id, entities)

	c.JSON(http.StatusOK, gin.H{
		"id":       doc.ID,
		"entities": entities,
	})
}

// Delete deletes a document and its staged object
func (h *DocumentHandler) Delete(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	id := c.Param("id")

	doc := h.store.Get(id)
	if doc == nil || doc.Tenant != tenant {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	if err := h.storage.Delete(c.Request.Context(), doc.ObjectKey); err != nil {
		logger.Warn(c.Request.Context(), "failed to delete staged object", "document_id", id, "error", err)
	}
	h.store.Delete(id)

	c.JSON(http.StatusOK, gin.H{"message": "Document deleted"})
}
