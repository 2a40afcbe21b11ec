package handlers

import (
	"net/http"
	"sort"

	"legal-rag/crossref"
	"legal-rag/extract"
	"legal-rag/ingest"
	"legal-rag/rag"
	"legal-rag/vecindex"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DocumentHandler serves upload, task, search, and document management
// endpoints.
type DocumentHandler struct {
	manager   *ingest.Manager
	index     vecindex.Index
	searcher  *rag.HybridSearcher
	enhancer  *rag.Enhancer
	crossrefs *crossref.Engine
	maxUpload int64
	logger    *zap.Logger
}

func NewDocumentHandler(manager *ingest.Manager, index vecindex.Index, searcher *rag.HybridSearcher, crossrefs *crossref.Engine, maxUploadBytes int64, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		manager:   manager,
		index:     index,
		searcher:  searcher,
		enhancer:  rag.NewEnhancer(),
		crossrefs: crossrefs,
		maxUpload: maxUploadBytes,
		logger:    logger,
	}
}

// Upload handles POST /api/documents/upload.
func (h *DocumentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondWithClientError(c, http.StatusBadRequest, "file is required")
		return
	}
	if fileHeader.Size > h.maxUpload {
		respondWithClientError(c, http.StatusRequestEntityTooLarge, "file exceeds the upload size limit")
		return
	}
	if !extract.Supported(fileHeader.Filename) {
		respondWithClientError(c, http.StatusBadRequest, "unsupported file type")
		return
	}

	meta := map[string]string{
		"document_type": c.PostForm("document_type"),
		"jurisdiction":  c.PostForm("jurisdiction"),
		"law_status":    c.PostForm("law_status"),
	}

	f, err := fileHeader.Open()
	if err != nil {
		respondWithError(c, err, "could not read uploaded file", h.logger)
		return
	}
	defer f.Close()

	taskID, err := h.manager.Submit(f, fileHeader.Filename, meta)
	if err != nil {
		respondWithError(c, err, "could not accept the document", h.logger,
			zap.String("file", fileHeader.Filename))
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"task_id":  taskID,
		"status":   ingest.StateUploaded,
		"metadata": meta,
	})
}

// TaskStatus handles GET /api/tasks/:id.
func (h *DocumentHandler) TaskStatus(c *gin.Context) {
	task, err := h.manager.Status(c.Param("id"))
	if err != nil {
		respondWithError(c, err, "task not found", h.logger, zap.String("task_id", c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, task)
}

// ListTasks handles GET /api/tasks.
func (h *DocumentHandler) ListTasks(c *gin.Context) {
	tasks := h.manager.List()
	c.JSON(http.StatusOK, gin.H{
		"tasks":       tasks,
		"total_tasks": len(tasks),
	})
}

// DeleteTask handles DELETE /api/tasks/:id.
func (h *DocumentHandler) DeleteTask(c *gin.Context) {
	fileName, err := h.manager.Delete(c.Param("id"))
	if err != nil {
		respondWithError(c, err, "task not found", h.logger, zap.String("task_id", c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"task_id":   c.Param("id"),
		"file_name": fileName,
	})
}

// CancelTask handles POST /api/tasks/:id/cancel.
func (h *DocumentHandler) CancelTask(c *gin.Context) {
	if err := h.manager.Cancel(c.Param("id")); err != nil {
		respondWithError(c, err, "could not cancel the task", h.logger, zap.String("task_id", c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, gin.H{"task_id": c.Param("id"), "status": "cancelling"})
}

type searchRequest struct {
	Query        string `json:"query" binding:"required"`
	MaxResults   int    `json:"max_results"`
	Jurisdiction string `json:"jurisdiction"`
	DocumentType string `json:"document_type"`
}

// Search handles POST /api/documents/search.
func (h *DocumentHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithClientError(c, http.StatusBadRequest, "query is required")
		return
	}
	if req.MaxResults <= 0 {
		req.MaxResults = 5
	}

	enh := h.enhancer.Enhance(req.Query)
	results, err := h.searcher.Search(c.Request.Context(), enh, req.Jurisdiction, req.MaxResults)
	if err != nil {
		respondWithError(c, err, "search failed", h.logger, zap.String("query", req.Query))
		return
	}

	hits := make([]gin.H, 0, len(results))
	for _, res := range results {
		if req.DocumentType != "" {
			if dt, _ := res.Metadata["document_type"].(string); dt != req.DocumentType {
				continue
			}
		}
		hits = append(hits, gin.H{
			"id":       res.ChunkID,
			"score":    res.FinalScore,
			"content":  res.Content,
			"metadata": res.Metadata,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"query":             req.Query,
		"results":           hits,
		"total_results":     len(hits),
		"related_documents": h.crossrefs.Suggest(req.Query),
	})
}

// ListDocuments handles GET /api/documents/list.
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	items, err := h.index.List(c.Request.Context(), 10000)
	if err != nil {
		respondWithError(c, err, "could not list documents", h.logger)
		return
	}

	type docSummary struct {
		DocumentID   string `json:"document_id"`
		FileName     string `json:"file_name,omitempty"`
		DocumentType string `json:"document_type,omitempty"`
		Jurisdiction string `json:"jurisdiction,omitempty"`
		Chunks       int    `json:"chunks"`
	}
	byID := make(map[string]*docSummary)
	for _, item := range items {
		docID, _ := item.Metadata["document_id"].(string)
		if docID == "" {
			continue
		}
		doc, ok := byID[docID]
		if !ok {
			doc = &docSummary{DocumentID: docID}
			if name, ok := item.Metadata["file_name"].(string); ok {
				doc.FileName = name
			}
			if dt, ok := item.Metadata["document_type"].(string); ok {
				doc.DocumentType = dt
			}
			if j, ok := item.Metadata["jurisdiction"].(string); ok {
				doc.Jurisdiction = j
			}
			byID[docID] = doc
		}
		doc.Chunks++
	}

	docs := make([]docSummary, 0, len(byID))
	for _, doc := range byID {
		docs = append(docs, *doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].DocumentID < docs[j].DocumentID })

	c.JSON(http.StatusOK, gin.H{
		"documents":       docs,
		"total_documents": len(docs),
	})
}

// DeleteDocument handles DELETE /api/documents/:id. Deleting a document
// removes its chunks from the index and its edges from the relationship
// graph.
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	docID := c.Param("id")
	if err := h.index.Delete(c.Request.Context(), vecindex.Eq("document_id", docID)); err != nil {
		respondWithError(c, err, "could not delete the document", h.logger, zap.String("document_id", docID))
		return
	}
	h.crossrefs.ForgetDocument(docID)

	c.JSON(http.StatusOK, gin.H{"document_id": docID})
}

// RelatedDocuments handles GET /api/documents/:id/related.
func (h *DocumentHandler) RelatedDocuments(c *gin.Context) {
	docID := c.Param("id")
	c.JSON(http.StatusOK, gin.H{
		"document_id": docID,
		"related":     h.crossrefs.RelatedDocuments(docID),
	})
}
