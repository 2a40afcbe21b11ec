package handlers

import (
	"net/http"

	"legal-rag/rag"
	"legal-rag/web/format"
	"legal-rag/web/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ChatHandler serves the question-answering endpoints.
type ChatHandler struct {
	orchestrator        *rag.Orchestrator
	streams             *services.StreamService
	defaultJurisdiction string
	logger              *zap.Logger
}

func NewChatHandler(orchestrator *rag.Orchestrator, streams *services.StreamService, defaultJurisdiction string, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		orchestrator:        orchestrator,
		streams:             streams,
		defaultJurisdiction: defaultJurisdiction,
		logger:              logger,
	}
}

func (h *ChatHandler) jurisdiction(req chatRequest) string {
	if req.Jurisdiction != "" {
		return req.Jurisdiction
	}
	return h.defaultJurisdiction
}

type chatRequest struct {
	Question        string `json:"question" binding:"required"`
	Jurisdiction    string `json:"jurisdiction"`
	IncludeMetadata bool   `json:"include_metadata"`
}

// Ask handles POST /api/chat.
func (h *ChatHandler) Ask(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithClientError(c, http.StatusBadRequest, "question is required")
		return
	}

	answer, err := h.orchestrator.Ask(c.Request.Context(), req.Question, h.jurisdiction(req), req.IncludeMetadata)
	if err != nil {
		respondWithError(c, err, "could not answer the question", h.logger,
			zap.String("question", req.Question))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"answer":           answer.Answer,
		"answer_html":      format.AnswerHTML(answer.Answer),
		"confidence_score": answer.Confidence,
		"safety_warnings":  answer.SafetyWarnings,
		"flags":            answer.Flags,
		"metadata":         answer.Metadata,
		"error":            answer.Error,
	})
}

// AskStream handles POST /api/chat/stream as server-sent events.
func (h *ChatHandler) AskStream(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithClientError(c, http.StatusBadRequest, "question is required")
		return
	}

	events, err := h.orchestrator.AskStream(c.Request.Context(), req.Question, h.jurisdiction(req), req.IncludeMetadata)
	if err != nil {
		respondWithError(c, err, "could not answer the question", h.logger,
			zap.String("question", req.Question))
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	h.streams.Relay(c.Request.Context(), c.Writer, events)
}

// History handles GET /api/chat/history.
func (h *ChatHandler) History(c *gin.Context) {
	exchanges := h.orchestrator.History().Recent(h.orchestrator.History().Len())
	c.JSON(http.StatusOK, gin.H{
		"history":         exchanges,
		"total_exchanges": len(exchanges),
	})
}

// ClearHistory handles DELETE /api/chat/history.
func (h *ChatHandler) ClearHistory(c *gin.Context) {
	h.orchestrator.History().Clear()
	c.JSON(http.StatusOK, gin.H{"status": "history cleared"})
}
