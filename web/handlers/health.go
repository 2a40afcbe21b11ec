package handlers

import (
	"net/http"

	"legal-rag/vecindex"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthHandler reports component readiness.
type HealthHandler struct {
	index  vecindex.Index
	logger *zap.Logger
}

func NewHealthHandler(index vecindex.Index, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{index: index, logger: logger}
}

// Health handles GET /health. The vector component is probed live; chatbot
// and processor are in-process singletons that are healthy once constructed.
func (h *HealthHandler) Health(c *gin.Context) {
	vectorStatus := "ok"
	status := "healthy"
	if _, err := h.index.Describe(c.Request.Context()); err != nil {
		h.logger.Warn("Vector index health probe failed", zap.Error(err))
		vectorStatus = "unavailable"
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status": status,
		"components": gin.H{
			"chatbot":   "ok",
			"processor": "ok",
			"vector":    vectorStatus,
		},
	})
}
