package handlers

import (
	"net/http"

	apperrors "legal-rag/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusForError maps the application error kinds to HTTP statuses.
func statusForError(err error) int {
	switch {
	case apperrors.IsNotFound(err):
		return http.StatusNotFound
	case apperrors.IsInvalidInput(err), apperrors.IsUnsupportedType(err):
		return http.StatusBadRequest
	case apperrors.IsServiceUnavailable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondWithError logs the technical error and returns a user-friendly message.
func respondWithError(c *gin.Context, technicalError error, userMessage string, logger *zap.Logger, fields ...zap.Field) {
	if logger != nil {
		fields = append(fields, zap.Error(technicalError))
		logger.Error("Request failed", fields...)
	}
	c.JSON(statusForError(technicalError), gin.H{"error": userMessage})
}

// respondWithClientError returns a client error (no logging needed for validation errors).
func respondWithClientError(c *gin.Context, statusCode int, userMessage string) {
	c.JSON(statusCode, gin.H{"error": userMessage})
}
