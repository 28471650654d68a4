package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/peernotes/peernotes/internal/notes"
	"go.uber.org/zap"
)

const (
	messageInvalidRequest  = "Invalid request body."
	messageMissingFields   = "Title and content are required."
	messageInvalidNoteID   = "Invalid note id."
	messageContentRejected = "Content rejected by moderation"
	messageNotFound        = "Note not found."
	messageNotConfigured   = "Database is not configured."
	messageInternal        = "Internal server error."
	messageRateLimited     = "Too many requests."

	codeInvalidRequest  = "invalid_request"
	codeMissingFields   = "invalid_input"
	codeInvalidNoteID   = "invalid_note_id"
	codeContentRejected = "content_rejected"
	codeNotFound        = "not_found"
	codeNotConfigured   = "storage_unavailable"
	codeInternal        = "storage_error"
	codeRateLimited     = "rate_limited"
)

type errorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Reason string `json:"reason,omitempty"`
}

// writeError maps note store failures onto HTTP statuses. Unexpected failures
// are logged and reported with a generic message.
func (h *httpHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, notes.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse{Error: messageMissingFields, Code: codeMissingFields})
	case errors.Is(err, notes.ErrNotFound):
		writeNotFound(c)
	case errors.Is(err, notes.ErrStorageUnavailable):
		c.JSON(http.StatusNotImplemented, errorResponse{Error: messageNotConfigured, Code: codeNotConfigured})
	default:
		h.logger.Error("request failed",
			zap.String("route", c.FullPath()),
			zap.String("code", notes.ErrorCode(err)),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: messageInternal, Code: codeInternal})
	}
}

func writeNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, errorResponse{Error: messageNotFound, Code: codeNotFound})
}

func writeInvalidRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: messageInvalidRequest, Code: codeInvalidRequest})
}
