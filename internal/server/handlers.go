package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/peernotes/peernotes/internal/metrics"
	"github.com/peernotes/peernotes/internal/notes"
	"go.uber.org/zap"
)

const (
	storageConfigured   = "configured"
	storageUnconfigured = "unconfigured"
)

type createNoteRequest struct {
	Title   string   `json:"title"`
	Subject string   `json:"subject"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

type moderateRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	storage := storageUnconfigured
	if h.notesService.Configured() {
		storage = storageConfigured
	}
	c.JSON(http.StatusOK, healthResponse{Status: "ok", Storage: storage})
}

func (h *httpHandler) handleCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog)
}

func (h *httpHandler) handleListNotes(c *gin.Context) {
	stored, err := h.notesService.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stored)
}

// handleCreateNote validates, moderates and persists a note, in that order.
// A harmful verdict bumps the rejected counter and nothing is stored.
func (h *httpHandler) handleCreateNote(c *gin.Context) {
	var request createNoteRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		writeInvalidRequest(c)
		return
	}

	draft, err := notes.NewNoteDraft(request.Title, request.Subject, request.Content, request.Tags)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: messageMissingFields, Code: codeMissingFields})
		return
	}
	if !h.notesService.Configured() {
		h.writeError(c, notes.ErrStorageUnavailable)
		return
	}

	ctx := c.Request.Context()
	verdict := h.moderator.Classify(ctx, draft.Title(), draft.Content())
	if verdict.IsHarmful {
		if err := h.notesService.IncrementRejectedCount(ctx); err != nil {
			h.logger.Error("failed to record rejected note", zap.Error(err))
		}
		h.metrics.RecordNoteEvent(metrics.EventRejected)
		c.JSON(http.StatusBadRequest, errorResponse{
			Error:  messageContentRejected,
			Code:   codeContentRejected,
			Reason: verdict.Reason,
		})
		return
	}

	created, err := h.notesService.Create(ctx, draft)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.metrics.RecordNoteEvent(metrics.EventCreated)
	c.JSON(http.StatusOK, created)
}

func (h *httpHandler) handleGetNote(c *gin.Context) {
	noteID, ok := parseNoteID(c)
	if !ok {
		return
	}
	note, err := h.notesService.Get(c.Request.Context(), noteID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, note)
}

func (h *httpHandler) handleDeleteNote(c *gin.Context) {
	noteID, ok := parseNoteID(c)
	if !ok {
		return
	}
	deleted, err := h.notesService.Delete(c.Request.Context(), noteID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if !deleted {
		writeNotFound(c)
		return
	}
	h.metrics.RecordNoteEvent(metrics.EventDeleted)
	c.JSON(http.StatusOK, successResponse{Success: true})
}

func (h *httpHandler) handleLikeNote(c *gin.Context) {
	noteID, ok := parseNoteID(c)
	if !ok {
		return
	}
	note, err := h.notesService.IncrementLikes(c.Request.Context(), noteID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.metrics.RecordNoteEvent(metrics.EventLiked)
	c.JSON(http.StatusOK, note)
}

// handleReportNote answers success for repeated reports of the same note.
func (h *httpHandler) handleReportNote(c *gin.Context) {
	noteID, ok := parseNoteID(c)
	if !ok {
		return
	}
	recorded, err := h.notesService.AddReport(c.Request.Context(), noteID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if recorded {
		h.metrics.RecordNoteEvent(metrics.EventReported)
	}
	c.JSON(http.StatusOK, successResponse{Success: true})
}

func (h *httpHandler) handleListReports(c *gin.Context) {
	entries, err := h.notesService.ListReports(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *httpHandler) handleStats(c *gin.Context) {
	stats, err := h.notesService.ReadStats(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// handleModerate exposes the classifier directly. A failed model call still
// returns the fail-open verdict, with status 500.
func (h *httpHandler) handleModerate(c *gin.Context) {
	var request moderateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		writeInvalidRequest(c)
		return
	}

	verdict := h.moderator.Classify(c.Request.Context(), request.Title, request.Content)
	if verdict.Failed {
		c.JSON(http.StatusInternalServerError, verdict)
		return
	}
	c.JSON(http.StatusOK, verdict)
}

func parseNoteID(c *gin.Context) (notes.NoteID, bool) {
	noteID, err := notes.ParseNoteID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: messageInvalidNoteID, Code: codeInvalidNoteID})
		return 0, false
	}
	return noteID, true
}
