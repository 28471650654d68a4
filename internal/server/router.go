package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/peernotes/peernotes/internal/metrics"
	"github.com/peernotes/peernotes/internal/moderation"
	"github.com/peernotes/peernotes/internal/notes"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	resourcePostNote = "post_note"
	resourceModerate = "moderate"
)

var (
	errMissingNotesService = errors.New("notes service dependency required")
	errMissingModerator    = errors.New("moderator dependency required")
)

// Classifier judges whether note content may be published.
type Classifier interface {
	Classify(ctx context.Context, title, content string) moderation.Verdict
}

// RequestLimiter budgets requests per resource and client key.
type RequestLimiter interface {
	Allow(ctx context.Context, resource, key string) (bool, error)
}

type Dependencies struct {
	NotesService *notes.Service
	Moderator    Classifier
	// Limiter is optional; without it no request is throttled.
	Limiter RequestLimiter
	Metrics *metrics.Recorder
	// Gatherer enables GET /metrics when set.
	Gatherer       prometheus.Gatherer
	Catalog        notes.Catalog
	AllowedOrigins []string
	Logger         *zap.Logger
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.NotesService == nil {
		return nil, errMissingNotesService
	}
	if deps.Moderator == nil {
		return nil, errMissingModerator
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	catalog := deps.Catalog
	if len(catalog.Subjects) == 0 && len(catalog.Tags) == 0 {
		catalog = notes.DefaultCatalog()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger, deps.Metrics))
	router.Use(corsMiddleware(deps.AllowedOrigins))

	handler := &httpHandler{
		notesService: deps.NotesService,
		moderator:    deps.Moderator,
		metrics:      deps.Metrics,
		catalog:      catalog,
		logger:       logger,
	}

	router.GET("/healthz", handler.handleHealth)
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler(deps.Gatherer)))
	}

	api := router.Group("/api")
	api.GET("/notes", handler.handleListNotes)
	api.POST("/notes", rateLimit(deps.Limiter, resourcePostNote, logger), handler.handleCreateNote)
	api.GET("/notes/:id", handler.handleGetNote)
	api.DELETE("/notes/:id", handler.handleDeleteNote)
	api.POST("/notes/:id/like", handler.handleLikeNote)
	api.POST("/notes/:id/report", handler.handleReportNote)
	api.GET("/reported-notes", handler.handleListReports)
	api.GET("/stats", handler.handleStats)
	api.GET("/catalog", handler.handleCatalog)
	api.POST("/moderate", rateLimit(deps.Limiter, resourceModerate, logger), handler.handleModerate)

	return router, nil
}

type httpHandler struct {
	notesService *notes.Service
	moderator    Classifier
	metrics      *metrics.Recorder
	catalog      notes.Catalog
	logger       *zap.Logger
}
