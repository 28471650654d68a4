package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/peernotes/peernotes/internal/metrics"
	"go.uber.org/zap"
)

const (
	headerRequestID   = "X-Request-ID"
	contextRequestID  = "peernotes_request_id"
	defaultCORSOrigin = "*"
)

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", headerRequestID},
		ExposeHeaders:    []string{headerRequestID},
		AllowCredentials: true,
		AllowWildcard:    true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) == 0 {
		config.AllowOriginFunc = func(string) bool { return true }
	} else {
		for _, origin := range allowedOrigins {
			if origin == defaultCORSOrigin {
				config.AllowOriginFunc = func(string) bool { return true }
				break
			}
		}
		if config.AllowOriginFunc == nil {
			config.AllowOrigins = allowedOrigins
		}
	}
	return cors.New(config)
}

// requestLogger tags each request with an id and records its outcome.
func requestLogger(logger *zap.Logger, recorder *metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()

		requestID := c.GetHeader(headerRequestID)
		if requestID == "" {
			if generated, err := uuid.NewV7(); err == nil {
				requestID = generated.String()
			}
		}
		c.Set(contextRequestID, requestID)
		c.Header(headerRequestID, requestID)

		c.Next()

		elapsed := time.Since(started)
		status := c.Writer.Status()
		recorder.ObserveHTTP(c.Request.Method, c.FullPath(), status, elapsed)

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", elapsed),
			zap.String("client_ip", c.ClientIP()),
		}
		switch {
		case status >= http.StatusInternalServerError:
			logger.Warn("request completed", fields...)
		default:
			logger.Debug("request completed", fields...)
		}
	}
}

// rateLimit budgets requests per client IP. Limiter errors let the request through.
func rateLimit(limiter RequestLimiter, resource string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		allowed, err := limiter.Allow(c.Request.Context(), resource, c.ClientIP())
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.String("resource", resource), zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Error: messageRateLimited, Code: codeRateLimited})
			return
		}
		c.Next()
	}
}
