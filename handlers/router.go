package handlers

import (
	"net/http"
	"time"

	"legalrag-backend/middleware"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RouterConfig holds what NewRouter needs besides the legal handler
type RouterConfig struct {
	AdminTokenHash string
	Metrics        http.Handler // served on /metrics when set
}

// NewRouter wires the legal endpoints, health and metrics
func NewRouter(h *LegalHandler, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), gzip.Gzip(gzip.DefaultCompression))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	ai := r.Group("/ai")
	{
		ai.POST("/chat/legal", h.AskLegalQuestion)
		ai.GET("/models", h.ListModels)
	}

	api := r.Group("/api/legal")
	{
		api.POST("/search", h.SearchLegalSources)
		api.GET("/sources", h.ListLegalSources)

		admin := api.Group("", middleware.AdminAuth(cfg.AdminTokenHash))
		admin.POST("/ingest", h.IngestSource)
		admin.POST("/index-runs", h.StartIndexRun)
		admin.GET("/index-runs", h.ListIndexRuns)
		admin.GET("/index-runs/:id", h.GetIndexRun)
		admin.GET("/snapshots/*key", h.GetSnapshot)
	}

	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
