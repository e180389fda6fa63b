package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/posthog/otelcapture/internal/capture"
	"github.com/posthog/otelcapture/internal/config"
	"github.com/posthog/otelcapture/internal/token"
	"github.com/posthog/otelcapture/otlp"
)

// NewRouter wires the ingest endpoint, its preflight sibling, and the
// operational endpoints.
func NewRouter(cfg config.Config, log *zap.Logger, snk capture.Sink) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	handler := &Handler{
		Log:       log,
		Sink:      snk,
		Dropper:   token.NewDropper(cfg.DroppedTokens),
		Strategy:  otlp.Strategy(cfg.CaptureMode),
		BodyLimit: cfg.BodyLimitBytes,
		Now:       time.Now,
	}

	r.POST(cfg.IngestPath, handler.HandleTraces)
	r.OPTIONS(cfg.IngestPath, handler.HandleOptions)

	// Liveness: confirms the process is running.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
