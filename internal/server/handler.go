// Package server hosts the HTTP surface: the trace ingest pipeline, its
// preflight and health endpoints, and the error-to-status mapping.
package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/posthog/otelcapture/internal/capture"
	"github.com/posthog/otelcapture/internal/token"
	"github.com/posthog/otelcapture/otlp"
)

// Handler runs the per-request ingest pipeline. One instance serves all
// requests; it holds no per-request state.
type Handler struct {
	Log       *zap.Logger
	Sink      capture.Sink
	Dropper   *token.Dropper
	Strategy  otlp.Strategy
	BodyLimit int64
	Now       func() time.Time
}

// HandleTraces is the trace ingest pipeline: acquire body, decompress,
// negotiate content, authenticate, gate, decode, normalize, synthesize,
// dispatch. Any failure aborts the rest of the pipeline; nothing partial is
// ever dispatched.
func (h *Handler) HandleTraces(c *gin.Context) {
	body, err := h.readBody(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if len(body) == 0 {
		h.Log.Warn("trace endpoint received empty body")
		h.respondError(c, otlp.ErrEmptyPayload)
		return
	}

	ri := otlp.GetRequestInfoFromHttpHeaders(c.Request.Header)

	body, err = otlp.DecompressBody(body, ri.ContentEncoding)
	if err != nil {
		h.Log.Warn("failed to decompress body", zap.Error(err))
		h.respondError(c, err)
		return
	}

	if !otlp.IsContentTypeSupported(ri.ContentType) {
		h.Log.Warn("unsupported content type", zap.String("content_type", ri.ContentType))
		h.respondError(c, otlp.ErrInvalidContentType)
		return
	}

	tok, err := ri.BearerToken()
	if err != nil {
		h.Log.Warn("missing or invalid Authorization header")
		h.respondError(c, err)
		return
	}
	if err := token.Validate(tok); err != nil {
		h.Log.Warn("token failed validation", zap.Error(err))
		h.respondError(c, err)
		return
	}

	// The drop gate is a successful no-op, observable only through metrics.
	if h.Dropper.ShouldDrop(tok, "") {
		droppedEvents.WithLabelValues("token_dropper").Inc()
		c.JSON(http.StatusOK, gin.H{})
		return
	}

	request, err := otlp.DecodeTraceRequest(body, ri.ContentType)
	if err != nil {
		h.Log.Warn("failed to decode trace request", zap.Error(err))
		h.respondError(c, err)
		return
	}

	spanCount := otlp.CountSpans(request)
	spansReceived.Add(float64(spanCount))

	receivedAt := h.Now().UTC()
	distinctID := otlp.ResolveDistinctID(request)
	tree := otlp.Normalize(otlp.RequestToTree(request)).(map[string]any)
	events := otlp.SynthesizeEvents(h.Strategy, tree, distinctID)

	builder := capture.RecordBuilder{
		Token:      tok,
		ClientIP:   clientIP(c),
		ReceivedAt: receivedAt,
	}
	records, err := builder.BuildAll(events)
	if err != nil {
		h.Log.Warn("failed to build capture records", zap.Error(err))
		h.respondError(c, err)
		return
	}

	if h.Strategy == otlp.StrategyPerSpan {
		err = h.Sink.SendBatch(c.Request.Context(), records)
	} else {
		err = h.Sink.Send(c.Request.Context(), records[0])
	}
	if err != nil {
		h.Log.Warn("failed to dispatch capture records", zap.Error(err))
		h.respondError(c, err)
		return
	}

	requestsSuccess.Inc()
	h.Log.Debug("trace request processed",
		zap.Int("spans", spanCount),
		zap.Int("events", len(records)))

	// The wire protocol mandates an empty JSON object on success.
	c.JSON(http.StatusOK, gin.H{})
}

// HandleOptions serves CORS preflight; it always succeeds and never carries
// a quota signal.
func (h *Handler) HandleOptions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{})
}

func (h *Handler) readBody(c *gin.Context) ([]byte, error) {
	reader := http.MaxBytesReader(c.Writer, c.Request.Body, h.BodyLimit)
	defer reader.Close()
	body, err := io.ReadAll(reader)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, otlp.CaptureError{
				Kind:           otlp.KindRequestDecoding,
				Message:        "request body exceeds size limit",
				HTTPStatusCode: http.StatusRequestEntityTooLarge,
			}
		}
		return nil, otlp.RequestDecodingError("failed to read request body: " + err.Error())
	}
	return body, nil
}

func (h *Handler) respondError(c *gin.Context, err error) {
	var captureErr otlp.CaptureError
	if errors.As(err, &captureErr) {
		c.JSON(captureErr.HTTPStatusCode, gin.H{"error": captureErr.Message})
		return
	}
	// Token validity failures surface as authentication errors.
	if isTokenError(err) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	// Anything else is a sink-dispatch failure passed through opaquely.
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
}

func isTokenError(err error) bool {
	return errors.Is(err, token.ErrTokenEmpty) ||
		errors.Is(err, token.ErrTokenTooLong) ||
		errors.Is(err, token.ErrTokenInvalidChars) ||
		errors.Is(err, token.ErrTokenPersonalAPIKey)
}

func clientIP(c *gin.Context) string {
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "127.0.0.1"
}
