package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	spansReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "capture_otel_spans_received_total",
		Help: "Spans received across all trace-export requests.",
	})
	requestsSuccess = promauto.NewCounter(prometheus.CounterOpts{
		Name: "capture_otel_requests_success_total",
		Help: "Trace-export requests that dispatched successfully.",
	})
	droppedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "capture_otel_dropped_events_total",
		Help: "Events silently discarded before dispatch.",
	}, []string{"cause"})
)
