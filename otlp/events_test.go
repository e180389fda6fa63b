package otlp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	collectortrace "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	common "go.opentelemetry.io/proto/otlp/common/v1"
	resource "go.opentelemetry.io/proto/otlp/resource/v1"
	trace "go.opentelemetry.io/proto/otlp/trace/v1"

	"github.com/posthog/otelcapture/test"
)

func stringAttr(key, value string) *common.KeyValue {
	return &common.KeyValue{
		Key:   key,
		Value: &common.AnyValue{Value: &common.AnyValue_StringValue{StringValue: value}},
	}
}

func canonicalTree(t *testing.T, request *collectortrace.ExportTraceServiceRequest) map[string]any {
	t.Helper()
	tree, ok := Normalize(RequestToTree(request)).(map[string]any)
	require.True(t, ok)
	return tree
}

func TestSynthesizeRawPayload(t *testing.T) {
	request := &collectortrace.ExportTraceServiceRequest{
		ResourceSpans: []*trace.ResourceSpans{{
			ScopeSpans: []*trace.ScopeSpans{{
				Spans: []*trace.Span{{Name: "test-span", TraceId: test.SequentialBytes(16)}},
			}},
		}},
	}
	tree := canonicalTree(t, request)

	events := SynthesizeEvents(StrategyRawPayload, tree, "user-1")
	require.Len(t, events, 1)
	assert.Equal(t, EventRawData, events[0].Name)
	assert.Equal(t, "user-1", events[0].DistinctID)
	assert.Equal(t, "otel_trace", events[0].Properties["format"])
	assert.Equal(t, tree, events[0].Properties["data"])
	assert.Nil(t, events[0].Timestamp)
}

func TestSynthesizePerSpanClassification(t *testing.T) {
	testCases := []struct {
		name      string
		operation string
		want      string
	}{
		{"chat becomes generation", "chat", EventGeneration},
		{"embeddings becomes embedding", "embeddings", EventEmbedding},
		{"other becomes span", "tool", EventSpan},
		{"absent becomes span", "", EventSpan},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			span := &trace.Span{Name: "s"}
			if tc.operation != "" {
				span.Attributes = []*common.KeyValue{stringAttr("gen_ai.operation.name", tc.operation)}
			}
			request := &collectortrace.ExportTraceServiceRequest{
				ResourceSpans: []*trace.ResourceSpans{{
					ScopeSpans: []*trace.ScopeSpans{{Spans: []*trace.Span{span}}},
				}},
			}

			events := SynthesizeEvents(StrategyPerSpan, canonicalTree(t, request), "u")
			require.Len(t, events, 1)
			assert.Equal(t, tc.want, events[0].Name)
		})
	}
}

func TestSynthesizePerSpanStructuralProperties(t *testing.T) {
	request := &collectortrace.ExportTraceServiceRequest{
		ResourceSpans: []*trace.ResourceSpans{{
			Resource: &resource.Resource{
				Attributes: []*common.KeyValue{stringAttr("service.name", "svc")},
			},
			ScopeSpans: []*trace.ScopeSpans{{
				Spans: []*trace.Span{{
					TraceId:      test.SequentialBytes(16),
					SpanId:       test.SequentialBytes(8),
					ParentSpanId: []byte{9, 9, 9, 9, 9, 9, 9, 9},
					Name:         "child",
					Attributes:   []*common.KeyValue{stringAttr("span_attr", "sv")},
				}},
			}},
		}},
	}

	events := SynthesizeEvents(StrategyPerSpan, canonicalTree(t, request), "u")
	require.Len(t, events, 1)
	props := events[0].Properties
	assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", props["$ai_trace_id"])
	assert.Equal(t, "0102030405060708", props["$ai_span_id"])
	assert.Equal(t, "0909090909090909", props["$ai_parent_id"])
	assert.Equal(t, "otel", props["$ai_ingestion_source"])
	assert.Equal(t, "sv", props["span_attr"])
	assert.Equal(t, "svc", props["service.name"])
}

func TestSynthesizePerSpanPropertyPrecedence(t *testing.T) {
	request := &collectortrace.ExportTraceServiceRequest{
		ResourceSpans: []*trace.ResourceSpans{{
			Resource: &resource.Resource{
				Attributes: []*common.KeyValue{
					stringAttr("$ai_trace_id", "resource-override"),
					stringAttr("shared", "from-resource"),
				},
			},
			ScopeSpans: []*trace.ScopeSpans{{
				Spans: []*trace.Span{{
					TraceId: test.SequentialBytes(16),
					Name:    "s",
					Attributes: []*common.KeyValue{
						stringAttr("$ai_trace_id", "span-override"),
						stringAttr("shared", "from-span"),
					},
				}},
			}},
		}},
	}

	events := SynthesizeEvents(StrategyPerSpan, canonicalTree(t, request), "u")
	require.Len(t, events, 1)
	props := events[0].Properties
	// Structural fields are never overwritten by attributes; span attributes
	// are never overwritten by resource attributes.
	assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", props["$ai_trace_id"])
	assert.Equal(t, "from-span", props["shared"])
}

func TestSynthesizePerSpanParentIDInclusion(t *testing.T) {
	base := map[string]any{"attributes": map[string]any{}}

	span := func(parent any, present bool) map[string]any {
		s := map[string]any{}
		for k, v := range base {
			s[k] = v
		}
		if present {
			s["parentSpanId"] = parent
		}
		return s
	}

	tree := func(s map[string]any) map[string]any {
		return map[string]any{
			"resourceSpans": []any{
				map[string]any{
					"scopeSpans": []any{
						map[string]any{"spans": []any{s}},
					},
				},
			},
		}
	}

	// absent
	events := SynthesizeEvents(StrategyPerSpan, tree(span(nil, false)), "u")
	_, has := events[0].Properties["$ai_parent_id"]
	assert.False(t, has)

	// null
	events = SynthesizeEvents(StrategyPerSpan, tree(span(nil, true)), "u")
	_, has = events[0].Properties["$ai_parent_id"]
	assert.False(t, has)

	// empty string
	events = SynthesizeEvents(StrategyPerSpan, tree(span("", true)), "u")
	_, has = events[0].Properties["$ai_parent_id"]
	assert.False(t, has)

	// non-empty string
	events = SynthesizeEvents(StrategyPerSpan, tree(span("abcd", true)), "u")
	assert.Equal(t, "abcd", events[0].Properties["$ai_parent_id"])

	// non-string values pass the inclusion test as-is
	events = SynthesizeEvents(StrategyPerSpan, tree(span(int64(5), true)), "u")
	assert.Equal(t, int64(5), events[0].Properties["$ai_parent_id"])
}

func TestSynthesizePerSpanTimestamps(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 500, time.UTC)

	request := &collectortrace.ExportTraceServiceRequest{
		ResourceSpans: []*trace.ResourceSpans{{
			ScopeSpans: []*trace.ScopeSpans{{
				Spans: []*trace.Span{
					{Name: "timed", StartTimeUnixNano: uint64(start.UnixNano())},
					{Name: "untimed"},
				},
			}},
		}},
	}

	events := SynthesizeEvents(StrategyPerSpan, canonicalTree(t, request), "u")
	require.Len(t, events, 2)
	require.NotNil(t, events[0].Timestamp)
	assert.Equal(t, start, *events[0].Timestamp)
	assert.Nil(t, events[1].Timestamp)
}

func TestParseUnixNanoAcceptsNumericString(t *testing.T) {
	ts := parseUnixNano("1700000000000000000")
	require.NotNil(t, ts)
	assert.Equal(t, time.Unix(0, 1700000000000000000).UTC(), *ts)

	assert.Nil(t, parseUnixNano("not-a-number"))
	assert.Nil(t, parseUnixNano(nil))
}

func TestSynthesizePerSpanPreservesOrder(t *testing.T) {
	named := func(names ...string) []*trace.Span {
		spans := make([]*trace.Span, len(names))
		for i, name := range names {
			spans[i] = &trace.Span{Name: name, Attributes: []*common.KeyValue{stringAttr("span.name", name)}}
		}
		return spans
	}

	request := &collectortrace.ExportTraceServiceRequest{
		ResourceSpans: []*trace.ResourceSpans{
			{
				ScopeSpans: []*trace.ScopeSpans{
					{Spans: named("a", "b")},
					{Spans: named("c")},
				},
			},
			{
				ScopeSpans: []*trace.ScopeSpans{
					{Spans: named("d", "e")},
				},
			},
		},
	}

	events := SynthesizeEvents(StrategyPerSpan, canonicalTree(t, request), "u")
	require.Len(t, events, 5)
	var order []string
	for _, event := range events {
		order = append(order, event.Properties["span.name"].(string))
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, order)
}

func TestSynthesizedEventPayload(t *testing.T) {
	event := SynthesizedEvent{
		Name:       EventRawData,
		DistinctID: "user-1",
		Properties: map[string]any{"format": "otel_trace"},
	}
	payload, err := event.Payload()
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"$ai_raw_data","distinct_id":"user-1","properties":{"format":"otel_trace"}}`, payload)
}
