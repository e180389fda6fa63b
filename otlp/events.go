package otlp

import (
	"strconv"
	"time"
)

// Strategy selects how a normalized request is turned into analytics events.
type Strategy string

const (
	// StrategyRawPayload wraps the whole canonical tree in one event.
	StrategyRawPayload Strategy = "raw"
	// StrategyPerSpan emits one classified event per span.
	StrategyPerSpan Strategy = "spans"
)

const (
	EventRawData    = "$ai_raw_data"
	EventGeneration = "$ai_generation"
	EventEmbedding  = "$ai_embedding"
	EventSpan       = "$ai_span"

	operationNameAttribute = "gen_ai.operation.name"
	ingestionSourceValue   = "otel"
)

// SynthesizedEvent is one analytics event produced from a trace request.
// A nil Timestamp means the caller should default to the receipt instant.
type SynthesizedEvent struct {
	Name       string
	DistinctID string
	Properties map[string]any
	Timestamp  *time.Time
}

// Payload serializes the event in the shape the downstream ingestion
// pipeline expects: a top-level "properties" member is mandatory there.
// A serialization failure is an invariant violation, not a transient fault.
func (e SynthesizedEvent) Payload() (string, error) {
	data, err := json.Marshal(map[string]any{
		"event":       e.Name,
		"distinct_id": e.DistinctID,
		"properties":  e.Properties,
	})
	if err != nil {
		return "", ErrNonRetryableSink
	}
	return string(data), nil
}

// SynthesizeEvents applies exactly one synthesis strategy to a canonical
// tree and the resolved distinct identity.
func SynthesizeEvents(strategy Strategy, tree map[string]any, distinctID string) []SynthesizedEvent {
	if strategy == StrategyPerSpan {
		return synthesizePerSpan(tree, distinctID)
	}
	return synthesizeRawPayload(tree, distinctID)
}

func synthesizeRawPayload(tree map[string]any, distinctID string) []SynthesizedEvent {
	return []SynthesizedEvent{{
		Name:       EventRawData,
		DistinctID: distinctID,
		Properties: map[string]any{
			"format": "otel_trace",
			"data":   tree,
		},
	}}
}

// synthesizePerSpan walks resource groups, scope groups and spans of the
// canonical tree in order, emitting one event per span. Properties are
// layered with earlier insertions winning: structural fields, then span
// attributes, then resource attributes.
func synthesizePerSpan(tree map[string]any, distinctID string) []SynthesizedEvent {
	var events []SynthesizedEvent

	resourceSpans, _ := tree["resourceSpans"].([]any)
	for _, rsv := range resourceSpans {
		rs, ok := rsv.(map[string]any)
		if !ok {
			continue
		}
		resourceAttrs := attributeObject(rs["resource"])

		scopeSpans, _ := rs["scopeSpans"].([]any)
		for _, ssv := range scopeSpans {
			ss, ok := ssv.(map[string]any)
			if !ok {
				continue
			}
			spans, _ := ss["spans"].([]any)
			for _, sv := range spans {
				span, ok := sv.(map[string]any)
				if !ok {
					continue
				}
				events = append(events, synthesizeSpanEvent(span, resourceAttrs, distinctID))
			}
		}
	}
	return events
}

func synthesizeSpanEvent(span, resourceAttrs map[string]any, distinctID string) SynthesizedEvent {
	spanAttrs, _ := span["attributes"].(map[string]any)

	properties := map[string]any{}
	if v, ok := span["traceId"]; ok && v != nil {
		properties["$ai_trace_id"] = v
	}
	if v, ok := span["spanId"]; ok && v != nil {
		properties["$ai_span_id"] = v
	}
	if v, ok := span["parentSpanId"]; ok && includeParentID(v) {
		properties["$ai_parent_id"] = v
	}
	properties["$ai_ingestion_source"] = ingestionSourceValue

	for key, value := range spanAttrs {
		if _, present := properties[key]; !present {
			properties[key] = value
		}
	}
	for key, value := range resourceAttrs {
		if _, present := properties[key]; !present {
			properties[key] = value
		}
	}

	return SynthesizedEvent{
		Name:       classifyEventName(spanAttrs),
		DistinctID: distinctID,
		Properties: properties,
		Timestamp:  parseUnixNano(span["startTimeUnixNano"]),
	}
}

// includeParentID replicates the exact inclusion condition for the parent
// span id: present, not null, and either not a string or a non-empty string.
// A non-string parent id therefore passes; do not simplify this test.
func includeParentID(v any) bool {
	if v == nil {
		return false
	}
	if s, isString := v.(string); isString {
		return s != ""
	}
	return true
}

func classifyEventName(spanAttrs map[string]any) string {
	op, _ := spanAttrs[operationNameAttribute].(string)
	switch op {
	case "chat":
		return EventGeneration
	case "embeddings":
		return EventEmbedding
	default:
		return EventSpan
	}
}

// parseUnixNano interprets a numeric value or numeric string as nanoseconds
// since the Unix epoch. Absent or unparseable values return nil so the
// caller falls back to the receipt instant.
func parseUnixNano(v any) *time.Time {
	var nanos int64
	switch n := v.(type) {
	case int64:
		nanos = n
	case int:
		nanos = int64(n)
	case uint64:
		nanos = int64(n)
	case float64:
		nanos = int64(n)
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return nil
		}
		nanos = parsed
	default:
		return nil
	}
	if nanos == 0 {
		return nil
	}
	ts := time.Unix(0, nanos).UTC()
	return &ts
}

// attributeObject digs the flattened attribute object out of a resource (or
// any node carrying one). Missing or non-canonical shapes yield nil, which
// ranges as empty.
func attributeObject(node any) map[string]any {
	parent, ok := node.(map[string]any)
	if !ok {
		return nil
	}
	attrs, _ := parent["attributes"].(map[string]any)
	return attrs
}
