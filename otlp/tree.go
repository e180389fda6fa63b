package otlp

import (
	collectortrace "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	common "go.opentelemetry.io/proto/otlp/common/v1"
	resource "go.opentelemetry.io/proto/otlp/resource/v1"
	trace "go.opentelemetry.io/proto/otlp/trace/v1"
)

// RequestToTree serializes a decoded trace request into a generic JSON-like
// tree (maps, slices, scalars). The tree mirrors the OTLP JSON encoding:
// camelCase member names, typed-value wrappers around attribute values, and
// identifier byte strings as arrays of byte values. Normalize rewrites this
// tree into its canonical form; producing it from the typed request makes the
// canonical output identical regardless of the wire format the sender used.
func RequestToTree(request *collectortrace.ExportTraceServiceRequest) map[string]any {
	resourceSpans := make([]any, 0, len(request.ResourceSpans))
	for _, rs := range request.ResourceSpans {
		resourceSpans = append(resourceSpans, resourceSpansToTree(rs))
	}
	return map[string]any{"resourceSpans": resourceSpans}
}

func resourceSpansToTree(rs *trace.ResourceSpans) map[string]any {
	node := map[string]any{}
	if rs.Resource != nil {
		node["resource"] = resourceToTree(rs.Resource)
	}
	scopeSpans := make([]any, 0, len(rs.ScopeSpans))
	for _, ss := range rs.ScopeSpans {
		scopeSpans = append(scopeSpans, scopeSpansToTree(ss))
	}
	node["scopeSpans"] = scopeSpans
	if rs.SchemaUrl != "" {
		node["schemaUrl"] = rs.SchemaUrl
	}
	return node
}

func resourceToTree(res *resource.Resource) map[string]any {
	node := map[string]any{
		"attributes": keyValuesToTree(res.Attributes),
	}
	if res.DroppedAttributesCount != 0 {
		node["droppedAttributesCount"] = int64(res.DroppedAttributesCount)
	}
	return node
}

func scopeSpansToTree(ss *trace.ScopeSpans) map[string]any {
	node := map[string]any{}
	if ss.Scope != nil {
		node["scope"] = scopeToTree(ss.Scope)
	}
	spans := make([]any, 0, len(ss.Spans))
	for _, span := range ss.Spans {
		spans = append(spans, spanToTree(span))
	}
	node["spans"] = spans
	if ss.SchemaUrl != "" {
		node["schemaUrl"] = ss.SchemaUrl
	}
	return node
}

func scopeToTree(scope *common.InstrumentationScope) map[string]any {
	node := map[string]any{}
	if scope.Name != "" {
		node["name"] = scope.Name
	}
	if scope.Version != "" {
		node["version"] = scope.Version
	}
	if len(scope.Attributes) > 0 {
		node["attributes"] = keyValuesToTree(scope.Attributes)
	}
	if scope.DroppedAttributesCount != 0 {
		node["droppedAttributesCount"] = int64(scope.DroppedAttributesCount)
	}
	return node
}

func spanToTree(span *trace.Span) map[string]any {
	node := map[string]any{
		"name": span.Name,
	}
	if len(span.TraceId) > 0 {
		node["traceId"] = bytesToTree(span.TraceId)
	}
	if len(span.SpanId) > 0 {
		node["spanId"] = bytesToTree(span.SpanId)
	}
	if len(span.ParentSpanId) > 0 {
		node["parentSpanId"] = bytesToTree(span.ParentSpanId)
	}
	if span.TraceState != "" {
		node["traceState"] = span.TraceState
	}
	if span.Flags != 0 {
		node["flags"] = int64(span.Flags)
	}
	if span.Kind != trace.Span_SPAN_KIND_UNSPECIFIED {
		node["kind"] = int64(span.Kind)
	}
	if span.StartTimeUnixNano != 0 {
		node["startTimeUnixNano"] = int64(span.StartTimeUnixNano)
	}
	if span.EndTimeUnixNano != 0 {
		node["endTimeUnixNano"] = int64(span.EndTimeUnixNano)
	}
	if len(span.Attributes) > 0 {
		node["attributes"] = keyValuesToTree(span.Attributes)
	}
	if span.DroppedAttributesCount != 0 {
		node["droppedAttributesCount"] = int64(span.DroppedAttributesCount)
	}
	if len(span.Events) > 0 {
		events := make([]any, 0, len(span.Events))
		for _, event := range span.Events {
			events = append(events, spanEventToTree(event))
		}
		node["events"] = events
	}
	if span.DroppedEventsCount != 0 {
		node["droppedEventsCount"] = int64(span.DroppedEventsCount)
	}
	if len(span.Links) > 0 {
		links := make([]any, 0, len(span.Links))
		for _, link := range span.Links {
			links = append(links, spanLinkToTree(link))
		}
		node["links"] = links
	}
	if span.DroppedLinksCount != 0 {
		node["droppedLinksCount"] = int64(span.DroppedLinksCount)
	}
	if span.Status != nil {
		node["status"] = statusToTree(span.Status)
	}
	return node
}

func spanEventToTree(event *trace.Span_Event) map[string]any {
	node := map[string]any{
		"name": event.Name,
	}
	if event.TimeUnixNano != 0 {
		node["timeUnixNano"] = int64(event.TimeUnixNano)
	}
	if len(event.Attributes) > 0 {
		node["attributes"] = keyValuesToTree(event.Attributes)
	}
	if event.DroppedAttributesCount != 0 {
		node["droppedAttributesCount"] = int64(event.DroppedAttributesCount)
	}
	return node
}

func spanLinkToTree(link *trace.Span_Link) map[string]any {
	node := map[string]any{}
	if len(link.TraceId) > 0 {
		node["traceId"] = bytesToTree(link.TraceId)
	}
	if len(link.SpanId) > 0 {
		node["spanId"] = bytesToTree(link.SpanId)
	}
	if link.TraceState != "" {
		node["traceState"] = link.TraceState
	}
	if len(link.Attributes) > 0 {
		node["attributes"] = keyValuesToTree(link.Attributes)
	}
	if link.DroppedAttributesCount != 0 {
		node["droppedAttributesCount"] = int64(link.DroppedAttributesCount)
	}
	if link.Flags != 0 {
		node["flags"] = int64(link.Flags)
	}
	return node
}

func statusToTree(st *trace.Status) map[string]any {
	node := map[string]any{}
	if st.Message != "" {
		node["message"] = st.Message
	}
	if st.Code != trace.Status_STATUS_CODE_UNSET {
		node["code"] = int64(st.Code)
	}
	return node
}

func keyValuesToTree(attributes []*common.KeyValue) []any {
	list := make([]any, 0, len(attributes))
	for _, attr := range attributes {
		list = append(list, map[string]any{
			"key":   attr.Key,
			"value": anyValueToTree(attr.Value),
		})
	}
	return list
}

// anyValueToTree keeps the typed-value wrapper around each attribute value,
// exactly as the OTLP JSON encoding does. A wrapper with no populated
// variant becomes null.
func anyValueToTree(value *common.AnyValue) any {
	if value == nil {
		return nil
	}
	switch v := value.Value.(type) {
	case *common.AnyValue_StringValue:
		return map[string]any{"stringValue": v.StringValue}
	case *common.AnyValue_BoolValue:
		return map[string]any{"boolValue": v.BoolValue}
	case *common.AnyValue_IntValue:
		return map[string]any{"intValue": v.IntValue}
	case *common.AnyValue_DoubleValue:
		return map[string]any{"doubleValue": v.DoubleValue}
	case *common.AnyValue_BytesValue:
		return map[string]any{"bytesValue": bytesToTree(v.BytesValue)}
	case *common.AnyValue_ArrayValue:
		values := make([]any, 0, len(v.ArrayValue.GetValues()))
		for _, item := range v.ArrayValue.GetValues() {
			values = append(values, anyValueToTree(item))
		}
		return map[string]any{"arrayValue": map[string]any{"values": values}}
	case *common.AnyValue_KvlistValue:
		values := make([]any, 0, len(v.KvlistValue.GetValues()))
		for _, item := range v.KvlistValue.GetValues() {
			values = append(values, map[string]any{
				"key":   item.Key,
				"value": anyValueToTree(item.Value),
			})
		}
		return map[string]any{"kvlistValue": map[string]any{"values": values}}
	default:
		return nil
	}
}

func bytesToTree(raw []byte) []any {
	arr := make([]any, len(raw))
	for i, b := range raw {
		arr[i] = int64(b)
	}
	return arr
}

// CountSpans sums span counts across all scope groups in all resource groups.
func CountSpans(request *collectortrace.ExportTraceServiceRequest) int {
	total := 0
	for _, rs := range request.ResourceSpans {
		for _, ss := range rs.ScopeSpans {
			total += len(ss.Spans)
		}
	}
	return total
}
