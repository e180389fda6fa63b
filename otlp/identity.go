package otlp

import (
	"github.com/google/uuid"
	collectortrace "go.opentelemetry.io/proto/otlp/collector/trace/v1"
)

const (
	distinctIDAttribute = "posthog.distinct_id"
	userIDAttribute     = "user.id"
)

// ResolveDistinctID derives the stable per-request identity from
// resource-level attributes. The explicit opt-in key is scanned across every
// resource group before the inferred one, so an early resource group's
// posthog.distinct_id always beats a later group's user.id. Only non-empty
// string values are accepted; when nothing matches, a fresh random UUID is
// generated so the result is never empty.
func ResolveDistinctID(request *collectortrace.ExportTraceServiceRequest) string {
	for _, key := range []string{distinctIDAttribute, userIDAttribute} {
		for _, rs := range request.ResourceSpans {
			if rs.Resource == nil {
				continue
			}
			for _, attr := range rs.Resource.Attributes {
				if attr.Key != key || attr.Value == nil {
					continue
				}
				if s := attr.Value.GetStringValue(); s != "" {
					return s
				}
			}
		}
	}
	return uuid.NewString()
}
