package otlp

import (
	"strings"

	"github.com/valyala/fastjson"
	collectortrace "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

var parserPool fastjson.ParserPool

// DecodeTraceRequest turns a raw (already decompressed) request body into a
// typed OTLP trace-export request, according to the declared content type.
// Both wire formats converge on the same message type, so everything
// downstream is format-agnostic.
func DecodeTraceRequest(body []byte, contentType string) (*collectortrace.ExportTraceServiceRequest, error) {
	switch {
	case strings.HasPrefix(contentType, protobufContentType):
		return decodeProtobufTraceRequest(body)
	case strings.HasPrefix(contentType, jsonContentType):
		return decodeJSONTraceRequest(body)
	default:
		return nil, ErrInvalidContentType
	}
}

func decodeProtobufTraceRequest(body []byte) (*collectortrace.ExportTraceServiceRequest, error) {
	request := &collectortrace.ExportTraceServiceRequest{}
	if err := proto.Unmarshal(body, request); err != nil {
		return nil, RequestParsingError("invalid protobuf: " + err.Error())
	}
	return request, nil
}

// decodeJSONTraceRequest parses the body as a generic JSON tree, patches the
// empty-AnyValue quirk, then deserializes the patched tree into the typed
// request. Parsing the tree first keeps big int64 attribute values intact.
func decodeJSONTraceRequest(body []byte) (*collectortrace.ExportTraceServiceRequest, error) {
	parser := parserPool.Get()
	defer parserPool.Put(parser)

	v, err := parser.ParseBytes(body)
	if err != nil {
		return nil, RequestParsingError("invalid JSON: " + err.Error())
	}

	var arena fastjson.Arena
	patchEmptyAnyValues(v, &arena)

	patched := v.MarshalTo(nil)
	request := &collectortrace.ExportTraceServiceRequest{}
	if err := (protojson.UnmarshalOptions{DiscardUnknown: true}).Unmarshal(patched, request); err != nil {
		return nil, RequestParsingError("invalid OTLP trace format: " + err.Error())
	}
	return request, nil
}

// patchEmptyAnyValues rewrites every object member named "value" that holds
// an empty object into a null, at any depth. Some upstream SDKs serialize an
// unset typed-value wrapper as {} instead of null, which would otherwise
// fail strict deserialization.
// See https://github.com/open-telemetry/opentelemetry-rust/issues/1253
func patchEmptyAnyValues(v *fastjson.Value, arena *fastjson.Arena) {
	switch v.Type() {
	case fastjson.TypeObject:
		obj := v.GetObject()
		if inner := obj.Get("value"); inner != nil &&
			inner.Type() == fastjson.TypeObject && inner.GetObject().Len() == 0 {
			obj.Set("value", arena.NewNull())
		}
		obj.Visit(func(_ []byte, member *fastjson.Value) {
			patchEmptyAnyValues(member, arena)
		})
	case fastjson.TypeArray:
		for _, element := range v.GetArray() {
			patchEmptyAnyValues(element, arena)
		}
	}
}
