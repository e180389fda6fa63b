package otlp

import (
	"encoding/hex"
)

// Identifier members that carry raw bytes on the wire and must be rendered
// as lowercase hex strings in the canonical tree.
var identifierKeys = []string{"traceId", "spanId", "parentSpanId"}

// Normalize rewrites a generic JSON-like tree into its canonical form:
//   - typed-value wrappers are unwrapped to their payload
//   - attribute lists ([{key, value}, ...]) become flat objects
//   - identifier byte arrays become lowercase hex strings
//
// The transform is pure structural recursion with no external state and is
// idempotent: a tree that is already canonical passes through unchanged.
func Normalize(tree any) any {
	switch node := tree.(type) {
	case map[string]any:
		// A typed-value wrapper replaces the whole node. The replacement is
		// already canonical by construction, so it is not re-scanned.
		if unwrapped, ok := unwrapAnyValue(node); ok {
			return unwrapped
		}

		if attrs, ok := node["attributes"]; ok && isKeyValueArray(attrs) {
			node["attributes"] = flattenAttributes(attrs)
		}

		for _, key := range identifierKeys {
			if raw, ok := node[key]; ok {
				if b, ok := asByteArray(raw); ok {
					node[key] = hex.EncodeToString(b)
				}
			}
		}

		for key, member := range node {
			node[key] = Normalize(member)
		}
		return node

	case []any:
		for i, element := range node {
			node[i] = Normalize(element)
		}
		return node

	default:
		return tree
	}
}

// unwrapAnyValue recognizes a typed-value wrapper (exactly one member whose
// name is one of the typed-value tags) and returns its replacement.
func unwrapAnyValue(node map[string]any) (any, bool) {
	if len(node) != 1 {
		return nil, false
	}
	if v, ok := node["stringValue"]; ok {
		return v, true
	}
	if v, ok := node["boolValue"]; ok {
		return v, true
	}
	if v, ok := node["intValue"]; ok {
		return v, true
	}
	if v, ok := node["doubleValue"]; ok {
		return v, true
	}
	if v, ok := node["bytesValue"]; ok {
		if b, ok := asByteArray(v); ok {
			return hex.EncodeToString(b), true
		}
		return nil, false
	}
	if v, ok := node["arrayValue"]; ok {
		if inner, ok := v.(map[string]any); ok {
			if values, ok := inner["values"]; ok {
				return Normalize(values), true
			}
		}
		return nil, false
	}
	if v, ok := node["kvlistValue"]; ok {
		if inner, ok := v.(map[string]any); ok {
			if values, ok := inner["values"]; ok {
				return flattenAttributes(values), true
			}
		}
		return nil, false
	}
	return nil, false
}

// isKeyValueArray reports whether a value is an OTLP attribute list: an
// array whose first element is an object carrying both "key" and "value".
func isKeyValueArray(v any) bool {
	arr, ok := v.([]any)
	if !ok || len(arr) == 0 {
		return false
	}
	first, ok := arr[0].(map[string]any)
	if !ok {
		return false
	}
	_, hasKey := first["key"]
	_, hasValue := first["value"]
	return hasKey && hasValue
}

// flattenAttributes turns an attribute list into a flat object. Later
// entries overwrite earlier ones on key collision; entries that are not
// {key, value}-shaped are skipped.
func flattenAttributes(v any) map[string]any {
	flat := map[string]any{}
	arr, ok := v.([]any)
	if !ok {
		return flat
	}
	for _, item := range arr {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		key, ok := entry["key"].(string)
		if !ok {
			continue
		}
		value, ok := entry["value"]
		if !ok {
			continue
		}
		flat[key] = Normalize(value)
	}
	return flat
}

// asByteArray tries to interpret a tree value as an array of byte values.
// Non-integer elements are skipped; out-of-range integers wrap.
func asByteArray(v any) ([]byte, bool) {
	arr, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]byte, 0, len(arr))
	for _, element := range arr {
		switch n := element.(type) {
		case int64:
			if n >= 0 {
				out = append(out, byte(n))
			}
		case int:
			if n >= 0 {
				out = append(out, byte(n))
			}
		case uint64:
			out = append(out, byte(n))
		}
	}
	return out, true
}
