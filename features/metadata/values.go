package metadata

import (
	"regexp"
	"strconv"
	"strings"
)

// Tolerant value plumbing over decoded JSON (map[string]any) records.
// Generator metadata is loosely typed: numbers arrive as float64, numeric
// strings, or garbage; every accessor here degrades to "absent" instead of
// failing.

// The JavaScript default object stringification; some generators leak it into
// string fields. Never a valid model / lora name.
const objectSentinel = "[object Object]"

var hexKeyRe = regexp.MustCompile(`^[0-9a-fA-F-]{16,}$`)

// asString returns v as a trimmed string, or "" for non-string values.
func asString(v any) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// asFloat returns v as a number. Numeric strings are parsed.
// Node-reference arrays ([nodeId, slot]) and other shapes yield false.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func asInt(v any) (int, bool) {
	if f, ok := asFloat(v); ok {
		return int(f), true
	}
	return 0, false
}

func asInt64(v any) (int64, bool) {
	if f, ok := asFloat(v); ok {
		return int64(f), true
	}
	return 0, false
}

// isNodeRef reports whether v is a ComfyUI node-reference array [nodeId, slot].
// References are recognized and skipped; no indirection resolution is performed.
func isNodeRef(v any) bool {
	arr, ok := v.([]any)
	return ok && len(arr) == 2
}

// asMap returns v as a JSON object, or nil.
func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// asSlice returns v as a JSON array, or nil.
func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

// mapString returns the first non-empty string value of keys in m.
func mapString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := asString(m[key]); s != "" {
			return s
		}
	}
	return ""
}

// mapFloat returns the first numeric value of keys in m.
func mapFloat(m map[string]any, keys ...string) (float64, bool) {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			if f, ok := asFloat(v); ok {
				return f, true
			}
		}
	}
	return 0, false
}

// readableModelName converts a free-form model / lora value to a display name.
// Strings are used as is (trimmed). Objects are probed for common name fields;
// when only a hash-like key is available it is truncated to an 8-char prefix
// with an ellipsis, prefixed with the mechanism / type label when present.
func readableModelName(v any) string {
	if s := asString(v); s != "" {
		return s
	}
	m := asMap(v)
	if m == nil {
		return ""
	}
	if name := mapString(m, "name", "model", "model_name", "base_model"); name != "" {
		return name
	}
	if key := mapString(m, "key", "hash"); key != "" {
		if hexKeyRe.MatchString(key) && len(key) > 8 {
			key = key[:8] + "…"
		}
		if label := mapString(m, "mechanism", "type"); label != "" {
			return label + ":" + key
		}
		return key
	}
	return ""
}

// appendName appends a readable name to list, skipping empties, the
// stringified-object sentinel and (case-sensitive) duplicates.
func appendName(list []string, name string) []string {
	name = strings.TrimSpace(name)
	if name == "" || name == objectSentinel {
		return list
	}
	for _, existing := range list {
		if existing == name {
			return list
		}
	}
	return append(list, name)
}
