package cache

import (
	"fmt"
	"sort"
	"strings"
)

// Cache scopes. Each scope carries its own TTL.
const (
	ScopeHome     = "home"
	ScopeForecast = "forecast"
	ScopeMarine   = "marine"
	ScopeInsights = "insights"
	ScopeBundle   = "bundle"
	ScopePreset   = "preset"
)

// schemaVersion is appended to every key so a payload-shape change never
// reads an entry written by an older build.
const schemaVersion = "v1"

// BuildKey derives the cache key for a request: scope, tenant token, then
// every named parameter. The result is deterministic for logically equal
// requests: parameter names are sorted, multi-valued parameters are sorted
// before joining, and every segment is normalized. Cache hit-rate depends
// on permuted inputs producing byte-identical keys.
func BuildKey(scope, tenant string, params map[string]any) string {
	parts := []string{normalize(scope), normalize(tenant)}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		parts = append(parts, normalize(name)+"="+formatValue(params[name]))
	}

	parts = append(parts, schemaVersion)
	return strings.Join(parts, ":")
}

func formatValue(v any) string {
	switch val := v.(type) {
	case []string:
		vals := make([]string, len(val))
		for i, s := range val {
			vals[i] = normalize(s)
		}
		sort.Strings(vals)
		return strings.Join(vals, ",")
	case string:
		return normalize(val)
	default:
		return normalize(fmt.Sprint(val))
	}
}

// normalize lowercases a segment and collapses whitespace runs to hyphens.
func normalize(s string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(s)))
	return strings.Join(fields, "-")
}
