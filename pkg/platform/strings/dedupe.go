// Package strings provides string slice helpers.
package strings

import (
	"strings"
)

// DedupeAndTrim trims each element and drops empty strings and duplicates.
// Order is preserved.
func DedupeAndTrim(values []string) []string {
	return dedupe(values, strings.TrimSpace)
}

// DedupeAndTrimLower is like DedupeAndTrim but also lowercases each element.
func DedupeAndTrimLower(values []string) []string {
	return dedupe(values, func(v string) string {
		return strings.ToLower(strings.TrimSpace(v))
	})
}

func dedupe(values []string, normalize func(string) string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		n := normalize(v)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			result = append(result, n)
		}
	}
	return result
}
