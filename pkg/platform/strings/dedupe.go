// Package strings provides string slice helpers for request normalization.
package strings

import "strings"

// DedupeAndTrim trims every element and drops blanks and repeats, keeping the
// first occurrence order.
//
//	DedupeAndTrim([]string{" registrations:read ", "", "registrations:read"})
//	// []string{"registrations:read"}
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}

// TrimLower trims and lowercases a username-like key.
func TrimLower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
