// Package strings holds helpers for list-valued settings such as
// comma-separated environment variables.
package strings

import (
	"strings"
)

// DedupeAndTrim trims each value and drops blanks and repeats, keeping the
// first occurrence of each.
func DedupeAndTrim(values []string) []string {
	return DedupeAndTrimFunc(values, nil)
}

// DedupeAndTrimFunc is DedupeAndTrim with a normalization applied after
// trimming. Values that normalize to the same string are repeats.
func DedupeAndTrimFunc(values []string, normalize func(string) string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if normalize != nil {
			v = normalize(v)
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
