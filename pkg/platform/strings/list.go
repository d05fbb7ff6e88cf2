// Package strings holds list helpers for configuration values.
package strings

import (
	"strings"
)

// SplitList splits a separated value such as "a, b,,a" into its trimmed,
// non-empty parts with duplicates removed. Order is preserved.
func SplitList(value, sep string) []string {
	return Dedupe(strings.Split(value, sep))
}

// Dedupe trims every element and drops blanks and repeats.
func Dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
