package models

import "strings"

// KeyPrefix namespaces bucket keys so several limiters can share one store.
type KeyPrefix string

const (
	KeyPrefixSubmission KeyPrefix = "contact"
)

// SanitizeKeySegment escapes delimiter characters in rate limit key segments
// to prevent key collision attacks where identifiers containing ':' could
// address adjacent buckets.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// Key builds "<prefix>:<identifier>".
func Key(prefix KeyPrefix, identifier string) string {
	return string(prefix) + ":" + SanitizeKeySegment(identifier)
}
