// Package sanitize strips markup and script vectors from free-text contact
// fields before they are stored.
package sanitize

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	scriptBlock = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	scriptOpen  = regexp.MustCompile(`(?i)<\s*script\b`)
	protocols   = regexp.MustCompile(`(?i)(?:javascript|vbscript|data)\s*:`)
	handlers    = regexp.MustCompile(`(?i)on\w+\s*=`)
	tags        = regexp.MustCompile(`(?s)<[^>]*>`)

	strict = bluemonday.StrictPolicy()

	markupChars = strings.NewReplacer("<", "", ">", "", "&", "")
)

// maxPasses bounds the strip loop for deeply nested entity encodings.
// Past it, markup characters are dropped outright.
const maxPasses = 16

// Text returns s with script blocks, script-capable URI schemes, inline
// event handlers and all tag markup removed, HTML-escaped and trimmed.
//
// Stripping runs on entity-decoded text until nothing changes, and escaping
// happens once at the end, so Text(Text(s)) == Text(s).
func Text(s string) string {
	if s == "" {
		return ""
	}
	s = html.UnescapeString(s)
	for i := 0; ; i++ {
		if i == maxPasses {
			s = markupChars.Replace(s)
		}
		next := pass(s)
		if next == s {
			break
		}
		s = next
	}
	return html.EscapeString(s)
}

func pass(s string) string {
	s = scriptBlock.ReplaceAllString(s, "")
	s = protocols.ReplaceAllString(s, "")
	s = handlers.ReplaceAllString(s, "")
	s = tags.ReplaceAllString(s, "")
	s = strict.Sanitize(s)
	s = html.UnescapeString(s)
	return strings.TrimSpace(s)
}

// ContainsThreat reports whether s carries any of the patterns Text removes
// as script vectors: script elements, script-capable URI schemes or inline
// event handlers. Plain formatting tags are not threats.
func ContainsThreat(s string) bool {
	decoded := html.UnescapeString(s)
	for _, candidate := range []string{s, decoded} {
		if scriptOpen.MatchString(candidate) ||
			protocols.MatchString(candidate) ||
			handlers.MatchString(candidate) {
			return true
		}
	}
	return false
}
