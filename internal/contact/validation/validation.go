// Package validation checks contact form input. Every rule runs on every
// call, so a single response can report all problems at once.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"corpsite/internal/contact/sanitize"
)

const (
	MaxNameLength    = 100
	MaxEmailLength   = 255
	MaxMessageLength = 5000
)

// Reasons recorded on an Issue. They end up in audit payloads, so they name
// the rule and never echo the offending value.
const (
	ReasonRequired   = "required"
	ReasonTooLong    = "too_long"
	ReasonFormat     = "format"
	ReasonSuspicious = "suspicious"
	ReasonConsent    = "consent_missing"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	csrfPattern  = regexp.MustCompile(`^[A-Za-z0-9]{16,64}$`)

	injectionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)'\s*(?:or|and)\b\s*'?\w+'?\s*=`), // ' OR '1'='1
		regexp.MustCompile(`(?i)\bunion\b\s+(?:all\s+)?select\b`),
		regexp.MustCompile(`--|/\*|\*/`),
		regexp.MustCompile("[;|`]|&&"),
	}
)

// Input is the trimmed, not yet sanitized form.
type Input struct {
	Name    string
	Email   string
	Message string
	Consent *bool
}

type Issue struct {
	Field   string `json:"field"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type Result struct {
	Valid  bool
	Errors []string
	Issues []Issue
}

// Fields lists the distinct fields with issues, in first-seen order.
func (r Result) Fields() []string {
	var out []string
	seen := map[string]bool{}
	for _, issue := range r.Issues {
		if !seen[issue.Field] {
			seen[issue.Field] = true
			out = append(out, issue.Field)
		}
	}
	return out
}

// OnlyConsent reports whether consent is the sole problem.
func (r Result) OnlyConsent() bool {
	for _, issue := range r.Issues {
		if issue.Reason != ReasonConsent {
			return false
		}
	}
	return len(r.Issues) > 0
}

type validator struct {
	issues []Issue
}

func (v *validator) add(field, reason, message string) {
	v.issues = append(v.issues, Issue{Field: field, Reason: reason, Message: message})
}

func (v *validator) maxLength(field, value string, limit int) {
	if utf8.RuneCountInString(value) > limit {
		v.add(field, ReasonTooLong, fmt.Sprintf("%s must be at most %d characters", field, limit))
	}
}

func (v *validator) suspicious(field, value string) {
	if value == "" {
		return
	}
	if Suspicious(value) {
		v.add(field, ReasonSuspicious, "Suspicious content detected in "+field)
	}
}

// Validate runs every rule against in.
func Validate(in Input) Result {
	v := &validator{}

	if in.Email == "" {
		v.add("email", ReasonRequired, "email is required")
	}
	if in.Message == "" {
		v.add("message", ReasonRequired, "message is required")
	}

	v.maxLength("name", in.Name, MaxNameLength)
	v.maxLength("email", in.Email, MaxEmailLength)
	v.maxLength("message", in.Message, MaxMessageLength)

	if in.Email != "" && !emailPattern.MatchString(in.Email) {
		v.add("email", ReasonFormat, "Invalid email format")
	}

	v.suspicious("name", in.Name)
	v.suspicious("email", in.Email)
	v.suspicious("message", in.Message)

	if in.Consent == nil || !*in.Consent {
		v.add("consent", ReasonConsent, "GDPR consent is required")
	}

	res := Result{Valid: len(v.issues) == 0, Issues: v.issues}
	for _, issue := range v.issues {
		res.Errors = append(res.Errors, issue.Message)
	}
	return res
}

// Suspicious reports script vectors, SQL injection tokens or shell
// metacharacters in a free-text value.
func Suspicious(value string) bool {
	if sanitize.ContainsThreat(value) {
		return true
	}
	for _, p := range injectionPatterns {
		if p.MatchString(value) {
			return true
		}
	}
	return false
}

// Email reports whether s is a plausible, bounded address.
func Email(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && utf8.RuneCountInString(s) <= MaxEmailLength && emailPattern.MatchString(s)
}

// CSRFToken checks the token shape only: 16 to 64 ASCII letters or digits.
// It does not bind the token to a session.
func CSRFToken(token string) bool {
	return csrfPattern.MatchString(token)
}
