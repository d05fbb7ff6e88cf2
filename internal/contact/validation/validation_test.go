package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func consent(v bool) *bool { return &v }

func validInput() Input {
	return Input{
		Name:    "John Doe",
		Email:   "john@example.com",
		Message: "I would like to know more about your services.",
		Consent: consent(true),
	}
}

func TestValidateAcceptsWellFormedInput(t *testing.T) {
	res := Validate(validInput())
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)

	noName := validInput()
	noName.Name = ""
	assert.True(t, Validate(noName).Valid, "name is optional")
}

func TestValidateMissingFields(t *testing.T) {
	res := Validate(Input{})

	require.False(t, res.Valid)
	joined := strings.Join(res.Errors, "; ")
	assert.Contains(t, joined, "email")
	assert.Contains(t, joined, "message")
	assert.Contains(t, joined, "consent")
	assert.ElementsMatch(t, []string{"email", "message", "consent"}, res.Fields())
}

func TestValidateConsent(t *testing.T) {
	in := validInput()
	in.Consent = consent(false)

	res := Validate(in)
	require.False(t, res.Valid)
	assert.Equal(t, []string{"GDPR consent is required"}, res.Errors)
	assert.True(t, res.OnlyConsent())
}

func TestValidateLengthBounds(t *testing.T) {
	in := validInput()
	in.Name = strings.Repeat("n", MaxNameLength+1)
	in.Message = strings.Repeat("m", MaxMessageLength+1)

	res := Validate(in)
	require.False(t, res.Valid)
	assert.Contains(t, res.Errors, "name must be at most 100 characters")
	assert.Contains(t, res.Errors, "message must be at most 5000 characters")

	in = validInput()
	in.Name = strings.Repeat("n", MaxNameLength)
	in.Message = strings.Repeat("m", MaxMessageLength)
	assert.True(t, Validate(in).Valid, "limits are inclusive")

	in = validInput()
	in.Email = strings.Repeat("a", 250) + "@example.com"
	assert.Contains(t, Validate(in).Errors, "email must be at most 255 characters")
}

func TestValidateEmailFormat(t *testing.T) {
	for _, email := range []string{"invalid-email", "a@b", "a b@c.com", "@example.com"} {
		in := validInput()
		in.Email = email
		res := Validate(in)
		assert.False(t, res.Valid, email)
		assert.Contains(t, res.Errors, "Invalid email format", email)
	}
}

func TestValidateSuspiciousContent(t *testing.T) {
	payloads := []string{
		`<script>alert("xss")</script>`,
		"javascript:alert(1)",
		"<img src=x onerror=alert(1)>",
		"<svg onload=alert(1)>",
		"see xjavascript:alert(1)",
		"img_onerror=alert(1)",
		"1data:text/html,x",
		"'; DROP TABLE users; --",
		"1' OR '1'='1",
		"admin'/**/AND/**/1=1#",
		"' UNION SELECT * FROM users --",
		"hello | cat /etc/passwd",
		"x && rm -rf /",
		"`whoami`",
	}
	for _, p := range payloads {
		in := validInput()
		in.Name = p
		res := Validate(in)
		assert.False(t, res.Valid, p)
		assert.Contains(t, res.Errors, "Suspicious content detected in name", p)
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	res := Validate(Input{
		Name:    "<script>x</script>",
		Email:   "not-an-email",
		Message: "javascript:alert(1)",
	})

	assert.Contains(t, res.Errors, "Invalid email format")
	assert.Contains(t, res.Errors, "Suspicious content detected in name")
	assert.Contains(t, res.Errors, "Suspicious content detected in message")
	assert.Contains(t, res.Errors, "GDPR consent is required")
	assert.False(t, res.OnlyConsent())
}

func TestSuspiciousAllowsOrdinaryText(t *testing.T) {
	for _, s := range []string{
		"Hi, I'd like a quote for 20 units.",
		"Tom & Jerry Ltd.",
		"Call me at +1 (555) 010-9999",
		"Our donation is 50 EUR",
	} {
		assert.False(t, Suspicious(s), s)
	}
}

func TestCSRFToken(t *testing.T) {
	assert.True(t, CSRFToken(strings.Repeat("a1", 16)))
	assert.True(t, CSRFToken(strings.Repeat("Z", 16)))
	assert.True(t, CSRFToken(strings.Repeat("9", 64)))

	assert.False(t, CSRFToken(""))
	assert.False(t, CSRFToken(strings.Repeat("a", 15)))
	assert.False(t, CSRFToken(strings.Repeat("a", 65)))
	assert.False(t, CSRFToken(strings.Repeat("a", 31)+"-"))
}

func TestEmail(t *testing.T) {
	assert.True(t, Email(" john@example.com "))
	assert.False(t, Email(""))
	assert.False(t, Email("john"))
}
