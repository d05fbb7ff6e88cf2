package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain text trimmed", "  Hello there  ", "Hello there"},
		{"script block with content", `Hi<script>alert("x")</script> there`, "Hi there"},
		{"script block across lines", "a<SCRIPT type=\"text/javascript\">\nsteal()\n</script >b", "ab"},
		{"javascript scheme", "click javascript:alert(1)", "click alert(1)"},
		{"vbscript and data schemes", "VBScript:msgbox data:text/html,x", "msgbox text/html,x"},
		{"event handler", `<img src=x onerror=alert(1)>ok`, "ok"},
		{"scheme glued to a word", "see xjavascript:alert(1)", "see xalert(1)"},
		{"handler glued to a word", "img_onerror=alert(1)", "img_alert(1)"},
		{"scheme after a digit", "1data:text/html,x", "1text/html,x"},
		{"scheme rebuilt by removal", "javajavascript:script:x", "x"},
		{"formatting tags", "<b>bold</b> and <i>italic</i>", "bold and italic"},
		{"escapes residue", `Tom & Jerry say "hi" 'there'`, "Tom &amp; Jerry say &#34;hi&#34; &#39;there&#39;"},
		{"lone angle bracket", "a < b", "a &lt; b"},
		{"entity encoded script", "&lt;script&gt;alert(1)&lt;/script&gt;done", "done"},
		{"double encoded tag", "&amp;lt;b&amp;gt;x", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.input))
		})
	}
}

func TestTextRemovesDangerousPatterns(t *testing.T) {
	inputs := []string{
		"<script>alert(1)</script>",
		"<a href='javascript:void(0)'>x</a>",
		"<div onclick = 'x()'>y</div>",
		"<scr<script>ipt>alert(1)</script>",
		"java<b></b>script:alert(1)",
		"<<script>script>alert(1)<</script>/script>",
		"see xjavascript:alert(1)",
		"img_onerror=alert(1)",
		"1data:text/html,x",
		"javajavascript:script:x",
		"xonclick=steal()",
	}
	for _, in := range inputs {
		out := Text(in)
		lower := strings.ToLower(out)
		assert.NotContains(t, lower, "<script", in)
		assert.NotContains(t, lower, "javascript:", in)
		assert.NotContains(t, lower, "data:", in)
		assert.NotRegexp(t, `(?i)on\w+\s*=`, out, in)
		assert.NotContains(t, out, "<", in)
		assert.NotContains(t, out, ">", in)
	}
}

func TestTextIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"Hello, I'd like a quote for 3 < 5 widgets & more",
		`<p onmouseover="x">Hi</p> &amp; bye`,
		"&amp;amp;amp;lt;script&amp;amp;amp;gt;",
		strings.Repeat("&amp;", 40) + "lt;b>",
	}
	for _, in := range inputs {
		once := Text(in)
		assert.Equal(t, once, Text(once), in)
	}
}

func TestContainsThreat(t *testing.T) {
	assert.True(t, ContainsThreat("<script>x</script>"))
	assert.True(t, ContainsThreat("< script src=//evil>"))
	assert.True(t, ContainsThreat("JavaScript:alert(1)"))
	assert.True(t, ContainsThreat("<body onload=x()>"))
	assert.True(t, ContainsThreat("&lt;script&gt;"))
	assert.True(t, ContainsThreat("xjavascript:alert(1)"))
	assert.True(t, ContainsThreat("img_onerror=alert(1)"))

	assert.False(t, ContainsThreat("Looking forward to hearing from you"))
	assert.False(t, ContainsThreat("<b>bold</b>"))
	assert.False(t, ContainsThreat("Donations of 50 EUR welcome"))
}
