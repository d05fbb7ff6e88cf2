package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "empty", input: "", expected: []string{}},
		{name: "single", input: "localhost:9092", expected: []string{"localhost:9092"}},
		{name: "trims and drops blanks", input: " a , ,b,", expected: []string{"a", "b"}},
		{name: "keeps first occurrence", input: "b,a,b,a", expected: []string{"b", "a"}},
		{name: "case sensitive", input: "http://A,http://a", expected: []string{"http://A", "http://a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitList(tt.input, ","))
		})
	}
}
