// Package email formats sender addresses for notification text.
package email

import (
	"strings"
	"unicode"
)

const fallbackName = "Website Visitor"

// NameFromAddress guesses a readable name from the local part of an address:
// "ada.lovelace+web@example.com" gives "Ada Lovelace". Tags after '+' are
// dropped and at most the first and last word are kept.
func NameFromAddress(address string) string {
	local, _, _ := strings.Cut(address, "@")
	local, _, _ = strings.Cut(local, "+")

	words := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || unicode.IsDigit(r)
	})
	switch len(words) {
	case 0:
		return fallbackName
	case 1:
		return title(words[0])
	default:
		return title(words[0]) + " " + title(words[len(words)-1])
	}
}

// DisplayName prefers the name the sender typed.
func DisplayName(name, address string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return NameFromAddress(address)
}

func title(word string) string {
	r := []rune(strings.ToLower(word))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
