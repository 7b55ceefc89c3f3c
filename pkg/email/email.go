// Package email derives presentation values from email addresses.
package email

import (
	"strings"
	"unicode"
)

const fallbackName = "Operator"

// DisplayName turns the local part of an address into a title-cased name:
// "jane.doe@x.org" becomes "Jane Doe". Dots, underscores, dashes and plus
// tags separate words.
func DisplayName(address string) string {
	local, _, _ := strings.Cut(address, "@")
	words := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	if len(words) == 0 {
		return fallbackName
	}

	var b strings.Builder
	for i, w := range words {
		if i > 0 {
			b.WriteByte(' ')
		}
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}
	return b.String()
}
