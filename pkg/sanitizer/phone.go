package sanitizer

import (
	"strings"
	"unicode"
)

// DigitsOnly drops every rune that is not an ASCII digit.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < unicode.MaxASCII && unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizePhone strips every non-digit from a phone number. Country codes
// and trunk zeros are kept, so only a bare ten digit number validates.
func NormalizePhone(phone string) string {
	return DigitsOnly(phone)
}
