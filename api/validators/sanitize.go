package validators

import (
	"strings"
	"unicode"
)

// SanitizeToken trims input, drops non-printable runes and caps the byte length.
func SanitizeToken(input string, maxLen int) string {
	cleaned := strings.Map(func(r rune) rune {
		if !unicode.IsPrint(r) {
			return -1
		}
		return r
	}, strings.TrimSpace(input))
	if maxLen > 0 && len(cleaned) > maxLen {
		return cleaned[:maxLen]
	}
	return cleaned
}
