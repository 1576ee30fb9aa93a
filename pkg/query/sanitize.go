package query

import "strings"

// stripped holds quotes, the backslash, and the operator characters the
// search engine would otherwise interpret.
const stripped = `'"\!<>=/`

// Sanitize removes quote, backslash and operator characters from s and trims
// surrounding whitespace. It never fails and is idempotent.
func Sanitize(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		if strings.ContainsRune(stripped, r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(cleaned)
}
