package notification

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// Sanitize reduces s to plain text: markup and script bodies are dropped,
// entities decoded and control characters removed. The result is escaped
// again by html/template at render time.
func Sanitize(s string) string {
	clean := html.UnescapeString(strictPolicy.Sanitize(s))
	clean = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, clean)
	return strings.TrimSpace(clean)
}
