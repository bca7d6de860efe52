package htmlx

import (
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// strict strips all markup. Policies are safe for concurrent use once built.
var strict = bluemonday.StrictPolicy()

// TextPreview renders markup as a single line of plain text, at most limit
// runes long (no limit when limit <= 0). It is used to document fragments
// in completion items.
func TextPreview(markup string, limit int) string {
	text := html.UnescapeString(strict.Sanitize(markup))
	text = strings.Join(strings.Fields(text), " ")
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:limit])) + "..."
}
