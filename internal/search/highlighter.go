package search

import (
	"strings"

	"github.com/hyperjump/phishrag/internal/embedding"
	"github.com/hyperjump/phishrag/pkg/utils"
)

// Snippet shortens example text for display. When one of the query terms
// occurs past the first maxLen runes, the window starts a little before it
// so the shared wording stays visible.
func Snippet(content, query string, maxLen int) string {
	if maxLen <= 0 || len([]rune(content)) <= maxLen {
		return content
	}
	lower := strings.ToLower(content)
	start := -1
	for _, term := range embedding.Terms(query) {
		if len(term) < 3 {
			continue
		}
		if i := strings.Index(lower, term); i >= 0 && (start < 0 || i < start) {
			start = i
		}
	}
	// ToLower can change byte lengths outside ASCII; fall back rather than mis-slice.
	if start < 0 || len(lower) != len(content) || len([]rune(content[:start])) < maxLen/2 {
		return utils.Truncate(content, maxLen)
	}
	// Back up a quarter window and then to a word boundary.
	from := len([]rune(content[:start])) - maxLen/4
	runes := []rune(content)
	for from > 0 && runes[from-1] != ' ' {
		from--
	}
	return "..." + utils.Truncate(string(runes[from:]), maxLen)
}
