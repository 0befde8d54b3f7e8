package extract

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

// extractPlain returns content as string, validating it is valid UTF-8.
// Invalid UTF-8 sequences are replaced with the replacement character.
func extractPlain(content []byte) (string, error) {
	if !utf8.Valid(content) {
		content = []byte(strings.ToValidUTF8(string(content), "\ufffd"))
	}
	return string(content), nil
}

var (
	scriptStyleRe = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	breakTagRe    = regexp.MustCompile(`(?i)<(br|/p|/div|/tr|/li|/h[1-6])[^>]*>`)
	tagRe         = regexp.MustCompile(`<[^>]*>`)
	blankLinesRe  = regexp.MustCompile(`\n\s*\n+`)
)

// stripHTML reduces an HTML body to readable text. Link targets are kept
// because suspicious URLs are what the analysis looks for.
func stripHTML(s string) string {
	s = scriptStyleRe.ReplaceAllString(s, "")
	s = hrefRe.ReplaceAllString(s, "$2 ($1)")
	s = breakTagRe.ReplaceAllString(s, "\n")
	s = tagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = blankLinesRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// hrefRe rewrites <a href="url">text</a> as "text (url)" before tags are dropped.
var hrefRe = regexp.MustCompile(`(?is)<a\s[^>]*href\s*=\s*["']([^"']*)["'][^>]*>(.*?)</a>`)
