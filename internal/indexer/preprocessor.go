package indexer

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Preprocess normalizes email text before it is embedded or searched.
// NFKC folds full-width and ligature look-alikes ("Ｐａｙ" becomes "Pay"),
// invisible format characters such as zero-width spaces are dropped, and
// runs of whitespace collapse to a single space.
func Preprocess(text string) string {
	text = norm.NFKC.String(text)
	var b strings.Builder
	b.Grow(len(text))
	pendingSpace := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = b.Len() > 0
		case unicode.Is(unicode.Cf, r):
		default:
			if pendingSpace {
				b.WriteByte(' ')
				pendingSpace = false
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}
