package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// maxPDFPages bounds the pages read from a PDF; phishing lures rarely run
// past the first few.
const maxPDFPages = 50

// extractPDF returns the plain text of a PDF, one paragraph per page.
// Pages that fail to decode are skipped; an error is returned only when the
// document cannot be opened or no page yields text.
func extractPDF(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}
	n := r.NumPage()
	if n > maxPDFPages {
		n = maxPDFPages
	}
	var pages []string
	var firstErr error
	for i := 1; i <= n; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("page %d: %w", i, err)
			}
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) == 0 && firstErr != nil {
		return "", fmt.Errorf("extract PDF: %w", firstErr)
	}
	return strings.Join(pages, "\n\n"), nil
}
