// Package extract reads the text of an email to analyze from the formats people
// save messages in.
package extract

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// MaxFileSize bounds how much of a file is read.
const MaxFileSize = 10 << 20

// ErrTooLarge is returned for files over MaxFileSize.
var ErrTooLarge = errors.New("file too large")

// Extractor extracts plain text from email files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its text content.
// .eml messages yield "Subject" plus the readable body; PDF and DOCX are
// converted to text; HTML is stripped of markup; anything else is read as UTF-8 text.
func (e *Extractor) Extract(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	defer f.Close()
	content, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	if len(content) > MaxFileSize {
		return "", fmt.Errorf("%s: %w", path, ErrTooLarge)
	}
	return e.ExtractBytes(content, strings.ToLower(filepath.Ext(path)))
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".eml").
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch ext {
	case ".eml":
		return extractEML(content)
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".html", ".htm":
		plain, err := extractPlain(content)
		if err != nil {
			return "", err
		}
		return stripHTML(plain), nil
	default:
		return extractPlain(content)
	}
}
