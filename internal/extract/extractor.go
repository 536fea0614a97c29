// Package extract provides text extraction from uploaded document formats.
package extract

import (
	"fmt"
	"strings"
)

// Extractor extracts plain text from document bytes.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the text content of a document. ext selects the format and
// should include the leading dot (e.g. ".pdf"). Unknown extensions are treated
// as plain text so that arbitrary study notes remain indexable.
func (e *Extractor) Extract(content []byte, ext string) (string, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".odt", ".rtf":
		return extractWithCat(content)
	case ".xlsx":
		return extractExcel(content)
	case ".pptx":
		return extractPPTX(content)
	case ".txt", ".md", ".rst", "":
		return extractPlain(content)
	default:
		return extractPlain(content)
	}
}

// Supported reports whether ext is a format with a dedicated extractor.
func (e *Extractor) Supported(ext string) bool {
	switch strings.ToLower(ext) {
	case ".pdf", ".docx", ".odt", ".rtf", ".xlsx", ".pptx", ".txt", ".md", ".rst":
		return true
	}
	return false
}

func wrapExtract(format string, err error) error {
	return fmt.Errorf("extract %s: %w", format, err)
}
