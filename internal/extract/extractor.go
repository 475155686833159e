// Package extract provides page-level text extraction from exam documents.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PageSource yields the raw text of a paginated document.
type PageSource interface {
	PageCount() int
	PageText(i int) (string, error)
}

// Pages is an in-memory PageSource.
type Pages []string

// PageCount returns the number of pages.
func (p Pages) PageCount() int { return len(p) }

// PageText returns the text of page i (0-based).
func (p Pages) PageText(i int) (string, error) {
	if i < 0 || i >= len(p) {
		return "", fmt.Errorf("page %d out of range [0,%d)", i, len(p))
	}
	return p[i], nil
}

// Open reads the file at path and returns a page source for it.
// PDF pages are read lazily from the parsed document. DOCX is split on explicit page
// breaks; ODT, RTF and plain text are split on form feeds.
func Open(path string) (PageSource, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".odt" || ext == ".rtf" {
		return openOffice(path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return FromBytes(content, ext)
}

// FromBytes returns a page source for content based on the given extension.
// ext should include the leading dot (e.g. ".pdf"). Unknown extensions are treated as plain text.
func FromBytes(content []byte, ext string) (PageSource, error) {
	switch ext {
	case ".pdf":
		return newPDFSource(content)
	case ".docx":
		return docxPages(content)
	default:
		return plainPages(content), nil
	}
}

// ReadAll returns the text of every page in order.
func ReadAll(src PageSource) ([]string, error) {
	pages := make([]string, src.PageCount())
	for i := range pages {
		text, err := src.PageText(i)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i+1, err)
		}
		pages[i] = text
	}
	return pages, nil
}
