package extract

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

type pdfSource struct {
	r *pdf.Reader
}

func newPDFSource(content []byte) (*pdfSource, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	return &pdfSource{r: r}, nil
}

func (s *pdfSource) PageCount() int {
	return s.r.NumPage()
}

// PageText extracts page i (0-based). Pages without content yield "".
func (s *pdfSource) PageText(i int) (string, error) {
	if i < 0 || i >= s.r.NumPage() {
		return "", fmt.Errorf("page %d out of range [0,%d)", i, s.r.NumPage())
	}
	page := s.r.Page(i + 1)
	if page.V.IsNull() {
		return "", nil
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("extract page %d: %w", i+1, err)
	}
	return text, nil
}
