package extract

import (
	"fmt"

	"github.com/lu4p/cat"
)

// openOffice extracts ODT and RTF documents. They carry no reliable page markers, so
// the text is split on form feeds like plain text.
func openOffice(path string) (Pages, error) {
	text, err := cat.File(path)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", path, err)
	}
	return splitPages(text), nil
}
