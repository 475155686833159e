package extract

import (
	"strings"
	"unicode/utf8"
)

// formFeed separates pages in text exports such as pdftotext output.
const formFeed = "\f"

// plainPages validates content as UTF-8 and splits it into pages on form feeds.
// Invalid UTF-8 sequences are replaced with the replacement character.
func plainPages(content []byte) Pages {
	text := string(content)
	if !utf8.Valid(content) {
		text = strings.ToValidUTF8(text, "\ufffd")
	}
	return splitPages(text)
}

func splitPages(text string) Pages {
	pages := strings.Split(text, formFeed)
	// A trailing form feed ends the last page rather than starting an empty one.
	if len(pages) > 1 && strings.TrimSpace(pages[len(pages)-1]) == "" {
		pages = pages[:len(pages)-1]
	}
	return Pages(pages)
}
