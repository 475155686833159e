// Package section finds the page range of a subject section in an exam paper.
package section

import (
	"regexp"
	"strings"

	"github.com/hyperjump/examforge/internal/config"
)

// Bounds is an inclusive-exclusive page range. Found is false when no start pattern
// matched and the range fell back to the beginning of the document.
type Bounds struct {
	Start int  `json:"start_page"`
	End   int  `json:"end_page"`
	Found bool `json:"found"`
}

// Len returns the number of pages in the range.
func (b Bounds) Len() int { return b.End - b.Start }

// Locator detects section boundaries with ordered pattern sets.
type Locator struct {
	start []*regexp.Regexp
	end   []*regexp.Regexp
}

// NewLocator returns a locator using the section patterns of p.
func NewLocator(p *config.Patterns) *Locator {
	return &Locator{start: p.SectionStart, end: p.SectionEnd}
}

// Locate returns the bounds of the section within pages. The first page matching any
// start pattern opens the section, or page 0 if none does. The first later page
// matching any end pattern closes it, or the section runs to the last page.
func (l *Locator) Locate(pages []string) Bounds {
	b := Bounds{End: len(pages)}
	for i, text := range pages {
		if config.MatchAny(l.start, text) {
			b.Start = i
			b.Found = true
			break
		}
	}
	for i := b.Start + 1; i < len(pages); i++ {
		if config.MatchAny(l.end, pages[i]) {
			b.End = i
			break
		}
	}
	return b
}

// Text joins the pages inside b with newlines.
func Text(pages []string, b Bounds) string {
	if b.Start >= b.End || b.Start < 0 || b.End > len(pages) {
		return ""
	}
	return strings.Join(pages[b.Start:b.End], "\n")
}
