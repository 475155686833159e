package parser

import (
	"regexp"
	"strings"
)

var normalizer = strings.NewReplacer(
	"\r\n", "\n",
	"\r", "\n",
	"\ufb01", "fi",
	"\ufb02", "fl",
	"\uff08", "(",
	"\uff09", ")",
	"\u00a0", " ",
)

var horizontalSpace = regexp.MustCompile(`[ \t]+`)

// Normalize repairs common PDF extraction artifacts: CRLF line endings, ligatures,
// fullwidth parentheses and runs of horizontal whitespace. Line breaks are kept.
func Normalize(text string) string {
	return horizontalSpace.ReplaceAllString(normalizer.Replace(text), " ")
}
