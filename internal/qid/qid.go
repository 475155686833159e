// Package qid builds the deterministic identifiers of structured questions.
package qid

import (
	"fmt"
	"regexp"
	"strings"
)

var idPattern = regexp.MustCompile(`^[a-z]+_\d{4}_[a-z]{3}_\d{3,}$`)

// Builder derives ids of the form <exam>_<year>_<subject>_<nnn>, e.g. "neet_2024_phy_007".
// Same inputs always yield the same id, so ids double as dedup and resume keys.
type Builder struct {
	prefix string
}

// NewBuilder returns a builder for one paper.
func NewBuilder(examType string, year int, subjectCode string) Builder {
	return Builder{prefix: fmt.Sprintf("%s_%04d_%s", strings.ToLower(examType), year, strings.ToLower(subjectCode))}
}

// ID returns the id of question number n.
func (b Builder) ID(n int) string {
	return fmt.Sprintf("%s_%03d", b.prefix, n)
}

// Valid reports whether id has the expected shape.
func Valid(id string) bool {
	return idPattern.MatchString(id)
}
