package config

import (
	"fmt"
	"regexp"
)

// Patterns is the compiled, read-only form of PatternConfig. Components receive it at
// construction and never modify it.
type Patterns struct {
	SectionStart []*regexp.Regexp
	SectionEnd   []*regexp.Regexp
	Invalid      []*regexp.Regexp
	Placeholders []*regexp.Regexp
}

// Compile compiles every pattern case-insensitively.
func (p PatternConfig) Compile() (*Patterns, error) {
	var out Patterns
	var err error
	if out.SectionStart, err = compileAll("section_start", p.SectionStart); err != nil {
		return nil, err
	}
	if out.SectionEnd, err = compileAll("section_end", p.SectionEnd); err != nil {
		return nil, err
	}
	if out.Invalid, err = compileAll("invalid", p.Invalid); err != nil {
		return nil, err
	}
	if out.Placeholders, err = compileAll("placeholders", p.Placeholders); err != nil {
		return nil, err
	}
	return &out, nil
}

// MustCompileDefaults compiles the built-in pattern sets. It panics only if a default is malformed.
func MustCompileDefaults() *Patterns {
	p, err := PatternConfig{
		SectionStart: DefaultSectionStart,
		SectionEnd:   DefaultSectionEnd,
		Invalid:      DefaultInvalid,
		Placeholders: DefaultPlaceholders,
	}.Compile()
	if err != nil {
		panic(err)
	}
	return p
}

func compileAll(name string, exprs []string) ([]*regexp.Regexp, error) {
	res := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		re, err := regexp.Compile("(?i)" + expr)
		if err != nil {
			return nil, fmt.Errorf("compile %s pattern %q: %w", name, expr, err)
		}
		res = append(res, re)
	}
	return res, nil
}

// MatchAny reports whether any pattern matches s.
func MatchAny(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
