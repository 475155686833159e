// Package jsonx extracts a JSON object from free-form model output.
package jsonx

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoJSON is returned when no strategy yields a well-formed object.
	ErrNoJSON = errors.New("no JSON object found in response")
	// ErrShape is returned when a well-formed object was found but does not fit v.
	ErrShape = errors.New("JSON object does not match the expected shape")
)

// Strategy tries to locate a JSON object in text.
type Strategy struct {
	Name    string
	Extract func(text string) (string, error)
}

// DefaultStrategies tries the outermost braces first, then fenced code blocks.
var DefaultStrategies = []Strategy{
	{Name: "braces", Extract: outerBraces},
	{Name: "fenced", Extract: fencedBlock},
}

// Decode runs the default strategies in order and unmarshals the first candidate that
// parses into v.
func Decode(text string, v any) error {
	return DecodeWith(DefaultStrategies, text, v)
}

// DecodeWith runs strategies in order. The returned error lists why each strategy
// failed and wraps ErrShape when some candidate was well-formed, ErrNoJSON otherwise.
func DecodeWith(strategies []Strategy, text string, v any) error {
	var failures []string
	wellFormed := false
	for _, s := range strategies {
		candidate, err := s.Extract(text)
		if err == nil {
			if err = json.Unmarshal([]byte(candidate), v); err == nil {
				return nil
			}
			if json.Valid([]byte(candidate)) {
				wellFormed = true
			}
		}
		failures = append(failures, fmt.Sprintf("%s: %v", s.Name, err))
	}
	kind := ErrNoJSON
	if wellFormed {
		kind = ErrShape
	}
	return fmt.Errorf("%w (%s)", kind, strings.Join(failures, "; "))
}

func outerBraces(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", errors.New("no brace pair")
	}
	return text[start : end+1], nil
}

func fencedBlock(text string) (string, error) {
	parts := strings.Split(text, "```")
	if len(parts) < 3 {
		return "", errors.New("no fenced block")
	}
	// Odd-indexed parts are inside fences.
	for i := 1; i < len(parts); i += 2 {
		body := strings.TrimSpace(parts[i])
		body = strings.TrimSpace(strings.TrimPrefix(body, "json"))
		if strings.HasPrefix(body, "{") {
			return body, nil
		}
	}
	return "", errors.New("no fenced object")
}
