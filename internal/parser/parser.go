// Package parser turns section text into raw question blocks.
//
// A question starts at a line beginning with "N." and runs to the next such line.
// A line like "20. m/s for 5 s" only starts a question when its number follows the
// previous question's within a small gap; otherwise it stays part of the text.
// Each segment is first matched against the strict grammar
//
//	N.
//	question text (1) opt (2) opt (3) opt (4) opt Answer (n)
//
// and, when that fails, against a tolerant grammar that finds the four option
// markers in any order and the answer marker anywhere in the segment. Text left after
// a strict match is scanned again, so "Answer (2) 8." still yields question 8.
package parser

import (
	"fmt"
	"iter"
	"regexp"
	"strconv"
	"strings"

	"github.com/hyperjump/examforge/internal/models"
	"github.com/hyperjump/examforge/pkg/utils"
)

// DefaultMinQuestionChars is the shortest question text kept.
const DefaultMinQuestionChars = 20

// maxQuestionGap bounds how far an inline "N. text" marker may jump ahead of the
// previous question number.
const maxQuestionGap = 5

var (
	questionMarker = regexp.MustCompile(`(?m)^[ \t]*(\d{1,3})\.(?:[ \t]|$)`)
	strictBlock    = regexp.MustCompile(`(?s)^\s*(\d+)\.\s*\n(.*?)\(1\)\s*(.*?)\(2\)\s*(.*?)\(3\)\s*(.*?)\(4\)\s*(.*?)Answer\s*\((\d)\)`)
	optionMarker   = regexp.MustCompile(`\(\s*([1-4])\s*\)`)
	answerMarker   = regexp.MustCompile(`(?i)Answer\s*[:\-]?\s*\(\s*(\d)\s*\)`)
	optionStop     = regexp.MustCompile(`(?i)Answer\s*[:\-]?\s*\(|\bSol\.`)
	solutionStart  = regexp.MustCompile(`\bSol\.`)
	// trailingMarker finds a question number left mid-line after an answer marker.
	trailingMarker = regexp.MustCompile(`(?:^|[^\d.])(\d{1,3})\.[ \t]*\n`)
	firstOption    = regexp.MustCompile(`\(\s*1\s*\)`)
)

// Rejection describes a candidate block that could not be parsed.
type Rejection struct {
	Number int    `json:"number"`
	Reason string `json:"reason"`
}

// Report counts what happened to every candidate segment.
type Report struct {
	Segments      int         `json:"segments"`
	Strict        int         `json:"strict"`
	Tolerant      int         `json:"tolerant"`
	Discarded     int         `json:"discarded"`
	MissingAnswer int         `json:"missing_answer"`
	Merged        int         `json:"merged"`
	Rejected      int         `json:"rejected"`
	Rejections    []Rejection `json:"rejections,omitempty"`
}

func (r *Report) reject(number int, format string, args ...any) {
	r.Rejected++
	r.Rejections = append(r.Rejections, Rejection{Number: number, Reason: fmt.Sprintf(format, args...)})
}

// Result is the outcome of Parse.
type Result struct {
	Blocks []models.RawQuestionBlock
	Report Report
}

// Parser extracts RawQuestionBlocks. It holds no state between calls.
type Parser struct {
	minChars int
}

// New returns a parser that discards question texts shorter than minQuestionChars.
func New(minQuestionChars int) *Parser {
	if minQuestionChars <= 0 {
		minQuestionChars = DefaultMinQuestionChars
	}
	return &Parser{minChars: minQuestionChars}
}

// Parse returns every block in text in encounter order.
func (p *Parser) Parse(text string) Result {
	var res Result
	for b := range p.Blocks(text, &res.Report) {
		res.Blocks = append(res.Blocks, b)
	}
	return res
}

// Blocks yields blocks lazily. rep, when non-nil, is updated as segments are consumed.
func (p *Parser) Blocks(text string, rep *Report) iter.Seq[models.RawQuestionBlock] {
	if rep == nil {
		rep = &Report{}
	}
	return func(yield func(models.RawQuestionBlock) bool) {
		segs, merged := segments(Normalize(text))
		rep.Merged += merged
		for _, seg := range segs {
			rep.Segments++
			for _, block := range p.parseSegment(seg, rep) {
				if !yield(block) {
					return
				}
			}
		}
	}
}

// segments splits text at question-number lines. Text before the first marker is
// dropped. Inline markers out of sequence are left in place and counted as merged.
func segments(text string) ([]string, int) {
	locs := questionMarker.FindAllStringSubmatchIndex(text, -1)
	starts := make([]int, 0, len(locs))
	merged, prev := 0, 0
	for _, loc := range locs {
		n, _ := strconv.Atoi(text[loc[2]:loc[3]])
		if prev > 0 && inlineMarker(text, loc[1]) && (n <= prev || n > prev+maxQuestionGap) {
			merged++
			continue
		}
		starts = append(starts, loc[0])
		prev = n
	}
	out := make([]string, 0, len(starts))
	for i, start := range starts {
		end := len(text)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		out = append(out, text[start:end])
	}
	return out, merged
}

// inlineMarker reports whether text continues on the marker's line after pos.
func inlineMarker(text string, pos int) bool {
	line := text[pos:]
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line) != ""
}

// parseSegment returns the blocks found in seg. After a strict match the rest of the
// segment is checked for another question that starts mid-line.
func (p *Parser) parseSegment(seg string, rep *Report) []models.RawQuestionBlock {
	var out []models.RawQuestionBlock
	for {
		block, end, ok := parseStrict(seg)
		if !ok {
			tb, reason := parseTolerant(seg)
			if reason != "" {
				rep.reject(tb.Number, "%s", reason)
				return out
			}
			rep.Tolerant++
			if p.keep(tb, rep) {
				out = append(out, tb)
			}
			return out
		}
		rep.Strict++
		if p.keep(block, rep) {
			out = append(out, block)
		}
		next, found := trailingQuestion(seg[end:])
		if !found {
			return out
		}
		rep.Segments++
		seg = next
	}
}

func (p *Parser) keep(block models.RawQuestionBlock, rep *Report) bool {
	if len(block.QuestionText) < p.minChars {
		rep.Discarded++
		return false
	}
	if !block.HasAnswer() {
		rep.MissingAnswer++
	}
	return true
}

// trailingQuestion returns the text from a "N." line break onwards when options follow it.
func trailingQuestion(rest string) (string, bool) {
	loc := trailingMarker.FindStringSubmatchIndex(rest)
	if loc == nil {
		return "", false
	}
	next := rest[loc[2]:]
	if !firstOption.MatchString(next) {
		return "", false
	}
	return next, true
}

func parseStrict(seg string) (models.RawQuestionBlock, int, bool) {
	m := strictBlock.FindStringSubmatchIndex(seg)
	if m == nil {
		return models.RawQuestionBlock{}, 0, false
	}
	group := func(i int) string { return seg[m[2*i]:m[2*i+1]] }
	number, err := strconv.Atoi(group(1))
	if err != nil || number <= 0 {
		return models.RawQuestionBlock{}, 0, false
	}
	block := models.RawQuestionBlock{
		Number:       number,
		QuestionText: clean(group(2)),
		Options:      make(map[models.OptionID]string, 4),
	}
	for i, id := range models.OptionIDs {
		block.Options[id] = clean(cutAt(group(3+i), solutionStart))
	}
	block.Answer = answerFromDigit(group(7))
	return block, m[1], true
}

func parseTolerant(seg string) (models.RawQuestionBlock, string) {
	var block models.RawQuestionBlock
	head := questionMarker.FindStringSubmatchIndex(seg)
	if head == nil {
		return block, "no question number"
	}
	number, err := strconv.Atoi(seg[head[2]:head[3]])
	if err != nil || number <= 0 {
		return block, "invalid question number"
	}
	block.Number = number
	body := seg[head[1]:]

	if m := answerMarker.FindStringSubmatch(body); m != nil {
		block.Answer = answerFromDigit(m[1])
	}
	content := cutAt(body, optionStop)

	markers := optionMarker.FindAllStringSubmatchIndex(content, -1)
	if len(markers) == 0 {
		return block, "found 0 of 4 options"
	}
	block.QuestionText = clean(content[:markers[0][0]])
	block.Options = make(map[models.OptionID]string, 4)
	for i, mk := range markers {
		digit, _ := strconv.Atoi(content[mk[2]:mk[3]])
		id, _ := models.OptionFromDigit(digit)
		if _, seen := block.Options[id]; seen {
			continue
		}
		end := len(content)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		block.Options[id] = clean(content[mk[1]:end])
	}
	if len(block.Options) != 4 {
		return block, fmt.Sprintf("found %d of 4 options", len(block.Options))
	}
	return block, ""
}

// answerFromDigit maps the answer-key digit; anything outside 1..4 means no answer.
func answerFromDigit(s string) models.OptionID {
	d, err := strconv.Atoi(s)
	if err != nil {
		return ""
	}
	id, _ := models.OptionFromDigit(d)
	return id
}

func cutAt(s string, re *regexp.Regexp) string {
	if loc := re.FindStringIndex(s); loc != nil {
		return s[:loc[0]]
	}
	return s
}

func clean(s string) string {
	return utils.CollapseWhitespace(s)
}
