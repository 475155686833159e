package generation

import (
	"fmt"
	"strings"

	"github.com/hyperjump/examforge/internal/config"
	"github.com/hyperjump/examforge/internal/models"
	"github.com/hyperjump/examforge/pkg/utils"
)

// SystemPrompt tells the model to explain the supplied answer rather than solve.
func SystemPrompt(exam config.ExamConfig) string {
	return fmt.Sprintf("You are a %s %s expert. Generate detailed step-by-step solutions explaining "+
		"the provided correct answer. NEVER guess or change the correct answer provided. "+
		"Your job is to EXPLAIN, not to SOLVE.", exam.ExamType, exam.Subject)
}

// UserPrompt embeds the question, its options, the document's answer and the JSON
// shape the model must return.
func UserPrompt(block models.RawQuestionBlock, id string, exam config.ExamConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a %s %s question analyzer. Your task is to explain the solution, NOT to find the answer.\n\n",
		exam.ExamType, exam.Subject)
	fmt.Fprintf(&b, "Question %d: %s\n\nOptions:\n", block.Number, block.QuestionText)
	for _, opt := range models.OptionIDs {
		fmt.Fprintf(&b, "%s) %s\n", opt, block.Options[opt])
	}
	fmt.Fprintf(&b, "\n**CORRECT ANSWER FROM THE ANSWER KEY: Option %s**\n\n", block.Answer)
	fmt.Fprintf(&b, "**CRITICAL: The correct answer is %s. DO NOT change or question this answer. "+
		"Your job is to EXPLAIN why it is correct.**\n\n", block.Answer)
	fmt.Fprintf(&b, `Your task:
1. Provide detailed step-by-step reasoning explaining WHY option %s is the correct answer
2. Explain WHY each of the other options is incorrect
3. Include relevant formulas and calculations with proper units
4. Use clear, educational language suitable for %s preparation
5. Include NCERT chapter references where applicable

Return ONLY valid JSON matching this structure:
`, block.Answer, exam.ExamType)

	b.WriteString("{\n")
	fmt.Fprintf(&b, "  \"id\": %q,\n", id)
	fmt.Fprintf(&b, "  \"questionNumber\": %d,\n", block.Number)
	fmt.Fprintf(&b, "  \"examInfo\": {\"year\": %d, \"examType\": %q, \"paperCode\": %q},\n",
		exam.Year, exam.ExamType, exam.PaperCode)
	b.WriteString("  \"title\": \"Brief descriptive title (max 80 chars)\",\n")
	fmt.Fprintf(&b, "  \"questionText\": %q,\n", utils.Truncate(block.QuestionText, 200))
	b.WriteString("  \"options\": [\n")
	for i, opt := range models.OptionIDs {
		sep := ","
		if i == len(models.OptionIDs)-1 {
			sep = ""
		}
		fmt.Fprintf(&b, "    {\"id\": %q, \"text\": %q, \"isCorrect\": %t, \"analysis\": \"Detailed explanation\"}%s\n",
			opt, utils.Truncate(block.Options[opt], 50), opt == block.Answer, sep)
	}
	b.WriteString("  ],\n")
	fmt.Fprintf(&b, "  \"correctOption\": %q,\n", block.Answer)
	fmt.Fprintf(&b, `  "classification": {
    "subject": %q,
    "chapter": "Specific NCERT chapter name",
    "topic": "Specific topic",
    "subtopic": "If applicable",
    "ncertClass": 11 or 12,
    "difficulty": "Easy", "Medium", or "Hard",
    "estimatedTime": 2-5,
    "conceptTags": ["concept1", "concept2", "concept3"],
    "bloomsLevel": "remember", "understand", "apply", "analyze", "evaluate", or "create"
  },
  "stepByStep": [
    {"title": "Step 1: Understand the Problem", "content": "Detailed explanation", "formula": "Relevant formula", "insight": "Key insight"}
  ],
  "quickMethod": {
    "trick": {"title": "Quick approach", "steps": ["step1", "step2"]},
    "timeManagement": {"totalTime": "2-3 min"}
  },
  "questionImages": [],
  "solutionImages": []
}

`, exam.Subject)
	fmt.Fprintf(&b, "REMEMBER: correctOption MUST be %q - do not change it!\n", block.Answer)
	return b.String()
}
