package merge

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// datasetSchema is the draft-07 shape of a merged dataset.
var datasetSchema = map[string]any{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type":    "object",
	"title":   "Exam question dataset",
	"properties": map[string]any{
		"metadata": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"version":        map[string]any{"type": "string"},
				"lastUpdated":    map[string]any{"type": "string", "format": "date-time"},
				"totalQuestions": map[string]any{"type": "integer", "minimum": 0},
				"subject":        map[string]any{"type": "string", "minLength": 1},
				"yearRange":      map[string]any{"type": "string", "pattern": `^\d{4}-\d{4}$`},
			},
			"required": []any{"version", "lastUpdated", "totalQuestions", "subject", "yearRange"},
		},
		"questions": map[string]any{
			"type":  "array",
			"items": questionSchema,
		},
	},
	"required": []any{"metadata", "questions"},
}

var optionLetters = []any{"A", "B", "C", "D"}

var questionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"id":             map[string]any{"type": "string", "pattern": `^[a-z]+_\d{4}_[a-z]{3}_\d{3,}$`},
		"questionNumber": map[string]any{"type": "integer", "minimum": 1},
		"examInfo": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"year":      map[string]any{"type": "integer", "minimum": 1988, "maximum": 2100},
				"examType":  map[string]any{"type": "string", "minLength": 1},
				"paperCode": map[string]any{"type": "string"},
			},
			"required": []any{"year", "examType", "paperCode"},
		},
		"title":        map[string]any{"type": "string", "minLength": 10},
		"questionText": map[string]any{"type": "string", "minLength": 20},
		"options": map[string]any{
			"type":     "array",
			"minItems": 4,
			"maxItems": 4,
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id":        map[string]any{"type": "string", "enum": optionLetters},
					"text":      map[string]any{"type": "string", "minLength": 1},
					"isCorrect": map[string]any{"type": "boolean"},
					"analysis":  map[string]any{"type": "string"},
				},
				"required": []any{"id", "text", "isCorrect", "analysis"},
			},
		},
		"correctOption": map[string]any{"type": "string", "enum": optionLetters},
		"classification": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"subject":       map[string]any{"type": "string"},
				"chapter":       map[string]any{"type": "string", "minLength": 2},
				"topic":         map[string]any{"type": "string", "minLength": 2},
				"ncertClass":    map[string]any{"type": "integer", "enum": []any{11, 12}},
				"difficulty":    map[string]any{"type": "string", "enum": []any{"Easy", "Medium", "Hard"}},
				"estimatedTime": map[string]any{"type": "integer", "minimum": 1, "maximum": 10},
				"conceptTags": map[string]any{
					"type":     "array",
					"items":    map[string]any{"type": "string"},
					"minItems": 1,
				},
				"bloomsLevel": map[string]any{
					"type": "string",
					"enum": []any{"remember", "understand", "apply", "analyze", "evaluate", "create"},
				},
			},
			"required": []any{"subject", "chapter", "topic", "conceptTags"},
		},
		"stepByStep": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title":   map[string]any{"type": "string"},
					"content": map[string]any{"type": "string"},
				},
				"required": []any{"title", "content"},
			},
		},
		"questionImages": map[string]any{"type": "array"},
		"solutionImages": map[string]any{"type": "array"},
	},
	"required": []any{
		"id", "questionNumber", "examInfo", "title", "questionText",
		"options", "correctOption", "classification", "stepByStep",
	},
}

// compileSchema compiles datasetSchema once per merger.
func compileSchema() (*jsonschema.Schema, error) {
	b, err := json.Marshal(datasetSchema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	if err := compiler.AddResource("dataset.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	return compiler.Compile("dataset.json")
}

// validateDataset checks the JSON encoding of v against the dataset schema.
func validateDataset(schema *jsonschema.Schema, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal dataset: %w", err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("unmarshal dataset: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("dataset does not match schema: %w", err)
	}
	return nil
}
