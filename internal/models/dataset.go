package models

// DatasetMetadata describes a merged dataset.
type DatasetMetadata struct {
	Version          string `json:"version"`
	LastUpdated      string `json:"lastUpdated"`
	TotalQuestions   int    `json:"totalQuestions"`
	Subject          string `json:"subject"`
	YearRange        string `json:"yearRange"`
	ProcessingMethod string `json:"processingMethod,omitempty"`
	Model            string `json:"model,omitempty"`
}

// Dataset is the final merged output document.
type Dataset struct {
	Metadata  DatasetMetadata      `json:"metadata"`
	Questions []StructuredQuestion `json:"questions"`
}
