package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Keyword is a single keyword extracted from a job description. The model
// returns either a bare string or a {word, category} object; UnmarshalJSON
// normalizes both forms so every consumer sees the same shape.
type Keyword struct {
	Word     string `json:"word"`
	Category string `json:"category,omitempty"`
}

// UnmarshalJSON accepts both `"SQL"` and `{"word":"SQL","category":"tool"}`.
func (k *Keyword) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		k.Word = s
		k.Category = ""
		return nil
	}

	type keyword Keyword
	var obj keyword
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*k = Keyword(obj)
	return nil
}

// KeywordAnalysis groups keywords by whether the resume covers them.
type KeywordAnalysis struct {
	Found   []Keyword `json:"found"`
	Missing []Keyword `json:"missing"`
}

// StructureFeedback describes resume structure strengths and improvements.
type StructureFeedback struct {
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
}

// InterviewQuestion is a generated practice question with a suggested answer
// direction.
type InterviewQuestion struct {
	Question string `json:"question"`
	Guidance string `json:"guidance,omitempty"`
}

// ScanAnalysis is the parsed output of one resume/job-description
// comparison. This is the JSON contract the oracle is prompted to follow;
// conformance is advisory only and enforced by parsing, never assumed.
type ScanAnalysis struct {
	Score                  int                 `json:"score"` // 0-100
	JobTitle               string              `json:"job_title"`
	Keywords               KeywordAnalysis     `json:"keywords"`
	Structure              StructureFeedback   `json:"structure"`
	ImprovementSuggestions []string            `json:"improvement_suggestions"`
	InterviewQuestions     []InterviewQuestion `json:"interview_questions,omitempty"`
}

// Scan is a persisted scan: the inputs plus the parsed analysis.
// Immutable after creation.
type Scan struct {
	ID             uuid.UUID     `json:"id"`
	UserID         uuid.UUID     `json:"user_id"`
	ResumeText     string        `json:"resume_text"`
	JobDescription string        `json:"job_description"`
	Analysis       *ScanAnalysis `json:"analysis"`
	CreatedAt      time.Time     `json:"created_at"`
}
