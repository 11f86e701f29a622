package question

import (
	"fmt"
	"time"
)

// Option labels, in document order. The source document enumerates options as
// (1)..(4); the answer key maps those ordinals onto these labels.
var Labels = []string{"A", "B", "C", "D"}

// LabelForOrdinal maps a document answer ordinal (1..4) to its option label.
// The empty string is returned for anything outside that range.
func LabelForOrdinal(n int) string {
	if n < 1 || n > len(Labels) {
		return ""
	}
	return Labels[n-1]
}

// Record is one question parsed out of the source document, carrying the
// officially correct answer from the embedded answer key. Records are
// immutable once extracted.
type Record struct {
	Number       int      `json:"number"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`       // indexed A..D, always 4 entries
	CorrectLabel string   `json:"correct_label"` // A, B, C or D
}

// ID returns the dataset identifier for this record, e.g. "neet_2024_phy_042".
func (r Record) ID() string {
	return fmt.Sprintf("neet_2024_phy_%03d", r.Number)
}

// OptionText returns the text for a label, or "" if the label is unknown.
func (r Record) OptionText(label string) string {
	for i, l := range Labels {
		if l == label && i < len(r.Options) {
			return r.Options[i]
		}
	}
	return ""
}

// Option is one answer choice in a structured question, with the structuring
// service's per-option analysis.
type Option struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
	Analysis  string `json:"analysis"`
}

// ExamInfo identifies the exam paper a question came from.
type ExamInfo struct {
	Year      int    `json:"year"`
	ExamType  string `json:"examType"`
	PaperCode string `json:"paperCode"`
	SetCode   string `json:"setCode,omitempty"`
}

// Classification is the chapter/topic/difficulty metadata produced by the
// structuring service.
type Classification struct {
	Subject       string   `json:"subject"`
	Chapter       string   `json:"chapter"`
	Topic         string   `json:"topic"`
	Subtopic      string   `json:"subtopic,omitempty"`
	NCERTClass    int      `json:"ncertClass"`
	Difficulty    string   `json:"difficulty"`
	EstimatedTime int      `json:"estimatedTime"`
	ConceptTags   []string `json:"conceptTags"`
	BloomsLevel   string   `json:"bloomsLevel"`
}

// SolutionStep is one step of the worked solution.
type SolutionStep struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Formula string `json:"formula,omitempty"`
	Insight string `json:"insight,omitempty"`
}

// Structured is the enriched output for one record, as returned by the
// structuring service and corrected by the integrity check.
type Structured struct {
	ID             string         `json:"id"`
	QuestionNumber int            `json:"questionNumber"`
	ExamInfo       ExamInfo       `json:"examInfo"`
	Title          string         `json:"title"`
	QuestionText   string         `json:"questionText"`
	QuestionImages []string       `json:"questionImages"`
	Options        []Option       `json:"options"`
	CorrectOption  string         `json:"correctOption"`
	Classification Classification `json:"classification"`
	StepByStep     []SolutionStep `json:"stepByStep"`
	SolutionImages []string       `json:"solutionImages"`
	QuickMethod    map[string]any `json:"quickMethod,omitempty"`
}

// Metadata describes a merged dataset.
type Metadata struct {
	Version          string `json:"version"`
	LastUpdated      string `json:"lastUpdated"`
	TotalQuestions   int    `json:"totalQuestions"`
	Subject          string `json:"subject"`
	YearRange        string `json:"yearRange"`
	ProcessingMethod string `json:"processingMethod"`
}

// Dataset is the final consolidated output document.
type Dataset struct {
	Metadata  Metadata     `json:"metadata"`
	Questions []Structured `json:"questions"`
}

// NewMetadata builds dataset metadata for a merge finished at now.
func NewMetadata(total int, now time.Time) Metadata {
	return Metadata{
		Version:          "2.0",
		LastUpdated:      now.Format(time.RFC3339),
		TotalQuestions:   total,
		Subject:          "Physics",
		YearRange:        "2024-2024",
		ProcessingMethod: "Answer-key extraction with LLM structuring",
	}
}
