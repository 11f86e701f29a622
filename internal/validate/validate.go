package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/chakravartyharish/question-extractor/internal/question"
)

// Result carries the outcome of a quality gate. Violations are ordered the
// way the rules ran.
type Result struct {
	OK         bool
	Violations []string
}

func fail(violations []string) Result {
	return Result{OK: len(violations) == 0, Violations: violations}
}

const (
	minQuestionLength = 50
	minConceptTags    = 2
	minSolutionSteps  = 2
	minWords          = 10
)

// Placeholder shapes the structuring service is known to emit when it gives
// up on a field instead of filling it in.
var placeholderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`placeholder`),
	regexp.MustCompile(`text\s+here`),
	regexp.MustCompile(`option\s+[a-d]\s+text`),
	regexp.MustCompile(`sample.*question`),
	regexp.MustCompile(`analysis\s+not\s+provided`),
	regexp.MustCompile(`chapter\s+name\s+here`),
	regexp.MustCompile(`topic\s+name\s+here`),
}

func isPlaceholder(s string) bool {
	lower := strings.ToLower(s)
	for _, p := range placeholderPatterns {
		if p.MatchString(lower) {
			return true
		}
	}
	return false
}

// Record applies the pre-dispatch rules to an extracted record. A record that
// fails any rule is never sent to the structuring service.
func Record(r question.Record) Result {
	var violations []string

	text := strings.TrimSpace(r.Text)
	if len(text) < minQuestionLength {
		violations = append(violations, fmt.Sprintf("question text too short: %d chars", len(text)))
	}
	if len(strings.Fields(text)) < minWords {
		violations = append(violations, "question text has too few words")
	}
	if len(r.Options) != len(question.Labels) {
		violations = append(violations, fmt.Sprintf("expected %d options, got %d", len(question.Labels), len(r.Options)))
	} else {
		for i, opt := range r.Options {
			if strings.TrimSpace(opt) == "" {
				violations = append(violations, fmt.Sprintf("option %s is empty", question.Labels[i]))
			} else if isPlaceholder(opt) {
				violations = append(violations, fmt.Sprintf("option %s contains placeholder text", question.Labels[i]))
			}
		}
	}
	if !validLabel(r.CorrectLabel) {
		violations = append(violations, fmt.Sprintf("correct label %q is not one of A-D", r.CorrectLabel))
	}
	if isPlaceholder(text) {
		violations = append(violations, "question text contains placeholder text")
	}

	return fail(violations)
}

// Structured applies the post-call rules to a structuring result. An answer
// mismatch is NOT reported here; the integrity check corrects it before
// validation and logs it as its own anomaly.
func Structured(s question.Structured) Result {
	var violations []string

	if len(s.Options) != len(question.Labels) {
		violations = append(violations, fmt.Sprintf("expected %d options, got %d", len(question.Labels), len(s.Options)))
	} else {
		seen := map[string]bool{}
		for _, opt := range s.Options {
			seen[opt.ID] = true
		}
		for _, l := range question.Labels {
			if !seen[l] {
				violations = append(violations, fmt.Sprintf("missing option %s", l))
			}
		}
	}
	if !validLabel(s.CorrectOption) {
		violations = append(violations, fmt.Sprintf("correct option %q is not one of A-D", s.CorrectOption))
	}

	c := s.Classification
	if strings.TrimSpace(c.Chapter) == "" || strings.EqualFold(c.Chapter, "unknown") || isPlaceholder(c.Chapter) {
		violations = append(violations, "chapter is missing or placeholder")
	}
	if strings.TrimSpace(c.Topic) == "" || strings.EqualFold(c.Topic, "unknown") || isPlaceholder(c.Topic) {
		violations = append(violations, "topic is missing or placeholder")
	}
	if distinct(c.ConceptTags) < minConceptTags {
		violations = append(violations, fmt.Sprintf("insufficient concept tags: %d", distinct(c.ConceptTags)))
	}
	if len(s.StepByStep) == 0 {
		violations = append(violations, "missing step-by-step solution")
	} else if len(s.StepByStep) < minSolutionSteps {
		violations = append(violations, fmt.Sprintf("solution too brief: %d steps", len(s.StepByStep)))
	}
	if isPlaceholder(s.QuestionText) {
		violations = append(violations, "question text contains placeholder text")
	}

	return fail(violations)
}

func validLabel(label string) bool {
	for _, l := range question.Labels {
		if l == label {
			return true
		}
	}
	return false
}

func distinct(tags []string) int {
	seen := map[string]bool{}
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			seen[t] = true
		}
	}
	return len(seen)
}
