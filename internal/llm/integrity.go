package llm

import (
	"log/slog"

	"github.com/chakravartyharish/question-extractor/internal/question"
)

// EnforceAnswer compares the service's self-reported correct option against
// the record's verified answer key and force-overwrites it on mismatch. The
// document's answer key always wins over the service's judgment; a service
// that changes the answer has disregarded an explicit instruction, which is
// logged as the answer_overridden anomaly, distinct from an ordinary
// validation violation. Returns true when an override happened.
func EnforceAnswer(s *question.Structured, rec question.Record, logger *slog.Logger) bool {
	overridden := s.CorrectOption != rec.CorrectLabel
	if overridden {
		logger.Warn("integrity.answer_overridden",
			"number", rec.Number,
			"claimed", s.CorrectOption,
			"official", rec.CorrectLabel,
		)
		s.CorrectOption = rec.CorrectLabel
	}

	// Option flags must agree with the correct option even when the service
	// reported the right letter but flagged the wrong row.
	for i := range s.Options {
		s.Options[i].IsCorrect = s.Options[i].ID == rec.CorrectLabel
	}
	return overridden
}

// Backfill fills fields the service omitted from the response using the
// source record, so downstream consumers always see a complete question.
func Backfill(s *question.Structured, rec question.Record) {
	if s.ID == "" {
		s.ID = rec.ID()
	}
	if s.QuestionNumber == 0 {
		s.QuestionNumber = rec.Number
	}
	if s.QuestionText == "" {
		s.QuestionText = rec.Text
	}
	if s.CorrectOption == "" {
		s.CorrectOption = rec.CorrectLabel
	}
	if s.QuestionImages == nil {
		s.QuestionImages = []string{}
	}
	if s.SolutionImages == nil {
		s.SolutionImages = []string{}
	}
	if len(s.Options) == 0 {
		for i, l := range question.Labels {
			s.Options = append(s.Options, question.Option{
				ID:   l,
				Text: rec.Options[i],
			})
		}
	}
}
