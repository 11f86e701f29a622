package llm

import (
	"testing"

	"github.com/chakravartyharish/question-extractor/internal/question"
)

func record() question.Record {
	return question.Record{
		Number:       5,
		Text:         "A projectile is launched at 45 degrees with an initial speed of 20 m/s. What is its horizontal range?",
		Options:      []string{"20 m", "40 m", "80 m", "10 m"},
		CorrectLabel: "B",
	}
}

func claimed(correct string) question.Structured {
	s := question.Structured{
		ID:             "neet_2024_phy_005",
		QuestionNumber: 5,
		CorrectOption:  correct,
	}
	for i, l := range question.Labels {
		s.Options = append(s.Options, question.Option{
			ID:        l,
			Text:      record().Options[i],
			IsCorrect: l == correct,
		})
	}
	return s
}

func TestEnforceAnswer_MismatchIsOverridden(t *testing.T) {
	rec := record()
	s := claimed("A") // service disregarded the pinned answer

	overridden := EnforceAnswer(&s, rec, testLogger())
	if !overridden {
		t.Fatal("expected override to be reported")
	}
	if s.CorrectOption != "B" {
		t.Errorf("correct option = %q, want the official B", s.CorrectOption)
	}
	for _, opt := range s.Options {
		if want := opt.ID == "B"; opt.IsCorrect != want {
			t.Errorf("option %s flag = %v, want %v", opt.ID, opt.IsCorrect, want)
		}
	}
}

func TestEnforceAnswer_MatchLeavesAnswerAlone(t *testing.T) {
	rec := record()
	s := claimed("B")
	if EnforceAnswer(&s, rec, testLogger()) {
		t.Fatal("no override expected")
	}
	if s.CorrectOption != "B" {
		t.Errorf("correct option = %q", s.CorrectOption)
	}
}

func TestEnforceAnswer_FixesFlagsEvenWhenLetterMatches(t *testing.T) {
	rec := record()
	s := claimed("B")
	s.Options[0].IsCorrect = true // wrong row flagged alongside the right one

	EnforceAnswer(&s, rec, testLogger())
	if s.Options[0].IsCorrect {
		t.Error("option A must not stay flagged correct")
	}
	if !s.Options[1].IsCorrect {
		t.Error("option B must be flagged correct")
	}
}

func TestBackfill_FillsMissingFields(t *testing.T) {
	rec := record()
	var s question.Structured

	Backfill(&s, rec)
	if s.ID != "neet_2024_phy_005" {
		t.Errorf("id = %q", s.ID)
	}
	if s.QuestionNumber != 5 || s.QuestionText != rec.Text || s.CorrectOption != "B" {
		t.Errorf("backfill incomplete: %+v", s)
	}
	if len(s.Options) != 4 || s.Options[2].Text != "80 m" {
		t.Errorf("options backfill wrong: %+v", s.Options)
	}
	if s.QuestionImages == nil || s.SolutionImages == nil {
		t.Error("image arrays must be non-nil for the dataset schema")
	}
}

func TestBackfill_DoesNotOverwritePresentFields(t *testing.T) {
	rec := record()
	s := claimed("B")
	s.QuestionText = "already set"

	Backfill(&s, rec)
	if s.QuestionText != "already set" {
		t.Errorf("question text overwritten: %q", s.QuestionText)
	}
}
