package extractor

import (
	"log/slog"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, nil))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

const sampleBlock = `1.
A particle moves in a straight line with constant acceleration and reaches a velocity of 20 m/s in 4 seconds.
(1) 10 m/s²
(2) 5 m/s²
(3) 20 m/s²
(4) 2 m/s²
Answer (3)
`

func TestExtract_AnswerAnnotationMapsToLabel(t *testing.T) {
	records, skips := New(discardLogger()).Extract(sampleBlock)
	if len(skips) != 0 {
		t.Fatalf("unexpected skips: %+v", skips)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.Number != 1 {
		t.Errorf("number = %d, want 1", rec.Number)
	}
	if rec.CorrectLabel != "C" {
		t.Errorf("correct label = %q, want C", rec.CorrectLabel)
	}
	if rec.Options[0] != "10 m/s²" || rec.Options[3] != "2 m/s²" {
		t.Errorf("options parsed wrong: %+v", rec.Options)
	}
	if !strings.Contains(rec.Text, "constant acceleration") {
		t.Errorf("stem lost: %q", rec.Text)
	}
}

func TestExtract_OrdinalMapping(t *testing.T) {
	cases := []struct {
		ordinal string
		want    string
	}{
		{"1", "A"}, {"2", "B"}, {"3", "C"}, {"4", "D"},
	}
	for _, tc := range cases {
		text := strings.Replace(sampleBlock, "Answer (3)", "Answer ("+tc.ordinal+")", 1)
		records, _ := New(discardLogger()).Extract(text)
		if len(records) != 1 {
			t.Fatalf("ordinal %s: expected 1 record", tc.ordinal)
		}
		if records[0].CorrectLabel != tc.want {
			t.Errorf("ordinal %s: label = %q, want %q", tc.ordinal, records[0].CorrectLabel, tc.want)
		}
	}
}

func TestExtract_ThreeOptionBlockIsSkippedWithReason(t *testing.T) {
	text := `1.
A block on a frictionless surface is pushed with a constant horizontal force of 10 newtons for 2 seconds.
(1) 10 m/s²
(2) 5 m/s²
(3) 20 m/s²
Answer (3)

2.
A wire of resistance R is stretched to double its original length while the volume stays constant.
(1) R
(2) 2R
(3) 4R
(4) R/2
Answer (3)
`
	records, skips := New(discardLogger()).Extract(text)
	if len(records) != 1 || records[0].Number != 2 {
		t.Fatalf("expected only Q2 extracted, got %+v", records)
	}
	if len(skips) != 1 || skips[0].Number != 1 {
		t.Fatalf("expected Q1 skipped, got %+v", skips)
	}
	if !strings.Contains(skips[0].Reason, "3 of 4 options") {
		t.Errorf("skip reason = %q", skips[0].Reason)
	}
}

func TestExtract_MissingAnswerAnnotationIsSkipped(t *testing.T) {
	text := strings.Replace(sampleBlock, "Answer (3)\n", "", 1)
	records, skips := New(discardLogger()).Extract(text)
	if len(records) != 0 {
		t.Fatalf("expected no records, got %+v", records)
	}
	if len(skips) != 1 || skips[0].Reason != "missing answer annotation" {
		t.Fatalf("expected missing-answer skip, got %+v", skips)
	}
}

func TestExtract_EmptySectionYieldsEmptySequence(t *testing.T) {
	records, skips := New(discardLogger()).Extract("")
	if len(records) != 0 || len(skips) != 0 {
		t.Fatalf("expected nothing, got %d records %d skips", len(records), len(skips))
	}
}

func TestExtract_EmbeddedDigitsDoNotSplitQuestions(t *testing.T) {
	// The stem wraps across lines and contains "3." mid-line plus bare
	// numbers at line starts; only a line-leading "N." marker may open a new
	// question.
	text := `7.
A body of mass
2 kg falls from a height of 19.6 m. Taking g as 9.8 m/s2, section 3. of the table gives the time of
fall as
(1) 1 s
(2) 2 s
(3) 3 s
(4) 4 s
Answer (2)
`
	records, skips := New(discardLogger()).Extract(text)
	if len(skips) != 0 {
		t.Fatalf("unexpected skips: %+v", skips)
	}
	if len(records) != 1 || records[0].Number != 7 {
		t.Fatalf("expected single Q7, got %+v", records)
	}
	if records[0].CorrectLabel != "B" {
		t.Errorf("label = %q, want B", records[0].CorrectLabel)
	}
	if !strings.Contains(records[0].Text, "section 3. of the table") {
		t.Errorf("stem was split: %q", records[0].Text)
	}
}

func TestExtract_InstructionProseWithoutSignatureNeverParses(t *testing.T) {
	text := `1. Read the following instructions carefully before attempting the paper.
2. Use only blue or black ball point pen to darken the OMR sheet.

3.
The dimensional formula of Planck's constant matches that of which physical quantity listed below?
(1) Linear momentum
(2) Angular momentum
(3) Energy
(4) Torque
Answer (2)
`
	records, _ := New(discardLogger()).Extract(text)
	if len(records) != 1 || records[0].Number != 3 {
		t.Fatalf("expected only the real question, got %+v", records)
	}
}

func TestExtract_DuplicateNumberKeepsFirst(t *testing.T) {
	text := sampleBlock + "\n" + sampleBlock
	records, skips := New(discardLogger()).Extract(text)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if len(skips) != 1 || skips[0].Reason != "duplicate question number" {
		t.Fatalf("expected duplicate skip, got %+v", skips)
	}
}

func TestSectionBounds(t *testing.T) {
	pages := []string{
		"GENERAL INSTRUCTIONS\nDo not fold the OMR sheet.",
		"SECTION A  PHYSICS\nQuestions 1 to 45",
		"more physics questions",
		"SECTION B  CHEMISTRY\nQuestions 46 to 90",
	}
	start, end := SectionBounds(pages)
	if start != 1 || end != 3 {
		t.Fatalf("bounds = (%d,%d), want (1,3)", start, end)
	}
}

func TestSectionBounds_NoMarkersCoversEverything(t *testing.T) {
	pages := []string{"page one", "page two"}
	start, end := SectionBounds(pages)
	if start != 0 || end != 2 {
		t.Fatalf("bounds = (%d,%d), want (0,2)", start, end)
	}
}

func TestNormalize(t *testing.T) {
	in := "speed（2）is   ﬁxed\tvalue\nnext line"
	got := Normalize(in)
	want := "speed(2)is fixed value\nnext line"
	if got != want {
		t.Errorf("Normalize = %q, want %q", got, want)
	}
}

func TestExtract_Deterministic(t *testing.T) {
	a, _ := New(discardLogger()).Extract(sampleBlock)
	b, _ := New(discardLogger()).Extract(sampleBlock)
	if len(a) != len(b) || a[0].Text != b[0].Text || a[0].CorrectLabel != b[0].CorrectLabel {
		t.Fatal("extraction not deterministic")
	}
}
