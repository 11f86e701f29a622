package extractor

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/chakravartyharish/question-extractor/internal/question"
)

// Skip records a block that was dropped during extraction, with the reason.
// Skipped blocks never reach dispatch; they appear only in the run log.
type Skip struct {
	Number int
	Reason string
}

var (
	sectionStartPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)PHYSICS`),
		regexp.MustCompile(`(?i)SECTION.*A.*PHYSICS`),
		regexp.MustCompile(`(?i)Physics\s+Section`),
		regexp.MustCompile(`(?i)PART.*A.*PHYSICS`),
	}
	sectionEndPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)CHEMISTRY`),
		regexp.MustCompile(`(?i)BIOLOGY`),
		regexp.MustCompile(`(?i)BOTANY`),
		regexp.MustCompile(`(?i)ZOOLOGY`),
	}

	// A new question starts only at a line-leading "N." marker. Digits inside
	// question or option text never match this.
	questionMarker = regexp.MustCompile(`(?m)^[ \t]*(\d+)\.(?:[ \t]|$)`)

	answerPattern = regexp.MustCompile(`Answer\s*\(\s*(\d)\s*\)`)

	physicsHeader = regexp.MustCompile(`(?i)PHYSICS\s*\n`)

	horizontalSpace = regexp.MustCompile(`[^\S\n]+`)
)

// Extractor parses raw document text into question records. It is
// deterministic for identical input and has no side effects beyond logging.
type Extractor struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// SectionBounds finds the page span of the physics section: from the first
// page matching a section-start marker up to (excluding) the first later page
// matching a section-end marker.
func SectionBounds(pages []string) (start, end int) {
	start = -1
	end = len(pages)

	for i, page := range pages {
		for _, p := range sectionStartPatterns {
			if p.MatchString(page) {
				start = i
				break
			}
		}
		if start >= 0 {
			break
		}
	}
	if start < 0 {
		start = 0
	}

	for i := start + 1; i < len(pages); i++ {
		for _, p := range sectionEndPatterns {
			if p.MatchString(pages[i]) {
				return start, i
			}
		}
	}
	return start, end
}

// Normalize fixes common extraction artifacts: ligatures, full-width
// parentheses, and runs of horizontal whitespace. Newlines are preserved
// because question boundaries are line-anchored.
func Normalize(text string) string {
	r := strings.NewReplacer("ﬁ", "fi", "ﬂ", "fl", "（", "(", "）", ")")
	text = r.Replace(text)
	return horizontalSpace.ReplaceAllString(text, " ")
}

// ExtractFromPages narrows pages to the physics section and extracts records.
func (e *Extractor) ExtractFromPages(pages []string) ([]question.Record, []Skip) {
	start, end := SectionBounds(pages)
	e.logger.Info("extract.section", "start_page", start+1, "end_page", end)

	text := strings.Join(pages[start:end], "\n")
	return e.Extract(text)
}

// Extract parses raw section text into ordered question records. Blocks that
// do not carry the four-option-plus-answer signature are dropped with a
// reason, never merged into a neighbour. An empty section yields an empty
// slice, not an error.
func (e *Extractor) Extract(raw string) ([]question.Record, []Skip) {
	text := Normalize(raw)

	// Questions begin after the section header; everything before it is
	// instruction prose.
	if loc := physicsHeader.FindStringIndex(text); loc != nil {
		text = text[loc[1]:]
	}

	markers := questionMarker.FindAllStringSubmatchIndex(text, -1)

	var records []question.Record
	var skips []Skip
	seen := map[int]bool{}

	for i, m := range markers {
		number, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil || number < 1 {
			continue
		}

		blockEnd := len(text)
		if i+1 < len(markers) {
			blockEnd = markers[i+1][0]
		}
		block := text[m[1]:blockEnd]

		rec, reason := parseBlock(number, block)
		if reason != "" {
			e.logger.Warn("extract.skip", "number", number, "reason", reason)
			skips = append(skips, Skip{Number: number, Reason: reason})
			continue
		}
		if seen[number] {
			e.logger.Warn("extract.skip", "number", number, "reason", "duplicate question number")
			skips = append(skips, Skip{Number: number, Reason: "duplicate question number"})
			continue
		}
		seen[number] = true
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Number < records[j].Number })

	e.logger.Info("extract.done", "records", len(records), "skipped", len(skips))
	return records, skips
}

// parseBlock splits one question block into stem, four options and the answer
// annotation. It returns a non-empty reason when the block lacks the
// signature.
func parseBlock(number int, block string) (question.Record, string) {
	// Locate the enumerated option markers in order; each search starts after
	// the previous marker so digits embedded in earlier text cannot split an
	// option.
	idx := make([]int, 4)
	pos := 0
	for n := 1; n <= 4; n++ {
		marker := fmt.Sprintf("(%d)", n)
		rel := strings.Index(block[pos:], marker)
		if rel < 0 {
			return question.Record{}, fmt.Sprintf("found %d of 4 options", n-1)
		}
		idx[n-1] = pos + rel
		pos = idx[n-1] + len(marker)
	}

	ansLoc := answerPattern.FindStringSubmatchIndex(block[pos:])
	if ansLoc == nil {
		return question.Record{}, "missing answer annotation"
	}
	ansStart := pos + ansLoc[0]
	ordinal, _ := strconv.Atoi(block[pos+ansLoc[2] : pos+ansLoc[3]])
	label := question.LabelForOrdinal(ordinal)
	if label == "" {
		return question.Record{}, fmt.Sprintf("answer ordinal %d out of range", ordinal)
	}

	stem := collapse(block[:idx[0]])
	if stem == "" {
		return question.Record{}, "empty question text"
	}

	options := make([]string, 4)
	for n := 0; n < 4; n++ {
		from := idx[n] + 3 // past "(N)"
		to := ansStart
		if n < 3 {
			to = idx[n+1]
		}
		options[n] = collapse(block[from:to])
		if options[n] == "" {
			return question.Record{}, fmt.Sprintf("option %s is empty", question.Labels[n])
		}
	}

	return question.Record{
		Number:       number,
		Text:         stem,
		Options:      options,
		CorrectLabel: label,
	}, ""
}

// collapse joins wrapped lines into single-space-separated text.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
