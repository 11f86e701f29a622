package export

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/chakravartyharish/question-extractor/internal/question"
)

// DatasetXLSX renders the merged dataset as an XLSX workbook (as bytes), one
// row per question, for reviewers who want a spreadsheet view next to the
// JSON import file.
func DatasetXLSX(ds question.Dataset, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Questions"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	if defIdx, _ := f.GetSheetIndex("Sheet1"); defIdx != -1 {
		_ = f.DeleteSheet("Sheet1")
	}

	headers := []string{
		"Question #",
		"Title",
		"Correct Option",
		"Chapter",
		"Topic",
		"Difficulty",
		"Concept Tags",
		"Solution Steps",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, q := range ds.Questions {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, q.QuestionNumber)
		write(2, q.Title)
		write(3, q.CorrectOption)
		write(4, q.Classification.Chapter)
		write(5, q.Classification.Topic)
		write(6, q.Classification.Difficulty)
		write(7, strings.Join(q.Classification.ConceptTags, ", "))
		write(8, len(q.StepByStep))
		row++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	logger.Info("export.xlsx.done",
		"questions", len(ds.Questions),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
