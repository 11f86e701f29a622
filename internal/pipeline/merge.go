package pipeline

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/chakravartyharish/question-extractor/internal/llm"
	"github.com/chakravartyharish/question-extractor/internal/question"
)

// Merge concatenates all batch files in index order into the final dataset.
// Duplicate question numbers are dropped (first occurrence wins, which is the
// oldest flushed batch). The merged document is validated against the dataset
// schema; a validation failure is logged as a warning but the dataset is
// still written, matching how downstream importers prefer a flagged document
// over none.
func Merge(batchesDir, outputPath string, logger *slog.Logger, now time.Time) (question.Dataset, error) {
	files, err := ListBatchFiles(batchesDir)
	if err != nil {
		return question.Dataset{}, err
	}

	var all []question.Structured
	seen := map[int]bool{}
	for _, path := range files {
		qs, err := ReadBatch(path)
		if err != nil {
			return question.Dataset{}, err
		}
		for _, q := range qs {
			if seen[q.QuestionNumber] {
				logger.Warn("merge.duplicate_dropped", "number", q.QuestionNumber, "file", path)
				continue
			}
			seen[q.QuestionNumber] = true
			all = append(all, q)
		}
	}
	if all == nil {
		all = []question.Structured{}
	}

	ds := question.Dataset{
		Metadata:  question.NewMetadata(len(all), now),
		Questions: all,
	}

	if raw, err := json.Marshal(ds); err == nil {
		if verr := llm.ValidateJSONAgainstSchema(question.BuildDatasetSchema(), raw); verr != nil {
			logger.Warn("merge.schema_validation_failed", "error", verr)
		} else {
			logger.Info("merge.schema_validation_ok")
		}
	}

	if err := writeJSONAtomic(outputPath, ds); err != nil {
		return question.Dataset{}, err
	}
	logger.Info("merge.done", "questions", len(all), "batch_files", len(files), "output", outputPath)
	return ds, nil
}
