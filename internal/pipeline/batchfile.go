package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/chakravartyharish/question-extractor/internal/question"
)

// WriteBatch writes one batch file under dir with a zero-padded sequential
// index. Batch files are write-once: indices only ever grow and an existing
// file is never rewritten.
func WriteBatch(dir string, index int, questions []question.Structured) (string, error) {
	name := fmt.Sprintf("batch_%04d.json", index)
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("batch file already exists: %s", name)
	}
	if err := writeJSONAtomic(path, questions); err != nil {
		return "", fmt.Errorf("write batch %s: %w", name, err)
	}
	return path, nil
}

// ListBatchFiles returns the batch files under dir in index order.
func ListBatchFiles(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "batch_*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// HighestBatchIndex returns the largest index among the batch files in dir,
// or -1 when there are none. A crash can land between writing a batch file
// and saving the checkpoint, leaving a file on disk the checkpoint does not
// know about; comparing against this lets the next run skip past it.
func HighestBatchIndex(dir string) (int, error) {
	files, err := ListBatchFiles(dir)
	if err != nil {
		return -1, err
	}
	highest := -1
	for _, path := range files {
		var idx int
		if _, err := fmt.Sscanf(filepath.Base(path), "batch_%d.json", &idx); err != nil {
			continue
		}
		if idx > highest {
			highest = idx
		}
	}
	return highest, nil
}

// ReadBatch reads one batch file.
func ReadBatch(path string) ([]question.Structured, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch: %w", err)
	}
	var qs []question.Structured
	if err := json.Unmarshal(data, &qs); err != nil {
		return nil, fmt.Errorf("parse batch %s: %w", filepath.Base(path), err)
	}
	return qs, nil
}
