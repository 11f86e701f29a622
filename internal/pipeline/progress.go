package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// State is the persisted resume checkpoint. Completed and failed numbers stay
// disjoint: a number moves out of the failed set the moment it completes, and
// a completed number is never re-marked failed.
type State struct {
	CompletedNumbers []int          `json:"completed_numbers"`
	FailedNumbers    map[int]string `json:"failed_numbers"`
	LastBatchIndex   int            `json:"last_batch_index"`
}

// NewState returns a fresh checkpoint with no work done.
func NewState() *State {
	return &State{FailedNumbers: map[int]string{}, LastBatchIndex: -1}
}

// LoadState reads the checkpoint at path. A missing file yields a fresh
// state, not an error.
func LoadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read progress: %w", err)
	}
	s := NewState()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse progress: %w", err)
	}
	if s.FailedNumbers == nil {
		s.FailedNumbers = map[int]string{}
	}
	return s, nil
}

// Save durably writes the checkpoint via write-to-temp-then-rename, so an
// interrupted write never leaves a partially written file behind.
func (s *State) Save(path string) error {
	sort.Ints(s.CompletedNumbers)
	return writeJSONAtomic(path, s)
}

// IsCompleted reports whether number already succeeded in a previous batch.
func (s *State) IsCompleted(number int) bool {
	for _, n := range s.CompletedNumbers {
		if n == number {
			return true
		}
	}
	return false
}

// MarkCompleted records a success, clearing any earlier failure for the same
// number so the sets stay disjoint.
func (s *State) MarkCompleted(number int) {
	delete(s.FailedNumbers, number)
	if !s.IsCompleted(number) {
		s.CompletedNumbers = append(s.CompletedNumbers, number)
	}
}

// MarkFailed records a failure reason. Completed numbers are never demoted.
func (s *State) MarkFailed(number int, reason string) {
	if s.IsCompleted(number) {
		return
	}
	s.FailedNumbers[number] = reason
}

// writeJSONAtomic writes v as indented JSON to path atomically.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
