package pipeline

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/chakravartyharish/question-extractor/internal/common"
	"github.com/chakravartyharish/question-extractor/internal/cost"
	"github.com/chakravartyharish/question-extractor/internal/llm"
	"github.com/chakravartyharish/question-extractor/internal/question"
	"github.com/chakravartyharish/question-extractor/internal/validate"
)

// Options control one driver run.
type Options struct {
	BatchSize     int
	Resume        bool
	DryRun        bool
	StartQuestion int // inclusive; 0 means unbounded
	EndQuestion   int // inclusive; 0 means unbounded
}

// Summary is the outcome of a run.
type Summary struct {
	Total       int // records remaining after range and resume filtering
	SkippedDone int // records skipped because a previous run completed them
	Succeeded   int
	Failed      int
	Interrupted bool
	Failures    []llm.StructureError // terminal per-record failures, in order
}

// Driver orchestrates the batch pipeline: resume filtering, per-record
// validation and structuring, batch persistence and progress checkpointing.
// It exclusively owns the progress state and the cost ledger for the
// duration of a run.
type Driver struct {
	paths      common.PathConfig
	structurer llm.Structurer
	tracker    *cost.Tracker
	faillog    *FailureLog
	logger     *slog.Logger
	opts       Options
}

func NewDriver(paths common.PathConfig, structurer llm.Structurer, tracker *cost.Tracker, logger *slog.Logger, opts Options) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = 10
	}
	return &Driver{
		paths:      paths,
		structurer: structurer,
		tracker:    tracker,
		faillog:    NewFailureLog(paths.FailedLog),
		logger:     logger,
		opts:       opts,
	}
}

// Run processes records in ascending question order, in batches. Each batch
// is flushed (batch file, then progress checkpoint) before the next one
// starts; that flush is the atomicity boundary for crash recovery. A
// cancelled context stops dispatching, flushes whatever the current batch
// already completed, and returns a Summary with Interrupted set; it is not an
// error.
func (d *Driver) Run(ctx context.Context, records []question.Record) (Summary, error) {
	var sum Summary

	state := NewState()
	if d.opts.Resume && !d.opts.DryRun {
		loaded, err := LoadState(d.paths.ProgressFile)
		if err != nil {
			return sum, err
		}
		state = loaded
	}
	if !d.opts.DryRun {
		highest, err := HighestBatchIndex(d.paths.BatchesDir)
		if err != nil {
			return sum, err
		}
		if highest > state.LastBatchIndex {
			// A previous run crashed after writing a batch file but before
			// saving the checkpoint. Continue past the orphaned files; the
			// merge step dedupes any re-structured questions by number.
			d.logger.Warn("pipeline.progress.reconciled",
				"checkpoint_index", state.LastBatchIndex,
				"on_disk_index", highest,
			)
			state.LastBatchIndex = highest
		}
	}

	work := d.filter(records, state, &sum)
	sum.Total = len(work)
	d.logger.Info("pipeline.start",
		"records", len(records),
		"remaining", len(work),
		"skipped_done", sum.SkippedDone,
		"batch_size", d.opts.BatchSize,
		"resume", d.opts.Resume,
		"dry_run", d.opts.DryRun,
	)

	for start := 0; start < len(work); start += d.opts.BatchSize {
		end := start + d.opts.BatchSize
		if end > len(work) {
			end = len(work)
		}
		batch := work[start:end]

		results, interrupted := d.processBatch(ctx, batch, state, &sum)

		if err := d.flush(state, results); err != nil {
			return sum, err
		}
		if d.tracker != nil {
			d.logger.Info("pipeline.batch.done",
				"succeeded_so_far", sum.Succeeded,
				"failed_so_far", sum.Failed,
				"cost_so_far_usd", d.tracker.Estimate().TotalCost,
			)
		}
		if interrupted {
			sum.Interrupted = true
			d.logger.Warn("pipeline.interrupted", "flushed", true)
			break
		}
	}

	d.logger.Info("pipeline.done",
		"succeeded", sum.Succeeded,
		"failed", sum.Failed,
		"interrupted", sum.Interrupted,
	)
	return sum, nil
}

// filter applies the question-number range, then drops already-completed
// numbers when resuming. Failed numbers are kept so a resumed run retries
// them.
func (d *Driver) filter(records []question.Record, state *State, sum *Summary) []question.Record {
	sorted := make([]question.Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Number < sorted[j].Number })

	var work []question.Record
	for _, rec := range sorted {
		if d.opts.StartQuestion > 0 && rec.Number < d.opts.StartQuestion {
			continue
		}
		if d.opts.EndQuestion > 0 && rec.Number > d.opts.EndQuestion {
			continue
		}
		if state.IsCompleted(rec.Number) {
			sum.SkippedDone++
			d.logger.Info("pipeline.skip.completed", "number", rec.Number)
			continue
		}
		work = append(work, rec)
	}
	return work
}

// processBatch runs every record of one batch and returns the in-memory
// successes. The second result is true when the context was cancelled;
// records not yet attempted are left pending for the next resumed run.
func (d *Driver) processBatch(ctx context.Context, batch []question.Record, state *State, sum *Summary) ([]question.Structured, bool) {
	var results []question.Structured

	for _, rec := range batch {
		if ctx.Err() != nil {
			return results, true
		}

		if res := validate.Record(rec); !res.OK {
			d.fail(state, sum, rec.Number, "validation: "+strings.Join(res.Violations, "; "))
			continue
		}

		if d.opts.DryRun {
			d.logger.Info("pipeline.dry_run.validated", "number", rec.Number)
			sum.Succeeded++
			continue
		}

		structured, usage, err := d.structurer.Structure(ctx, rec)
		if err != nil {
			if ctx.Err() != nil {
				// The in-flight call was aborted by the interrupt; leave the
				// record pending rather than recording a spurious failure.
				return results, true
			}
			d.fail(state, sum, rec.Number, err.Error())
			continue
		}
		d.logger.Debug("pipeline.structured",
			"number", rec.Number,
			"input_tokens", usage.InputTokens,
			"output_tokens", usage.OutputTokens,
		)

		if res := validate.Structured(structured); !res.OK {
			d.fail(state, sum, rec.Number, "validation: "+strings.Join(res.Violations, "; "))
			continue
		}

		results = append(results, structured)
		state.MarkCompleted(rec.Number)
		sum.Succeeded++
	}
	return results, false
}

// flush persists the batch's successes as a new sequential batch file and
// then durably writes the progress checkpoint. Dry runs persist nothing.
func (d *Driver) flush(state *State, results []question.Structured) error {
	if d.opts.DryRun {
		return nil
	}
	if len(results) > 0 {
		index := state.LastBatchIndex + 1
		path, err := WriteBatch(d.paths.BatchesDir, index, results)
		if err != nil {
			return err
		}
		state.LastBatchIndex = index
		d.logger.Info("pipeline.batch.saved", "index", index, "questions", len(results), "file", path)
	}
	return state.Save(d.paths.ProgressFile)
}

// fail records a per-record failure in the checkpoint and the failure log.
// Per-record failures never abort the run.
func (d *Driver) fail(state *State, sum *Summary, number int, reason string) {
	sum.Failed++
	sum.Failures = append(sum.Failures, llm.StructureError{Number: number, Reason: reason})
	d.logger.Warn("pipeline.record.failed", "number", number, "reason", reason)
	if d.opts.DryRun {
		return
	}
	state.MarkFailed(number, reason)
	if err := d.faillog.Append(number, reason); err != nil {
		d.logger.Error("pipeline.faillog.error", "number", number, "error", err)
	}
}
