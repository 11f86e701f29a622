package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/chakravartyharish/question-extractor/internal/common"
	"github.com/chakravartyharish/question-extractor/internal/cost"
	"github.com/chakravartyharish/question-extractor/internal/export"
	"github.com/chakravartyharish/question-extractor/internal/extractor"
	"github.com/chakravartyharish/question-extractor/internal/llm"
	"github.com/chakravartyharish/question-extractor/internal/llm/anthropic"
	"github.com/chakravartyharish/question-extractor/internal/pdftext"
	"github.com/chakravartyharish/question-extractor/internal/pipeline"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	os.Exit(run())
}

func run() int {
	// Parse CLI flags
	var (
		pdf        = flag.String("pdf", "", "path to input PDF (overrides env/config)")
		output     = flag.String("output", "", "path to output JSON (overrides env/config)")
		configPath = flag.String("config", "", "optional YAML config file")
		batchSize  = flag.Int("batch-size", 10, "questions per batch")
		resume     = flag.Bool("resume", true, "resume from previous progress")
		noResume   = flag.Bool("no-resume", false, "start from beginning, ignoring previous progress")
		dryRun     = flag.Bool("dry-run", false, "extract and validate only, skip API calls")
		startQ     = flag.Int("start-question", 0, "start from specific question number")
		endQ       = flag.Int("end-question", 0, "end at specific question number")
		xlsxPath   = flag.String("xlsx", "", "optional XLSX summary output path")
	)
	flag.Parse()

	// Load configuration: environment, then optional config file, then flags.
	cfg := common.LoadConfig()
	if *configPath != "" {
		if err := cfg.ApplyFile(*configPath); err != nil {
			printError("Configuration error: %v\n", err)
			return 1
		}
	}
	if *pdf != "" {
		cfg.Paths.PDFPath = *pdf
	}
	if *output != "" {
		cfg.Paths.OutputPath = *output
	}
	if err := cfg.Validate(); err != nil {
		printError("Configuration error: %v\n", err)
		printError("Set ANTHROPIC_API_KEY and pass --pdf <path>.\n")
		return 1
	}
	if err := cfg.Paths.EnsureDirectories(); err != nil {
		printError("Configuration error: %v\n", err)
		return 1
	}

	// Setup logger: JSON to stdout and to a timestamped run log.
	logWriter := io.Writer(os.Stdout)
	logName := filepath.Join(cfg.Paths.LogsDir, "processing_"+time.Now().Format("20060102_150405")+".log")
	logFile, err := os.OpenFile(logName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		printError("warning: cannot open run log %s: %v\n", logName, err)
	} else {
		defer logFile.Close()
		logWriter = io.MultiWriter(os.Stdout, logFile)
	}
	logger := slog.New(slog.NewJSONHandler(logWriter, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	runID := uuid.New().String()
	logger = logger.With("run_id", runID)

	useResume := *resume && !*noResume
	logger.Info("run.start",
		"model", cfg.Model.Model,
		"pdf", cfg.Paths.PDFPath,
		"output", cfg.Paths.OutputPath,
		"batch_size", *batchSize,
		"resume", useResume,
		"dry_run", *dryRun,
	)

	// An interrupt cancels the run context; the driver flushes whatever the
	// current batch has already completed before exiting.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Extract question records from the PDF.
	pages, err := pdftext.NewExtractor(logger).ExtractPages(ctx, cfg.Paths.PDFPath)
	if err != nil {
		logger.Error("run.pdf_extraction_failed", "error", err)
		return 1
	}
	records, skips := extractor.New(logger).ExtractFromPages(pages)
	if len(records) == 0 {
		logger.Error("run.no_questions_extracted", "skipped_blocks", len(skips))
		return 1
	}

	// Wire the driver.
	tracker := &cost.Tracker{}
	var structurer llm.Structurer
	if !*dryRun {
		policy := llm.NewRetryPolicy(cfg.Model.MaxRetries, cfg.Model.ErrorDelay, cfg.Model.RateLimitDelay)
		structurer = anthropic.NewClient(anthropic.Config{
			APIKey:      cfg.Model.APIKey,
			BaseURL:     cfg.Model.BaseURL,
			Version:     cfg.Model.AnthropicVersion,
			Model:       cfg.Model.Model,
			Temperature: cfg.Model.Temperature,
			MaxTokens:   cfg.Model.MaxTokens,
			Timeout:     cfg.Model.Timeout,
		}, policy, tracker, logger)
	}

	driver := pipeline.NewDriver(cfg.Paths, structurer, tracker, logger, pipeline.Options{
		BatchSize:     *batchSize,
		Resume:        useResume,
		DryRun:        *dryRun,
		StartQuestion: *startQ,
		EndQuestion:   *endQ,
	})

	sum, err := driver.Run(ctx, records)
	if err != nil {
		logger.Error("run.failed", "error", err)
		return 1
	}

	if *dryRun {
		logger.Info("run.dry_run_complete",
			"validated", sum.Succeeded,
			"rejected", sum.Failed,
		)
		return 0
	}

	// Merge batch files into the final dataset.
	ds, err := pipeline.Merge(cfg.Paths.BatchesDir, cfg.Paths.OutputPath, logger, time.Now())
	if err != nil {
		logger.Error("run.merge_failed", "error", err)
		return 1
	}

	if *xlsxPath != "" {
		wb, err := export.DatasetXLSX(ds, logger)
		if err != nil {
			logger.Error("run.xlsx_failed", "error", err)
		} else if err := os.WriteFile(*xlsxPath, wb, 0o644); err != nil {
			logger.Error("run.xlsx_write_failed", "error", err)
		}
	}

	tracker.LogSummary(logger)
	logger.Info("run.complete",
		"total", sum.Total,
		"succeeded", sum.Succeeded,
		"failed", sum.Failed,
		"skipped_done", sum.SkippedDone,
		"interrupted", sum.Interrupted,
		"questions_in_output", len(ds.Questions),
		"failed_log", cfg.Paths.FailedLog,
	)
	if sum.Interrupted {
		fmt.Println("Interrupted. Progress has been saved; run again with --resume to continue.")
	}
	fmt.Printf("Processing complete!\n")
	fmt.Printf("- Questions in output: %d\n", len(ds.Questions))
	fmt.Printf("- Succeeded this run: %d\n", sum.Succeeded)
	fmt.Printf("- Failed this run: %d (see %s)\n", sum.Failed, cfg.Paths.FailedLog)
	for _, f := range sum.Failures {
		fmt.Printf("    %s\n", f.Error())
	}
	fmt.Printf("- Output: %s\n", cfg.Paths.OutputPath)
	return 0
}
