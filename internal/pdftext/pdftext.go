package pdftext

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Extractor pulls plain text out of a PDF by shelling out to pdftotext.
type Extractor struct {
	runner Runner
	logger *slog.Logger
}

func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{runner: execRunner{}, logger: logger}
}

// NewExtractorWithRunner is used by tests to stub the external binary.
func NewExtractorWithRunner(runner Runner, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{runner: runner, logger: logger}
}

// ExtractPages returns the text of each page of the PDF. pdftotext separates
// pages with form feeds, so one split recovers the page boundaries.
func (e *Extractor) ExtractPages(ctx context.Context, pdfPath string) ([]string, error) {
	if _, err := os.Stat(pdfPath); err != nil {
		return nil, fmt.Errorf("pdf not found: %w", err)
	}

	// -layout keeps option columns readable; "-" streams to stdout.
	out, _, err := e.runner.Run(ctx, "pdftotext", e.logger, "-layout", pdfPath, "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext failed: %w", err)
	}

	pages := strings.Split(string(out), "\f")
	// pdftotext emits a trailing form feed after the last page.
	if n := len(pages); n > 0 && strings.TrimSpace(pages[n-1]) == "" {
		pages = pages[:n-1]
	}

	e.logger.Info("pdftext.extracted", "path", pdfPath, "pages", len(pages))
	return pages, nil
}
