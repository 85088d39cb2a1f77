package controller

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	m "tcoracle.dev/pkg/tcoracle/internal/model"
)

// SimpleUI implements UI using the cobra command's output writer.
type SimpleUI struct {
	cmd *cobra.Command
	mu  sync.Mutex
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context, _ ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return nil
}

// Close finalizes the UI.
func (s *SimpleUI) Close(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
}

// Wait blocks until the UI is closed (no-op for SimpleUI).
func (s *SimpleUI) Wait(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
}

// DisplayRunInfo prints what is about to be evaluated.
func (s *SimpleUI) DisplayRunInfo(ctx context.Context, info RunInfo) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("Evaluating %d example(s) from %s up to level %d with %d worker(s)\n",
		info.Examples, info.Manifest, info.MaxLevel, info.Parallel)

	if info.Resumed > 0 {
		s.printf("Resuming: %d example(s) already in the journal\n", info.Resumed)
	}
}

// DisplayExampleResult prints the progress block of one evaluated example.
func (s *SimpleUI) DisplayExampleResult(ctx context.Context, index, total int, result m.ResultEntry) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("%s", formatExample(index, total, result, plainPalette))
}

// DisplaySkipped prints a notice for an example whose source could not be read.
func (s *SimpleUI) DisplaySkipped(ctx context.Context, filename string, err error) {
	if ctx.Err() != nil {
		return
	}

	s.printf("Skipping %s: %v\n", filename, err)
}

// DisplaySummary prints the level distribution and the per-checker table.
func (s *SimpleUI) DisplaySummary(ctx context.Context, report m.Report, killRate float64) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("%s", formatSummary(report, killRate, plainPalette))
}

// DisplayManifest prints the analyzer outputs collected by a check run.
func (s *SimpleUI) DisplayManifest(ctx context.Context, manifest m.Manifest, path m.Path) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("\n%s", renderManifestTable(manifest))
	s.printf("Manifest written to %s\n", path)
}

// DisplayReport prints a saved report in full.
func (s *SimpleUI) DisplayReport(ctx context.Context, report m.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("%s", formatReport(report, plainPalette))

	return nil
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}
