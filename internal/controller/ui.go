// Package controller provides output adapters for displaying oracle progress and reports.
package controller

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"
	m "tcoracle.dev/pkg/tcoracle/internal/model"
)

// StartMode defines the mode of operation for the UI.
type StartMode int

// Available StartMode values.
const (
	ModeEvaluate StartMode = iota
	ModeCheck
	ModeView
)

// StartOption is a functional option for Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	mode StartMode
}

// WithEvaluateMode sets the UI to evaluation mode.
func WithEvaluateMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeEvaluate
	}
}

// WithCheckMode sets the UI to analyzer run mode.
func WithCheckMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeCheck
	}
}

// WithViewMode sets the UI to report viewing mode.
func WithViewMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeView
	}
}

// RunInfo describes an evaluation before it starts.
type RunInfo struct {
	Manifest m.Path
	Examples int
	MaxLevel int
	Parallel int
	Checkers []string
	Resumed  int
}

// UI defines the interface for displaying evaluation progress and reports.
// Implementations can use different output methods (simple text, TUI, etc).
// Display methods may be called from concurrent workers.
type UI interface {
	Start(ctx context.Context, options ...StartOption) error
	Close(ctx context.Context)
	Wait(ctx context.Context)
	DisplayRunInfo(ctx context.Context, info RunInfo)
	DisplayExampleResult(ctx context.Context, index, total int, result m.ResultEntry)
	DisplaySkipped(ctx context.Context, filename string, err error)
	DisplaySummary(ctx context.Context, report m.Report, killRate float64)
	DisplayManifest(ctx context.Context, manifest m.Manifest, path m.Path)
	DisplayReport(ctx context.Context, report m.Report) error
}

// NewUI returns the interactive UI when interactive output is requested and
// the command writes to a terminal, and the plain UI otherwise.
func NewUI(cmd *cobra.Command, interactive bool) UI {
	if interactive && IsTTY(cmd.OutOrStdout()) {
		return NewTUI(cmd.OutOrStdout())
	}

	return NewSimpleUI(cmd)
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return term.IsTerminal(f.Fd())
}
