package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// NoOutputText is recorded when an analyzer prints nothing.
const NoOutputText = "Success (No Output)"

// AnalyzerRunnerAdapter runs an external static analyzer on one file. The
// result is always opaque text; failures are folded into the text.
type AnalyzerRunnerAdapter interface {
	Run(ctx context.Context, argv []string, file string) string
}

// LocalAnalyzerRunnerAdapter runs analyzers as subprocesses.
type LocalAnalyzerRunnerAdapter struct {
	timeout time.Duration
}

// NewLocalAnalyzerRunnerAdapter constructs a runner with a per-run timeout
// (default 60s).
func NewLocalAnalyzerRunnerAdapter(timeout time.Duration) *LocalAnalyzerRunnerAdapter {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &LocalAnalyzerRunnerAdapter{timeout: timeout}
}

// Run executes `argv... file` and returns stdout with stderr appended under
// a [STDERR] separator.
func (a *LocalAnalyzerRunnerAdapter) Run(ctx context.Context, argv []string, file string) string {
	if len(argv) == 0 {
		return "Error: empty analyzer command."
	}

	runCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	args := append(append([]string{}, argv[1:]...), file)
	cmd := exec.CommandContext(runCtx, argv[0], args...)
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	var execErr *exec.Error
	if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
		slog.Warn("analyzer not found", "command", argv[0])
		return fmt.Sprintf("Error: Command '%s' not found in PATH.", argv[0])
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		slog.Warn("analyzer timed out", "command", argv[0], "file", file, "timeout", a.timeout)
		return fmt.Sprintf("[TIMEOUT] %s exceeded %s on %s", argv[0], a.timeout, file)
	}

	return CombineAnalyzerOutput(stdout.String(), stderr.String())
}

// CombineAnalyzerOutput merges the two streams the way results.json stores them.
func CombineAnalyzerOutput(stdout, stderr string) string {
	output := stdout
	if stderr != "" {
		output += "\n[STDERR]\n" + stderr
	}

	output = strings.TrimSpace(output)
	if output == "" {
		return NoOutputText
	}

	return output
}
