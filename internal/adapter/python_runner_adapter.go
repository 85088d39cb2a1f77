package adapter

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	m "tcoracle.dev/pkg/tcoracle/internal/model"
)

//go:embed harness.py
var harnessSource string

// ErrInterpreterUnavailable is returned when the configured interpreter
// cannot be started.
var ErrInterpreterUnavailable = errors.New("python interpreter unavailable")

// ErrNoResult is returned when the harness exited without reporting.
var ErrNoResult = errors.New("harness produced no result")

const (
	defaultRunTimeout = 30 * time.Second
	maxDiagnostics    = 8 * 1024
)

// Unit is one named chunk of Python source executed in the shared scope.
type Unit struct {
	Filename string `json:"filename"`
	Source   string `json:"source"`
}

// RunRequest describes one interpreter run. Units are executed in order in a
// single fresh module namespace; Target names the unit whose line numbers
// are reported for escaping exceptions.
type RunRequest struct {
	Units  []Unit
	Target string
	// Module is the __name__ the units run under. Empty runs them as __main__.
	Module string
}

// PythonRunnerAdapter runs Python code in an isolated interpreter process.
type PythonRunnerAdapter interface {
	// Run executes the request. A timeout is reported through
	// Execution.TimedOut; errors are reserved for infrastructure failures.
	Run(ctx context.Context, req RunRequest) (m.Execution, error)
}

// LocalPythonRunnerAdapter starts one python subprocess per run.
type LocalPythonRunnerAdapter struct {
	python  string
	timeout time.Duration
}

// NewLocalPythonRunnerAdapter constructs a runner. Empty or zero arguments
// select python3 and a 30s timeout.
func NewLocalPythonRunnerAdapter(python string, timeout time.Duration) *LocalPythonRunnerAdapter {
	if python == "" {
		python = "python3"
	}

	if timeout <= 0 {
		timeout = defaultRunTimeout
	}

	return &LocalPythonRunnerAdapter{python: python, timeout: timeout}
}

type harnessRequest struct {
	Units      []Unit `json:"units"`
	Target     string `json:"target"`
	Module     string `json:"module,omitempty"`
	ResultPath string `json:"result_path"`
}

type harnessResult struct {
	OK        bool               `json:"ok"`
	Stdout    string             `json:"stdout"`
	Exception *m.RaisedException `json:"exception"`
}

// Run executes the request in a fresh interpreter.
func (a *LocalPythonRunnerAdapter) Run(ctx context.Context, req RunRequest) (m.Execution, error) {
	resultFile, err := os.CreateTemp("", "tcoracle-result-*.json")
	if err != nil {
		return m.Execution{}, fmt.Errorf("create result file: %w", err)
	}

	resultPath := resultFile.Name()
	_ = resultFile.Close()

	defer func() {
		_ = os.Remove(resultPath)
	}()

	payload, err := json.Marshal(harnessRequest{Units: req.Units, Target: req.Target, Module: req.Module, ResultPath: resultPath})
	if err != nil {
		return m.Execution{}, fmt.Errorf("encode harness request: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, a.python, "-c", harnessSource)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Env = append(os.Environ(),
		"PYTHONDONTWRITEBYTECODE=1",
		"PYTHONIOENCODING=utf-8",
		"PYTHONHASHSEED=0",
	)
	cmd.WaitDelay = time.Second

	var output tailBuffer

	output.limit = maxDiagnostics
	cmd.Stdout = &output
	cmd.Stderr = &output

	runErr := cmd.Run()

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		slog.Debug("python run timed out", "target", req.Target, "timeout", a.timeout)
		return m.Execution{TimedOut: true}, nil
	}

	if ctx.Err() != nil {
		return m.Execution{}, ctx.Err()
	}

	var execErr *exec.Error
	if errors.As(runErr, &execErr) {
		return m.Execution{}, fmt.Errorf("%w: %s: %v", ErrInterpreterUnavailable, a.python, execErr.Err)
	}

	raw, err := os.ReadFile(resultPath)
	if err != nil || len(bytes.TrimSpace(raw)) == 0 {
		slog.Error("harness produced no result", "target", req.Target, "error", runErr, "output", output.String())
		return m.Execution{}, fmt.Errorf("%w: %s", ErrNoResult, output.String())
	}

	var result harnessResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return m.Execution{}, fmt.Errorf("decode harness result: %w", err)
	}

	return m.Execution{
		OK:        result.OK,
		Stdout:    result.Stdout,
		Exception: result.Exception,
	}, nil
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	buf   []byte
	limit int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = b.buf[over:]
	}

	return len(p), nil
}

func (b *tailBuffer) String() string {
	return string(b.buf)
}
