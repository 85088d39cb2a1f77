package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// ErrCoverageUnavailable is returned when coverage.py cannot produce a report.
var ErrCoverageUnavailable = errors.New("coverage report unavailable")

const (
	coverageTargetFile = "target.py"
	coverageDriverFile = "driver.py"
)

// CoverageRequest is one coverage measurement. Target is always written as
// target.py and is the file whose coverage is reported. When Driver is set it
// is written as driver.py and becomes the entry point instead of the target.
type CoverageRequest struct {
	Target string
	Driver string
}

// CoverageReport is the line coverage of target.py.
type CoverageReport struct {
	Percent  float64
	Executed []int
	Missing  []int
}

// CoverageAdapter measures line and branch coverage of a Python program.
type CoverageAdapter interface {
	Measure(ctx context.Context, req CoverageRequest) (CoverageReport, error)
}

// LocalCoverageAdapter drives coverage.py through the configured interpreter.
type LocalCoverageAdapter struct {
	python        string
	runTimeout    time.Duration
	reportTimeout time.Duration
	fs            SourceFSAdapter
}

// NewLocalCoverageAdapter constructs a LocalCoverageAdapter.
func NewLocalCoverageAdapter(python string, runTimeout, reportTimeout time.Duration, fs SourceFSAdapter) *LocalCoverageAdapter {
	if python == "" {
		python = "python3"
	}

	if runTimeout <= 0 {
		runTimeout = 30 * time.Second
	}

	if reportTimeout <= 0 {
		reportTimeout = 10 * time.Second
	}

	return &LocalCoverageAdapter{
		python:        python,
		runTimeout:    runTimeout,
		reportTimeout: reportTimeout,
		fs:            fs,
	}
}

type coverageJSON struct {
	Files map[string]struct {
		ExecutedLines []int `json:"executed_lines"`
		MissingLines  []int `json:"missing_lines"`
		Summary       struct {
			PercentCovered float64 `json:"percent_covered"`
			NumStatements  int     `json:"num_statements"`
		} `json:"summary"`
	} `json:"files"`
}

// Measure runs the program under coverage in a private temp dir that is
// always removed.
func (a *LocalCoverageAdapter) Measure(ctx context.Context, req CoverageRequest) (CoverageReport, error) {
	tmpDir, err := a.fs.CreateTempDir(ctx, "tcoracle-cov-*")
	if err != nil {
		return CoverageReport{}, fmt.Errorf("create coverage dir: %w", err)
	}

	defer func() {
		if err := a.fs.RemoveAll(ctx, tmpDir); err != nil {
			slog.Warn("failed to remove coverage dir", "dir", tmpDir, "error", err)
		}
	}()

	entry := coverageTargetFile
	if err := a.fs.WriteFile(ctx, a.fs.JoinPath(string(tmpDir), coverageTargetFile), []byte(req.Target), 0o600); err != nil {
		return CoverageReport{}, fmt.Errorf("write coverage target: %w", err)
	}

	if req.Driver != "" {
		entry = coverageDriverFile
		if err := a.fs.WriteFile(ctx, a.fs.JoinPath(string(tmpDir), coverageDriverFile), []byte(req.Driver), 0o600); err != nil {
			return CoverageReport{}, fmt.Errorf("write coverage driver: %w", err)
		}
	}

	// The program may legitimately crash; coverage still records the data file.
	if _, err := a.python3(ctx, string(tmpDir), a.runTimeout, "-m", "coverage", "run", "--branch", entry); err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) || errors.Is(err, context.DeadlineExceeded) {
			return CoverageReport{}, fmt.Errorf("%w: %v", ErrCoverageUnavailable, err)
		}
	}

	out, err := a.python3(ctx, string(tmpDir), a.reportTimeout, "-m", "coverage", "json", "-o", "-")
	if err != nil {
		return CoverageReport{}, fmt.Errorf("%w: %v", ErrCoverageUnavailable, err)
	}

	return parseCoverageJSON(out)
}

func (a *LocalCoverageAdapter) python3(ctx context.Context, dir string, timeout time.Duration, args ...string) ([]byte, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, a.python, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "PYTHONDONTWRITEBYTECODE=1", "PYTHONHASHSEED=0")
	cmd.WaitDelay = time.Second

	var stdout bytes.Buffer

	stderr := tailBuffer{limit: maxDiagnostics}
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if runCtx.Err() != nil {
		return nil, runCtx.Err()
	}

	if err != nil {
		return stdout.Bytes(), fmt.Errorf("%s %v: %w: %s", a.python, args, err, stderr.String())
	}

	return stdout.Bytes(), nil
}

func parseCoverageJSON(out []byte) (CoverageReport, error) {
	start := bytes.IndexByte(out, '{')
	if start < 0 {
		return CoverageReport{}, fmt.Errorf("%w: no json in output", ErrCoverageUnavailable)
	}

	var doc coverageJSON
	if err := json.Unmarshal(out[start:], &doc); err != nil {
		return CoverageReport{}, fmt.Errorf("%w: %v", ErrCoverageUnavailable, err)
	}

	for name, file := range doc.Files {
		if filepath.Base(name) != coverageTargetFile {
			continue
		}

		report := CoverageReport{
			Percent:  file.Summary.PercentCovered,
			Executed: file.ExecutedLines,
			Missing:  file.MissingLines,
		}
		if file.Summary.NumStatements == 0 {
			report.Percent = 100
		}

		return report, nil
	}

	// Nothing in the target ran at all; coverage omits unimported files.
	return CoverageReport{}, nil
}
