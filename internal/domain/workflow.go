package domain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"tcoracle.dev/pkg/tcoracle/internal/adapter"
	"tcoracle.dev/pkg/tcoracle/internal/controller"
	m "tcoracle.dev/pkg/tcoracle/internal/model"
	pkg "tcoracle.dev/pkg/tcoracle/pkg"
)

// ErrInvalidManifest is returned when the results manifest cannot be read or
// does not match its schema.
var ErrInvalidManifest = errors.New("invalid manifest")

// ReportFilename is the default report name, written next to the manifest.
const ReportFilename = "evaluation_tiered.json"

// EvaluateArgs contains the arguments for evaluating a manifest.
type EvaluateArgs struct {
	Manifest m.Path
	Output   m.Path
	MaxLevel int
	Parallel int
	// Journal is the JSON-lines file used to resume an interrupted run.
	// Empty disables journaling.
	Journal m.Path
}

// CheckArgs contains the arguments for running analyzers over sources.
type CheckArgs struct {
	Paths    []m.Path
	Manifest m.Path
	Checkers map[string][]string
	Parallel int
}

// Workflow defines the top-level operations of the oracle.
type Workflow interface {
	Evaluate(ctx context.Context, args EvaluateArgs) (m.Report, error)
	Check(ctx context.Context, args CheckArgs) (m.Manifest, error)
}

type workflow struct {
	adapter.ReportStore
	adapter.SourceFSAdapter
	adapter.AnalyzerRunnerAdapter
	controller.UI
	oracle Oracle
}

// NewWorkflow creates a new Workflow instance with the provided dependencies.
func NewWorkflow(
	fsAdapter adapter.SourceFSAdapter,
	reportStore adapter.ReportStore,
	analyzers adapter.AnalyzerRunnerAdapter,
	ui controller.UI,
	oracle Oracle,
) Workflow {
	return &workflow{
		SourceFSAdapter:       fsAdapter,
		ReportStore:           reportStore,
		AnalyzerRunnerAdapter: analyzers,
		UI:                    ui,
		oracle:                oracle,
	}
}

type journalEntry struct {
	Key    string        `json:"key"`
	Result m.ResultEntry `json:"result"`
}

// exampleOutcome is the slot one worker fills for one manifest entry.
type exampleOutcome struct {
	result  m.ResultEntry
	skipped bool
}

func (w *workflow) Evaluate(ctx context.Context, args EvaluateArgs) (m.Report, error) {
	if err := ValidateLevel(args.MaxLevel); err != nil {
		return m.Report{}, err
	}

	manifest, err := w.LoadManifest(ctx, args.Manifest)
	if err != nil {
		return m.Report{}, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}

	parallel := max(args.Parallel, 1)

	journal, resumed := w.openJournal(ctx, args.Journal)
	if journal != nil {
		defer func() {
			_ = journal.Close()
		}()
	}

	if err := w.Start(ctx, controller.WithEvaluateMode()); err != nil {
		return m.Report{}, err
	}
	defer w.Close(ctx)

	w.DisplayRunInfo(ctx, controller.RunInfo{
		Manifest: args.Manifest,
		Examples: len(manifest.Results),
		MaxLevel: args.MaxLevel,
		Parallel: parallel,
		Checkers: manifest.Checkers(),
		Resumed:  len(resumed),
	})

	baseDir := filepath.Dir(string(args.Manifest))
	total := len(manifest.Results)
	outcomes := make([]exampleOutcome, total)

	var journalMutex sync.Mutex

	var group errgroup.Group
	group.SetLimit(parallel)

	for i, entry := range manifest.Results {
		group.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			name := exampleName(entry)
			path := w.resolveSource(ctx, baseDir, entry.Filepath)

			source, err := w.ReadFile(ctx, path)
			if err != nil {
				slog.Warn("skipping example", "filename", name, "path", path, "error", err)
				w.DisplaySkipped(ctx, name, err)
				outcomes[i].skipped = true

				return nil
			}

			key := journalKey(source, entry.Outputs, args.MaxLevel)
			if result, ok := resumed[key]; ok {
				slog.Debug("example resumed from journal", "filename", name)
				outcomes[i].result = result
				w.DisplayExampleResult(ctx, i+1, total, result)

				return nil
			}

			result := m.NewResultEntry(w.oracle.Evaluate(ctx, EvaluateRequest{
				Filename: name,
				Source:   source,
				Outputs:  entry.Outputs,
				MaxLevel: args.MaxLevel,
			}))
			outcomes[i].result = result

			if journal != nil && ctx.Err() == nil {
				journalMutex.Lock()
				err := journal.Append(journalEntry{Key: key, Result: result})
				journalMutex.Unlock()

				if err != nil {
					slog.Warn("journal append failed", "filename", name, "error", err)
				}
			}

			w.DisplayExampleResult(ctx, i+1, total, result)

			return nil
		})
	}

	_ = group.Wait()

	if err := ctx.Err(); err != nil {
		return m.Report{}, err
	}

	report := buildReport(manifest, outcomes, args.MaxLevel)

	output := args.Output
	if output == "" {
		output = m.Path(filepath.Join(baseDir, ReportFilename))
	}

	if err := w.SaveReport(ctx, output, report); err != nil {
		slog.Error("failed to save report", "path", output, "error", err)
		return report, fmt.Errorf("save report: %w", err)
	}

	w.DisplaySummary(ctx, report, killRate(report.Results))
	slog.Info("evaluation finished", "results", len(report.Results), "skipped", len(report.Skipped), "output", output)

	return report, nil
}

func buildReport(manifest m.Manifest, outcomes []exampleOutcome, maxLevel int) m.Report {
	report := m.Report{
		Method:            "tiered",
		RunID:             uuid.NewString(),
		GeneratedAt:       time.Now().UTC(),
		MaxLevel:          maxLevel,
		LevelDistribution: map[int]int{1: 0, 2: 0, 3: 0},
		Summary:           map[string]m.CheckerSummary{},
		Skipped:           []string{},
		Results:           []m.ResultEntry{},
	}

	for _, checker := range manifest.Checkers() {
		report.Summary[checker] = m.CheckerSummary{}
	}

	for i, outcome := range outcomes {
		if outcome.skipped {
			report.Skipped = append(report.Skipped, exampleName(manifest.Results[i]))
			continue
		}

		result := outcome.result
		report.LevelDistribution[result.LevelReached]++

		for name, verdict := range result.Verdicts {
			summary := report.Summary[name]
			summary.Add(verdict.Outcome)
			report.Summary[name] = summary
		}

		report.Results = append(report.Results, result)
	}

	return report
}

func exampleName(entry m.ManifestEntry) string {
	if entry.Filename != "" {
		return entry.Filename
	}

	return filepath.Base(entry.Filepath)
}

// resolveSource keeps paths that exist as given and otherwise resolves
// relative paths against the manifest directory.
func (w *workflow) resolveSource(ctx context.Context, baseDir, path string) m.Path {
	if filepath.IsAbs(path) {
		return m.Path(path)
	}

	if _, err := w.FileInfo(ctx, m.Path(path)); err == nil {
		return m.Path(path)
	}

	return w.JoinPath(baseDir, path)
}

// journalKey fingerprints everything that determines an example's result.
func journalKey(source []byte, outputs map[string]string, maxLevel int) string {
	h := sha256.New()
	_, _ = h.Write(source)

	for _, name := range slices.Sorted(maps.Keys(outputs)) {
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(name))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(outputs[name]))
	}

	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(strconv.Itoa(maxLevel)))

	return hex.EncodeToString(h.Sum(nil))
}

// openJournal opens the resume journal and indexes the results it already
// holds. A journal that cannot be opened disables journaling for the run.
func (w *workflow) openJournal(ctx context.Context, path m.Path) (pkg.FileSpill[journalEntry], map[string]m.ResultEntry) {
	resumed := map[string]m.ResultEntry{}

	if path == "" {
		return nil, resumed
	}

	if err := w.MkdirAll(ctx, m.Path(filepath.Dir(string(path)))); err != nil {
		slog.Warn("journal unavailable", "path", path, "error", err)
		return nil, resumed
	}

	journal, err := pkg.OpenFileSpill[journalEntry](string(path))
	if err != nil {
		slog.Warn("journal unavailable", "path", path, "error", err)
		return nil, resumed
	}

	err = journal.Range(func(_ uint64, entry journalEntry) error {
		resumed[entry.Key] = entry.Result
		return nil
	})
	if err != nil {
		slog.Warn("journal unreadable", "path", path, "error", err)
		_ = journal.Close()

		return nil, map[string]m.ResultEntry{}
	}

	slog.Debug("journal opened", "path", journal.Path(), "entries", journal.Len(), "resumable", len(resumed))

	return journal, resumed
}

func (w *workflow) Check(ctx context.Context, args CheckArgs) (m.Manifest, error) {
	files, err := w.FindPythonFiles(ctx, args.Paths)
	if err != nil {
		return m.Manifest{}, fmt.Errorf("find python files: %w", err)
	}

	if err := w.Start(ctx, controller.WithCheckMode()); err != nil {
		return m.Manifest{}, err
	}
	defer w.Close(ctx)

	checkers := slices.Sorted(maps.Keys(args.Checkers))
	entries := make([]m.ManifestEntry, len(files))

	var group errgroup.Group
	group.SetLimit(max(args.Parallel, 1))

	for i, file := range files {
		group.Go(func() error {
			outputs := make(map[string]string, len(checkers))

			for _, name := range checkers {
				if ctx.Err() != nil {
					return ctx.Err()
				}

				outputs[name] = w.Run(ctx, args.Checkers[name], string(file))
			}

			entries[i] = m.ManifestEntry{
				Filename: filepath.Base(string(file)),
				Filepath: string(file),
				Outputs:  outputs,
			}

			slog.Debug("analyzers finished", "file", file, "checkers", len(checkers))

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return m.Manifest{}, err
	}

	manifest := m.Manifest{
		Timestamp:    time.Now().Format(time.RFC3339),
		CheckersUsed: checkers,
		Results:      entries,
	}

	if args.Manifest != "" {
		if err := w.SaveManifest(ctx, args.Manifest, manifest); err != nil {
			return manifest, fmt.Errorf("save manifest: %w", err)
		}
	}

	w.DisplayManifest(ctx, manifest, args.Manifest)

	return manifest, nil
}
