package domain

import (
	"context"
	"log/slog"
	"strings"

	"tcoracle.dev/pkg/tcoracle/internal/adapter"
	m "tcoracle.dev/pkg/tcoracle/internal/model"
)

// ExampleFilename is the code filename every evaluated unit is compiled under.
const ExampleFilename = "<example>"

// ImportedModuleName is the __name__ of examples driven by synthesized calls,
// which keeps their `if __name__ == "__main__":` block from running.
const ImportedModuleName = "__tc_example__"

const (
	directConfidence    = 1.0
	heuristicConfidence = 0.7
	messageLimit        = 200
)

// Sandbox runs Python units in a fresh interpreter and turns escaped
// exceptions into faults.
type Sandbox interface {
	// Execute runs the unmodified source. success is false when any
	// exception escaped or the run could not complete.
	Execute(ctx context.Context, source []byte) (faults []m.TypeFault, success bool, stdout string)

	// Run executes units in one shared namespace. ok is false on
	// infrastructure failure, which has already been logged.
	Run(ctx context.Context, units ...adapter.Unit) (m.Execution, bool)

	// RunImported is Run with the units loaded as ImportedModuleName
	// instead of __main__.
	RunImported(ctx context.Context, units ...adapter.Unit) (m.Execution, bool)
}

type sandbox struct {
	runner adapter.PythonRunnerAdapter
}

// NewSandbox wires a Sandbox to an interpreter runner.
func NewSandbox(runner adapter.PythonRunnerAdapter) Sandbox {
	return &sandbox{runner: runner}
}

func (s *sandbox) Execute(ctx context.Context, source []byte) ([]m.TypeFault, bool, string) {
	res, ok := s.Run(ctx, adapter.Unit{Filename: ExampleFilename, Source: string(source)})
	if !ok {
		return []m.TypeFault{}, false, ""
	}

	if !res.Crashed() {
		return []m.TypeFault{}, true, res.Stdout
	}

	fault, found := ClassifyDirect(res.Exception)
	if !found {
		slog.Debug("exception is not type evidence", "exception", res.Exception.Name)
		return []m.TypeFault{}, false, res.Stdout
	}

	return []m.TypeFault{fault}, false, res.Stdout
}

func (s *sandbox) Run(ctx context.Context, units ...adapter.Unit) (m.Execution, bool) {
	return s.run(ctx, "", units)
}

func (s *sandbox) RunImported(ctx context.Context, units ...adapter.Unit) (m.Execution, bool) {
	return s.run(ctx, ImportedModuleName, units)
}

func (s *sandbox) run(ctx context.Context, module string, units []adapter.Unit) (m.Execution, bool) {
	res, err := s.runner.Run(ctx, adapter.RunRequest{Units: units, Target: ExampleFilename, Module: module})
	if err != nil {
		slog.Warn("interpreter run failed", "module", module, "error", err)
		return m.Execution{}, false
	}

	if res.TimedOut {
		slog.Warn("interpreter run timed out")
		return m.Execution{}, false
	}

	return res, true
}

// ClassifyDirect maps an exception from an unmodified run to a fault.
// Exceptions that carry no type evidence report false.
func ClassifyDirect(exc *m.RaisedException) (m.TypeFault, bool) {
	if exc == nil {
		return m.TypeFault{}, false
	}

	fault := m.TypeFault{
		Line:       exc.Line,
		Source:     m.SourceDirectExecution,
		Confidence: directConfidence,
		Exception:  exc.Name,
		Message:    truncate(exc.Message, messageLimit),
	}

	switch {
	case IsEnforcementViolation(exc):
		fault.Kind = m.KindEnforcementViolation
	case exc.Is("TypeError"):
		fault.Kind = m.KindTypeMismatch
	case exc.Is("KeyError"):
		fault.Kind = m.KindMissingKey
		fault.Message = "KeyError: " + fault.Message
	case exc.Is("AttributeError"):
		fault.Kind = m.KindMissingAttribute
	case mentions(exc.Message, "type"):
		fault.Kind = m.KindTypeMismatch
		fault.Confidence = heuristicConfidence
	default:
		return m.TypeFault{}, false
	}

	return fault, true
}

// kindOf maps the three type-fault exception families to a fault kind.
func kindOf(exc *m.RaisedException) (m.FaultKind, bool) {
	switch {
	case IsEnforcementViolation(exc):
		return m.KindEnforcementViolation, true
	case exc.Is("TypeError"):
		return m.KindTypeMismatch, true
	case exc.Is("KeyError"):
		return m.KindMissingKey, true
	case exc.Is("AttributeError"):
		return m.KindMissingAttribute, true
	}

	return "", false
}

func mentions(message string, words ...string) bool {
	lower := strings.ToLower(message)

	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}

	return false
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	return string(runes[:limit])
}
