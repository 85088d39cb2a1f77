package domain

import (
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"tcoracle.dev/pkg/tcoracle/internal/adapter"
	m "tcoracle.dev/pkg/tcoracle/internal/model"
)

// scriptedRunner answers interpreter runs with a test-provided function and
// records every request it sees.
type scriptedRunner struct {
	mu       sync.Mutex
	requests []adapter.RunRequest
	script   func(req adapter.RunRequest) (m.Execution, error)
}

func newScriptedRunner(script func(req adapter.RunRequest) (m.Execution, error)) *scriptedRunner {
	return &scriptedRunner{script: script}
}

func (r *scriptedRunner) Run(_ context.Context, req adapter.RunRequest) (m.Execution, error) {
	r.mu.Lock()
	r.requests = append(r.requests, req)
	r.mu.Unlock()

	if r.script == nil {
		return m.Execution{OK: true}, nil
	}

	return r.script(req)
}

func (r *scriptedRunner) Requests() []adapter.RunRequest {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]adapter.RunRequest(nil), r.requests...)
}

func unitSource(req adapter.RunRequest, filename string) (string, bool) {
	for _, unit := range req.Units {
		if unit.Filename == filename {
			return unit.Source, true
		}
	}

	return "", false
}

func isEnforced(req adapter.RunRequest) bool {
	_, ok := unitSource(req, PreludeFilename)
	return ok
}

func callSource(req adapter.RunRequest) string {
	src, _ := unitSource(req, CallFilename)
	return src
}

func crash(name string, line int, filename string, message string, mro ...string) m.Execution {
	return m.Execution{
		Exception: &m.RaisedException{
			Name:     name,
			MRO:      append([]string{name}, mro...),
			Message:  message,
			Line:     line,
			Filename: filename,
		},
	}
}

func cleanRun() m.Execution {
	return m.Execution{OK: true}
}

type mockCoverage struct {
	mock.Mock
}

func (c *mockCoverage) Measure(ctx context.Context, req adapter.CoverageRequest) (adapter.CoverageReport, error) {
	args := c.Called(ctx, req)
	return args.Get(0).(adapter.CoverageReport), args.Error(1)
}

type mockReportStore struct {
	mock.Mock
}

func (s *mockReportStore) LoadManifest(ctx context.Context, path m.Path) (m.Manifest, error) {
	args := s.Called(ctx, path)
	return args.Get(0).(m.Manifest), args.Error(1)
}

func (s *mockReportStore) SaveManifest(ctx context.Context, path m.Path, manifest m.Manifest) error {
	return s.Called(ctx, path, manifest).Error(0)
}

func (s *mockReportStore) LoadReport(ctx context.Context, path m.Path) (m.Report, error) {
	args := s.Called(ctx, path)
	return args.Get(0).(m.Report), args.Error(1)
}

func (s *mockReportStore) SaveReport(ctx context.Context, path m.Path, report m.Report) error {
	return s.Called(ctx, path, report).Error(0)
}

type mockAnalyzerRunner struct {
	mock.Mock
}

func (a *mockAnalyzerRunner) Run(ctx context.Context, argv []string, file string) string {
	return a.Called(ctx, argv, file).String(0)
}

type stubMutagen struct {
	mutants []m.Mutant
	err     error
}

func (s stubMutagen) GenerateMutants(context.Context, []byte, ...m.MutantCategory) ([]m.Mutant, error) {
	if s.err != nil {
		return nil, s.err
	}

	return append([]m.Mutant(nil), s.mutants...), nil
}

func testRng() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func newParser() adapter.PythonFileAdapter {
	return adapter.NewTreeSitterPythonAdapter()
}

func exampleSource(t *testing.T, name string) []byte {
	t.Helper()

	data, err := os.ReadFile(filepath.Join("..", "..", "examples", name))
	require.NoError(t, err)

	return data
}

func containsFault(faults []m.TypeFault, line int, kind m.FaultKind, source m.EvidenceSource) bool {
	for _, f := range faults {
		if f.Line == line && f.Kind == kind && f.Source == source {
			return true
		}
	}

	return false
}

func hasCallWith(reqs []adapter.RunRequest, fragment string) bool {
	for _, req := range reqs {
		if strings.Contains(callSource(req), fragment) {
			return true
		}
	}

	return false
}
