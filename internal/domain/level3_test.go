package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tcoracle.dev/pkg/tcoracle/internal/adapter"
	m "tcoracle.dev/pkg/tcoracle/internal/model"
)

func newTestLevel3(runner adapter.PythonRunnerAdapter, mutagen Mutagen, maxMutants int) Level3 {
	sandbox := NewSandbox(runner)
	return NewLevel3(sandbox, NewEnforcer(newParser(), sandbox), mutagen, maxMutants)
}

func stubMutant(id string, code string, line int) m.Mutant {
	return m.Mutant{
		ID:          id,
		Description: "mutant " + id,
		Code:        []byte(code),
		Category:    m.MutationLiteralValue,
		Line:        line,
	}
}

func TestLevel3_CountsKillsAndSkipsInfraFailures(t *testing.T) {
	mutants := []m.Mutant{
		stubMutant("kill", "x = 'KILL'\n", 1),
		stubMutant("survive", "x = 'ok'\n", 1),
		stubMutant("value", "x = 'VALUE'\n", 1),
		stubMutant("import", "import missing\n", 1),
		stubMutant("broken", "x = (\n", 1),
		stubMutant("infra", "x = 'INFRA'\n", 1),
	}

	runner := newScriptedRunner(func(req adapter.RunRequest) (m.Execution, error) {
		src, _ := unitSource(req, ExampleFilename)

		switch {
		case strings.Contains(src, "KILL"):
			return crash("TypeError", 1, ExampleFilename, "can only concatenate str (not \"int\") to str"), nil
		case strings.Contains(src, "VALUE"):
			return crash("ValueError", 1, ExampleFilename, "invalid literal"), nil
		case strings.Contains(src, "import missing"):
			return crash("ModuleNotFoundError", 1, ExampleFilename, "No module named 'missing'", "ImportError"), nil
		case strings.Contains(src, "x = ("):
			return crash("SyntaxError", 1, ExampleFilename, "'(' was never closed"), nil
		case strings.Contains(src, "INFRA"):
			return m.Execution{}, errors.New("interpreter vanished")
		}

		return cleanRun(), nil
	})

	result := newTestLevel3(runner, stubMutagen{mutants: mutants}, 0).Run(context.Background(), []byte("x = 'a'\n"), testRng())

	assert.Equal(t, 5, result.Tested)
	assert.Equal(t, 1, result.Killed)
	require.Len(t, result.Faults, 1)

	fault := result.Faults[0]
	assert.Equal(t, m.KindMutationKilled, fault.Kind)
	assert.Equal(t, m.SourceMutation, fault.Source)
	assert.InDelta(t, 0.85, fault.Confidence, 1e-9)
	assert.True(t, fault.IsProven())
	assert.Equal(t, "Mutation 'mutant kill' crashed: TypeError: can only concatenate str (not \"int\") to str", fault.Message)
	assert.Equal(t, map[string]string{"category": "literal_value", "mutant_id": "kill"}, fault.Details)

	for _, req := range runner.Requests() {
		src, _ := unitSource(req, ExampleFilename)
		if strings.Contains(src, "x = (") {
			assert.False(t, isEnforced(req), "unparseable mutants run raw")
		} else {
			assert.True(t, isEnforced(req))
		}
	}
}

func TestLevel3_CapsMutantCount(t *testing.T) {
	mutants := make([]m.Mutant, 0, 20)
	for i := range 20 {
		mutants = append(mutants, stubMutant(fmt.Sprint(i), fmt.Sprintf("x = %d\n", i), 1))
	}

	runner := newScriptedRunner(nil)

	result := newTestLevel3(runner, stubMutagen{mutants: mutants}, 0).Run(context.Background(), []byte("x = 0\n"), testRng())

	assert.Equal(t, 15, result.Tested)
	assert.Zero(t, result.Killed)
	assert.Empty(t, result.Faults)
	assert.Len(t, runner.Requests(), 15)
}

func TestLevel3_GenerationFailure(t *testing.T) {
	runner := newScriptedRunner(nil)

	result := newTestLevel3(runner, stubMutagen{err: errors.New("failed to parse source")}, 0).
		Run(context.Background(), []byte("x = (\n"), testRng())

	assert.Zero(t, result.Tested)
	assert.Empty(t, result.Faults)
	assert.Empty(t, runner.Requests())
}

func TestLevel3_ArgumentTypeMutantKill(t *testing.T) {
	source := []byte("def func(s: str) -> str:\n    return s.upper()\n\n\nprint(func(\"hello\"))\n")

	mutagen := NewMutagen(newParser(), 0)

	generated, err := mutagen.GenerateMutants(context.Background(), source)
	require.NoError(t, err)

	runner := newScriptedRunner(func(req adapter.RunRequest) (m.Execution, error) {
		src, _ := unitSource(req, ExampleFilename)
		if strings.Contains(src, "func(12345)") {
			return crash("AttributeError", 6, ExampleFilename, "'int' object has no attribute 'upper'"), nil
		}

		return cleanRun(), nil
	})

	result := newTestLevel3(runner, mutagen, 0).Run(context.Background(), source, testRng())

	assert.Equal(t, len(generated), result.Tested)
	assert.Equal(t, 1, result.Killed)
	require.Len(t, result.Faults, 1)
	assert.Equal(t, 5, result.Faults[0].Line)
	assert.InDelta(t, 0.85, result.Faults[0].Confidence, 1e-9)
	assert.Equal(t, string(m.MutationArgumentType), result.Faults[0].Details["category"])
	assert.Contains(t, result.Faults[0].Message, "Changed arg 0 type in call at line 5")
}

func TestClassifyMutant(t *testing.T) {
	tests := []struct {
		name string
		exc  *m.RaisedException
		want m.CrashType
	}{
		{name: "ran clean", exc: nil, want: m.CrashNone},
		{name: "missing module", exc: &m.RaisedException{Name: "ModuleNotFoundError", MRO: []string{"ModuleNotFoundError", "ImportError"}}, want: m.CrashImportError},
		{name: "missing name", exc: &m.RaisedException{Name: "ImportError", Message: "cannot import name 'x'"}, want: m.CrashImportError},
		{name: "syntax", exc: &m.RaisedException{Name: "SyntaxError"}, want: m.CrashSyntaxError},
		{name: "type error", exc: &m.RaisedException{Name: "TypeError"}, want: m.CrashTypeError},
		{name: "key error", exc: &m.RaisedException{Name: "KeyError"}, want: m.CrashTypeError},
		{name: "attribute error", exc: &m.RaisedException{Name: "AttributeError"}, want: m.CrashTypeError},
		{name: "enforcement", exc: &m.RaisedException{Name: "EnforcementViolation"}, want: m.CrashTypeError},
		{name: "type in message", exc: &m.RaisedException{Name: "ValueError", Message: "unexpected type"}, want: m.CrashTypeError},
		{name: "other", exc: &m.RaisedException{Name: "ZeroDivisionError", Message: "division by zero"}, want: m.CrashOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyMutant(tt.exc)

			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want == m.CrashTypeError, got.IsKill())
		})
	}
}
