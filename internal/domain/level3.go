package domain

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"tcoracle.dev/pkg/tcoracle/internal/adapter"
	m "tcoracle.dev/pkg/tcoracle/internal/model"
)

const (
	defaultMaxMutants = 15
	killConfidence    = 0.85
	killMessageLimit  = 100
)

// Level3Result is the evidence of a mutation run.
type Level3Result struct {
	Faults []m.TypeFault
	Tested int
	Killed int
}

// Level3 runs type-targeted mutants and records the ones that crash with a
// type fault.
type Level3 interface {
	Run(ctx context.Context, source []byte, rng *rand.Rand) Level3Result
}

type level3 struct {
	Sandbox
	Enforcer
	Mutagen
	maxMutants int
}

// NewLevel3 constructs a Level3 runner.
func NewLevel3(sandbox Sandbox, enforcer Enforcer, mutagen Mutagen, maxMutants int) Level3 {
	if maxMutants <= 0 {
		maxMutants = defaultMaxMutants
	}

	return &level3{Sandbox: sandbox, Enforcer: enforcer, Mutagen: mutagen, maxMutants: maxMutants}
}

func (l *level3) Run(ctx context.Context, source []byte, rng *rand.Rand) Level3Result {
	result := Level3Result{Faults: []m.TypeFault{}}

	mutants, err := l.GenerateMutants(ctx, source)
	if err != nil {
		slog.Debug("mutation skipped", "error", err)
		return result
	}

	rng.Shuffle(len(mutants), func(i, j int) { mutants[i], mutants[j] = mutants[j], mutants[i] })

	if len(mutants) > l.maxMutants {
		mutants = mutants[:l.maxMutants]
	}

	for _, mutant := range mutants {
		if ctx.Err() != nil {
			break
		}

		res, ok := l.runMutant(ctx, mutant)
		if !ok {
			continue
		}

		result.Tested++

		crash := ClassifyMutant(res.Exception)
		if !crash.IsKill() {
			continue
		}

		result.Killed++
		result.Faults = append(result.Faults, killFault(mutant, res.Exception))
	}

	slog.Debug("level 3 complete", "tested", result.Tested, "killed", result.Killed)

	return result
}

// runMutant executes a mutant with enforcement when it parses and raw
// otherwise, so that broken mutants surface as syntax errors.
func (l *level3) runMutant(ctx context.Context, mutant m.Mutant) (m.Execution, bool) {
	if in, ok := l.Instrument(ctx, mutant.Code); ok {
		return l.Sandbox.Run(ctx, in.Units()...)
	}

	return l.Sandbox.Run(ctx, adapter.Unit{Filename: ExampleFilename, Source: string(mutant.Code)})
}

// ClassifyMutant decides what kind of crash a mutant run ended in.
func ClassifyMutant(exc *m.RaisedException) m.CrashType {
	switch {
	case exc == nil:
		return m.CrashNone
	case exc.IsAny("ModuleNotFoundError", "ImportError"):
		return m.CrashImportError
	case exc.Is("SyntaxError"):
		return m.CrashSyntaxError
	}

	if _, ok := kindOf(exc); ok {
		return m.CrashTypeError
	}

	if mentions(exc.Message, "type", "key", "attribute") {
		return m.CrashTypeError
	}

	return m.CrashOther
}

func killFault(mutant m.Mutant, exc *m.RaisedException) m.TypeFault {
	return m.TypeFault{
		Line:       mutant.Line,
		Kind:       m.KindMutationKilled,
		Message:    fmt.Sprintf("Mutation '%s' crashed: %s: %s", mutant.Description, exc.Name, truncate(exc.Message, killMessageLimit)),
		Source:     m.SourceMutation,
		Confidence: killConfidence,
		Exception:  exc.Name,
		Details: map[string]string{
			"category":  string(mutant.Category),
			"mutant_id": mutant.ID,
		},
	}
}
