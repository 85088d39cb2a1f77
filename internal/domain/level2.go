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
	defaultCoverageThreshold = 95.0
	missingLineWindow        = 50

	guidedConfidence = 0.95
	guidedHeuristic  = 0.8
)

// Level2Result is the evidence and coverage of a coverage-guided run.
type Level2Result struct {
	Faults         []m.TypeFault
	CoverageBefore float64
	CoverageAfter  float64
}

// Level2 drives synthesized calls at the functions that hold uncovered
// lines.
type Level2 interface {
	Run(ctx context.Context, source []byte, rng *rand.Rand) Level2Result
}

type level2 struct {
	Sandbox
	Enforcer
	SignatureExtractor
	coverage  adapter.CoverageAdapter
	synth     *Synthesizer
	maxCases  int
	threshold float64
}

// NewLevel2 constructs a Level2 runner. A zero threshold uses 95%.
func NewLevel2(sandbox Sandbox, enforcer Enforcer, signatures SignatureExtractor, coverage adapter.CoverageAdapter, synth *Synthesizer, maxCases int, threshold float64) Level2 {
	if maxCases <= 0 {
		maxCases = defaultMaxCases
	}

	if threshold <= 0 {
		threshold = defaultCoverageThreshold
	}

	return &level2{
		Sandbox:            sandbox,
		Enforcer:           enforcer,
		SignatureExtractor: signatures,
		coverage:           coverage,
		synth:              synth,
		maxCases:           maxCases,
		threshold:          threshold,
	}
}

func (l *level2) Run(ctx context.Context, source []byte, rng *rand.Rand) Level2Result {
	result := Level2Result{Faults: []m.TypeFault{}}

	measured := true

	before, err := l.coverage.Measure(ctx, adapter.CoverageRequest{Target: string(source)})
	if err != nil {
		slog.Warn("coverage measurement failed", "error", err)

		measured = false
	}

	result.CoverageBefore = before.Percent
	result.CoverageAfter = before.Percent

	if measured && before.Percent >= l.threshold {
		slog.Debug("coverage above threshold, level 2 skipped", "coverage", before.Percent)
		return result
	}

	in, ok := l.Instrument(ctx, source)
	if !ok {
		return result
	}

	var calls []string

	for _, sig := range targetFunctions(l.Extract(ctx, source), before.Missing) {
		params := l.synthesizeAll(sig)
		if len(params) == 0 {
			continue
		}

		for _, c := range Combinations(params, l.maxCases, rng) {
			if ctx.Err() != nil {
				return result
			}

			calls = append(calls, CallProgram(sig, c))

			res, ok := l.Sandbox.RunImported(ctx, in.Units(CallUnit(sig, c))...)
			if !ok || !res.Crashed() {
				continue
			}

			fault, found := ClassifyGuided(res.Exception, sig)
			if !found {
				continue
			}

			fault.Line = in.Line(res.Exception)
			if fault.Line == 0 {
				fault.Line = sig.Line
			}

			fault.Details = map[string]string{
				"function": QualifiedName(sig),
				"inputs":   describeInputs(c),
			}

			result.Faults = append(result.Faults, fault)
		}
	}

	result.Faults = m.DedupFaults(result.Faults)

	if measured && len(calls) > 0 {
		after, err := l.coverage.Measure(ctx, adapter.CoverageRequest{Target: string(source), Driver: coverageDriver(calls)})
		if err != nil {
			slog.Warn("coverage remeasurement failed", "error", err)
		} else {
			result.CoverageAfter = after.Percent
		}
	}

	return result
}

func (l *level2) synthesizeAll(sig m.FunctionSignature) []ParamCandidates {
	callable := sig.CallableParams()
	params := make([]ParamCandidates, 0, len(callable))

	for _, p := range callable {
		params = append(params, ParamCandidates{Param: p, Values: l.synth.Synthesize(p.Annotation)})
	}

	return params
}

// targetFunctions picks the signatures whose first lines cover a missing
// line, falling back to every function that takes parameters.
func targetFunctions(sigs []m.FunctionSignature, missing []int) []m.FunctionSignature {
	var targets []m.FunctionSignature

	for _, sig := range sigs {
		for _, line := range missing {
			if line >= sig.Line && line <= sig.Line+missingLineWindow {
				targets = append(targets, sig)
				break
			}
		}
	}

	if len(targets) > 0 {
		return targets
	}

	for _, sig := range sigs {
		if len(sig.Params) > 0 {
			targets = append(targets, sig)
		}
	}

	return targets
}

// ClassifyGuided maps an exception from a synthesized call to a fault.
func ClassifyGuided(exc *m.RaisedException, sig m.FunctionSignature) (m.TypeFault, bool) {
	if exc == nil {
		return m.TypeFault{}, false
	}

	fault := m.TypeFault{
		Source:     m.SourceCoverageGuided,
		Confidence: guidedConfidence,
		Exception:  exc.Name,
		Message:    fmt.Sprintf("In %s: %s", sig.Name, truncate(exc.Message, messageLimit)),
	}

	if kind, ok := kindOf(exc); ok {
		fault.Kind = kind
		return fault, true
	}

	switch {
	case mentions(exc.Message, "key"):
		fault.Kind = m.KindMissingKey
	case mentions(exc.Message, "attribute"):
		fault.Kind = m.KindMissingAttribute
	case mentions(exc.Message, "type"):
		fault.Kind = m.KindTypeMismatch
	default:
		return m.TypeFault{}, false
	}

	fault.Confidence = guidedHeuristic

	return fault, true
}
