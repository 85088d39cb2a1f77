package domain

import (
	"context"
	"log/slog"
	"math/rand/v2"

	m "tcoracle.dev/pkg/tcoracle/internal/model"
)

// Level1 is direct execution, enforcement, static patterns and property
// tests over strictly resolvable signatures.
type Level1 interface {
	Run(ctx context.Context, source []byte, rng *rand.Rand) []m.TypeFault
}

type level1 struct {
	Sandbox
	Enforcer
	PatternAnalyzer
	SignatureExtractor
	synth    *Synthesizer
	maxCases int
}

// NewLevel1 constructs a Level1 runner.
func NewLevel1(sandbox Sandbox, enforcer Enforcer, patterns PatternAnalyzer, signatures SignatureExtractor, synth *Synthesizer, maxCases int) Level1 {
	if maxCases <= 0 {
		maxCases = defaultMaxCases
	}

	return &level1{
		Sandbox:            sandbox,
		Enforcer:           enforcer,
		PatternAnalyzer:    patterns,
		SignatureExtractor: signatures,
		synth:              synth,
		maxCases:           maxCases,
	}
}

func (l *level1) Run(ctx context.Context, source []byte, rng *rand.Rand) []m.TypeFault {
	var faults []m.TypeFault

	direct, _, _ := l.Execute(ctx, source)
	faults = append(faults, direct...)

	enforced := l.RunEnforced(ctx, source)
	faults = append(faults, enforced...)

	patterns := l.Analyze(ctx, source)
	faults = append(faults, patterns...)

	properties := l.propertyTests(ctx, source, rng)
	faults = append(faults, properties...)

	slog.Debug("level 1 complete",
		"direct", len(direct),
		"enforcement", len(enforced),
		"patterns", len(patterns),
		"properties", len(properties))

	return m.DedupFaults(faults)
}

func (l *level1) propertyTests(ctx context.Context, source []byte, rng *rand.Rand) []m.TypeFault {
	sigs := l.Extract(ctx, source)
	if len(sigs) == 0 {
		return nil
	}

	in, ok := l.Instrument(ctx, source)
	if !ok {
		return nil
	}

	var faults []m.TypeFault

	for _, sig := range sigs {
		if sig.IsMethod || sig.IsPrivate() || sig.IsAsync {
			continue
		}

		params, ok := l.resolveAll(sig)
		if !ok || len(params) == 0 {
			continue
		}

		for _, c := range Combinations(params, l.maxCases, rng) {
			if ctx.Err() != nil {
				return faults
			}

			res, ok := l.Sandbox.RunImported(ctx, in.Units(CallUnit(sig, c))...)
			if !ok || !res.Crashed() {
				continue
			}

			fault, found := classifyPropertyCase(res.Exception)
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

			faults = append(faults, fault)
		}
	}

	return faults
}

// resolveAll resolves every callable parameter strictly. One unknown
// annotation disqualifies the whole function.
func (l *level1) resolveAll(sig m.FunctionSignature) ([]ParamCandidates, bool) {
	callable := sig.CallableParams()
	params := make([]ParamCandidates, 0, len(callable))

	for _, p := range callable {
		values, ok := l.synth.Resolve(p.Annotation)
		if !ok {
			return nil, false
		}

		params = append(params, ParamCandidates{Param: p, Values: values})
	}

	return params, true
}

func classifyPropertyCase(exc *m.RaisedException) (m.TypeFault, bool) {
	if IsEnforcementViolation(exc) {
		return ClassifyEnforced(exc)
	}

	return ClassifyDirect(exc)
}
