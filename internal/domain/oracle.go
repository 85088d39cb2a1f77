package domain

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math/rand/v2"
	"time"

	"tcoracle.dev/pkg/tcoracle/internal/adapter"
	m "tcoracle.dev/pkg/tcoracle/internal/model"
)

// MaxLevel is the deepest oracle level.
const MaxLevel = 3

// ErrInvalidLevel is returned for a max level outside 1..3.
var ErrInvalidLevel = errors.New("max level must be between 1 and 3")

// ValidateLevel checks a requested max level.
func ValidateLevel(level int) error {
	if level < 1 || level > MaxLevel {
		return fmt.Errorf("%w: got %d", ErrInvalidLevel, level)
	}

	return nil
}

// EvaluateRequest is one example to judge.
type EvaluateRequest struct {
	Filename string
	Source   []byte
	Outputs  map[string]string
	MaxLevel int
}

// Oracle escalates through the levels until one proves a fault.
type Oracle interface {
	Evaluate(ctx context.Context, req EvaluateRequest) m.EvaluationResult
}

type oracle struct {
	Level1
	Level2
	Level3
	verdicts *VerdictSynthesizer
	metrics  adapter.MetricsRecorder
	seed     int64
}

// NewOracle wires the levels together. A zero seed draws a fresh seed per
// example.
func NewOracle(l1 Level1, l2 Level2, l3 Level3, verdicts *VerdictSynthesizer, metrics adapter.MetricsRecorder, seed int64) Oracle {
	if metrics == nil {
		metrics = adapter.NopMetrics{}
	}

	return &oracle{
		Level1:   l1,
		Level2:   l2,
		Level3:   l3,
		verdicts: verdicts,
		metrics:  metrics,
		seed:     seed,
	}
}

// exampleRng gives each example its own stream so results do not depend on
// evaluation order.
func exampleRng(seed int64, filename string) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(filename))

	return rand.New(rand.NewPCG(uint64(seed), h.Sum64()))
}

func (o *oracle) Evaluate(ctx context.Context, req EvaluateRequest) m.EvaluationResult {
	start := time.Now()

	maxLevel := req.MaxLevel
	if maxLevel < 1 || maxLevel > MaxLevel {
		maxLevel = MaxLevel
	}

	rng := exampleRng(o.seed, req.Filename)
	result := m.EvaluationResult{
		Filename:     req.Filename,
		LevelReached: 1,
		Level1Faults: []m.TypeFault{},
		Level2Faults: []m.TypeFault{},
		Level3Faults: []m.TypeFault{},
	}

	result.Level1Faults = o.Level1.Run(ctx, req.Source, rng)
	o.observeFaults(1, result.Level1Faults)

	if !m.HasProven(result.Level1Faults) && maxLevel >= 2 {
		result.LevelReached = 2

		l2 := o.Level2.Run(ctx, req.Source, rng)
		result.Level2Faults = l2.Faults
		result.CoverageBefore = l2.CoverageBefore
		result.CoverageAfter = l2.CoverageAfter
		o.observeFaults(2, result.Level2Faults)

		if !m.HasProven(result.Level2Faults) && maxLevel >= 3 {
			result.LevelReached = 3

			l3 := o.Level3.Run(ctx, req.Source, rng)
			result.Level3Faults = l3.Faults
			result.MutationsTested = l3.Tested
			result.MutationsKilled = l3.Killed
			o.observeFaults(3, result.Level3Faults)
			o.metrics.ObserveMutations(l3.Tested, l3.Killed)
		}
	}

	result.Verdicts = o.verdicts.Synthesize(result.AllFaults(), req.Outputs, result.LevelReached)
	for checker, verdict := range result.Verdicts {
		o.metrics.ObserveVerdict(checker, verdict.Outcome)
	}

	result.Duration = time.Since(start)
	o.metrics.ObserveExample(result.LevelReached, result.Duration)

	slog.Info("example evaluated",
		"file", req.Filename,
		"level", result.LevelReached,
		"faults", len(result.AllFaults()),
		"duration", result.Duration)

	return result
}

func (o *oracle) observeFaults(level int, faults []m.TypeFault) {
	for _, f := range faults {
		o.metrics.ObserveFault(level, f.Kind)
	}
}
