package domain

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	m "tcoracle.dev/pkg/tcoracle/internal/model"
)

type fakeLevel1 struct {
	faults []m.TypeFault
	calls  int
}

func (f *fakeLevel1) Run(context.Context, []byte, *rand.Rand) []m.TypeFault {
	f.calls++
	return f.faults
}

type fakeLevel2 struct {
	result Level2Result
	calls  int
}

func (f *fakeLevel2) Run(context.Context, []byte, *rand.Rand) Level2Result {
	f.calls++
	return f.result
}

type fakeLevel3 struct {
	result Level3Result
	calls  int
}

func (f *fakeLevel3) Run(context.Context, []byte, *rand.Rand) Level3Result {
	f.calls++
	return f.result
}

type recordingMetrics struct {
	mu       sync.Mutex
	examples []int
	faults   map[int]int
	tested   int
	killed   int
	verdicts map[string]m.Outcome
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{faults: map[int]int{}, verdicts: map[string]m.Outcome{}}
}

func (r *recordingMetrics) ObserveExample(level int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.examples = append(r.examples, level)
}

func (r *recordingMetrics) ObserveFault(level int, _ m.FaultKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.faults[level]++
}

func (r *recordingMetrics) ObserveMutations(tested, killed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tested += tested
	r.killed += killed
}

func (r *recordingMetrics) ObserveVerdict(checker string, outcome m.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verdicts[checker] = outcome
}

func TestOracle_Escalation(t *testing.T) {
	pattern := m.TypeFault{Line: 2, Kind: m.KindMissingKey, Source: m.SourceStaticPattern, Confidence: 0.7}
	guided := m.TypeFault{Line: 4, Kind: m.KindTypeMismatch, Source: m.SourceCoverageGuided, Confidence: 0.95}
	killed := m.TypeFault{Line: 6, Kind: m.KindMutationKilled, Source: m.SourceMutation, Confidence: 0.85}

	tests := []struct {
		name      string
		l1        []m.TypeFault
		l2        Level2Result
		l3        Level3Result
		maxLevel  int
		wantLevel int
		wantCalls [3]int
		wantOut   m.Outcome
	}{
		{
			name:      "level 1 proof stops escalation",
			l1:        []m.TypeFault{provenFault(1)},
			maxLevel:  3,
			wantLevel: 1,
			wantCalls: [3]int{1, 0, 0},
			wantOut:   m.Incorrect,
		},
		{
			name:      "unproven level 1 escalates to level 2 proof",
			l1:        []m.TypeFault{pattern},
			l2:        Level2Result{Faults: []m.TypeFault{guided}, CoverageBefore: 40, CoverageAfter: 90},
			maxLevel:  3,
			wantLevel: 2,
			wantCalls: [3]int{1, 1, 0},
			wantOut:   m.Incorrect,
		},
		{
			name:      "no proof reaches level 3",
			l2:        Level2Result{Faults: []m.TypeFault{}},
			l3:        Level3Result{Faults: []m.TypeFault{killed}, Tested: 4, Killed: 1},
			maxLevel:  3,
			wantLevel: 3,
			wantCalls: [3]int{1, 1, 1},
			wantOut:   m.Incorrect,
		},
		{
			name:      "max level caps escalation",
			maxLevel:  1,
			wantLevel: 1,
			wantCalls: [3]int{1, 0, 0},
			wantOut:   m.Uncertain,
		},
		{
			name:      "out of range max level means all levels",
			l3:        Level3Result{Faults: []m.TypeFault{}},
			maxLevel:  7,
			wantLevel: 3,
			wantCalls: [3]int{1, 1, 1},
			wantOut:   m.Uncertain,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l1 := &fakeLevel1{faults: tt.l1}
			l2 := &fakeLevel2{result: tt.l2}
			l3 := &fakeLevel3{result: tt.l3}
			metrics := newRecordingMetrics()

			oracle := NewOracle(l1, l2, l3, NewVerdictSynthesizer(nil), metrics, 42)

			result := oracle.Evaluate(context.Background(), EvaluateRequest{
				Filename: "example.py",
				Source:   []byte("x = 1\n"),
				Outputs:  map[string]string{"mypy": "Success: no issues found"},
				MaxLevel: tt.maxLevel,
			})

			assert.Equal(t, "example.py", result.Filename)
			assert.Equal(t, tt.wantLevel, result.LevelReached)
			assert.Equal(t, tt.wantCalls, [3]int{l1.calls, l2.calls, l3.calls})
			require.Contains(t, result.Verdicts, "mypy")
			assert.Equal(t, tt.wantOut, result.Verdicts["mypy"].Outcome)

			assert.Equal(t, []int{tt.wantLevel}, metrics.examples)
			assert.Equal(t, tt.wantOut, metrics.verdicts["mypy"])
		})
	}
}

func TestOracle_CarriesLevelDetails(t *testing.T) {
	killed := m.TypeFault{Line: 6, Kind: m.KindMutationKilled, Source: m.SourceMutation, Confidence: 0.85}
	metrics := newRecordingMetrics()

	oracle := NewOracle(
		&fakeLevel1{},
		&fakeLevel2{result: Level2Result{Faults: []m.TypeFault{}, CoverageBefore: 50, CoverageAfter: 75}},
		&fakeLevel3{result: Level3Result{Faults: []m.TypeFault{killed}, Tested: 8, Killed: 1}},
		NewVerdictSynthesizer(nil), metrics, 1,
	)

	result := oracle.Evaluate(context.Background(), EvaluateRequest{Filename: "a.py", MaxLevel: 3})

	assert.InDelta(t, 50.0, result.CoverageBefore, 1e-9)
	assert.InDelta(t, 75.0, result.CoverageAfter, 1e-9)
	assert.Equal(t, 8, result.MutationsTested)
	assert.Equal(t, 1, result.MutationsKilled)
	assert.Equal(t, []m.TypeFault{killed}, result.Level3Faults)
	assert.Empty(t, result.Verdicts)

	assert.Equal(t, 8, metrics.tested)
	assert.Equal(t, 1, metrics.killed)
	assert.Equal(t, 1, metrics.faults[3])
}

func TestOracle_NilMetrics(t *testing.T) {
	oracle := NewOracle(&fakeLevel1{faults: []m.TypeFault{provenFault(1)}}, &fakeLevel2{}, &fakeLevel3{}, NewVerdictSynthesizer(nil), nil, 0)

	result := oracle.Evaluate(context.Background(), EvaluateRequest{Filename: "a.py", MaxLevel: 3})

	assert.Equal(t, 1, result.LevelReached)
}

func TestValidateLevel(t *testing.T) {
	for _, level := range []int{1, 2, 3} {
		assert.NoError(t, ValidateLevel(level))
	}

	for _, level := range []int{0, 4, -1} {
		err := ValidateLevel(level)
		assert.True(t, errors.Is(err, ErrInvalidLevel), "level %d", level)
	}
}

func TestExampleRng(t *testing.T) {
	a := exampleRng(7, "a.py").Uint64()
	again := exampleRng(7, "a.py").Uint64()
	other := exampleRng(7, "b.py").Uint64()

	assert.Equal(t, a, again)
	assert.NotEqual(t, a, other)
}
