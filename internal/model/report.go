package model

import "time"

// Outcome is the three-valued judgement of an analyzer.
type Outcome string

const (
	// Correct means the analyzer flagged code with a proven runtime fault.
	Correct Outcome = "CORRECT"
	// Incorrect means the analyzer stayed silent on a proven runtime fault.
	Incorrect Outcome = "INCORRECT"
	// Uncertain means no runtime proof exists either way.
	Uncertain Outcome = "UNCERTAIN"
)

// MissedFault summarizes a proven fault an analyzer did not report.
type MissedFault struct {
	Line   int            `json:"line" yaml:"line"`
	Type   FaultKind      `json:"type" yaml:"type"`
	Source EvidenceSource `json:"source" yaml:"source"`
}

// Verdict is the judgement of one analyzer on one example.
type Verdict struct {
	Outcome    Outcome       `json:"verdict" yaml:"verdict"`
	Reason     string        `json:"reason" yaml:"reason"`
	Confidence float64       `json:"confidence" yaml:"confidence"`
	Note       string        `json:"note,omitempty" yaml:"note,omitempty"`
	BugsMissed []MissedFault `json:"bugs_missed,omitempty" yaml:"bugs_missed,omitempty"`
}

// EvaluationResult is the full outcome of the tiered oracle for one example.
type EvaluationResult struct {
	Filename        string
	LevelReached    int
	Level1Faults    []TypeFault
	Level2Faults    []TypeFault
	Level3Faults    []TypeFault
	CoverageBefore  float64
	CoverageAfter   float64
	MutationsTested int
	MutationsKilled int
	Verdicts        map[string]Verdict
	Duration        time.Duration
}

// AllFaults returns the faults of every level in level order.
func (r EvaluationResult) AllFaults() []TypeFault {
	all := make([]TypeFault, 0, len(r.Level1Faults)+len(r.Level2Faults)+len(r.Level3Faults))
	all = append(all, r.Level1Faults...)
	all = append(all, r.Level2Faults...)
	all = append(all, r.Level3Faults...)

	return all
}

// BugEntry is the persisted form of a TypeFault.
type BugEntry struct {
	Line       int            `json:"line" yaml:"line"`
	Type       FaultKind      `json:"type" yaml:"type"`
	Msg        string         `json:"msg" yaml:"msg"`
	Source     EvidenceSource `json:"source" yaml:"source"`
	Confidence float64        `json:"confidence" yaml:"confidence"`
}

// ResultEntry is the persisted form of an EvaluationResult.
type ResultEntry struct {
	Filename        string             `json:"filename" yaml:"filename"`
	LevelReached    int                `json:"level_reached" yaml:"level_reached"`
	Level1Bugs      []BugEntry         `json:"level1_bugs" yaml:"level1_bugs"`
	Level2Bugs      []BugEntry         `json:"level2_bugs" yaml:"level2_bugs"`
	Level3Bugs      []BugEntry         `json:"level3_bugs" yaml:"level3_bugs"`
	CoverageBefore  float64            `json:"coverage_before" yaml:"coverage_before"`
	CoverageAfter   float64            `json:"coverage_after" yaml:"coverage_after"`
	MutationsTested int                `json:"mutations_tested" yaml:"mutations_tested"`
	MutationsKilled int                `json:"mutations_killed" yaml:"mutations_killed"`
	Verdicts        map[string]Verdict `json:"verdicts" yaml:"verdicts"`
}

// CheckerSummary counts the verdicts of one analyzer across a run.
type CheckerSummary struct {
	Correct   int `json:"correct" yaml:"correct"`
	Incorrect int `json:"incorrect" yaml:"incorrect"`
	Uncertain int `json:"uncertain" yaml:"uncertain"`
}

// Add counts one verdict outcome.
func (s *CheckerSummary) Add(outcome Outcome) {
	switch outcome {
	case Correct:
		s.Correct++
	case Incorrect:
		s.Incorrect++
	case Uncertain:
		s.Uncertain++
	}
}

// Report is the evaluation_tiered.json document.
type Report struct {
	Method            string                    `json:"method" yaml:"method"`
	RunID             string                    `json:"run_id" yaml:"run_id"`
	GeneratedAt       time.Time                 `json:"generated_at" yaml:"generated_at"`
	MaxLevel          int                       `json:"max_level" yaml:"max_level"`
	LevelDistribution map[int]int               `json:"level_distribution" yaml:"level_distribution"`
	Summary           map[string]CheckerSummary `json:"summary" yaml:"summary"`
	Skipped           []string                  `json:"skipped" yaml:"skipped"`
	Results           []ResultEntry             `json:"results" yaml:"results"`
}

// NewBugEntries converts faults into their persisted form.
func NewBugEntries(faults []TypeFault) []BugEntry {
	entries := make([]BugEntry, 0, len(faults))

	for _, f := range faults {
		entries = append(entries, BugEntry{
			Line:       f.Line,
			Type:       f.Kind,
			Msg:        f.Message,
			Source:     f.Source,
			Confidence: f.Confidence,
		})
	}

	return entries
}

// NewResultEntry converts an EvaluationResult into its persisted form.
func NewResultEntry(r EvaluationResult) ResultEntry {
	verdicts := r.Verdicts
	if verdicts == nil {
		verdicts = map[string]Verdict{}
	}

	return ResultEntry{
		Filename:        r.Filename,
		LevelReached:    r.LevelReached,
		Level1Bugs:      NewBugEntries(r.Level1Faults),
		Level2Bugs:      NewBugEntries(r.Level2Faults),
		Level3Bugs:      NewBugEntries(r.Level3Faults),
		CoverageBefore:  r.CoverageBefore,
		CoverageAfter:   r.CoverageAfter,
		MutationsTested: r.MutationsTested,
		MutationsKilled: r.MutationsKilled,
		Verdicts:        verdicts,
	}
}
