package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	m "tcoracle.dev/pkg/tcoracle/internal/model"
)

const (
	incorrectConfidence = 0.95
	correctConfidence   = 0.9
	maxBugsMissed       = 3

	// ClassifierDefault selects DefaultClassifier.
	ClassifierDefault = "default"
	// ClassifierCount selects CountClassifier.
	ClassifierCount = "count"
)

var uncertainConfidence = map[int]float64{1: 0.5, 2: 0.6, 3: 0.7}

// ErrorClassifier decides whether an analyzer's raw output reports an error.
type ErrorClassifier interface {
	ReportsError(output string) bool
}

// DefaultClassifier is the substring heuristic: "error" present, and
// neither "0 error" nor "success".
type DefaultClassifier struct{}

// ReportsError implements ErrorClassifier.
func (DefaultClassifier) ReportsError(output string) bool {
	lower := strings.ToLower(output)

	return strings.Contains(lower, "error") &&
		!strings.Contains(lower, "0 error") &&
		!strings.Contains(lower, "success")
}

var errorCount = regexp.MustCompile(`(?i)\b(\d+)\s+errors?\b`)

// CountClassifier reads "N error(s)" summaries and falls back to the
// default heuristic when there are none.
type CountClassifier struct{}

// ReportsError implements ErrorClassifier.
func (CountClassifier) ReportsError(output string) bool {
	matches := errorCount.FindAllStringSubmatch(output, -1)
	if len(matches) == 0 {
		return DefaultClassifier{}.ReportsError(output)
	}

	for _, match := range matches {
		if n, err := strconv.Atoi(match[1]); err == nil && n > 0 {
			return true
		}
	}

	return false
}

// VerdictSynthesizer judges each analyzer against the oracle's evidence.
type VerdictSynthesizer struct {
	classifiers map[string]ErrorClassifier
}

// NewVerdictSynthesizer maps analyzer names to classifier names. Analyzers
// that are not listed, or list an unknown classifier, use the default.
func NewVerdictSynthesizer(classifiers map[string]string) *VerdictSynthesizer {
	v := &VerdictSynthesizer{classifiers: map[string]ErrorClassifier{}}

	for checker, name := range classifiers {
		if name == ClassifierCount {
			v.classifiers[checker] = CountClassifier{}
		}
	}

	return v
}

func (v *VerdictSynthesizer) classifier(checker string) ErrorClassifier {
	if c, ok := v.classifiers[checker]; ok {
		return c
	}

	return DefaultClassifier{}
}

// Synthesize computes one verdict per analyzer output from the final fault
// list of an evaluation that reached level.
func (v *VerdictSynthesizer) Synthesize(faults []m.TypeFault, outputs map[string]string, level int) map[string]m.Verdict {
	proven := m.ProvenFaults(m.DedupFaults(faults))
	verdicts := make(map[string]m.Verdict, len(outputs))

	for checker, output := range outputs {
		verdicts[checker] = decide(proven, v.classifier(checker).ReportsError(output), level)
	}

	return verdicts
}

func decide(proven []m.TypeFault, reported bool, level int) m.Verdict {
	switch {
	case len(proven) > 0 && !reported:
		missed := make([]m.MissedFault, 0, maxBugsMissed)
		for _, f := range proven[:min(len(proven), maxBugsMissed)] {
			missed = append(missed, m.MissedFault{Line: f.Line, Type: f.Kind, Source: f.Source})
		}

		return m.Verdict{
			Outcome:    m.Incorrect,
			Reason:     fmt.Sprintf("Missed %d proven bug(s) at level %d", len(proven), level),
			Confidence: incorrectConfidence,
			BugsMissed: missed,
		}
	case len(proven) > 0:
		return m.Verdict{
			Outcome:    m.Correct,
			Reason:     "Correctly identified type issues",
			Confidence: correctConfidence,
		}
	case !reported:
		return m.Verdict{
			Outcome:    m.Uncertain,
			Reason:     fmt.Sprintf("No bugs found through level %d testing", level),
			Confidence: uncertainConfidence[level],
			Note:       "May be correct or bug not triggerable at runtime",
		}
	default:
		return m.Verdict{
			Outcome:    m.Uncertain,
			Reason:     fmt.Sprintf("Checker reported error but level %d testing found no runtime proof", level),
			Confidence: uncertainConfidence[level],
			Note:       "May be false positive or static-only type issue",
		}
	}
}
