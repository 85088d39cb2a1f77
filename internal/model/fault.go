// Package model defines the data structures shared by the oracle levels.
package model

// ProvenThreshold is the confidence at which a fault counts as proof.
const ProvenThreshold = 0.85

// FaultKind classifies the runtime signal behind a TypeFault.
type FaultKind string

const (
	// KindTypeMismatch is a TypeError or a type-flavoured exception.
	KindTypeMismatch FaultKind = "TypeMismatch"
	// KindMissingKey is a KeyError or an unguarded optional key access.
	KindMissingKey FaultKind = "MissingKey"
	// KindMissingAttribute is an AttributeError.
	KindMissingAttribute FaultKind = "MissingAttribute"
	// KindEnforcementViolation is raised by the enforcement layer at a call boundary.
	KindEnforcementViolation FaultKind = "EnforcementViolation"
	// KindMutationKilled marks a mutant that crashed with a type-classified fault.
	KindMutationKilled FaultKind = "MutationKilled"
)

// EvidenceSource names the mechanism that produced a fault.
type EvidenceSource string

const (
	// SourceDirectExecution is the unmodified program run in the sandbox.
	SourceDirectExecution EvidenceSource = "direct-execution"
	// SourceEnforcement is the enforcement-wrapped program or synthesized call.
	SourceEnforcement EvidenceSource = "enforcement"
	// SourceStaticPattern is the static pattern analyzer.
	SourceStaticPattern EvidenceSource = "static-pattern"
	// SourceCoverageGuided is a level 2 synthesized call.
	SourceCoverageGuided EvidenceSource = "coverage-guided"
	// SourceMutation is a level 3 mutant kill.
	SourceMutation EvidenceSource = "mutation"
)

// TypeFault is one piece of evidence that the evaluated code has a type defect.
type TypeFault struct {
	Line       int
	Kind       FaultKind
	Message    string
	Source     EvidenceSource
	Confidence float64
	// Exception is the raised exception class, empty for static findings.
	Exception string
	Details   map[string]string
}

// IsProven reports whether the fault is strong enough to stop escalation.
func (f TypeFault) IsProven() bool {
	return f.Confidence >= ProvenThreshold
}

type faultKey struct {
	line int
	kind FaultKind
}

// DedupFaults merges faults sharing a line and kind, keeping the most
// confident one. First-seen order is preserved.
func DedupFaults(faults []TypeFault) []TypeFault {
	if len(faults) == 0 {
		return []TypeFault{}
	}

	index := make(map[faultKey]int, len(faults))
	merged := make([]TypeFault, 0, len(faults))

	for _, fault := range faults {
		key := faultKey{line: fault.Line, kind: fault.Kind}

		pos, seen := index[key]
		if !seen {
			index[key] = len(merged)
			merged = append(merged, fault)

			continue
		}

		if fault.Confidence > merged[pos].Confidence {
			merged[pos] = fault
		}
	}

	return merged
}

// ProvenFaults returns the faults at or above ProvenThreshold.
func ProvenFaults(faults []TypeFault) []TypeFault {
	proven := []TypeFault{}

	for _, fault := range faults {
		if fault.IsProven() {
			proven = append(proven, fault)
		}
	}

	return proven
}

// HasProven reports whether any fault is proven.
func HasProven(faults []TypeFault) bool {
	for _, fault := range faults {
		if fault.IsProven() {
			return true
		}
	}

	return false
}
