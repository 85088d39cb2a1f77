package domain

import (
	m "tcoracle.dev/pkg/tcoracle/internal/model"
)

// killRate is the share of executed mutants that crashed, across all results.
// Mutants lost to infrastructure failures never reach MutationsTested.
func killRate(results []m.ResultEntry) float64 {
	killed := 0
	total := 0

	for _, result := range results {
		killed += result.MutationsKilled
		total += result.MutationsTested
	}

	if total == 0 {
		return 0.0
	}

	return float64(killed) / float64(total)
}
