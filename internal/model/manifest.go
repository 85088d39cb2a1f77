package model

import (
	"maps"
	"slices"
)

// ManifestEntry is one evaluated example with the raw analyzer outputs.
type ManifestEntry struct {
	Filename string            `json:"filename"`
	Filepath string            `json:"filepath"`
	Outputs  map[string]string `json:"outputs"`
}

// Manifest is the results.json document produced by the analyzer runs.
type Manifest struct {
	Timestamp    string          `json:"timestamp"`
	CheckersUsed []string        `json:"checkers_used"`
	Results      []ManifestEntry `json:"results"`
}

// Checkers returns the declared analyzers followed by any analyzer that only
// appears in an entry's outputs, in first-seen order.
func (m Manifest) Checkers() []string {
	seen := make(map[string]bool, len(m.CheckersUsed))
	checkers := make([]string, 0, len(m.CheckersUsed))

	for _, c := range m.CheckersUsed {
		if !seen[c] {
			seen[c] = true
			checkers = append(checkers, c)
		}
	}

	for _, entry := range m.Results {
		for _, name := range slices.Sorted(maps.Keys(entry.Outputs)) {
			if !seen[name] {
				seen[name] = true
				checkers = append(checkers, name)
			}
		}
	}

	return checkers
}
