// Package domain contains the tiered oracle: the three evidence levels, the
// verdicts they feed and the workflow that runs them over a manifest.
package domain

import (
	"context"
	"fmt"
	"log/slog"

	"tcoracle.dev/pkg/tcoracle/internal/adapter"
	"tcoracle.dev/pkg/tcoracle/internal/domain/mutagens"
	m "tcoracle.dev/pkg/tcoracle/internal/model"
)

const defaultPerCategory = 10

// Mutagen defines the interface for mutant generation.
type Mutagen interface {
	// GenerateMutants returns at most the per-category cap of mutants for
	// each requested family, in family order. No categories means all.
	GenerateMutants(ctx context.Context, source []byte, categories ...m.MutantCategory) ([]m.Mutant, error)
}

type mutagen struct {
	adapter.PythonFileAdapter
	perCategory int
}

// NewMutagen creates a new Mutagen instance.
func NewMutagen(parser adapter.PythonFileAdapter, perCategory int) Mutagen {
	if perCategory <= 0 {
		perCategory = defaultPerCategory
	}

	return &mutagen{PythonFileAdapter: parser, perCategory: perCategory}
}

// allCategories is the order families are generated in.
var allCategories = []m.MutantCategory{
	m.MutationLiteralValue,
	m.MutationDictKey,
	m.MutationArgumentType,
	m.MutationAnnotationRemoval,
}

var mutationGenerators = map[m.MutantCategory]mutagens.Generator{
	m.MutationLiteralValue:      mutagens.GenerateLiteralMutants,
	m.MutationDictKey:           mutagens.GenerateDictKeyMutants,
	m.MutationArgumentType:      mutagens.GenerateArgumentTypeMutants,
	m.MutationAnnotationRemoval: mutagens.GenerateAnnotationRemovalMutants,
}

func resolveCategories(categories []m.MutantCategory) ([]m.MutantCategory, error) {
	if len(categories) == 0 {
		return allCategories, nil
	}

	for _, category := range categories {
		if _, ok := mutationGenerators[category]; !ok {
			return nil, fmt.Errorf("unsupported mutation category: %s", category)
		}
	}

	return categories, nil
}

func (mg *mutagen) GenerateMutants(ctx context.Context, source []byte, categories ...m.MutantCategory) ([]m.Mutant, error) {
	categories, err := resolveCategories(categories)
	if err != nil {
		return nil, err
	}

	tree, err := mg.Parse(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse source: %w", err)
	}
	defer tree.Close()

	mutants := make([]m.Mutant, 0)

	for _, category := range categories {
		generated := mutationGenerators[category](tree.RootNode(), source)
		if len(generated) > mg.perCategory {
			generated = generated[:mg.perCategory]
		}

		slog.Debug("generated mutants", "category", category, "count", len(generated))

		mutants = append(mutants, generated...)
	}

	return mutants, nil
}
