package domain

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	m "tcoracle.dev/pkg/tcoracle/internal/model"
)

const mixedSource = `def f(s: str) -> str:
    return s


config = {"host": "local", "port": 1}
print(f("x"))
`

func categoriesOf(mutants []m.Mutant) []m.MutantCategory {
	out := make([]m.MutantCategory, 0, len(mutants))
	for _, mut := range mutants {
		out = append(out, mut.Category)
	}

	return out
}

func TestMutagen_GenerateMutants_AllCategoriesInOrder(t *testing.T) {
	mutants, err := NewMutagen(newParser(), 0).GenerateMutants(context.Background(), []byte(mixedSource))
	require.NoError(t, err)

	assert.Equal(t, []m.MutantCategory{
		m.MutationLiteralValue,
		m.MutationLiteralValue,
		m.MutationLiteralValue,
		m.MutationLiteralValue,
		m.MutationDictKey,
		m.MutationDictKey,
		m.MutationArgumentType,
		m.MutationAnnotationRemoval,
	}, categoriesOf(mutants))

	for _, mut := range mutants {
		assert.NotEmpty(t, mut.ID)
		assert.NotEqual(t, mixedSource, string(mut.Code))
		assert.NotEmpty(t, mut.Diff)
	}
}

func TestMutagen_GenerateMutants_SelectedCategories(t *testing.T) {
	mutants, err := NewMutagen(newParser(), 0).GenerateMutants(context.Background(), []byte(mixedSource),
		m.MutationAnnotationRemoval, m.MutationArgumentType)
	require.NoError(t, err)

	require.Equal(t, []m.MutantCategory{m.MutationAnnotationRemoval, m.MutationArgumentType}, categoriesOf(mutants))
	assert.Equal(t, "Removed return type from f", mutants[0].Description)
	assert.Contains(t, string(mutants[1].Code), "print(f(12345))")
}

func TestMutagen_GenerateMutants_PerCategoryCap(t *testing.T) {
	var b strings.Builder
	for i := range 12 {
		fmt.Fprintf(&b, "v%d = \"value%d\"\n", i, i)
	}

	source := []byte(b.String())

	tests := []struct {
		name        string
		perCategory int
		want        int
	}{
		{name: "default cap", perCategory: 0, want: 10},
		{name: "custom cap", perCategory: 3, want: 3},
		{name: "cap above count", perCategory: 20, want: 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mutants, err := NewMutagen(newParser(), tt.perCategory).GenerateMutants(context.Background(), source, m.MutationLiteralValue)
			require.NoError(t, err)

			assert.Len(t, mutants, tt.want)
			assert.Equal(t, 1, mutants[0].Line)
		})
	}
}

func TestMutagen_GenerateMutants_Errors(t *testing.T) {
	t.Run("unsupported category", func(t *testing.T) {
		_, err := NewMutagen(newParser(), 0).GenerateMutants(context.Background(), []byte(mixedSource), m.MutantCategory("arithmetic"))
		assert.ErrorContains(t, err, "unsupported mutation category: arithmetic")
	})

	t.Run("invalid source", func(t *testing.T) {
		_, err := NewMutagen(newParser(), 0).GenerateMutants(context.Background(), exampleSource(t, "invalid_syntax.py"))
		assert.ErrorContains(t, err, "failed to parse source")
	})
}

func TestMutagen_GenerateMutants_NoSites(t *testing.T) {
	mutants, err := NewMutagen(newParser(), 0).GenerateMutants(context.Background(), []byte("x = 1 + 2\n"))
	require.NoError(t, err)

	assert.Empty(t, mutants)
}
