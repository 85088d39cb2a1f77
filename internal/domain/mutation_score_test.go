package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
	m "tcoracle.dev/pkg/tcoracle/internal/model"
)

func TestKillRate(t *testing.T) {
	results := []m.ResultEntry{
		{LevelReached: 3, MutationsTested: 4, MutationsKilled: 1},
		{LevelReached: 1},
		{LevelReached: 3, MutationsTested: 6, MutationsKilled: 3},
	}

	require.InDelta(t, 0.4, killRate(results), 1e-9)
}

func TestKillRate_NoMutantsIsZero(t *testing.T) {
	require.Equal(t, 0.0, killRate(nil))
	require.Equal(t, 0.0, killRate([]m.ResultEntry{{LevelReached: 1}}))
}
