package engine

import (
	"testing"

	"selfplay/game"
	"selfplay/meta"

	"github.com/stretchr/testify/require"
)

func TestQuantizePolicyTarget(t *testing.T) {
	locs := []game.Loc{game.MakeLoc(0, 0, 9), game.MakeLoc(1, 0, 9), game.PassLoc}

	t.Run("scales down large values", func(t *testing.T) {
		moves, err := QuantizePolicyTarget(locs, []float64{60000, 30000, 15})
		require.NoError(t, err)
		require.Len(t, moves, 3)
		require.Equal(t, int16(30000), moves[0].Weight)
		require.Equal(t, int16(15000), moves[1].Weight)
		require.Equal(t, int16(8), moves[2].Weight)
		require.Equal(t, game.PassLoc, moves[2].Loc)
	})

	t.Run("keeps small values", func(t *testing.T) {
		moves, err := QuantizePolicyTarget(locs, []float64{120, 3.4, 0})
		require.NoError(t, err)
		require.Equal(t, int16(120), moves[0].Weight)
		require.Equal(t, int16(3), moves[1].Weight)
		require.Equal(t, int16(0), moves[2].Weight)
	})

	t.Run("never exceeds the maximum", func(t *testing.T) {
		moves, err := QuantizePolicyTarget(locs, []float64{1e9, 1e9 - 1, 5e8})
		require.NoError(t, err)
		for _, m := range moves {
			require.LessOrEqual(t, int(m.Weight), meta.POLICY_TARGET_MAX+1)
			require.GreaterOrEqual(t, m.Weight, int16(0))
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := QuantizePolicyTarget(locs, []float64{1, -1, 1})
		require.Error(t, err)

		_, err = QuantizePolicyTarget(locs, []float64{1, 2})
		require.Error(t, err)
	})
}
