package game

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePositionSample(t *testing.T) {
	t.Run("decodes a hint position", func(t *testing.T) {
		line := `{"initialTurnNumber":3,"moveLocs":["B2","pass"],"movePlas":["B","W"],"xSize":5,"ySize":5,"nextPla":"B","board":"...../...../..O../...../.....","hintLoc":"D4","weight":2.5}`
		s, err := ParsePositionSample([]byte(line))
		require.NoError(t, err)

		require.Equal(t, 5, s.XSize)
		require.Equal(t, Black, s.NextPla)
		require.Equal(t, 2.5, s.Weight)
		require.Equal(t, 1.0, s.TrainingWeight)
		require.Equal(t, 5, s.CurrentTurnNumber())
		require.Equal(t, White, s.Stones[MakeLoc(2, 2, 5)])
		require.Equal(t, []Move{{Loc: MakeLoc(1, 3, 5), Pla: Black}, {Loc: PassLoc, Pla: White}}, s.Moves)
		require.Equal(t, MakeLoc(3, 1, 5), s.HintLoc)
	})

	t.Run("missing hint and weight use defaults", func(t *testing.T) {
		line := `{"initialTurnNumber":0,"moveLocs":[],"movePlas":[],"xSize":3,"ySize":3,"nextPla":"W","board":".../.../...","hintLoc":""}`
		s, err := ParsePositionSample([]byte(line))
		require.NoError(t, err)
		require.Equal(t, NullLoc, s.HintLoc)
		require.Equal(t, 1.0, s.Weight)

		state := s.InitialState(DefaultRules())
		require.Equal(t, White, state.Player())
		require.Equal(t, 9, state.Area())
	})

	t.Run("rejects mismatched move arrays", func(t *testing.T) {
		line := `{"moveLocs":["A1"],"movePlas":[],"xSize":3,"ySize":3,"nextPla":"B","board":".../.../..."}`
		_, err := ParsePositionSample([]byte(line))
		require.Error(t, err)
	})

	t.Run("content hash ignores weights", func(t *testing.T) {
		a, err := ParsePositionSample([]byte(`{"xSize":3,"ySize":3,"nextPla":"B","board":".../.X./...","weight":1}`))
		require.NoError(t, err)
		b, err := ParsePositionSample([]byte(`{"xSize":3,"ySize":3,"nextPla":"B","board":".../.X./...","weight":7}`))
		require.NoError(t, err)
		c, err := ParsePositionSample([]byte(`{"xSize":3,"ySize":3,"nextPla":"W","board":".../.X./...","weight":1}`))
		require.NoError(t, err)

		require.Equal(t, a.ContentHash(), b.ContentHash())
		require.NotEqual(t, a.ContentHash(), c.ContentHash())
	})
}
