package engine

import (
	"testing"

	"selfplay/game"

	"github.com/stretchr/testify/require"
)

func TestRecordTreePositions(t *testing.T) {
	bot := newTestBot(200)
	root := bot.RootState()
	played := bot.RunWholeSearchAndGetMove(game.Black)

	data := newFinishedGameData()
	err := recordTreePositions(data, root, game.Black, bot, 5, 0.5, 2, played, game.NullLoc)
	require.NoError(t, err)
	require.NotEmpty(t, data.SidePositions)

	rootMoves := len(root.Moves())
	for _, sp := range data.SidePositions {
		moves := sp.State.Moves()
		require.Greater(t, len(moves), rootMoves, "The root itself is never recorded")
		require.NotEqual(t, played, moves[rootMoves].Loc, "The played move is searched separately")
		require.Equal(t, sp.State.Player(), sp.Pla)
		require.Equal(t, 0.5, sp.TargetWeight)
		require.Equal(t, int64(200), sp.UnreducedNumVisits)
		require.Equal(t, 2, sp.NumEvaluatorChangesSoFar)
		require.NotEmpty(t, sp.PolicyTarget)
	}

	t.Run("nothing to record without a tree", func(t *testing.T) {
		bot := newTestBot(200)
		data := newFinishedGameData()
		require.NoError(t, recordTreePositions(data, bot.RootState(), game.Black, bot, 1, 1, 0, game.NullLoc, game.NullLoc))
		require.Empty(t, data.SidePositions)
	})
}
