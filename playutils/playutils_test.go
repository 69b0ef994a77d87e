package playutils

import (
	"testing"

	"selfplay/evaluator"
	"selfplay/game"
	"selfplay/searcher"
	"selfplay/utils"

	"github.com/stretchr/testify/require"
)

func emptyBoard(size int) game.State {
	return game.NewBoard(size, size, game.DefaultRules())
}

func TestRoundAndClipKomi(t *testing.T) {
	t.Run("rounds to half points", func(t *testing.T) {
		require.Equal(t, float32(7.5), RoundAndClipKomi(7.4, 81, true))
		require.Equal(t, float32(7.0), RoundAndClipKomi(7.1, 81, true))
	})

	t.Run("avoids integers when not allowed", func(t *testing.T) {
		require.Equal(t, float32(7.5), RoundAndClipKomi(7.1, 81, false))
	})

	t.Run("clips to board area", func(t *testing.T) {
		require.Equal(t, float32(25.5), RoundAndClipKomi(300, 25, true))
		require.Equal(t, float32(-25.5), RoundAndClipKomi(-300, 25, true))
	})
}

func TestChooseExtraBlackAndKomi(t *testing.T) {
	t.Run("no noise configured", func(t *testing.T) {
		model := KomiModel{KomiMean: 7.5, KomiAllowIntegerProb: 1}
		ebk := ChooseExtraBlackAndKomi(model, 9, utils.NewRand("komi"))
		require.Zero(t, ebk.ExtraBlack)
		require.Zero(t, ebk.KomiStdev)

		state := SetKomiWithNoise(ebk, emptyBoard(9), utils.NewRand("noise"))
		require.Equal(t, float32(7.5), state.Komi())
	})

	t.Run("fixed handicap", func(t *testing.T) {
		model := KomiModel{KomiMean: 0.5, HandicapProb: 1, NumExtraBlackFixed: 2}
		ebk := ChooseExtraBlackAndKomi(model, 19, utils.NewRand("handicap"))
		require.Equal(t, 2, ebk.ExtraBlack)
	})

	t.Run("stdev scales with board edge", func(t *testing.T) {
		model := KomiModel{KomiMean: 7.5, KomiStdev: 19}
		ebk := ChooseExtraBlackAndKomi(model, 9, utils.NewRand("scale"))
		require.InDelta(t, 9.0, ebk.KomiStdev, 1e-9)
	})
}

func TestChooseRandomPolicyMove(t *testing.T) {
	eval := evaluator.NewHeuristic("test")
	state := emptyBoard(5)
	output := eval.Evaluate(state, game.Black, evaluator.InputParams{})
	rand := utils.NewRand("policy")

	t.Run("respects the banned move and pass flag", func(t *testing.T) {
		center := game.MakeLoc(2, 2, 5)
		for i := 0; i < 200; i++ {
			loc := ChooseRandomPolicyMove(output, state, game.Black, rand, 1.0, false, center)
			require.NotEqual(t, center, loc)
			require.NotEqual(t, game.PassLoc, loc)
			require.True(t, state.IsLegal(loc, game.Black))
		}
	})

	t.Run("forking moves are legal", func(t *testing.T) {
		for i := 0; i < 200; i++ {
			loc := ChooseRandomForkingMove(output, state, game.Black, rand, game.NullLoc)
			require.NotEqual(t, game.NullLoc, loc)
			require.True(t, state.IsLegal(loc, game.Black))
		}
	})
}

func TestChooseRandomLegalMoves(t *testing.T) {
	state := emptyBoard(3)
	rand := utils.NewRand("legal")

	moves := ChooseRandomLegalMoves(state, game.Black, rand, 4)
	require.Len(t, moves, 4)
	seen := map[game.Loc]bool{}
	for _, loc := range moves {
		require.False(t, seen[loc], "Moves should be distinct")
		seen[loc] = true
	}

	require.Len(t, ChooseRandomLegalMoves(state, game.Black, rand, 100), 9)
}

func TestPlayExtraBlack(t *testing.T) {
	state := PlayExtraBlack(evaluator.NewHeuristic("test"), 3, emptyBoard(9), 0.5, 0.5, utils.NewRand("extra"))

	require.Empty(t, state.Moves(), "History should be cleared")
	require.Equal(t, game.Black, state.Player())
	require.Equal(t, 3, game.NumHandicapStones(state))
}

func TestInitializeGameUsingPolicy(t *testing.T) {
	bot := searcher.NewMCTS(searcher.DefaultParams(), evaluator.NewHeuristic("test"), "init")
	state, pla := InitializeGameUsingPolicy(bot, bot, emptyBoard(9), game.Black, utils.NewRand("init"),
		true, 0.2, 1.0, 1.0)

	require.Equal(t, len(state.Moves())%2 == 0, pla == game.Black, "Players should alternate")
	for _, move := range state.Moves() {
		require.NotEqual(t, game.PassLoc, move.Loc)
	}
}

func TestAdjustKomiToEven(t *testing.T) {
	params := searcher.DefaultParams()
	bot := searcher.NewMCTS(params, evaluator.NewHeuristic("test"), "even")

	state := AdjustKomiToEven(bot, bot, emptyBoard(5).WithKomi(7.5), game.Black, 10)
	komi := float64(state.Komi())
	require.Equal(t, komi, 0.5*float64(int(2*komi)), "Komi should stay on half points")
	require.LessOrEqual(t, komi, 25.5)
	require.GreaterOrEqual(t, komi, -25.5)
	require.Equal(t, params, bot.Params(), "Params should be restored")

	finished, _ := emptyBoard(5).EndAndScore()
	require.Equal(t, finished, AdjustKomiToEven(bot, bot, finished, game.Black, 10), "Finished games are left alone")
}
