package gamemaster

import (
	"testing"

	"selfplay/engine"
	"selfplay/evaluator"
	"selfplay/game"
	"selfplay/utils"

	"github.com/stretchr/testify/require"
)

func loc9(t *testing.T, s string) game.Loc {
	t.Helper()
	loc, err := game.ParseLoc(s, 9, 9)
	require.NoError(t, err)
	return loc
}

// playedGame plays the prefix from an empty 9x9 board to get the start state, then the rest.
func playedGame(t *testing.T, prefix, rest []string) *engine.FinishedGameData {
	t.Helper()
	var state game.State = game.NewBoard(9, 9, game.DefaultRules())
	for _, s := range prefix {
		state = state.Play(loc9(t, s), state.Player())
	}
	start := state
	for _, s := range rest {
		state = state.Play(loc9(t, s), state.Player())
	}
	return &engine.FinishedGameData{
		StartState:     start,
		StartPla:       start.Player(),
		EndState:       state,
		TrainingWeight: 1.5,
	}
}

func TestReplayGameUpToMove(t *testing.T) {
	data := playedGame(t, nil, []string{"E5", "C3", "D4", "F6", "G7"})
	rules := data.StartState.Rules()

	t.Run("stops before the requested move", func(t *testing.T) {
		state, err := ReplayGameUpToMove(data, 3, rules)
		require.NoError(t, err)
		require.Len(t, state.Moves(), 3)
		require.Equal(t, game.White, state.Player())
		require.Equal(t, game.Black, state.At(loc9(t, "D4")))
		require.Equal(t, game.Empty, state.At(loc9(t, "F6")))
	})

	t.Run("clamps past the end", func(t *testing.T) {
		state, err := ReplayGameUpToMove(data, 100, rules)
		require.NoError(t, err)
		require.Len(t, state.Moves(), 4)
	})

	t.Run("no moves returns the start", func(t *testing.T) {
		empty := playedGame(t, nil, nil)
		state, err := ReplayGameUpToMove(empty, 3, rules)
		require.NoError(t, err)
		require.Empty(t, state.Moves())
	})

	t.Run("uses the given rules", func(t *testing.T) {
		other := rules
		other.ScoringRule = game.ScoringTerritory
		other.HasButton = false
		state, err := ReplayGameUpToMove(data, 2, other)
		require.NoError(t, err)
		require.Equal(t, game.ScoringTerritory, state.Rules().ScoringRule)
	})

	t.Run("stops at the end of the game", func(t *testing.T) {
		finished := playedGame(t, nil, []string{"E5", "pass", "pass", "C3"})
		state, err := ReplayGameUpToMove(finished, 3, rules)
		require.NoError(t, err)
		require.True(t, state.IsFinished())
		require.Len(t, state.Moves(), 3)
	})
}

func TestHasUnownedSpot(t *testing.T) {
	data := playedGame(t, nil, []string{"E5"})
	require.False(t, HasUnownedSpot(data))

	data.FinalOwnership = make([]game.Player, game.MaxArea)
	for i := 0; i < 81; i++ {
		data.FinalOwnership[i] = game.Black
	}
	require.False(t, HasUnownedSpot(data))

	data.FinalOwnership[40] = game.Empty
	require.True(t, HasUnownedSpot(data))
}

func TestMaybeForkGame(t *testing.T) {
	eval := evaluator.NewHeuristic("test")
	data := playedGame(t, nil, []string{"E5", "C3", "D4", "F6", "G7", "C7"})

	t.Run("late fork plays one extra move", func(t *testing.T) {
		forkData := NewForkData()
		settings := testConfig().Play
		settings.ForkGameProb = 1
		settings.ForkGameMaxChoices = 5

		rand := utils.NewRand("late")
		require.NoError(t, MaybeForkGame(data, forkData, &settings, rand, eval))
		require.Equal(t, 1, forkData.Len())

		pos := forkData.Get(rand)
		require.True(t, pos.IsPlainFork)
		require.False(t, pos.State.IsFinished())
		require.Equal(t, 1.5, pos.TrainingWeight)
		require.Equal(t, pos.State.Player(), pos.Pla)
		require.GreaterOrEqual(t, len(pos.State.Moves()), 1)
		require.LessOrEqual(t, len(pos.State.Moves()), 6)
	})

	t.Run("early fork near the opening", func(t *testing.T) {
		forkData := NewForkData()
		settings := testConfig().Play
		settings.EarlyForkGameProb = 1
		settings.EarlyForkGameExpectedMoveProp = 0

		require.NoError(t, MaybeForkGame(data, forkData, &settings, utils.NewRand("early"), eval))
		pos := forkData.Get(utils.NewRand("take"))
		require.NotNil(t, pos)
		require.Len(t, pos.State.Moves(), 1)
		require.Equal(t, game.White, pos.Pla)
	})

	t.Run("disabled or nil pool does nothing", func(t *testing.T) {
		forkData := NewForkData()
		settings := testConfig().Play
		require.NoError(t, MaybeForkGame(data, forkData, &settings, utils.NewRand("off"), eval))
		require.Zero(t, forkData.Len())

		settings.ForkGameProb = 1
		require.NoError(t, MaybeForkGame(data, nil, &settings, utils.NewRand("nil"), eval))
	})
}

func TestMaybeSekiForkGame(t *testing.T) {
	cfg := testConfig()
	cfg.Init.ScoringRules = []string{"AREA", "TERRITORY"}
	gi := newTestInitializer(t, cfg)

	finishedGame := func() *engine.FinishedGameData {
		data := playedGame(t, nil, []string{"E5", "C3", "D4", "F6", "G7", "pass", "pass"})
		data.FinalOwnership = make([]game.Player, game.MaxArea)
		return data
	}

	t.Run("adds two seki forks", func(t *testing.T) {
		data := finishedGame()
		require.True(t, data.EndState.IsFinished())
		forkData := NewForkData()
		settings := cfg.Play
		settings.SekiForkHackProb = 0.5

		require.NoError(t, MaybeSekiForkGame(data, forkData, &settings, gi, utils.NewRand("seki")))
		require.Equal(t, 2, forkData.SekiLen())
		require.Zero(t, forkData.Len())

		pos := forkData.GetSeki(utils.NewRand("take"))
		require.True(t, pos.IsSekiFork)
		require.False(t, pos.State.IsFinished())
		require.Equal(t, 1.5, pos.TrainingWeight)
	})

	t.Run("requires an unowned spot", func(t *testing.T) {
		data := finishedGame()
		for i := range data.FinalOwnership {
			data.FinalOwnership[i] = game.White
		}
		forkData := NewForkData()
		settings := cfg.Play
		settings.SekiForkHackProb = 0.5
		require.NoError(t, MaybeSekiForkGame(data, forkData, &settings, gi, utils.NewRand("owned")))
		require.Zero(t, forkData.SekiLen())
	})

	t.Run("requires a finished game", func(t *testing.T) {
		data := playedGame(t, nil, []string{"E5", "C3"})
		data.FinalOwnership = make([]game.Player, game.MaxArea)
		forkData := NewForkData()
		settings := cfg.Play
		settings.SekiForkHackProb = 0.5
		require.NoError(t, MaybeSekiForkGame(data, forkData, &settings, gi, utils.NewRand("unfinished")))
		require.Zero(t, forkData.SekiLen())
	})
}

func TestMaybeHintForkGame(t *testing.T) {
	hintProps := func(t *testing.T, data *engine.FinishedGameData) engine.OtherGameProperties {
		props := engine.DefaultOtherGameProperties()
		props.IsHintPos = true
		props.HintLoc = loc9(t, "G7")
		props.HintTurn = len(data.StartState.Moves())
		props.HintPosHash = data.StartState.Hash()
		return props
	}

	t.Run("plays the hint the bot ignored", func(t *testing.T) {
		data := playedGame(t, []string{"E5"}, []string{"C3", "D4"})
		forkData := NewForkData()
		require.NoError(t, MaybeHintForkGame(data, forkData, hintProps(t, data)))
		require.Equal(t, 1, forkData.Len())

		pos := forkData.Get(utils.NewRand("take"))
		require.True(t, pos.IsHintFork)
		moves := pos.State.Moves()
		require.Len(t, moves, 2)
		require.Equal(t, loc9(t, "G7"), moves[1].Loc)
		require.Equal(t, game.White, moves[1].Pla)
		require.Equal(t, game.Black, pos.Pla)
	})

	t.Run("no fork when the bot followed the hint", func(t *testing.T) {
		data := playedGame(t, []string{"E5"}, []string{"G7", "D4"})
		forkData := NewForkData()
		require.NoError(t, MaybeHintForkGame(data, forkData, hintProps(t, data)))
		require.Zero(t, forkData.Len())
	})

	t.Run("no fork without a hint", func(t *testing.T) {
		data := playedGame(t, []string{"E5"}, []string{"C3"})
		forkData := NewForkData()
		require.NoError(t, MaybeHintForkGame(data, forkData, engine.DefaultOtherGameProperties()))
		require.Zero(t, forkData.Len())
	})

	t.Run("no fork for another start position", func(t *testing.T) {
		data := playedGame(t, []string{"E5"}, []string{"C3"})
		props := hintProps(t, data)
		props.HintPosHash++
		forkData := NewForkData()
		require.NoError(t, MaybeHintForkGame(data, forkData, props))
		require.Zero(t, forkData.Len())
	})
}
