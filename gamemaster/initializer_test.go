package gamemaster

import (
	"errors"
	"path/filepath"
	"testing"

	"selfplay/config"
	"selfplay/game"
	"selfplay/searcher"

	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := config.Default()
	komi := 7.5
	cfg.Init.KomiMean = &komi
	cfg.Init.BSizes = []int{9}
	cfg.Init.BSizeRelProbs = []float64{1}
	return &cfg
}

func newTestInitializer(t *testing.T, cfg *config.Config) *GameInitializer {
	t.Helper()
	gi, err := NewGameInitializer(cfg, "initializer")
	require.NoError(t, err)
	return gi
}

func TestNewGameInitializer(t *testing.T) {
	t.Run("rejects missing komi", func(t *testing.T) {
		cfg := testConfig()
		cfg.Init.KomiMean = nil
		_, err := NewGameInitializer(cfg, "x")
		var cfgErr *config.Error
		require.True(t, errors.As(err, &cfgErr))
		require.Equal(t, "komiMean", cfgErr.Key)
	})

	t.Run("rejects unknown rules", func(t *testing.T) {
		cfg := testConfig()
		cfg.Init.KoRules = []string{"SUPERDUPER"}
		_, err := NewGameInitializer(cfg, "x")
		var cfgErr *config.Error
		require.True(t, errors.As(err, &cfgErr))
		require.Equal(t, "koRules", cfgErr.Key)
	})

	t.Run("board size bounds", func(t *testing.T) {
		cfg := testConfig()
		cfg.Init.BSizes = []int{9, 13}
		cfg.Init.BSizeRelProbs = []float64{1, 1}
		gi := newTestInitializer(t, cfg)

		require.Equal(t, 9, gi.MinBoardXSize())
		require.Equal(t, 9, gi.MinBoardYSize())
		require.Equal(t, 13, gi.MaxBoardXSize())
		require.Equal(t, 13, gi.MaxBoardYSize())
		require.True(t, gi.IsAllowedBSize(13, 13))
		require.False(t, gi.IsAllowedBSize(9, 13))
		require.ElementsMatch(t, [][2]int{{9, 9}, {13, 13}}, gi.AllowedBSizes())
	})

	t.Run("empty poses directory disables poses", func(t *testing.T) {
		cfg := testConfig()
		cfg.Init.StartPosesFromSgfDir = t.TempDir()
		cfg.Init.StartPosesProb = 1
		gi := newTestInitializer(t, cfg)
		require.Zero(t, gi.startPosesProb)

		settings := cfg.Play
		setup, err := gi.CreateGame(nil, &settings, nil)
		require.NoError(t, err)
		require.False(t, setup.Props.IsSgfPos)
	})
}

func TestCreateGame(t *testing.T) {
	t.Run("fixed komi on an empty board", func(t *testing.T) {
		cfg := testConfig()
		gi := newTestInitializer(t, cfg)
		settings := cfg.Play

		for i := 0; i < 20; i++ {
			setup, err := gi.CreateGame(nil, &settings, nil)
			require.NoError(t, err)

			state := setup.State
			require.Equal(t, 9, state.XSize())
			require.Equal(t, 9, state.YSize())
			require.Equal(t, game.Black, state.Player())
			require.Empty(t, state.Moves())
			require.Equal(t, float32(7.5), state.Komi())
			require.Zero(t, setup.ExtraBlackAndKomi.ExtraBlack)
			require.False(t, setup.ExtraBlackAndKomi.MakeGameFair)
			require.False(t, setup.ExtraBlackAndKomi.MakeGameFairForEmptyBoard)

			props := setup.Props
			require.False(t, props.IsFork)
			require.False(t, props.IsSgfPos)
			require.True(t, props.AllowPolicyInit)
			require.Equal(t, game.NullLoc, props.HintLoc)
			require.Equal(t, -1, props.HintTurn)
			require.Equal(t, 1.0, props.TrainingWeight)
		}
	})

	t.Run("hint fork initial position", func(t *testing.T) {
		cfg := testConfig()
		gi := newTestInitializer(t, cfg)
		settings := cfg.Play

		state := game.NewBoard(9, 9, game.DefaultRules()).
			Play(game.MakeLoc(4, 4, 9), game.Black).
			Play(game.MakeLoc(2, 2, 9), game.White)
		pos := &InitialPosition{State: state, Pla: game.Black, IsHintFork: true, TrainingWeight: 2}

		setup, err := gi.CreateGame(pos, &settings, nil)
		require.NoError(t, err)
		require.True(t, setup.Props.IsFork)
		require.True(t, setup.Props.IsHintFork)
		require.False(t, setup.Props.AllowPolicyInit)
		require.Equal(t, 2, setup.Props.HintTurn)
		require.Equal(t, 2.0, setup.Props.TrainingWeight)
		require.Zero(t, setup.ExtraBlackAndKomi.ExtraBlack)
		require.Len(t, setup.State.Moves(), 2)
		require.Equal(t, game.Black, setup.State.Player())
	})

	t.Run("plain fork has no hint turn", func(t *testing.T) {
		cfg := testConfig()
		gi := newTestInitializer(t, cfg)
		settings := cfg.Play

		pos := newTestPosition(1)
		setup, err := gi.CreateGame(pos, &settings, nil)
		require.NoError(t, err)
		require.True(t, setup.Props.IsFork)
		require.False(t, setup.Props.IsHintFork)
		require.Equal(t, -1, setup.Props.HintTurn)
	})

	t.Run("rules come from the allowed sets", func(t *testing.T) {
		cfg := testConfig()
		cfg.Init.KoRules = []string{"SIMPLE", "SITUATIONAL"}
		cfg.Init.ScoringRules = []string{"AREA", "TERRITORY"}
		cfg.Init.TaxRules = []string{"NONE", "ALL"}
		cfg.Init.MultiStoneSuicideLegals = []bool{true}
		cfg.Init.HasButtons = []bool{true}
		gi := newTestInitializer(t, cfg)

		seenScoring := map[game.ScoringRule]bool{}
		for i := 0; i < 200; i++ {
			rules := gi.CreateRules()
			require.Contains(t, []game.KoRule{game.KoSimple, game.KoSituational}, rules.KoRule)
			require.Contains(t, []game.TaxRule{game.TaxNone, game.TaxAll}, rules.TaxRule)
			require.True(t, rules.MultiStoneSuicideLegal)
			require.Equal(t, rules.ScoringRule == game.ScoringArea, rules.HasButton)
			require.Equal(t, float32(7.5), rules.Komi)
			seenScoring[rules.ScoringRule] = true
		}
		require.Len(t, seenScoring, 2)
	})

	t.Run("outcome noise needs params", func(t *testing.T) {
		cfg := testConfig()
		cfg.Init.NoResultStdev = 0.2
		gi := newTestInitializer(t, cfg)
		settings := cfg.Play
		_, err := gi.CreateGame(nil, &settings, nil)
		require.Error(t, err)
	})

	t.Run("outcome noise stays in range", func(t *testing.T) {
		cfg := testConfig()
		cfg.Init.NoResultStdev = 0.5
		cfg.Init.DrawRandRadius = 0.5
		gi := newTestInitializer(t, cfg)
		settings := cfg.Play

		for i := 0; i < 100; i++ {
			params := searcher.DefaultParams()
			_, err := gi.CreateGameWithParams(&params, nil, &settings, nil)
			require.NoError(t, err)
			require.GreaterOrEqual(t, params.NoResultUtilityForWhite, -1.0)
			require.LessOrEqual(t, params.NoResultUtilityForWhite, 1.0)
			require.GreaterOrEqual(t, params.DrawEquivalentWinsForWhite, 0.0)
			require.LessOrEqual(t, params.DrawEquivalentWinsForWhite, 1.0)
		}
	})

	t.Run("asymmetric playouts favor white under handicap", func(t *testing.T) {
		cfg := testConfig()
		cfg.Init.HandicapProb = 1
		cfg.Init.NumExtraBlackFixed = 2
		gi := newTestInitializer(t, cfg)
		settings := cfg.Play
		settings.HandicapAsymmetricPlayoutProb = 1
		settings.MaxAsymmetricRatio = 8

		for i := 0; i < 20; i++ {
			setup, err := gi.CreateGame(nil, &settings, nil)
			require.NoError(t, err)
			require.Equal(t, 2, setup.ExtraBlackAndKomi.ExtraBlack)
			require.Equal(t, game.White, setup.Props.PlayoutDoublingAdvantagePla)
			require.GreaterOrEqual(t, setup.Props.PlayoutDoublingAdvantage, 0.0)
			require.LessOrEqual(t, setup.Props.PlayoutDoublingAdvantage, 3.0)
		}
	})

	t.Run("start position replays its moves", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "s.startposes.txt"), poseLine(0, `"E5","C3"`, `"B","W"`, ""))
		cfg := testConfig()
		cfg.Init.StartPosesFromSgfDir = dir
		cfg.Init.StartPosesProb = 1
		gi := newTestInitializer(t, cfg)
		settings := cfg.Play

		setup, err := gi.CreateGame(nil, &settings, nil)
		require.NoError(t, err)
		require.True(t, setup.Props.IsSgfPos)
		require.False(t, setup.Props.IsHintPos)
		require.True(t, setup.Props.AllowPolicyInit)
		require.Equal(t, 2, setup.Props.HintTurn)
		require.Equal(t, setup.State.Hash(), setup.Props.HintPosHash)
		require.Len(t, setup.State.Moves(), 2)
		require.Equal(t, game.Black, setup.State.Player())
	})

	t.Run("hint position keeps its hint", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "h.hintposes.txt"), poseLine(0, `"E5"`, `"B"`, "G7"))
		cfg := testConfig()
		cfg.Init.HintPosesDir = dir
		cfg.Init.HintPosesProb = 1
		gi := newTestInitializer(t, cfg)
		settings := cfg.Play

		setup, err := gi.CreateGame(nil, &settings, nil)
		require.NoError(t, err)
		hint, err := game.ParseLoc("G7", 9, 9)
		require.NoError(t, err)
		require.True(t, setup.Props.IsHintPos)
		require.False(t, setup.Props.AllowPolicyInit)
		require.Equal(t, hint, setup.Props.HintLoc)
		require.Equal(t, 1, setup.Props.HintTurn)
		require.Equal(t, game.White, setup.State.Player())
	})

	t.Run("explicit sample overrides configured poses", func(t *testing.T) {
		cfg := testConfig()
		gi := newTestInitializer(t, cfg)
		settings := cfg.Play

		sample, err := game.ParsePositionSample([]byte(poseLine(0, `"E5"`, `"B"`, "")))
		require.NoError(t, err)
		sample.TrainingWeight = 3
		setup, err := gi.CreateGame(nil, &settings, &sample)
		require.NoError(t, err)
		require.True(t, setup.Props.IsSgfPos)
		require.Equal(t, 3.0, setup.Props.TrainingWeight)
		require.Len(t, setup.State.Moves(), 1)
	})
}
