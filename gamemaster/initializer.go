package gamemaster

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"selfplay/config"
	"selfplay/engine"
	"selfplay/game"
	"selfplay/playutils"
	"selfplay/searcher"
	"selfplay/utils"

	"github.com/rs/zerolog/log"
)

const (
	settingsSource   = "play"
	maxStartPosMoves = 0xFFFFFF
)

// GameSetup is everything GameInitializer decides about a new game.
type GameSetup struct {
	State             game.State
	ExtraBlackAndKomi playutils.ExtraBlackAndKomi
	Props             engine.OtherGameProperties
}

// GameInitializer randomizes board size, rules, komi and start position of new games from one
// shared random stream.
type GameInitializer struct {
	mu   sync.Mutex
	rand *utils.Rand

	init    config.GameInit
	allowed config.AllowedRules

	bSizes        []config.BoardSize
	bSizeRelProbs []float64
	komiMean      float64

	startPoses       []game.PositionSample
	startPosCumProbs []float64
	startPosesProb   float64
	hintPoses        []game.PositionSample
	hintPosCumProbs  []float64
	hintPosesProb    float64

	minBoardXSize, minBoardYSize int
	maxBoardXSize, maxBoardYSize int
}

// NewGameInitializer validates the init section of cfg and loads the configured poses. An empty
// seed draws one from the clock.
func NewGameInitializer(cfg *config.Config, seed string) (*GameInitializer, error) {
	source := cfg.Source
	if err := cfg.Init.Validate(source); err != nil {
		return nil, err
	}
	allowed, err := cfg.Init.AllowedRules(source)
	if err != nil {
		return nil, err
	}
	sizes, err := cfg.Init.BoardSizes(source)
	if err != nil {
		return nil, err
	}

	rand := utils.NewTimeRand()
	if seed != "" {
		rand = utils.NewRand(seed)
	}
	gi := &GameInitializer{
		rand:     rand,
		init:     cfg.Init,
		allowed:  allowed,
		bSizes:   sizes,
		komiMean: cfg.Init.ResolvedKomiMean(),
	}
	for _, s := range sizes {
		gi.bSizeRelProbs = append(gi.bSizeRelProbs, s.RelProb)
	}

	if err := gi.loadPoses(source); err != nil {
		return nil, err
	}

	gi.minBoardXSize, gi.minBoardYSize = sizes[0].XSize, sizes[0].YSize
	gi.maxBoardXSize, gi.maxBoardYSize = sizes[0].XSize, sizes[0].YSize
	for _, s := range sizes {
		gi.includeSize(s.XSize, s.YSize)
	}
	for _, p := range gi.hintPoses {
		gi.includeSize(p.XSize, p.YSize)
	}
	return gi, nil
}

func (gi *GameInitializer) includeSize(x, y int) {
	gi.minBoardXSize = min(gi.minBoardXSize, x)
	gi.minBoardYSize = min(gi.minBoardYSize, y)
	gi.maxBoardXSize = max(gi.maxBoardXSize, x)
	gi.maxBoardYSize = max(gi.maxBoardYSize, y)
}

func (gi *GameInitializer) loadPoses(source string) error {
	if gi.init.StartPosesFromSgfDir != "" {
		poses, err := loadStartPoses(gi.init.StartPosesFromSgfDir, gi.init.StartPosesSgfExcludes, gi.init.StartPosesLoadProb, gi.rand)
		if err != nil {
			return config.NewError(source, "startPosesFromSgfDir", "%v", err)
		}
		cum, ess, err := cumulativeWeights(poses, gi.init.StartPosesTurnWeightLambda)
		if err != nil {
			return fmt.Errorf("start poses: %w", err)
		}
		gi.startPoses, gi.startPosCumProbs = poses, cum
		gi.startPosesProb = gi.init.StartPosesProb
		if len(poses) == 0 {
			log.Info().Msg("No start positions loaded, disabling start position logic")
			gi.startPosesProb = 0
		} else {
			log.Info().Msgf("Cumulative unnormalized probability for start poses: %g", cum[len(cum)-1])
			log.Info().Msgf("Effective sample size for start poses: %g", ess)
		}
	}

	if gi.init.HintPosesDir != "" {
		poses, err := loadHintPoses(gi.init.HintPosesDir)
		if err != nil {
			return config.NewError(source, "hintPosesDir", "%v", err)
		}
		cum, ess, err := cumulativeWeights(poses, 0)
		if err != nil {
			return fmt.Errorf("hint poses: %w", err)
		}
		gi.hintPoses, gi.hintPosCumProbs = poses, cum
		gi.hintPosesProb = gi.init.HintPosesProb
		if len(poses) == 0 {
			log.Info().Msg("No hint positions loaded, disabling hint position logic")
			gi.hintPosesProb = 0
		} else {
			log.Info().Msgf("Cumulative unnormalized probability for hint poses: %g", cum[len(cum)-1])
			log.Info().Msgf("Effective sample size for hint poses: %g", ess)
		}
	}
	return nil
}

func (gi *GameInitializer) komiModel(komiMean, handicapProb float64) playutils.KomiModel {
	return playutils.KomiModel{
		KomiMean:             komiMean,
		KomiStdev:            gi.init.KomiStdev,
		KomiAllowIntegerProb: gi.init.KomiAllowIntegerProb,
		HandicapProb:         handicapProb,
		NumExtraBlackFixed:   gi.init.NumExtraBlackFixed,
		KomiBigStdevProb:     gi.init.KomiBigStdevProb,
		KomiBigStdev:         gi.init.KomiBigStdev,
		KomiBiggerStdevProb:  gi.init.KomiBiggerStdevProb,
		KomiBiggerStdev:      gi.init.KomiBiggerStdev,
	}
}

// CreateGame sets up a new game. initialPos, if given, is used as is. Otherwise startPosSample,
// if given, is replayed onto freshly drawn rules, and failing that a configured pose or an
// empty board is used.
func (gi *GameInitializer) CreateGame(initialPos *InitialPosition, settings *config.PlaySettings,
	startPosSample *game.PositionSample) (GameSetup, error) {
	if gi.init.NoResultStdev != 0 || gi.init.DrawRandRadius != 0 {
		return GameSetup{}, errors.New("noResultStdev and drawRandRadius need CreateGameWithParams")
	}
	gi.mu.Lock()
	defer gi.mu.Unlock()
	return gi.createGameLocked(initialPos, settings, startPosSample)
}

// CreateGameWithParams is CreateGame that also randomizes the no-result and draw utilities of
// params.
func (gi *GameInitializer) CreateGameWithParams(params *searcher.Params, initialPos *InitialPosition,
	settings *config.PlaySettings, startPosSample *game.PositionSample) (GameSetup, error) {
	gi.mu.Lock()
	defer gi.mu.Unlock()
	setup, err := gi.createGameLocked(initialPos, settings, startPosSample)
	if err != nil {
		return setup, err
	}

	if gi.init.NoResultStdev > 1e-30 {
		mean := params.NoResultUtilityForWhite
		params.NoResultUtilityForWhite = mean + gi.init.NoResultStdev*gi.rand.GaussianTruncated(3.0)
		for params.NoResultUtilityForWhite < -1 || params.NoResultUtilityForWhite > 1 {
			params.NoResultUtilityForWhite = mean + gi.init.NoResultStdev*gi.rand.GaussianTruncated(3.0)
		}
	}
	if gi.init.DrawRandRadius > 1e-30 {
		mean := params.DrawEquivalentWinsForWhite
		if mean < 0 || mean > 1 {
			return setup, fmt.Errorf("drawEquivalentWinsForWhite not within [0,1]: %v", mean)
		}
		params.DrawEquivalentWinsForWhite = mean + gi.init.DrawRandRadius*(gi.rand.Float64()*2-1)
		for params.DrawEquivalentWinsForWhite < 0 || params.DrawEquivalentWinsForWhite > 1 {
			params.DrawEquivalentWinsForWhite = mean + gi.init.DrawRandRadius*(gi.rand.Float64()*2-1)
		}
	}
	return setup, nil
}

func (gi *GameInitializer) createGameLocked(initialPos *InitialPosition, settings *config.PlaySettings,
	startPosSample *game.PositionSample) (GameSetup, error) {
	var setup GameSetup
	props := engine.DefaultOtherGameProperties()

	if initialPos != nil {
		state := initialPos.State
		sqrtArea := math.Sqrt(float64(state.Area()))
		// No handicap when starting from a fork
		ebk := playutils.ChooseExtraBlackAndKomi(gi.komiModel(float64(state.Komi()), 0), sqrtArea, gi.rand)
		setup.State = playutils.SetKomiWithNoise(ebk, state, gi.rand)

		props.AllowPolicyInit = false
		props.IsFork = true
		props.IsHintFork = initialPos.IsHintFork
		props.HintTurn = -1
		if initialPos.IsHintFork {
			props.HintTurn = len(state.Moves())
		}
		props.TrainingWeight = initialPos.TrainingWeight
		ebk.MakeGameFair = gi.rand.Bool(gi.init.ResolvedForkCompensateKomiProb())
		setup.ExtraBlackAndKomi = ebk
		setup.Props = props
		return setup, nil
	}

	bSize := gi.bSizes[gi.rand.IndexWeighted(gi.bSizeRelProbs)]
	rules := gi.createRulesLocked()

	posSample := startPosSample
	if posSample == nil {
		if gi.startPosesProb > 0 && gi.rand.Bool(gi.startPosesProb) {
			posSample = &gi.startPoses[gi.rand.IndexCumulative(gi.startPosCumProbs)]
		} else if gi.hintPosesProb > 0 && gi.rand.Bool(gi.hintPosesProb) {
			posSample = &gi.hintPoses[gi.rand.IndexCumulative(gi.hintPosCumProbs)]
		}
	}

	var ebk playutils.ExtraBlackAndKomi
	makeGameFairProb := 0.0
	if posSample != nil {
		if len(posSample.Moves) >= maxStartPosMoves {
			return setup, fmt.Errorf("start position has too many moves: %d", len(posSample.Moves))
		}
		state := posSample.InitialState(rules)
		hintLoc := posSample.HintLoc
		for _, m := range posSample.Moves {
			// Rules differences can make a recorded move illegal, keep what was replayed so far
			if !state.IsLegal(m.Loc, m.Pla) || state.IsFinished() {
				hintLoc = game.NullLoc
				break
			}
			state = state.Play(m.Loc, m.Pla)
		}

		// No handicap when starting from a sampled position
		sqrtArea := math.Sqrt(float64(state.Area()))
		ebk = playutils.ChooseExtraBlackAndKomi(gi.komiModel(gi.komiMean, 0), sqrtArea, gi.rand)
		state = playutils.SetKomiWithNoise(ebk, state, gi.rand)

		props.IsSgfPos = hintLoc == game.NullLoc
		props.IsHintPos = hintLoc != game.NullLoc
		props.AllowPolicyInit = hintLoc == game.NullLoc
		props.HintLoc = hintLoc
		props.HintTurn = len(state.Moves())
		props.HintPosHash = state.Hash()
		props.TrainingWeight = posSample.TrainingWeight
		makeGameFairProb = gi.init.ResolvedSgfCompensateKomiProb()
		ebk.InterpZero = gi.init.SgfKomiInterpZeroProb > 0 && gi.rand.Bool(gi.init.SgfKomiInterpZeroProb)
		setup.State = state
	} else {
		state := game.State(game.NewBoard(bSize.XSize, bSize.YSize, rules))
		sqrtArea := math.Sqrt(float64(state.Area()))
		ebk = playutils.ChooseExtraBlackAndKomi(gi.komiModel(gi.komiMean, gi.init.HandicapProb), sqrtArea, gi.rand)
		setup.State = playutils.SetKomiWithNoise(ebk, state, gi.rand)

		props.HintTurn = -1
		if ebk.ExtraBlack > 0 {
			makeGameFairProb = gi.init.HandicapCompensateKomiProb
		}
		ebk.InterpZero = gi.init.HandicapKomiInterpZeroProb > 0 && ebk.ExtraBlack > 0 && gi.rand.Bool(gi.init.HandicapKomiInterpZeroProb)
	}

	asymmetricProb := settings.NormalAsymmetricPlayoutProb
	if ebk.ExtraBlack > 0 {
		asymmetricProb = settings.HandicapAsymmetricPlayoutProb
	}
	if asymmetricProb > 0 && gi.rand.Bool(asymmetricProb) {
		if settings.MaxAsymmetricRatio < 1 {
			return setup, config.NewError(settingsSource, "maxAsymmetricRatio", "must be >= 1, got %v", settings.MaxAsymmetricRatio)
		}
		maxNumDoublings := math.Log(settings.MaxAsymmetricRatio) / math.Log(2)
		props.PlayoutDoublingAdvantage = gi.rand.FloatN(maxNumDoublings)
		props.PlayoutDoublingAdvantagePla = game.Black
		if ebk.ExtraBlack > 0 || gi.rand.Bool(0.5) {
			props.PlayoutDoublingAdvantagePla = game.White
		}
		makeGameFairProb = math.Max(makeGameFairProb, settings.MinAsymmetricCompensateKomiProb)
	}

	if makeGameFairProb > 0 {
		ebk.MakeGameFair = gi.rand.Bool(makeGameFairProb)
	}
	ebk.MakeGameFairForEmptyBoard = gi.init.KomiAuto && !ebk.MakeGameFair

	setup.ExtraBlackAndKomi = ebk
	setup.Props = props
	return setup, nil
}

// CreateRules draws each rule axis independently from its allowed values.
func (gi *GameInitializer) CreateRules() game.Rules {
	gi.mu.Lock()
	defer gi.mu.Unlock()
	return gi.createRulesLocked()
}

func (gi *GameInitializer) createRulesLocked() game.Rules {
	a := gi.allowed
	rules := game.Rules{
		KoRule:                 a.KoRules[gi.rand.Intn(len(a.KoRules))],
		ScoringRule:            a.ScoringRules[gi.rand.Intn(len(a.ScoringRules))],
		TaxRule:                a.TaxRules[gi.rand.Intn(len(a.TaxRules))],
		MultiStoneSuicideLegal: a.MultiStoneSuicideLegals[gi.rand.Intn(len(a.MultiStoneSuicideLegals))],
		Komi:                   float32(gi.komiMean),
	}
	if rules.ScoringRule == game.ScoringArea {
		rules.HasButton = a.HasButtons[gi.rand.Intn(len(a.HasButtons))]
	}
	return rules
}

// RandomizeScoringAndTaxRules redraws only the scoring, tax and button rules, from rand rather
// than the shared stream.
func (gi *GameInitializer) RandomizeScoringAndTaxRules(rules game.Rules, rand *utils.Rand) game.Rules {
	a := gi.allowed
	rules.ScoringRule = a.ScoringRules[rand.Intn(len(a.ScoringRules))]
	rules.TaxRule = a.TaxRules[rand.Intn(len(a.TaxRules))]
	rules.HasButton = false
	if rules.ScoringRule == game.ScoringArea {
		rules.HasButton = a.HasButtons[rand.Intn(len(a.HasButtons))]
	}
	return rules
}

func (gi *GameInitializer) IsAllowedBSize(xSize, ySize int) bool {
	for _, s := range gi.bSizes {
		if s.XSize == xSize && s.YSize == ySize {
			return true
		}
	}
	return false
}

func (gi *GameInitializer) AllowedBSizes() [][2]int {
	sizes := make([][2]int, len(gi.bSizes))
	for i, s := range gi.bSizes {
		sizes[i] = [2]int{s.XSize, s.YSize}
	}
	return sizes
}

func (gi *GameInitializer) MinBoardXSize() int { return gi.minBoardXSize }
func (gi *GameInitializer) MinBoardYSize() int { return gi.minBoardYSize }
func (gi *GameInitializer) MaxBoardXSize() int { return gi.maxBoardXSize }
func (gi *GameInitializer) MaxBoardYSize() int { return gi.maxBoardYSize }
