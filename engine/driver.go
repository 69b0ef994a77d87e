package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"selfplay/config"
	"selfplay/evaluator"
	"selfplay/game"
	"selfplay/meta"
	"selfplay/playutils"
	"selfplay/searcher"
	"selfplay/utils"

	"github.com/rs/zerolog/log"
)

// Game is everything needed to play one game. BotB and BotW are the same search when both colors
// are the same bot.
type Game struct {
	State             game.State
	ExtraBlackAndKomi playutils.ExtraBlackAndKomi

	BotSpecB *BotSpec
	BotSpecW *BotSpec
	BotB     searcher.Search
	BotW     searcher.Search

	DoEndGameIfAllPassAlive bool
	ClearBotBeforeSearch    bool
	LogSearchInfo           bool
	LogMoves                bool
	MaxMovesPerGame         int

	Pause    *utils.PauseFlag
	Settings *config.PlaySettings
	Props    OtherGameProperties
	Rand     *utils.Rand
	Hooks    Hooks
}

// gameRun is the mutable state of one RunGame call.
type gameRun struct {
	g    *Game
	data *FinishedGameData

	state          game.State
	pla            game.Player
	ebk            playutils.ExtraBlackAndKomi
	recordFullData bool

	sidePositionsToSearch []*SidePosition
	winLosses             []float64
	leads                 []float64
	scoreStdevs           []float64
	rawValues             []ValueTargets
}

// RunGame plays g from setup to the final targets. If ctx is cancelled the game stops at the next
// safe point and the returned data is incomplete; callers must check ctx.Err() and discard it.
func RunGame(ctx context.Context, g *Game) (*FinishedGameData, error) {
	if g.ExtraBlackAndKomi.MakeGameFair && g.ExtraBlackAndKomi.MakeGameFairForEmptyBoard {
		return nil, errors.New("makeGameFair and makeGameFairForEmptyBoard are exclusive")
	}
	if g.Settings.ForSelfPlay && !g.ClearBotBeforeSearch {
		return nil, config.NewError("runner", "clearBotBeforeSearch", "must be set for self-play")
	}

	r := &gameRun{
		g:              g,
		data:           newFinishedGameData(),
		state:          g.State,
		pla:            g.State.Player(),
		ebk:            g.ExtraBlackAndKomi,
		recordFullData: g.Settings.ForSelfPlay,
	}
	r.setup()
	if err := r.play(ctx); err != nil {
		return nil, err
	}
	if err := r.finish(ctx); err != nil {
		return nil, err
	}
	return r.data, nil
}

func (r *gameRun) botFor(pla game.Player) searcher.Search {
	if pla == game.White {
		return r.g.BotW
	}
	return r.g.BotB
}

// stopped waits out a pause and reports whether the game should stop.
func (r *gameRun) stopped(ctx context.Context) bool {
	return r.g.Pause.Wait(ctx) != nil
}

func (r *gameRun) adjustKomiToEven() {
	g := r.g
	r.state = playutils.AdjustKomiToEven(g.BotB, g.BotW, r.state, r.pla, g.Settings.CompensateKomiVisits)
	r.ebk.KomiMean = float64(r.state.Komi())
	r.state = playutils.SetKomiWithNoise(r.ebk, r.state, g.Rand)
}

func (r *gameRun) setup() {
	g, s := r.g, r.g.Settings
	sqrtArea := math.Sqrt(float64(r.state.Area()))

	if r.ebk.MakeGameFairForEmptyBoard {
		makeFairPla := game.Black
		if s.FlipKomiProbWhenNoCompensate != 0 && g.Rand.Bool(s.FlipKomiProbWhenNoCompensate) {
			makeFairPla = game.White
		}
		empty := game.NewBoard(r.state.XSize(), r.state.YSize(), r.state.Rules()).ClearHistory(makeFairPla, r.state.EncorePhase())
		empty = playutils.SetKomiWithoutNoise(r.ebk, empty)
		empty = playutils.AdjustKomiToEven(g.BotB, g.BotW, empty, makeFairPla, s.CompensateKomiVisits)
		r.ebk.KomiMean = float64(empty.Komi())
		r.state = playutils.SetKomiWithNoise(r.ebk, r.state, g.Rand)
	}
	if r.ebk.ExtraBlack > 0 && !r.state.IsFinished() {
		r.state = playutils.PlayExtraBlack(g.BotB.Evaluator(), r.ebk.ExtraBlack, r.state, s.HandicapTemperature,
			g.BotSpecB.Params.DrawEquivalentWinsForWhite, g.Rand)
		r.pla = r.state.Player()
	}
	if r.ebk.MakeGameFair {
		r.state = playutils.SetKomiWithoutNoise(r.ebk, r.state)
		r.adjustKomiToEven()
	} else if (r.ebk.ExtraBlack > 0 || g.Props.IsFork) && s.FancyKomiVarying && g.Rand.Bool(fancyKomiProb(r.ebk.ExtraBlack)) {
		origKomi := float64(r.state.Komi())
		r.state = playutils.SetKomiWithoutNoise(r.ebk, r.state)
		r.state = playutils.AdjustKomiToEven(g.BotB, g.BotW, r.state, r.pla, s.CompensateKomiVisits)
		newKomi := float64(r.state.Komi())

		lo, hi := math.Min(origKomi, newKomi), math.Max(origKomi, newKomi)
		randKomi := lo + g.Rand.FloatN(hi-lo)
		randKomi += 0.75 * sqrtArea * g.Rand.GaussianTruncated(2.5)
		r.ebk.KomiMean = randKomi
		r.state = playutils.SetKomiWithNoise(r.ebk, r.state, g.Rand)
	}
	// Random play gets a wider komi spread for a better prior on how komi matters
	if s.FancyKomiVarying && g.BotB.Evaluator().IsNeuralNetLess() && g.BotW.Evaluator().IsNeuralNetLess() {
		r.ebk.KomiMean = float64(r.state.Komi()) + 1.5*sqrtArea*g.Rand.GaussianTruncated(2.5)
		r.state = playutils.SetKomiWithNoise(r.ebk, r.state, g.Rand)
	}

	d := r.data
	d.BName, d.WName = g.BotSpecB.Name, g.BotSpecW.Name
	d.BIdx, d.WIdx = g.BotSpecB.Index, g.BotSpecW.Index
	d.GameHash = [2]uint64{g.Rand.Uint64(), g.Rand.Uint64()}
	d.DrawEquivalentWinsForWhite = g.BotSpecB.Params.DrawEquivalentWinsForWhite
	d.PlayoutDoublingAdvantagePla = g.Props.PlayoutDoublingAdvantagePla
	d.PlayoutDoublingAdvantage = g.Props.PlayoutDoublingAdvantage
	d.NumExtraBlack = r.ebk.ExtraBlack
	d.HandicapForSgf = r.ebk.ExtraBlack
	d.Mode = initialMode(r.ebk.ExtraBlack, &g.Props)

	if s.InitGamesWithPolicy && g.Props.AllowPolicyInit && !r.state.IsFinished() {
		prop := s.PolicyInitAreaProp
		if g.Props.IsSgfPos {
			prop = s.StartPosesPolicyInitAreaProp
		}
		if prop > 0 {
			// Mix opening policies across komi by playing them under a differently noised komi
			oldKomi := r.state.Komi()
			r.state = playutils.SetKomiWithNoise(r.ebk, r.state, g.Rand)
			r.state, r.pla = playutils.InitializeGameUsingPolicy(g.BotB, g.BotW, r.state, r.pla, g.Rand,
				g.DoEndGameIfAllPassAlive, prop, s.PolicyInitGammaShape, s.PolicyInitAreaTemperature)
			r.state = r.state.WithKomi(oldKomi)

			shouldCompensate := s.CompensateAfterPolicyInitProb > 0 && g.Rand.Bool(s.CompensateAfterPolicyInitProb)
			if d.Mode != ModeNormal {
				shouldCompensate = r.ebk.MakeGameFair
			}
			if shouldCompensate {
				r.adjustKomiToEven()
			}
		}
	}

	// A small amount of data about how the cleanup phases work
	if s.ForSelfPlay && !g.Props.IsHintPos && r.state.Rules().ScoringRule == game.ScoringTerritory &&
		r.state.EncorePhase() == 0 && g.Rand.Bool(s.CleanupTrainingProb) && !r.state.IsFinished() {
		gammaShape := 0.8 + s.PolicyInitGammaShape*0.2
		r.state, r.pla = playutils.InitializeGameUsingPolicy(g.BotB, g.BotW, r.state, r.pla, g.Rand,
			g.DoEndGameIfAllPassAlive, 0.25, gammaShape, 2.0/3.0)
		if !r.state.IsFinished() {
			r.adjustKomiToEven()
			encorePhase := g.Rand.IntRange(1, 2)
			r.state = r.state.ClearHistory(r.pla, encorePhase)
			d.Mode = ModeCleanupTraining
			d.BeganInEncorePhase = encorePhase
			d.UsedInitialPosition = false
		}
	}

	d.StartState = r.state
	d.StartPla = r.pla
	g.BotB.SetPosition(r.state)
	if g.BotW != g.BotB {
		g.BotW.SetPosition(r.state)
	}
}

func fancyKomiProb(extraBlack int) float64 {
	if extraBlack > 0 {
		return 0.5
	}
	return 0.25
}

// initialMode labels a game by how it was seeded. Later checks take precedence.
func initialMode(extraBlack int, props *OtherGameProperties) Mode {
	mode := ModeNormal
	if extraBlack > 0 {
		mode = ModeHandicap
	}
	if props.PlayoutDoublingAdvantage != 0 {
		mode = ModeAsym
	}
	if props.IsSgfPos {
		mode = ModeSgfPos
	}
	if props.IsHintPos {
		mode = ModeHintPos
	}
	if props.IsHintFork {
		mode = ModeHintFork
	} else if props.IsFork {
		mode = ModeFork
	}
	return mode
}

// maybeCheckForNewEvaluator occasionally swaps in a newer evaluator on both bots.
func (r *gameRun) maybeCheckForNewEvaluator(nextTurnIdx int) {
	g := r.g
	if g.Hooks.CheckForNewEvaluator == nil || !g.Rand.Bool(meta.NEW_EVALUATOR_CHECK_PROB) {
		return
	}
	eval := g.Hooks.CheckForNewEvaluator()
	if eval == nil {
		return
	}
	g.BotB.SetEvaluator(eval)
	if g.BotW != g.BotB {
		g.BotW.SetEvaluator(eval)
	}
	g.BotSpecB.Evaluator = eval
	g.BotSpecW.Evaluator = eval
	r.data.ChangedEvaluators = append(r.data.ChangedEvaluators, ChangedEvaluator{Name: eval.Name(), TurnIdx: nextTurnIdx})
}

func (r *gameRun) play(ctx context.Context) error {
	g, s, d := r.g, r.g.Settings, r.data
	for i := 0; i < g.MaxMovesPerGame; i++ {
		if g.DoEndGameIfAllPassAlive {
			r.state = r.state.EndIfAllPassAlive()
		}
		if r.state.IsFinished() {
			break
		}
		if r.stopped(ctx) {
			break
		}

		bot := r.botFor(r.pla)
		if err := r.applyDynamicKomi(bot); err != nil {
			return err
		}

		limits, err := GetSearchLimitsThisMove(bot, r.pla, s, g.Rand, r.winLosses, g.ClearBotBeforeSearch, &g.Props)
		if err != nil {
			return err
		}
		start := time.Now()
		loc := RunBotWithLimits(bot, r.pla, s, limits)
		if s.RecordTimePerMove {
			if r.pla == game.Black {
				d.BTimeUsed += time.Since(start)
			} else {
				d.WTimeUsed += time.Since(start)
			}
		}
		if r.pla == game.Black {
			d.BMoveCount++
		} else {
			d.WMoveCount++
		}

		if loc == game.NullLoc || !r.state.IsLegal(loc, r.pla) {
			return failIllegalMove(bot, r.state, loc)
		}
		if g.LogSearchInfo {
			logSearch(bot, loc, &g.Props)
		}
		if g.LogMoves {
			log.Info().Msgf("Move %d made: %s", len(r.state.Moves()), game.LocString(loc, r.state.XSize(), r.state.YSize()))
		}

		if err := r.recordTurn(bot, loc, limits); err != nil {
			return err
		}

		if s.AllowResignation || s.ReduceVisits {
			values, ok := bot.RootValues()
			if !ok {
				return fmt.Errorf("turn %d: search produced no root values", i)
			}
			r.winLosses = append(r.winLosses, values.WinLossValue)
			r.leads = append(r.leads, values.Lead)
			r.scoreStdevs = append(r.scoreStdevs, values.ExpectedScoreStdev)
		}

		if g.Hooks.OnEachMove != nil {
			g.Hooks.OnEachMove(r.state, loc, r.winLosses, r.leads, r.scoreStdevs, bot)
		}

		if !g.BotB.MakeMove(loc, r.pla) || (g.BotW != g.BotB && !g.BotW.MakeMove(loc, r.pla)) {
			return failIllegalMove(bot, r.state, loc)
		}
		r.state = r.state.Play(loc, r.pla)

		resign, err := ShouldResign(r.winLosses, r.pla, i, r.state.Area(), s)
		if err != nil {
			return err
		}
		if resign {
			r.state = r.state.Resign(r.pla.Opp())
		}

		r.maybeCheckForNewEvaluator(len(r.state.Moves()))
		r.pla = r.pla.Opp()
	}
	return nil
}

// applyDynamicKomi nudges the komi the bot to move believes in, toward whichever side is losing.
func (r *gameRun) applyDynamicKomi(bot searcher.Search) error {
	g, s := r.g, r.g.Settings
	if s.DynamicSelfKomiBonusMin == 0 && s.DynamicSelfKomiBonusMax == 0 {
		return nil
	}
	if g.BotB == g.BotW || r.recordFullData {
		return config.NewError(settingsSource, "dynamicSelfKomiBonusMin", "dynamic komi is only supported for matches between distinct bots")
	}
	plaFactor := 1.0
	if r.pla == game.Black {
		plaFactor = -1.0
	}
	gameKomi := float64(r.state.Komi())
	bonus := plaFactor * (float64(bot.RootState().Komi()) - gameKomi)
	if len(r.winLosses) >= 2 {
		prevWinLoss := plaFactor * r.winLosses[len(r.winLosses)-2]
		if prevWinLoss < s.DynamicSelfKomiWinLossMin {
			bonus += 0.5
		}
		if prevWinLoss > s.DynamicSelfKomiWinLossMax {
			bonus -= 0.5
		}
	}
	bonus = utils.Clamp(bonus, s.DynamicSelfKomiBonusMin, s.DynamicSelfKomiBonusMax)
	bot.SetKomiIfNew(float32(plaFactor*bonus + gameKomi))
	return nil
}

// recordTurn appends the targets of the search that just chose loc.
func (r *gameRun) recordTurn(bot searcher.Search, loc game.Loc, limits SearchLimits) error {
	g, s, d := r.g, r.g.Settings, r.data
	root := bot.Root()

	value, err := extractValueTargets(bot, root)
	if err != nil {
		return err
	}
	d.WhiteValueTargetsByTurn = append(d.WhiteValueTargetsByTurn, value)
	d.WhiteQValueTargetsByTurn = append(d.WhiteQValueTargetsByTurn, extractQValueTargets(bot, root))

	unreducedNumVisits := bot.NodeVisits(root)
	if !r.recordFullData {
		// Visits only, so game records can still report them
		d.PolicyTargetsByTurn = append(d.PolicyTargetsByTurn, PolicyTarget{UnreducedNumVisits: unreducedNumVisits})
		return nil
	}

	t, err := extractSearchTargets(bot, root)
	if err != nil {
		return err
	}
	raw := bot.RootRawOutput()
	if raw == nil {
		return fmt.Errorf("turn %d: search has no raw evaluation at the root", len(d.TargetWeightByTurn))
	}
	d.PolicyTargetsByTurn = append(d.PolicyTargetsByTurn, PolicyTarget{Moves: t.policy, UnreducedNumVisits: unreducedNumVisits})
	d.NNRawStatsByTurn = append(d.NNRawStatsByTurn, computeNNRawStats(bot, r.state, r.pla))
	d.TargetWeightByTurn = append(d.TargetWeightByTurn, limits.TargetWeight)
	d.PolicySurpriseByTurn = append(d.PolicySurpriseByTurn, t.policySurprise)
	d.PolicyEntropyByTurn = append(d.PolicyEntropyByTurn, t.policyEntropy)
	d.SearchEntropyByTurn = append(d.SearchEntropyByTurn, t.searchEntropy)
	r.rawValues = append(r.rawValues, ValueTargets{Win: raw.WhiteWinProb, Loss: raw.WhiteLossProb, NoResult: raw.WhiteNoResultProb})

	sideLoc := game.NullLoc
	if s.SidePositionProb > 0 && g.Rand.Bool(s.SidePositionProb) {
		sideLoc = playutils.ChooseRandomForkingMove(raw, r.state, r.pla, g.Rand, loc)
		if sideLoc != game.NullLoc {
			next := r.state.Play(sideLoc, r.pla)
			if !next.IsFinished() {
				r.sidePositionsToSearch = append(r.sidePositionsToSearch, newSidePosition(next, r.pla.Opp(), len(d.ChangedEvaluators)))
			}
		}
	}

	return r.maybeRecordTree(bot, r.state, r.pla, loc, sideLoc)
}

func (r *gameRun) maybeRecordTree(bot searcher.Search, state game.State, pla game.Player, excludeLoc0, excludeLoc1 game.Loc) error {
	s := r.g.Settings
	if !s.RecordTreePositions || s.RecordTreeTargetWeight <= 0 {
		return nil
	}
	if s.RecordTreeTargetWeight > 1 {
		return config.NewError(settingsSource, "recordTreeTargetWeight", "must be <= 1, got %v", s.RecordTreeTargetWeight)
	}
	return recordTreePositions(r.data, state, pla, bot, s.RecordTreeThreshold, s.RecordTreeTargetWeight,
		len(r.data.ChangedEvaluators), excludeLoc0, excludeLoc1)
}

func logSearch(bot searcher.Search, loc game.Loc, props *OtherGameProperties) {
	root := bot.RootState()
	xSize, ySize := root.XSize(), root.YSize()
	var sb strings.Builder
	sb.WriteString(root.String())
	fmt.Fprintf(&sb, "\nRules: %s\nRoot visits: %d\n", root.Rules(), bot.NodeVisits(bot.Root()))
	if props.HintLoc != game.NullLoc && props.HintTurn == len(root.Moves()) && props.HintPosHash == root.Hash() {
		fmt.Fprintf(&sb, "HintLoc %s\n", game.LocString(props.HintLoc, xSize, ySize))
	}
	if surprise, _, _, ok := bot.PolicySurpriseAndEntropy(bot.Root()); ok {
		fmt.Fprintf(&sb, "Policy surprise %g\n", surprise)
	}
	if raw := bot.RootRawOutput(); raw != nil {
		fmt.Fprintf(&sb, "Raw WL %g\n", raw.WhiteWinProb-raw.WhiteLossProb)
	}
	for _, child := range bot.Children(bot.Root()) {
		if values, ok := bot.NodeValues(child.Node); ok {
			fmt.Fprintf(&sb, "%s: visits %d winloss %.3f score %.2f\n",
				game.LocString(child.Loc, xSize, ySize), values.Visits, values.WinLossValue, values.ExpectedScore)
		}
	}
	log.Info().Str("move", game.LocString(loc, xSize, ySize)).Msg(sb.String())
}

func rawInputParams(bot searcher.Search) evaluator.InputParams {
	return evaluator.InputParams{DrawEquivalentWinsForWhite: bot.Params().DrawEquivalentWinsForWhite}
}
