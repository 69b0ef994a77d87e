package gamemaster

import (
	"fmt"
	"math"

	"selfplay/config"
	"selfplay/engine"
	"selfplay/evaluator"
	"selfplay/game"
	"selfplay/playutils"
	"selfplay/utils"

	"github.com/rs/zerolog/log"
)

// ReplayGameUpToMove rebuilds the position before move moveIdx of a finished game under rules.
// Replay stops early at the end of the game or at a move the new rules make illegal.
func ReplayGameUpToMove(data *engine.FinishedGameData, moveIdx int, rules game.Rules) (game.State, error) {
	root := data.StartState.StartState()
	encore := root.EncorePhase()
	if rules.ScoringRule == game.ScoringArea {
		encore = 0
	}
	state := root.WithRules(rules).ClearHistory(root.Player(), encore)

	moves := data.EndState.Moves()
	if len(moves) == 0 {
		return state, nil
	}
	moveIdx = min(moveIdx, len(moves)-1)
	sameRules := rules == data.StartState.Rules()
	for i := 0; i < moveIdx; i++ {
		m := moves[i]
		if !state.IsLegal(m.Loc, m.Pla) {
			if sameRules && encore == 0 {
				log.Error().
					Str("board", state.String()).
					Str("rules", rules.String()).
					Int("moveIdx", i).
					Msg("Recorded move illegal on replay")
				return state, &engine.InvariantError{
					Err:  engine.ErrIllegalMove,
					Dump: fmt.Sprintf("replaying move %d of %d\n%s", i, len(moves), state.String()),
				}
			}
			// Different rules can outlaw a recorded move
			break
		}
		state = state.Play(m.Loc, m.Pla)
		if state.IsFinished() {
			break
		}
	}
	return state, nil
}

// HasUnownedSpot reports whether scoring left any cell of the final position without an owner.
func HasUnownedSpot(data *engine.FinishedGameData) bool {
	if data.FinalOwnership == nil {
		return false
	}
	area := data.EndState.Area()
	for loc := 0; loc < area && loc < len(data.FinalOwnership); loc++ {
		if data.FinalOwnership[loc] == game.Empty {
			return true
		}
	}
	return false
}

// MaybeForkGame saves a position from early in the game or from a random ply, after trying a
// few random moves there and keeping the one eval likes best for the player making it.
func MaybeForkGame(data *engine.FinishedGameData, forkData *ForkData, settings *config.PlaySettings,
	rand *utils.Rand, eval evaluator.Evaluator) error {
	if forkData == nil || data.StartState.EncorePhase() != 0 {
		return nil
	}
	early := settings.EarlyForkGameProb > 0 && rand.Bool(settings.EarlyForkGameProb)
	late := !early && settings.ForkGameProb > 0 && rand.Bool(settings.ForkGameProb)
	if !early && !late {
		return nil
	}

	moves := data.EndState.Moves()
	var moveIdx int
	if early {
		area := float64(data.StartState.Area())
		moveIdx = int(math.Floor(rand.Exponential() * settings.EarlyForkGameExpectedMoveProp * area))
	} else {
		if len(moves) == 0 {
			return nil
		}
		moveIdx = rand.Intn(len(moves))
	}

	state, err := ReplayGameUpToMove(data, moveIdx, data.StartState.Rules())
	if err != nil {
		return err
	}
	if state.IsFinished() {
		return nil
	}

	minChoices, maxChoices := settings.ForkGameMinChoices, settings.ForkGameMaxChoices
	if early {
		maxChoices = settings.EarlyForkGameMaxChoices
	}
	if maxChoices > game.MaxArea+1 {
		return config.NewError(settingsSource, "forkGameMaxChoices", "must be at most %d", game.MaxArea+1)
	}
	if maxChoices < minChoices {
		return config.NewError(settingsSource, "forkGameMaxChoices", "must be at least forkGameMinChoices")
	}
	numChoices := rand.IntRange(minChoices, maxChoices)

	pla := state.Player()
	candidates := playutils.ChooseRandomLegalMoves(state, pla, rand, numChoices)
	if len(candidates) == 0 {
		return nil
	}
	bestLoc := game.NullLoc
	bestScore := 0.0
	for _, loc := range candidates {
		next := state.Play(loc, pla)
		out := eval.Evaluate(next, pla.Opp(), evaluator.InputParams{DrawEquivalentWinsForWhite: 0.5})
		score := out.WhiteScoreMean
		if pla == game.Black {
			score = -score
		}
		if bestLoc == game.NullLoc || score > bestScore {
			bestLoc, bestScore = loc, score
		}
	}

	state = state.Play(bestLoc, pla)
	if state.IsFinished() {
		return nil
	}
	forkData.Add(&InitialPosition{
		State:          state,
		Pla:            state.Player(),
		IsPlainFork:    true,
		TrainingWeight: data.TrainingWeight,
	})
	return nil
}

// MaybeSekiForkGame saves two positions near the end of a scored game that left a cell
// unowned, under freshly drawn scoring and tax rules.
func MaybeSekiForkGame(data *engine.FinishedGameData, forkData *ForkData, settings *config.PlaySettings,
	initializer *GameInitializer, rand *utils.Rand) error {
	if forkData == nil || settings.SekiForkHackProb <= 0 {
		return nil
	}
	end := data.EndState
	if !end.IsFinished() || !end.Result().Scored {
		return nil
	}
	if data.StartState.EncorePhase() >= 2 || !HasUnownedSpot(data) {
		return nil
	}

	numMoves := len(end.Moves())
	for i := 0; i < 2; i++ {
		moveIdx := int(math.Floor(float64(numMoves)*(1-settings.SekiForkBackProp*rand.Exponential()) - 1))
		moveIdx = utils.Clamp(moveIdx, 0, numMoves)
		rules := initializer.RandomizeScoringAndTaxRules(data.StartState.Rules(), rand)
		state, err := ReplayGameUpToMove(data, moveIdx, rules)
		if err != nil {
			return err
		}
		if state.IsFinished() {
			continue
		}
		forkData.AddSeki(&InitialPosition{
			State:          state,
			Pla:            state.Player(),
			IsSekiFork:     true,
			TrainingWeight: data.TrainingWeight,
		}, rand)
	}
	return nil
}

// MaybeHintForkGame saves the position where the bot declined the hint, with the hint played
// instead.
func MaybeHintForkGame(data *engine.FinishedGameData, forkData *ForkData, props engine.OtherGameProperties) error {
	if forkData == nil || data.StartState.EncorePhase() != 0 || props.HintLoc == game.NullLoc {
		return nil
	}
	start := data.StartState
	if start.Hash() != props.HintPosHash || len(start.Moves()) != props.HintTurn {
		return nil
	}
	moves := data.EndState.Moves()
	if len(moves) <= props.HintTurn || moves[props.HintTurn].Loc == props.HintLoc {
		return nil
	}

	state, err := ReplayGameUpToMove(data, props.HintTurn, start.Rules())
	if err != nil {
		return err
	}
	pla := state.Player()
	if !state.IsLegal(props.HintLoc, pla) {
		return nil
	}
	state = state.Play(props.HintLoc, pla)
	if state.IsFinished() {
		return nil
	}
	forkData.Add(&InitialPosition{
		State:          state,
		Pla:            state.Player(),
		IsHintFork:     true,
		TrainingWeight: data.TrainingWeight,
	})
	return nil
}
