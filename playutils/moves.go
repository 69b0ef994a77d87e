package playutils

import (
	"math"

	"selfplay/evaluator"
	"selfplay/game"
	"selfplay/searcher"
	"selfplay/utils"
)

// ChooseRandomPolicyMove samples a legal move from the raw policy sharpened or flattened by
// temperature. It returns game.NullLoc when no move qualifies.
func ChooseRandomPolicyMove(output *evaluator.Output, state game.State, pla game.Player, rand *utils.Rand,
	temperature float64, allowPass bool, banMove game.Loc) game.Loc {
	xSize, ySize := state.XSize(), state.YSize()
	var locs []game.Loc
	var weights []float64
	for pos, prob := range output.Policy {
		if prob <= 0 {
			continue
		}
		loc := game.PolicyLoc(pos, xSize, ySize)
		if loc == banMove || (loc == game.PassLoc && !allowPass) || !state.IsLegal(loc, pla) {
			continue
		}
		locs = append(locs, loc)
		weights = append(weights, prob)
	}
	if len(locs) == 0 {
		return game.NullLoc
	}
	probs := searcher.AdjustTemperature(weights, temperature)
	idx := searcher.Sample(rand, probs)
	if idx < 0 {
		return game.NullLoc
	}
	return locs[idx]
}

func legalNonPassMoves(state game.State, pla game.Player, banMove game.Loc) []game.Loc {
	var locs []game.Loc
	for pos := 0; pos < state.Area(); pos++ {
		loc := game.Loc(pos)
		if loc != banMove && state.IsLegal(loc, pla) {
			locs = append(locs, loc)
		}
	}
	return locs
}

// ChooseRandomLegalMove picks a uniformly random legal non-pass move, or game.NullLoc.
func ChooseRandomLegalMove(state game.State, pla game.Player, rand *utils.Rand, banMove game.Loc) game.Loc {
	locs := legalNonPassMoves(state, pla, banMove)
	if len(locs) == 0 {
		return game.NullLoc
	}
	return locs[rand.Intn(len(locs))]
}

// ChooseRandomLegalMoves returns up to n distinct random legal non-pass moves.
func ChooseRandomLegalMoves(state game.State, pla game.Player, rand *utils.Rand, n int) []game.Loc {
	locs := legalNonPassMoves(state, pla, game.NullLoc)
	if n > len(locs) {
		n = len(locs)
	}
	for i := 0; i < n; i++ {
		j := i + rand.Intn(len(locs)-i)
		locs[i], locs[j] = locs[j], locs[i]
	}
	return locs[:n]
}

// ChooseRandomForkingMove mixes temperature 1 policy moves, temperature 2 policy moves and
// uniformly random legal moves in a 70/25/5 ratio.
func ChooseRandomForkingMove(output *evaluator.Output, state game.State, pla game.Player, rand *utils.Rand,
	banMove game.Loc) game.Loc {
	r := rand.Float64()
	switch {
	case r < 0.70:
		return ChooseRandomPolicyMove(output, state, pla, rand, 1.0, true, banMove)
	case r < 0.95:
		return ChooseRandomPolicyMove(output, state, pla, rand, 2.0, true, banMove)
	default:
		return ChooseRandomLegalMove(state, pla, rand, banMove)
	}
}

// PlayExtraBlack places handicap stones for black by sampling the policy. Black stays to move and
// the history is cleared after each stone.
func PlayExtraBlack(eval evaluator.Evaluator, numExtraBlack int, state game.State, temperature float64,
	drawEquivalentWinsForWhite float64, rand *utils.Rand) game.State {
	params := evaluator.InputParams{DrawEquivalentWinsForWhite: drawEquivalentWinsForWhite}
	for i := 0; i < numExtraBlack; i++ {
		output := eval.Evaluate(state, game.Black, params)
		loc := ChooseRandomPolicyMove(output, state, game.Black, rand, temperature, false, game.NullLoc)
		if loc == game.NullLoc {
			break
		}
		state = state.Play(loc, game.Black).ClearHistory(game.Black, 0)
	}
	return state
}

// InitializeGameUsingPolicy plays a gamma-distributed number of raw policy moves, averaging
// proportionOfBoardArea of the board area.
func InitializeGameUsingPolicy(botB, botW searcher.Search, state game.State, pla game.Player, rand *utils.Rand,
	doEndGameIfAllPassAlive bool, proportionOfBoardArea, gammaShape, temperature float64) (game.State, game.Player) {
	r := rand.Gamma(gammaShape) / gammaShape
	numMoves := int(math.Floor(r * float64(state.Area()) * proportionOfBoardArea))
	for i := 0; i < numMoves; i++ {
		bot := botB
		if pla == game.White {
			bot = botW
		}
		params := evaluator.InputParams{DrawEquivalentWinsForWhite: bot.Params().DrawEquivalentWinsForWhite}
		output := bot.Evaluator().Evaluate(state, pla, params)
		loc := ChooseRandomPolicyMove(output, state, pla, rand, temperature, false, game.NullLoc)
		if loc == game.NullLoc {
			break
		}
		state = state.Play(loc, pla)
		pla = pla.Opp()
		if doEndGameIfAllPassAlive {
			state = state.EndIfAllPassAlive()
		}
		if state.IsFinished() {
			break
		}
	}
	return state, pla
}
