package playutils

import (
	"math"

	"selfplay/game"
	"selfplay/searcher"
)

const maxKomiAdjustIterations = 3

// ComputeLead runs a short clean search for pla and returns the estimated white lead. The bot's
// parameters are restored afterwards.
func ComputeLead(botB, botW searcher.Search, state game.State, pla game.Player, visits int64) float64 {
	bot := botB
	if pla == game.White {
		bot = botW
	}
	old := bot.Params()
	params := old
	params.MaxVisits = visits
	params.MaxPlayouts = visits
	params.RootNoiseEnabled = false
	params.ChosenMoveTemperature = 0
	params.PlayoutDoublingAdvantage = 0
	params.PlayoutDoublingAdvantagePla = game.Empty
	bot.SetParams(params)
	defer bot.SetParams(old)

	bot.SetPosition(state)
	bot.RunWholeSearchAndGetMove(pla)
	values, ok := bot.RootValues()
	if !ok {
		return 0
	}
	return values.Lead
}

// AdjustKomiToEven moves komi against the estimated lead until the position is roughly even.
func AdjustKomiToEven(botB, botW searcher.Search, state game.State, pla game.Player, visits int64) game.State {
	if state.IsFinished() {
		return state
	}
	for i := 0; i < maxKomiAdjustIterations; i++ {
		lead := ComputeLead(botB, botW, state, pla, visits)
		komi := RoundAndClipKomi(float64(state.Komi())-lead, state.Area(), true)
		if math.Abs(float64(komi-state.Komi())) < 0.5 {
			break
		}
		state = state.WithKomi(komi)
	}
	return state
}
