package engine

import (
	"context"
	"math"

	"selfplay/config"
	"selfplay/game"
	"selfplay/playutils"
)

func (r *gameRun) finish(ctx context.Context) error {
	d := r.data
	d.EndState = r.state
	d.HitTurnLimit = !r.state.IsFinished()
	d.HandicapForSgf = game.NumHandicapStones(r.state)

	if r.recordFullData {
		if err := r.finishFullData(ctx); err != nil {
			return err
		}
	}
	d.TrainingWeight = r.g.Props.TrainingWeight
	return nil
}

func whiteWinsOfWinner(winner game.Player, drawEquivalentWinsForWhite float64) float64 {
	switch winner {
	case game.White:
		return 1
	case game.Black:
		return 0
	}
	return drawEquivalentWinsForWhite
}

// whiteScoreDrawAdjust shifts integer-komi scores so draws count per drawEquivalentWinsForWhite.
func whiteScoreDrawAdjust(score float64, komi float32, drawEquivalentWinsForWhite float64) float64 {
	if float64(komi) == math.Round(float64(komi)) {
		return score + drawEquivalentWinsForWhite - 0.5
	}
	return score
}

func (r *gameRun) finishFullData(ctx context.Context) error {
	g, s, d := r.g, r.g.Settings, r.data
	result := r.state.Result()
	if result.Resigned {
		return config.NewError(settingsSource, "allowResignation", "resignation cannot be combined with full data recording")
	}

	d.FinalFullArea = make([]game.Player, game.MaxArea)
	d.FinalOwnership = make([]game.Player, game.MaxArea)
	d.FinalSekiAreas = make([]bool, game.MaxArea)

	var final ValueTargets
	if result.Finished && result.NoResult {
		// Nobody owns anything
		final.NoResult = 1
	} else {
		scored, ownership := r.state.EndAndScore()
		res := scored.Result()
		copy(d.FinalOwnership, ownership)

		final.Win = whiteWinsOfWinner(res.Winner, d.DrawEquivalentWinsForWhite)
		final.Loss = 1 - final.Win
		final.Score = whiteScoreDrawAdjust(res.WhiteMinusBlack, scored.Komi(), d.DrawEquivalentWinsForWhite)
		final.HasLead = true
		final.Lead = final.Score

		fullArea := scored.FullArea()
		independentLifeArea := scored.IndependentLifeArea()
		copy(d.FinalFullArea, fullArea)
		for i := range fullArea {
			d.FinalSekiAreas[i] = independentLifeArea[i] == game.Empty && fullArea[i] != game.Empty
		}
	}
	d.WhiteValueTargetsByTurn = append(d.WhiteValueTargetsByTurn, final)

	// Forced hint playouts skew the first value, use the next one instead
	if g.Props.HintLoc != game.NullLoc {
		d.WhiteValueTargetsByTurn[0] = d.WhiteValueTargetsByTurn[min(1, len(d.WhiteValueTargetsByTurn)-1)]
	}
	d.HasFullData = true

	valueSurprise := ValueSurprise(d.WhiteValueTargetsByTurn, r.rawValues, r.state.Area())
	if s.PolicySurpriseDataWeight > 0 || s.ValueSurpriseDataWeight > 0 {
		ReweightBySurprise(d.TargetWeightByTurn, d.PolicySurpriseByTurn, valueSurprise,
			s.PolicySurpriseDataWeight, s.ValueSurpriseDataWeight)
	}

	if err := r.searchSidePositions(ctx); err != nil {
		return err
	}

	if s.ScaleDataWeight != 1 {
		for i := range d.TargetWeightByTurn {
			d.TargetWeightByTurn[i] *= s.ScaleDataWeight
		}
		for _, sp := range d.SidePositions {
			sp.TargetWeight *= s.ScaleDataWeight
		}
	}

	d.TargetWeightByTurnUnrounded = append([]float64(nil), d.TargetWeightByTurn...)
	for _, sp := range d.SidePositions {
		sp.TargetWeightUnrounded = sp.TargetWeight
	}
	// Resolved now so rows that will not be written skip lead estimation
	if !s.NoResolveTargetWeights {
		for i := range d.TargetWeightByTurn {
			d.TargetWeightByTurn[i] = ResolveWeight(d.TargetWeightByTurn[i], g.Rand)
		}
		for _, sp := range d.SidePositions {
			sp.TargetWeight = ResolveWeight(sp.TargetWeight, g.Rand)
		}
	}

	if s.EstimateLeadProb > 0 {
		r.estimateLeads(ctx)
	}
	return nil
}

// searchSidePositions searches every queued side position, occasionally queueing a second order
// one behind it.
func (r *gameRun) searchSidePositions(ctx context.Context) error {
	g, s, d := r.g, r.g.Settings, r.data
	for i := 0; i < len(r.sidePositionsToSearch); i++ {
		sp := r.sidePositionsToSearch[i]
		if r.stopped(ctx) {
			continue
		}

		bot := r.botFor(sp.Pla)
		bot.SetPosition(sp.State)
		sp.PlayoutDoublingAdvantagePla = game.Empty
		sp.PlayoutDoublingAdvantage = 0
		responseLoc := bot.RunWholeSearchAndGetMove(sp.Pla)

		t, err := extractSearchTargets(bot, bot.Root())
		if err != nil {
			return err
		}
		sp.setTargets(t)
		sp.NNRawStats = computeNNRawStats(bot, sp.State, sp.Pla)
		sp.TargetWeight = 1
		sp.UnreducedNumVisits = bot.NodeVisits(bot.Root())
		sp.NumEvaluatorChangesSoFar = len(d.ChangedEvaluators)
		d.SidePositions = append(d.SidePositions, sp)

		if err := r.maybeRecordTree(bot, sp.State, sp.Pla, game.NullLoc, game.NullLoc); err != nil {
			return err
		}

		// Continue the fork so the opponent also has odd moves a few turns back
		if g.Rand.Bool(s.SecondOrderSidePositionProb) {
			if responseLoc == game.NullLoc || !sp.State.IsLegal(responseLoc, sp.Pla) {
				return failIllegalMove(bot, sp.State, responseLoc)
			}
			next := sp.State.Play(responseLoc, sp.Pla)
			nextPla := sp.Pla.Opp()
			if !next.IsFinished() {
				bot2 := r.botFor(nextPla)
				output := bot2.Evaluator().Evaluate(next, nextPla, rawInputParams(bot2))
				forkLoc := playutils.ChooseRandomForkingMove(output, next, nextPla, g.Rand, game.NullLoc)
				if forkLoc != game.NullLoc {
					forked := next.Play(forkLoc, nextPla)
					if !forked.IsFinished() {
						r.sidePositionsToSearch = append(r.sidePositionsToSearch, newSidePosition(forked, nextPla.Opp(), len(d.ChangedEvaluators)))
					}
				}
			}
		}

		r.maybeCheckForNewEvaluator(len(d.EndState.Moves()))
	}
	return nil
}

// estimateLeads backfills lead estimates on a random share of the rows that will be written.
func (r *gameRun) estimateLeads(ctx context.Context) {
	g, s, d := r.g, r.g.Settings, r.data
	endedNoResult := d.EndState.IsFinished() && d.EndState.Result().NoResult
	eligible := func(weight float64, value ValueTargets) bool {
		// Komi and outcome stop being related when no result is likely
		return weight > 0 && value.NoResult < 0.3 && g.Rand.Bool(s.EstimateLeadProb) && !endedNoResult
	}

	state, pla := d.StartState, d.StartPla
	startIdx := len(d.StartState.Moves())
	moves := d.EndState.Moves()
	for t := 0; t < d.NumTurns(); t++ {
		value := &d.WhiteValueTargetsByTurn[t]
		if eligible(d.TargetWeightByTurn[t], *value) {
			if r.stopped(ctx) {
				break
			}
			value.Lead = playutils.ComputeLead(g.BotB, g.BotW, state, pla, s.EstimateLeadVisits)
			value.HasLead = true
		}
		move := moves[startIdx+t]
		state = state.Play(move.Loc, move.Pla)
		pla = pla.Opp()
	}

	for _, sp := range d.SidePositions {
		if eligible(sp.TargetWeight, sp.ValueTargets) {
			if r.stopped(ctx) {
				break
			}
			sp.ValueTargets.Lead = playutils.ComputeLead(g.BotB, g.BotW, sp.State, sp.Pla, s.EstimateLeadVisits)
			sp.ValueTargets.HasLead = true
		}
	}
}
