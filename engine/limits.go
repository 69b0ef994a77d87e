package engine

import (
	"math"

	"selfplay/config"
	"selfplay/game"
	"selfplay/meta"
	"selfplay/searcher"
	"selfplay/utils"
)

const settingsSource = "play"

// SearchLimits is the budget decided for one move.
type SearchLimits struct {
	AlterVisitsPlayouts  bool
	Visits               int64
	Playouts             int64
	ClearBotBeforeSearch bool
	RemoveRootNoise      bool
	TargetWeight         float64

	// Unlike the search parameters of the same name these change the actual number of playouts
	PlayoutDoublingAdvantage    float64
	PlayoutDoublingAdvantagePla game.Player

	HintLoc game.Loc
}

// GetSearchLimitsThisMove decides the budget and training weight of the move bot is about to
// search for pla. winLosses is the history of root win-loss values so far.
func GetSearchLimitsThisMove(bot searcher.Search, pla game.Player, settings *config.PlaySettings, rand *utils.Rand,
	winLosses []float64, clearBotBeforeSearch bool, props *OtherGameProperties) (SearchLimits, error) {
	params := bot.Params()
	limits := SearchLimits{
		Visits:               params.MaxVisits,
		Playouts:             params.MaxPlayouts,
		ClearBotBeforeSearch: clearBotBeforeSearch,
		TargetWeight:         1.0,
		HintLoc:              game.NullLoc,
	}
	cheapSearchProb := settings.CheapSearchProb

	numMoves := len(bot.RootState().Moves())
	if props.HintLoc != game.NullLoc && props.HintTurn == numMoves && props.HintPosHash == bot.RootState().Hash() {
		limits.HintLoc = props.HintLoc
		limits.AlterVisitsPlayouts = true
		limits.Visits = int64(math.Ceil(math.Min(float64(meta.MAX_VISITS_CAP), float64(limits.Visits)*4)))
		limits.Playouts = int64(math.Ceil(math.Min(float64(meta.MAX_VISITS_CAP), float64(limits.Playouts)*4)))
	}
	if (props.HintLoc != game.NullLoc || props.IsHintFork) && props.HintTurn+meta.CHEAP_SEARCH_HINT_PLIES > numMoves {
		cheapSearchProb *= 0.5
	}

	if limits.HintLoc == game.NullLoc && cheapSearchProb > 0 && rand.Bool(cheapSearchProb) {
		if settings.CheapSearchVisits <= 0 {
			return limits, config.NewError(settingsSource, "cheapSearchVisits", "must be positive")
		}
		if settings.CheapSearchVisits > params.MaxVisits || settings.CheapSearchVisits > params.MaxPlayouts {
			return limits, config.NewError(settingsSource, "cheapSearchVisits", "exceeds maxVisits and/or maxPlayouts")
		}
		limits.AlterVisitsPlayouts = true
		limits.Visits = min(limits.Visits, settings.CheapSearchVisits)
		limits.Playouts = min(limits.Playouts, settings.CheapSearchVisits)
		limits.TargetWeight *= settings.CheapSearchTargetWeight

		// Unrecorded cheap searches only keep the tree warm
		if settings.CheapSearchTargetWeight <= 0 {
			limits.ClearBotBeforeSearch = false
			limits.RemoveRootNoise = true
		}
	} else if limits.HintLoc == game.NullLoc && settings.ReduceVisits {
		if err := reduceVisits(&limits, params, settings, winLosses); err != nil {
			return limits, err
		}
	}

	if props.PlayoutDoublingAdvantage != 0 && props.PlayoutDoublingAdvantagePla != game.Empty {
		limits.PlayoutDoublingAdvantage = props.PlayoutDoublingAdvantage
		limits.PlayoutDoublingAdvantagePla = props.PlayoutDoublingAdvantagePla

		factor := math.Pow(2, props.PlayoutDoublingAdvantage)
		if pla == props.PlayoutDoublingAdvantagePla {
			factor = 2 * factor / (factor + 1)
		} else {
			factor = 2 / (factor + 1)
		}
		limits.AlterVisitsPlayouts = true
		limits.ClearBotBeforeSearch = true
		limits.Visits = int64(math.Round(float64(limits.Visits) * factor))
		limits.Playouts = int64(math.Round(float64(limits.Playouts) * factor))

		if limits.Visits < meta.MIN_ASYMMETRIC_VISITS {
			return limits, config.NewError(settingsSource, "maxAsymmetricRatio",
				"asymmetric playouts resulted in %d visits, fewer than %d", limits.Visits, meta.MIN_ASYMMETRIC_VISITS)
		}
		if limits.Playouts < meta.MIN_ASYMMETRIC_VISITS {
			return limits, config.NewError(settingsSource, "maxAsymmetricRatio",
				"asymmetric playouts resulted in %d playouts, fewer than %d", limits.Playouts, meta.MIN_ASYMMETRIC_VISITS)
		}
	}
	return limits, nil
}

// reduceVisits eases the budget toward reducedVisitsMin once the recent evaluations are one sided
// past the threshold.
func reduceVisits(limits *SearchLimits, params searcher.Params, settings *config.PlaySettings, winLosses []float64) error {
	if settings.ReducedVisitsMin <= 0 {
		return config.NewError(settingsSource, "reducedVisitsMin", "must be positive")
	}
	if settings.ReducedVisitsMin > params.MaxVisits || settings.ReducedVisitsMin > params.MaxPlayouts {
		return config.NewError(settingsSource, "reducedVisitsMin", "exceeds maxVisits and/or maxPlayouts")
	}
	lookback := settings.ReduceVisitsThresholdLookback
	if len(winLosses) < lookback {
		return nil
	}

	minWinLoss, maxWinLoss := 1e20, -1e20
	for _, v := range winLosses[len(winLosses)-lookback:] {
		minWinLoss = math.Min(minWinLoss, v)
		maxWinLoss = math.Max(maxWinLoss, v)
	}
	signedMostExtreme := math.Min(math.Max(minWinLoss, -maxWinLoss), 1.0)
	amountThrough := signedMostExtreme - settings.ReduceVisitsThreshold
	if amountThrough <= 0 {
		return nil
	}

	proportionThrough := amountThrough / (1 - settings.ReduceVisitsThreshold)
	reductionProp := proportionThrough * proportionThrough
	reducedMin := float64(settings.ReducedVisitsMin)

	limits.AlterVisitsPlayouts = true
	limits.Visits = int64(math.Round(float64(limits.Visits) + reductionProp*(reducedMin-float64(limits.Visits))))
	limits.Playouts = int64(math.Round(float64(limits.Playouts) + reductionProp*(reducedMin-float64(limits.Playouts))))
	limits.TargetWeight += reductionProp * (settings.ReducedVisitsWeight - limits.TargetWeight)
	limits.Visits = max(limits.Visits, settings.ReducedVisitsMin)
	limits.Playouts = max(limits.Playouts, settings.ReducedVisitsMin)
	return nil
}

// RunBotWithLimits searches with the budget in limits and returns the chosen move. The bot's
// parameters are restored afterwards.
func RunBotWithLimits(bot searcher.Search, pla game.Player, settings *config.PlaySettings, limits SearchLimits) game.Loc {
	if limits.ClearBotBeforeSearch {
		bot.ClearSearch()
	}

	// LCB only shapes the policy target in self-play, never the move played
	oldParams := bot.Params()
	if settings.ForSelfPlay {
		params := oldParams
		params.UseLcbForSelection = false
		bot.SetParams(params)
	}
	defer bot.SetParams(oldParams)

	if !limits.AlterVisitsPlayouts {
		return bot.RunWholeSearchAndGetMove(pla)
	}

	params := bot.Params()
	params.MaxVisits = limits.Visits
	params.MaxPlayouts = limits.Playouts
	if limits.RemoveRootNoise {
		params.RootNoiseEnabled = false
	}
	if limits.PlayoutDoublingAdvantagePla != game.Empty {
		params.PlayoutDoublingAdvantagePla = limits.PlayoutDoublingAdvantagePla
		params.PlayoutDoublingAdvantage = limits.PlayoutDoublingAdvantage
	}

	if limits.ClearBotBeforeSearch && params.MaxVisits > meta.WARMUP_VISITS && params.MaxPlayouts > meta.WARMUP_VISITS {
		warmup := params
		warmup.MaxVisits = meta.WARMUP_VISITS
		bot.SetParams(warmup)
		bot.RunWholeSearchAndGetMove(pla)
	}
	bot.SetParams(params)

	if limits.HintLoc != game.NullLoc {
		bot.SetRootHintLoc(limits.HintLoc)
		defer bot.SetRootHintLoc(game.NullLoc)
	}
	return bot.RunWholeSearchAndGetMove(pla)
}
