package gamemaster

import (
	"sync"

	"selfplay/config"
	"selfplay/engine"
	"selfplay/meta"
	"selfplay/searcher"
	"selfplay/utils"

	"github.com/rs/zerolog/log"
)

// MatchPairer hands out matchups until the game budget is spent. Every matchup is played once
// per round, in a shuffled order.
type MatchPairer struct {
	mu   sync.Mutex
	rand *utils.Rand

	bots     []*engine.BotSpec
	matchups []config.Matchup

	numGamesStarted int64
	numGamesTotal   int64
	logGamesEvery   int64

	nextMatchups []config.Matchup
}

func NewMatchPairer(cfg *config.Config, bots []*engine.BotSpec, seed string) (*MatchPairer, error) {
	matchups := cfg.Match.Matchups
	if len(matchups) == 0 {
		matchups = config.AllPairs(len(bots))
	}
	switch {
	case len(bots) == 0:
		return nil, config.NewError(cfg.Source, "bots", "must have at least one bot")
	case len(matchups) == 0:
		return nil, config.NewError(cfg.Source, "matchups", "must have at least one matchup")
	case len(matchups) >= meta.MAX_MATCHUPS:
		return nil, config.NewError(cfg.Source, "matchups", "too many matchups: %d", len(matchups))
	}
	for _, m := range matchups {
		if m.Black < 0 || m.Black >= len(bots) || m.White < 0 || m.White >= len(bots) {
			return nil, config.NewError(cfg.Source, "matchups", "bot index out of range in %v", m)
		}
	}

	rand := utils.NewTimeRand()
	if seed != "" {
		rand = utils.NewRand(seed)
	}
	return &MatchPairer{
		rand:          rand,
		bots:          bots,
		matchups:      matchups,
		numGamesTotal: cfg.Match.NumGamesTotal,
		logGamesEvery: max(cfg.Match.LogGamesEvery, 1),
	}, nil
}

func (mp *MatchPairer) NumGamesTotal() int64 {
	return mp.numGamesTotal
}

func (mp *MatchPairer) NumGamesStarted() int64 {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.numGamesStarted
}

// GetMatchup returns the next pair of bots, or ok false once every game has been handed out.
func (mp *MatchPairer) GetMatchup() (botB, botW *engine.BotSpec, ok bool) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.numGamesStarted >= mp.numGamesTotal {
		return nil, nil, false
	}
	mp.numGamesStarted++

	if mp.numGamesStarted%mp.logGamesEvery == 0 {
		log.Info().Int64("games", mp.numGamesStarted).Msgf("Started %d games", mp.numGamesStarted)
	}
	logStatsEvery := max(100*mp.logGamesEvery, 1000)
	if mp.numGamesStarted%logStatsEvery == 0 {
		mp.logEvaluatorStats()
	}

	if len(mp.nextMatchups) == 0 {
		mp.refill()
	}
	m := mp.nextMatchups[len(mp.nextMatchups)-1]
	mp.nextMatchups = mp.nextMatchups[:len(mp.nextMatchups)-1]
	return mp.bots[m.Black], mp.bots[m.White], true
}

func (mp *MatchPairer) refill() {
	mp.nextMatchups = append(mp.nextMatchups[:0], mp.matchups...)
	for i := len(mp.nextMatchups) - 1; i > 0; i-- {
		j := mp.rand.Intn(i + 1)
		mp.nextMatchups[i], mp.nextMatchups[j] = mp.nextMatchups[j], mp.nextMatchups[i]
	}
}

func (mp *MatchPairer) logEvaluatorStats() {
	seen := make(map[string]bool)
	for _, bot := range mp.bots {
		if bot.Evaluator == nil || seen[bot.Evaluator.Name()] {
			continue
		}
		seen[bot.Evaluator.Name()] = true
		stats := bot.Evaluator.Stats()
		log.Info().
			Str("evaluator", bot.Evaluator.Name()).
			Int64("rows", stats.Rows).
			Int64("batches", stats.Batches).
			Float64("avgBatchSize", stats.AvgBatchSize).
			Msg("Evaluator stats")
	}
}

// BotParams converts a configured bot into search parameters.
func BotParams(bot config.Bot) searcher.Params {
	params := searcher.DefaultParams()
	params.MaxVisits = bot.MaxVisits
	if bot.MaxPlayouts > 0 {
		params.MaxPlayouts = bot.MaxPlayouts
	}
	if bot.NumSearchThreads > 0 {
		params.Threads = bot.NumSearchThreads
	}
	if bot.CPuct > 0 {
		params.CPuct = bot.CPuct
	}
	params.RootNoiseEnabled = bot.RootNoiseEnabled
	params.ChosenMoveTemperature = bot.ChosenMoveTemperature
	params.UseLcbForSelection = bot.UseLcbForSelection
	params.DrawEquivalentWinsForWhite = bot.DrawEquivalentWinsForWhite
	params.NoResultUtilityForWhite = bot.NoResultUtilityForWhite
	return params
}
