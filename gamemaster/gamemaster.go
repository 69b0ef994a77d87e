package gamemaster

import (
	"context"
	"fmt"

	"selfplay/config"
	"selfplay/engine"
	"selfplay/game"
	"selfplay/searcher"
	"selfplay/utils"

	"github.com/rs/zerolog/log"
)

// GameRunner plays whole games: it sets each one up through a GameInitializer, drives it, and
// harvests forks from the result. One runner is shared by every worker.
type GameRunner struct {
	cfg         *config.Config
	settings    *config.PlaySettings
	initializer *GameInitializer
	factory     searcher.Factory
	pause       *utils.PauseFlag
	seed        string
}

type Option func(gr *GameRunner)

// WithFactory sets how searches are built. MCTS without metrics is the default.
func WithFactory(factory searcher.Factory) Option {
	return func(gr *GameRunner) {
		gr.factory = factory
	}
}

func WithPause(pause *utils.PauseFlag) Option {
	return func(gr *GameRunner) {
		gr.pause = pause
	}
}

// WithSeed seeds the initializer. Without it the initializer is seeded from the clock.
func WithSeed(seed string) Option {
	return func(gr *GameRunner) {
		gr.seed = seed
	}
}

func NewGameRunner(cfg *config.Config, options ...Option) (*GameRunner, error) {
	gr := &GameRunner{
		cfg:      cfg,
		settings: &cfg.Play,
		factory:  searcher.NewFactory(),
	}
	for _, opt := range options {
		opt(gr)
	}
	if err := cfg.Play.Validate(cfg.Source); err != nil {
		return nil, err
	}
	if cfg.Play.ForSelfPlay && !cfg.Runner.ClearBotBeforeSearch {
		return nil, config.NewError(cfg.Source, "clearBotBeforeSearch", "must be set for self-play")
	}
	seed := gr.seed
	if seed != "" {
		seed += ":initializer"
	}
	initializer, err := NewGameInitializer(cfg, seed)
	if err != nil {
		return nil, err
	}
	gr.initializer = initializer
	return gr, nil
}

func (gr *GameRunner) Initializer() *GameInitializer {
	return gr.initializer
}

// RunGame plays one game between botB and botW. It returns nil data and a nil error if ctx was
// cancelled before the game finished.
func (gr *GameRunner) RunGame(ctx context.Context, seed string, botB, botW *engine.BotSpec, forkData *ForkData,
	startPosSample *game.PositionSample, hooks engine.Hooks) (*engine.FinishedGameData, error) {
	gameRand := utils.NewRand(seed + ":forGameRand")
	settings := gr.settings

	var initialPos *InitialPosition
	usedSekiFork := false
	if forkData != nil {
		initialPos = forkData.Get(gameRand)
		if initialPos == nil && settings.SekiForkHackProb > 0 && gameRand.Bool(settings.SekiForkHackProb) {
			initialPos = forkData.GetSeki(gameRand)
			usedSekiFork = initialPos != nil
		}
	}

	sameBot := botB.Index == botW.Index
	if settings.ForSelfPlay && !sameBot {
		return nil, config.NewError(gr.cfg.Source, "forSelfPlay", "self-play needs the same bot on both sides, got %s and %s", botB.Name, botW.Name)
	}
	// The driver may swap evaluators on its specs, so each game gets its own copies.
	specB, specW := *botB, *botW
	botB, botW = &specB, &specW
	if sameBot {
		botW = botB
	}

	var setup GameSetup
	var err error
	if settings.ForSelfPlay {
		setup, err = gr.initializer.CreateGameWithParams(&botB.Params, initialPos, settings, startPosSample)
		if err != nil {
			return nil, err
		}
	} else {
		setup, err = gr.initializer.CreateGame(initialPos, settings, startPosSample)
		if err != nil {
			return nil, err
		}
		for _, spec := range []*engine.BotSpec{botB, botW} {
			if spec.Evaluator != nil && !spec.Evaluator.SupportsRules(setup.State.Rules()) {
				log.Warn().
					Str("bot", spec.Name).
					Str("rules", setup.State.Rules().String()).
					Msg("Evaluator does not support the rules of this game, it will play as if under its own")
			}
		}
	}

	doEndGameIfAllPassAlive := true
	if settings.ForSelfPlay {
		// A small share of self-play games is played out fully to teach the end of the game
		doEndGameIfAllPassAlive = gameRand.Bool(settings.AutoTerminateProb)
	}

	var searchB, searchW searcher.Search
	if sameBot {
		searchB = gr.factory(botB.Params, botB.Evaluator, seed)
		searchW = searchB
	} else {
		searchB = gr.factory(botB.Params, botB.Evaluator, seed+"@B")
		searchW = gr.factory(botW.Params, botW.Evaluator, seed+"@W")
	}
	if hooks.AfterInitialization != nil {
		hooks.AfterInitialization(searchB, searchW)
	}

	g := &engine.Game{
		State:                   setup.State,
		ExtraBlackAndKomi:       setup.ExtraBlackAndKomi,
		BotSpecB:                botB,
		BotSpecW:                botW,
		BotB:                    searchB,
		BotW:                    searchW,
		DoEndGameIfAllPassAlive: doEndGameIfAllPassAlive,
		ClearBotBeforeSearch:    gr.cfg.Runner.ClearBotBeforeSearch,
		LogSearchInfo:           gr.cfg.Runner.LogSearchInfo,
		LogMoves:                gr.cfg.Runner.LogMoves,
		MaxMovesPerGame:         gr.cfg.Runner.MaxMovesPerGame,
		Pause:                   gr.pause,
		Settings:                settings,
		Props:                   setup.Props,
		Rand:                    gameRand,
		Hooks:                   hooks,
	}
	data, err := engine.RunGame(ctx, g)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, nil
	}

	data.UsedInitialPosition = initialPos != nil
	switch {
	case initialPos != nil && data.TrainingWeight != initialPos.TrainingWeight:
		return nil, fmt.Errorf("training weight %v does not match its initial position's %v", data.TrainingWeight, initialPos.TrainingWeight)
	case initialPos == nil && startPosSample != nil && data.TrainingWeight != startPosSample.TrainingWeight:
		return nil, fmt.Errorf("training weight %v does not match its start position's %v", data.TrainingWeight, startPosSample.TrainingWeight)
	}
	if !(data.TrainingWeight > 0 && data.TrainingWeight < 5) {
		return nil, fmt.Errorf("training weight out of range: %v", data.TrainingWeight)
	}

	if err := MaybeForkGame(data, forkData, settings, gameRand, botB.Evaluator); err != nil {
		return nil, err
	}
	if !usedSekiFork {
		if err := MaybeSekiForkGame(data, forkData, settings, gr.initializer, gameRand); err != nil {
			return nil, err
		}
	}
	if err := MaybeHintForkGame(data, forkData, setup.Props); err != nil {
		return nil, err
	}
	return data, nil
}
