package experiments

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"selfplay/communication"
	"selfplay/config"
	"selfplay/engine"
	"selfplay/evaluator"
	"selfplay/experiments/metrics"
	"selfplay/game"
	"selfplay/gamemaster"
	"selfplay/searcher"
	"selfplay/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type Option func(e *experiment)

func WithPause(pause *utils.PauseFlag) Option {
	return func(e *experiment) {
		e.pause = pause
	}
}

// WithPublisher receives a status snapshot after every game.
func WithPublisher(publisher communication.StatusPublisher) Option {
	return func(e *experiment) {
		e.publisher = publisher
	}
}

func WithCollector(collector metrics.Collector) Option {
	return func(e *experiment) {
		e.collector = collector
	}
}

type experiment struct {
	cfg       *config.Config
	pause     *utils.PauseFlag
	publisher communication.StatusPublisher
	collector metrics.Collector

	pairer    *gamemaster.MatchPairer
	runner    *gamemaster.GameRunner
	forkData  *gamemaster.ForkData
	startTime time.Time
	gameCount atomic.Int64
}

// Run plays every game of the configured match on NumGameThreads workers and writes the records
// to the output directory. Cancelling ctx stops all workers at their next safe point; finished
// games are still written.
func Run(ctx context.Context, cfg *config.Config, options ...Option) (metrics.Stats, error) {
	e := &experiment{
		cfg:       cfg,
		startTime: time.Now(),
	}
	for _, opt := range options {
		opt(e)
	}
	if e.collector == nil {
		e.collector = metrics.NewCollector(cfg.Output.RecordMoves)
	}

	bots, err := buildBots(cfg)
	if err != nil {
		return metrics.Stats{}, err
	}
	seed := cfg.Match.Seed
	e.pairer, err = gamemaster.NewMatchPairer(cfg, bots, seedFor(seed, "pairer"))
	if err != nil {
		return metrics.Stats{}, err
	}
	runnerOptions := []gamemaster.Option{gamemaster.WithPause(e.pause), gamemaster.WithSeed(seed)}
	if cfg.Output.RecordMoves {
		runnerOptions = append(runnerOptions, gamemaster.WithFactory(searcher.NewFactory(searcher.WithMetrics())))
	}
	e.runner, err = gamemaster.NewGameRunner(cfg, runnerOptions...)
	if err != nil {
		return metrics.Stats{}, err
	}
	e.forkData = gamemaster.NewForkData()

	log.Info().
		Int64("games", cfg.Match.NumGamesTotal).
		Int("threads", cfg.Match.NumGameThreads).
		Int("bots", len(bots)).
		Msg("Starting games")

	g, gCtx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.Match.NumGameThreads; w++ {
		g.Go(func() error {
			return e.work(gCtx)
		})
	}
	runErr := g.Wait()

	stats := e.collector.Stats()
	log.Info().
		Int64("games", stats.GamesFinished).
		Int64("moves", stats.Moves).
		Dur("elapsed", time.Since(e.startTime)).
		Msg("Finished games")

	if cfg.Output.Dir != "" {
		if err := e.writeRecords(); err != nil {
			return stats, err
		}
	}
	return stats, runErr
}

func seedFor(seed, purpose string) string {
	if seed == "" {
		return ""
	}
	return seed + ":" + purpose
}

func buildBots(cfg *config.Config) ([]*engine.BotSpec, error) {
	evaluators := map[string]evaluator.Evaluator{}
	bots := make([]*engine.BotSpec, len(cfg.Match.Bots))
	for i, bot := range cfg.Match.Bots {
		eval, ok := evaluators[bot.Evaluator]
		if !ok {
			switch bot.Evaluator {
			case "heuristic", "":
				eval = evaluator.NewHeuristic("heuristic")
			default:
				return nil, config.NewError(cfg.Source, "evaluator", "unknown evaluator %q for bot %s", bot.Evaluator, bot.Name)
			}
			evaluators[bot.Evaluator] = eval
		}
		bots[i] = &engine.BotSpec{
			Name:      bot.Name,
			Index:     i,
			Evaluator: eval,
			Params:    gamemaster.BotParams(bot),
		}
	}
	return bots, nil
}

func (e *experiment) work(ctx context.Context) error {
	for ctx.Err() == nil {
		botB, botW, ok := e.pairer.GetMatchup()
		if !ok {
			return nil
		}
		metrics.SetGamesStarted(e.pairer.NumGamesStarted())

		n := e.gameCount.Add(1)
		gameSeed := uuid.NewString()
		if e.cfg.Match.Seed != "" {
			gameSeed = fmt.Sprintf("%s:game%d", e.cfg.Match.Seed, n)
		}

		var moves []metrics.MoveMetric
		hooks := engine.Hooks{}
		if e.cfg.Output.RecordMoves {
			hooks.OnEachMove = func(state game.State, loc game.Loc, _, _, _ []float64, bot searcher.Search) {
				moves = append(moves, moveMetric(state, loc, bot))
			}
		}

		start := time.Now()
		data, err := e.runner.RunGame(ctx, gameSeed, botB, botW, e.forkData, nil, hooks)
		if err != nil {
			log.Error().Err(err).Str("black", botB.Name).Str("white", botW.Name).Msg("Game failed")
			return err
		}
		if data == nil {
			return nil
		}
		e.record(data, start, moves)
	}
	return nil
}

func moveMetric(state game.State, loc game.Loc, bot searcher.Search) metrics.MoveMetric {
	m := metrics.MoveMetric{
		Step:   len(state.Moves()),
		Player: state.Player().String(),
		Move:   game.LocString(loc, state.XSize(), state.YSize()),
	}
	if mcts, ok := bot.(*searcher.MCTS); ok {
		sm := mcts.LastSearchMetrics()
		m.Duration = sm.Duration
		m.Playouts = sm.Playouts
		m.FullPlayouts = sm.FullPlayouts
		m.TreeReused = sm.TreeReused
	}
	return m
}

func (e *experiment) record(data *engine.FinishedGameData, start time.Time, moves []metrics.MoveMetric) {
	end := time.Now()
	result := data.EndState.Result()
	winner := ""
	if result.Finished {
		winner = result.Winner.String()
	}
	for _, m := range moves {
		e.collector.AddMove(data.GameID, m)
	}
	e.collector.AddGame(metrics.GameMetric{
		ID:                  data.GameID,
		Black:               data.BName,
		White:               data.WName,
		Mode:                data.Mode.String(),
		Winner:              winner,
		Resigned:            result.Resigned,
		UsedInitialPosition: data.UsedInitialPosition,
		StartTime:           start,
		EndTime:             end,
		Duration:            end.Sub(start),
		TotalMoves:          data.NumTurns(),
		SidePositions:       len(data.SidePositions),
	})
	metrics.SetPoolSizes(e.forkData.Len(), e.forkData.SekiLen())

	if e.publisher != nil {
		stats := e.collector.Stats()
		e.publisher.UpdateStatus(communication.Status{
			StartTime:        e.startTime,
			UpdateTime:       end,
			GamesTotal:       e.pairer.NumGamesTotal(),
			GamesStarted:     e.pairer.NumGamesStarted(),
			GamesFinished:    stats.GamesFinished,
			Moves:            stats.Moves,
			Resignations:     stats.Resignations,
			SidePositions:    stats.SidePositions,
			ForkPoolSize:     e.forkData.Len(),
			SekiForkPoolSize: e.forkData.SekiLen(),
			Paused:           e.pause.Paused(),
		})
	}
}

func (e *experiment) writeRecords() error {
	writer, err := metrics.NewWriter(e.cfg.Output.Dir)
	if err != nil {
		return fmt.Errorf("failed to create records writer: %w", err)
	}
	if err := writer.WriteBotConfigs(e.cfg.Match.Bots); err != nil {
		return fmt.Errorf("failed to store bot configs: %w", err)
	}
	log.Info().Msg("stored bot configs")

	if err := writer.WriteGameRecords(e.collector.GameRecords()); err != nil {
		return fmt.Errorf("failed to write game records: %w", err)
	}
	log.Info().Msg("stored game records")

	if e.cfg.Output.RecordMoves {
		if err := writer.WriteMoveRecords(e.collector.MoveRecords()); err != nil {
			return fmt.Errorf("failed to write move records: %w", err)
		}
		log.Info().Msg("stored move records")
	}
	log.Info().Str("dir", writer.Dir()).Msg("Records written")
	return nil
}
