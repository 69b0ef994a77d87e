package experiments

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"selfplay/communication"
	"selfplay/config"

	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu       sync.Mutex
	statuses []communication.Status
}

func (p *recordingPublisher) UpdateStatus(status communication.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses = append(p.statuses, status)
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	komi := 7.5
	cfg.Init.KomiMean = &komi
	cfg.Init.BSizes = []int{7}
	cfg.Init.BSizeRelProbs = []float64{1}
	cfg.Runner.ClearBotBeforeSearch = true
	cfg.Runner.MaxMovesPerGame = 12
	cfg.Play.ForSelfPlay = true
	cfg.Match.Bots[0].MaxVisits = 10
	cfg.Match.NumGamesTotal = 3
	cfg.Match.NumGameThreads = 2
	cfg.Match.Seed = "experiment"
	cfg.Output.Dir = t.TempDir()
	cfg.Output.RecordMoves = true
	return &cfg
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestRun(t *testing.T) {
	t.Run("plays the game budget and writes records", func(t *testing.T) {
		cfg := testConfig(t)
		publisher := &recordingPublisher{}

		stats, err := Run(context.Background(), cfg, WithPublisher(publisher))
		require.NoError(t, err)
		require.Equal(t, int64(3), stats.GamesFinished)
		require.Positive(t, stats.Moves)

		require.Len(t, publisher.statuses, 3)
		last := publisher.statuses[2]
		require.Equal(t, int64(3), last.GamesTotal)
		require.Equal(t, int64(3), last.GamesStarted)

		dirs, err := os.ReadDir(cfg.Output.Dir)
		require.NoError(t, err)
		require.Len(t, dirs, 1)
		dir := filepath.Join(cfg.Output.Dir, dirs[0].Name())

		games := readCSV(t, filepath.Join(dir, "game_records.csv"))
		require.Len(t, games, 4)
		require.Equal(t, "index", games[0][0])

		moves := readCSV(t, filepath.Join(dir, "move_records.csv"))
		require.Len(t, moves, int(stats.Moves)+1)

		bots := readCSV(t, filepath.Join(dir, "bot_configs.csv"))
		require.Len(t, bots, 2)
		require.Equal(t, "bot0", bots[1][1])
	})

	t.Run("match between two bots", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Play.ForSelfPlay = false
		cfg.Output.RecordMoves = false
		other := config.DefaultBot("bot1")
		other.MaxVisits = 5
		cfg.Match.Bots = append(cfg.Match.Bots, other)
		cfg.Match.NumGamesTotal = 4

		stats, err := Run(context.Background(), cfg)
		require.NoError(t, err)
		require.Equal(t, int64(4), stats.GamesFinished)

		dirs, err := os.ReadDir(cfg.Output.Dir)
		require.NoError(t, err)
		dir := filepath.Join(cfg.Output.Dir, dirs[0].Name())
		_, err = os.Stat(filepath.Join(dir, "move_records.csv"))
		require.True(t, os.IsNotExist(err))
	})

	t.Run("cancelled context plays nothing", func(t *testing.T) {
		cfg := testConfig(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		stats, err := Run(ctx, cfg)
		require.NoError(t, err)
		require.Zero(t, stats.GamesFinished)
	})

	t.Run("unknown evaluator", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Match.Bots[0].Evaluator = "resnet"
		_, err := Run(context.Background(), cfg)
		var cfgErr *config.Error
		require.True(t, errors.As(err, &cfgErr))
		require.Equal(t, "evaluator", cfgErr.Key)
	})
}
