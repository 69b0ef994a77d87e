package gamemaster

import (
	"errors"
	"sync"
	"testing"

	"selfplay/config"
	"selfplay/engine"
	"selfplay/evaluator"
	"selfplay/searcher"

	"github.com/stretchr/testify/require"
)

func testBots(n int) []*engine.BotSpec {
	eval := evaluator.NewHeuristic("test")
	bots := make([]*engine.BotSpec, n)
	for i := range bots {
		bots[i] = &engine.BotSpec{Name: string(rune('a' + i)), Index: i, Evaluator: eval, Params: searcher.DefaultParams()}
	}
	return bots
}

func TestMatchPairer(t *testing.T) {
	t.Run("rejects zero bots", func(t *testing.T) {
		cfg := testConfig()
		_, err := NewMatchPairer(cfg, nil, "x")
		var cfgErr *config.Error
		require.True(t, errors.As(err, &cfgErr))
		require.Equal(t, "bots", cfgErr.Key)
	})

	t.Run("rejects out of range matchups", func(t *testing.T) {
		cfg := testConfig()
		cfg.Match.Matchups = []config.Matchup{{Black: 0, White: 2}}
		_, err := NewMatchPairer(cfg, testBots(2), "x")
		var cfgErr *config.Error
		require.True(t, errors.As(err, &cfgErr))
		require.Equal(t, "matchups", cfgErr.Key)
	})

	t.Run("every matchup once per round", func(t *testing.T) {
		cfg := testConfig()
		cfg.Match.NumGamesTotal = 18
		cfg.Match.LogGamesEvery = 5
		bots := testBots(3)
		mp, err := NewMatchPairer(cfg, bots, "rounds")
		require.NoError(t, err)
		require.Equal(t, int64(18), mp.NumGamesTotal())

		for round := 0; round < 3; round++ {
			seen := map[[2]int]int{}
			for i := 0; i < 6; i++ {
				b, w, ok := mp.GetMatchup()
				require.True(t, ok)
				require.NotEqual(t, b.Index, w.Index)
				seen[[2]int{b.Index, w.Index}]++
			}
			require.Len(t, seen, 6)
		}
		_, _, ok := mp.GetMatchup()
		require.False(t, ok)
		require.Equal(t, int64(18), mp.NumGamesStarted())
	})

	t.Run("default pairing follows the given bots", func(t *testing.T) {
		cfg := testConfig()
		require.Len(t, cfg.Match.Bots, 1)
		cfg.Match.NumGamesTotal = 2
		mp, err := NewMatchPairer(cfg, testBots(2), "pairs")
		require.NoError(t, err)

		seen := map[[2]int]bool{}
		for i := 0; i < 2; i++ {
			b, w, ok := mp.GetMatchup()
			require.True(t, ok)
			seen[[2]int{b.Index, w.Index}] = true
		}
		require.Equal(t, map[[2]int]bool{{0, 1}: true, {1, 0}: true}, seen)
	})

	t.Run("single bot plays itself", func(t *testing.T) {
		cfg := testConfig()
		cfg.Match.NumGamesTotal = 3
		mp, err := NewMatchPairer(cfg, testBots(1), "self")
		require.NoError(t, err)
		for i := 0; i < 3; i++ {
			b, w, ok := mp.GetMatchup()
			require.True(t, ok)
			require.Same(t, b, w)
		}
		_, _, ok := mp.GetMatchup()
		require.False(t, ok)
	})

	t.Run("budget is shared by concurrent callers", func(t *testing.T) {
		cfg := testConfig()
		cfg.Match.NumGamesTotal = 1000
		mp, err := NewMatchPairer(cfg, testBots(4), "concurrent")
		require.NoError(t, err)

		var wg sync.WaitGroup
		var mu sync.Mutex
		total := 0
		for w := 0; w < 8; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				n := 0
				for {
					if _, _, ok := mp.GetMatchup(); !ok {
						break
					}
					n++
				}
				mu.Lock()
				total += n
				mu.Unlock()
			}()
		}
		wg.Wait()
		require.Equal(t, 1000, total)
	})
}

func TestBotParams(t *testing.T) {
	bot := config.DefaultBot("b")
	bot.MaxVisits = 77
	bot.NumSearchThreads = 3
	bot.UseLcbForSelection = true
	bot.ChosenMoveTemperature = 0.3

	params := BotParams(bot)
	require.Equal(t, int64(77), params.MaxVisits)
	require.Equal(t, 3, params.Threads)
	require.True(t, params.UseLcbForSelection)
	require.Equal(t, 0.3, params.ChosenMoveTemperature)
	require.Equal(t, 0.5, params.DrawEquivalentWinsForWhite)
}
