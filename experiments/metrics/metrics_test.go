package metrics

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"selfplay/config"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	t.Run("counts games and moves from many workers", func(t *testing.T) {
		c := NewCollector(true)
		var wg sync.WaitGroup
		for w := 0; w < 4; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				id := uuid.New()
				for i := 0; i < 10; i++ {
					c.AddMove(id, MoveMetric{Step: i})
				}
				c.AddGame(GameMetric{ID: id, Mode: "normal", TotalMoves: 10, SidePositions: 2, Resigned: w%2 == 0})
			}()
		}
		wg.Wait()

		stats := c.Stats()
		require.Equal(t, int64(4), stats.GamesFinished)
		require.Equal(t, int64(40), stats.Moves)
		require.Equal(t, int64(2), stats.Resignations)
		require.Equal(t, int64(8), stats.SidePositions)
		require.Len(t, c.MoveRecords(), 40)

		records := c.GameRecords()
		require.Len(t, records, 4)
		for i, r := range records {
			require.Equal(t, i+1, r.Index)
		}
	})

	t.Run("moves are counted but not kept unless recorded", func(t *testing.T) {
		c := NewCollector(false)
		c.AddMove(uuid.New(), MoveMetric{})
		require.Equal(t, int64(1), c.Stats().Moves)
		require.Empty(t, c.MoveRecords())
	})

	t.Run("dummy collector keeps nothing", func(t *testing.T) {
		c := NewDummyCollector()
		c.AddGame(GameMetric{})
		require.Zero(t, c.Stats().GamesFinished)
		require.Nil(t, c.GameRecords())
	})
}

func TestWriter(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	id := uuid.New()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, w.WriteGameRecords([]GameRecord{{
		Index: 1,
		GameMetric: GameMetric{
			ID: id, Black: "a", White: "b", Mode: "fork", Winner: "W",
			StartTime: start, EndTime: start.Add(time.Second), Duration: time.Second, TotalMoves: 42,
		},
	}}))
	require.NoError(t, w.WriteMoveRecords([]MoveRecord{{Game: id, MoveMetric: MoveMetric{Step: 3, Player: "B", Move: "D4", Playouts: 10}}}))
	require.NoError(t, w.WriteBotConfigs([]config.Bot{config.DefaultBot("a")}))

	read := func(name string) [][]string {
		f, err := os.Open(filepath.Join(w.Dir(), name))
		require.NoError(t, err)
		defer f.Close()
		rows, err := csv.NewReader(f).ReadAll()
		require.NoError(t, err)
		return rows
	}

	games := read("game_records.csv")
	require.Len(t, games, 2)
	require.Equal(t, []string{"1", id.String(), "a", "b", "fork", "W", "false", "false",
		"2026-03-01T12:00:00Z", "2026-03-01T12:00:01Z", "1s", "42", "0"}, games[1])

	moves := read("move_records.csv")
	require.Equal(t, []string{id.String(), "3", "B", "D4", "0s", "10", "0", "false"}, moves[1])

	bots := read("bot_configs.csv")
	require.Len(t, bots, 2)
	require.Equal(t, "heuristic", bots[1][2])
}
