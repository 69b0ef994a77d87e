package gamemaster

import (
	"sync"
	"testing"

	"selfplay/game"
	"selfplay/meta"
	"selfplay/utils"

	"github.com/stretchr/testify/require"
)

func newTestPosition(weight float64) *InitialPosition {
	state := game.NewBoard(9, 9, game.DefaultRules())
	return &InitialPosition{State: state, Pla: game.Black, IsPlainFork: true, TrainingWeight: weight}
}

func TestForkData(t *testing.T) {
	t.Run("empty pools return nil", func(t *testing.T) {
		forkData := NewForkData()
		rand := utils.NewRand("empty")
		require.Nil(t, forkData.Get(rand))
		require.Nil(t, forkData.GetSeki(rand))
	})

	t.Run("pool size is adds minus gets", func(t *testing.T) {
		forkData := NewForkData()
		rand := utils.NewRand("count")
		added := map[*InitialPosition]bool{}
		for i := 0; i < 10; i++ {
			pos := newTestPosition(1)
			added[pos] = true
			forkData.Add(pos)
		}
		for i := 0; i < 4; i++ {
			pos := forkData.Get(rand)
			require.True(t, added[pos])
			delete(added, pos)
		}
		require.Equal(t, 6, forkData.Len())
		require.Equal(t, 0, forkData.SekiLen())

		for i := 0; i < 6; i++ {
			require.NotNil(t, forkData.Get(rand))
		}
		require.Nil(t, forkData.Get(rand))
	})

	t.Run("seki pool is capped", func(t *testing.T) {
		forkData := NewForkData()
		rand := utils.NewRand("seki")
		for i := 0; i < meta.SEKI_FORK_CAPACITY+500; i++ {
			forkData.AddSeki(newTestPosition(1), rand)
			require.LessOrEqual(t, forkData.SekiLen(), meta.SEKI_FORK_CAPACITY)
		}
		require.Equal(t, meta.SEKI_FORK_CAPACITY, forkData.SekiLen())
		require.NotNil(t, forkData.GetSeki(rand))
		require.Equal(t, meta.SEKI_FORK_CAPACITY-1, forkData.SekiLen())
	})

	t.Run("concurrent adds and gets", func(t *testing.T) {
		forkData := NewForkData()
		var wg sync.WaitGroup
		var mu sync.Mutex
		got := 0
		for w := 0; w < 8; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				rand := utils.NewRand(string(rune('a' + w)))
				for i := 0; i < 100; i++ {
					forkData.Add(newTestPosition(1))
					if i%2 == 0 && forkData.Get(rand) != nil {
						mu.Lock()
						got++
						mu.Unlock()
					}
				}
			}(w)
		}
		wg.Wait()
		require.Equal(t, 800-got, forkData.Len())
	})
}
