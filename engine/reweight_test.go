package engine

import (
	"testing"

	"selfplay/utils"

	"github.com/stretchr/testify/require"
)

func TestReweightBySurprise(t *testing.T) {
	t.Run("preserves the total weight", func(t *testing.T) {
		weights := []float64{1, 1, 0.5, 0, 1, 1}
		policySurprise := []float64{0.1, 2.0, 0.3, 4.0, 0.2, 0.1}
		valueSurprise := []float64{0.05, 0.01, 0.4, 0.0, 0.02, 0.3}

		ReweightBySurprise(weights, policySurprise, valueSurprise, 0.5, 0.1)

		sum := 0.0
		for _, w := range weights {
			require.GreaterOrEqual(t, w, 0.0)
			sum += w
		}
		require.InDelta(t, 4.5, sum, 1e-9)
		require.Greater(t, weights[1], weights[0], "Surprising turns gain weight")
		require.Greater(t, weights[3], 0.0, "A very surprising cheap search is still recorded")
	})

	t.Run("no surprise weight leaves targets alone", func(t *testing.T) {
		weights := []float64{1, 0.25, 1}
		ReweightBySurprise(weights, []float64{1, 2, 3}, []float64{0.1, 0.2, 0.3}, 0, 0)
		require.InDeltaSlice(t, []float64{1, 0.25, 1}, weights, 1e-12)
	})

	t.Run("tiny games are left alone", func(t *testing.T) {
		weights := []float64{0.25, 0.5}
		ReweightBySurprise(weights, []float64{1, 0}, []float64{0, 1}, 0.5, 0.1)
		require.Equal(t, []float64{0.25, 0.5}, weights)
	})
}

func TestResolveWeight(t *testing.T) {
	t.Run("integers are unchanged", func(t *testing.T) {
		rand := utils.NewRand("resolve")
		require.Equal(t, 0.0, ResolveWeight(0, rand))
		require.Equal(t, 0.0, ResolveWeight(-1, rand))
		require.Equal(t, 3.0, ResolveWeight(3, rand))
	})

	t.Run("preserves the expectation", func(t *testing.T) {
		rand := utils.NewRand("resolve")
		const trials = 20000
		total := 0.0
		for i := 0; i < trials; i++ {
			for _, w := range []float64{0.3, 1.7, 2.5} {
				r := ResolveWeight(w, rand)
				require.Equal(t, float64(int(r)), r)
				total += r
			}
		}
		require.InDelta(t, 4.5, total/trials, 0.05)
	})
}

func TestValueSurprise(t *testing.T) {
	t.Run("no surprise when predictions match", func(t *testing.T) {
		targets := []ValueTargets{
			{Win: 0.7, Loss: 0.3},
			{Win: 0.7, Loss: 0.3},
			{Win: 0.7, Loss: 0.3},
			{Win: 0.7, Loss: 0.3},
		}
		raw := targets[:3]
		surprise := ValueSurprise(targets, raw, 25)
		require.Len(t, surprise, 3)
		for _, s := range surprise {
			require.InDelta(t, 0.0, s, 1e-9)
		}
	})

	t.Run("confident wrong predictions are surprising", func(t *testing.T) {
		targets := []ValueTargets{
			{Win: 0.5, Loss: 0.5},
			{Win: 0.6, Loss: 0.4},
			{Win: 1, Loss: 0},
		}
		raw := []ValueTargets{
			{Win: 0.5, Loss: 0.5},
			{Win: 0.001, Loss: 0.999},
		}
		surprise := ValueSurprise(targets, raw, 361)
		require.Len(t, surprise, 2)
		for _, s := range surprise {
			require.GreaterOrEqual(t, s, 0.0)
			require.LessOrEqual(t, s, 1.0)
		}
		require.Greater(t, surprise[1], surprise[0])
	})
}
