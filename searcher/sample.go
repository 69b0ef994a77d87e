package searcher

import (
	"math"

	"selfplay/utils"
)

// AdjustTemperature raises weights to 1/temperature and normalizes them. Nonpositive weights
// stay at zero.
func AdjustTemperature(weights []float64, temperature float64) []float64 {
	exponent := 1.0 / temperature
	sum := 0.0
	adjusted := make([]float64, len(weights))
	maxWeight := 0.0
	for _, w := range weights {
		maxWeight = math.Max(maxWeight, w)
	}
	if maxWeight <= 0 {
		return adjusted
	}
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		// Normalize by the max first so large exponents do not overflow
		prob := math.Pow(w/maxWeight, exponent)
		sum += prob
		adjusted[i] = prob
	}
	for i := range adjusted {
		adjusted[i] /= sum
	}
	return adjusted
}

// Sample draws an index from a normalized distribution, or -1 if it is all zero.
func Sample(rand *utils.Rand, probs []float64) int {
	sampled := rand.Float64()
	cumulative := 0.0
	last := -1
	for i, p := range probs {
		if p <= 0 {
			continue
		}
		last = i
		cumulative += p
		if sampled < cumulative {
			return i
		}
	}
	return last // Fallback in case of rounding errors
}

func findMax(weights []float64) int {
	best := -1
	maxWeight := math.Inf(-1)
	for i, w := range weights {
		if w > maxWeight {
			maxWeight = w
			best = i
		}
	}
	return best
}
