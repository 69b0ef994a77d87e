package searcher

import "math"

// Hyperparameters for MCTS

const FPU_REDUCTION = 0.2 // First play urgency below the parent's value

const VIRTUAL_LOSS = 1.0 // Utility penalty per in-flight visit

const LCB_STDEVS = 2.0 // Width of the confidence bound used for move selection

const LCB_MIN_VISIT_PROP = 0.15 // Children below this share of the top visits never win on LCB

type puct struct {
	numerator float64
}

func newPUCT(cPuct float64, N float64) *puct {
	if N < 0 {
		panic("N cannot be negative")
	}
	return &puct{numerator: cPuct * math.Sqrt(N+1)}
}

func (p puct) evaluate(q float64, prior float64, n float64) float64 {
	// PUCT = Q + c * P * sqrt(N+1) / (1+n)
	return q + p.numerator*prior/(1+n)
}
