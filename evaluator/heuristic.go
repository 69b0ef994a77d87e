package evaluator

import (
	"math"
	"sync/atomic"

	"selfplay/game"
)

const passPrior = 0.01

// Heuristic is a network-less evaluator: a centrality-weighted policy over legal moves that
// avoids filling own eyes, and a value squashed from the area count.
type Heuristic struct {
	name     string
	evaluate game.Evaluate
	rows     atomic.Int64
}

type Option func(h *Heuristic)

func WithEvaluationFn(evaluate game.Evaluate) Option {
	return func(h *Heuristic) {
		if evaluate != nil {
			h.evaluate = evaluate
		}
	}
}

func NewHeuristic(name string, options ...Option) *Heuristic {
	h := &Heuristic{
		name:     name,
		evaluate: game.EvaluateArea,
	}
	for _, option := range options {
		option(h)
	}
	return h
}

func (h *Heuristic) Name() string          { return h.name }
func (h *Heuristic) IsNeuralNetLess() bool { return true }

func (h *Heuristic) SupportsRules(rules game.Rules) bool {
	return true
}

func (h *Heuristic) Stats() Stats {
	rows := h.rows.Load()
	stats := Stats{Rows: rows, Batches: rows}
	if rows > 0 {
		stats.AvgBatchSize = 1
	}
	return stats
}

func (h *Heuristic) Evaluate(state game.State, pla game.Player, params InputParams) *Output {
	h.rows.Add(1)

	xSize, ySize := state.XSize(), state.YSize()
	area := xSize * ySize
	policy := make([]float64, area+1)
	sum := 0.0
	cx, cy := float64(xSize-1)/2, float64(ySize-1)/2
	for pos := 0; pos < area; pos++ {
		loc := game.Loc(pos)
		if !state.IsLegal(loc, pla) || isOwnEye(state, loc, pla) {
			policy[pos] = -1
			continue
		}
		dx := math.Abs(float64(loc.X(xSize))-cx) / (cx + 1)
		dy := math.Abs(float64(loc.Y(xSize))-cy) / (cy + 1)
		w := 2 - dx - dy
		policy[pos] = w
		sum += w
	}
	if sum <= 0 {
		policy[area] = 1
	} else {
		policy[area] = passPrior * sum
		sum += policy[area]
		for pos := range policy {
			if policy[pos] > 0 {
				policy[pos] /= sum
			}
		}
	}

	lead := game.AreaLead(state)
	v := h.evaluate(state)
	if params.PlayoutDoublingAdvantage != 0 {
		// Shift toward the side that will search more
		shift := 0.1 * math.Tanh(params.PlayoutDoublingAdvantage)
		if pla == game.Black {
			shift = -shift
		}
		v = math.Max(-1, math.Min(1, v+shift))
	}
	return &Output{
		XSize:           xSize,
		YSize:           ySize,
		Policy:          policy,
		WhiteWinProb:    (1 + v) / 2,
		WhiteLossProb:   (1 - v) / 2,
		WhiteScoreMean:  lead,
		WhiteScoreStdev: math.Sqrt(float64(area)) / 2,
		WhiteLead:       lead,
	}
}

func isOwnEye(state game.State, loc game.Loc, pla game.Player) bool {
	xSize, ySize := state.XSize(), state.YSize()
	x, y := loc.X(xSize), loc.Y(xSize)
	check := func(nx, ny int) bool {
		if nx < 0 || ny < 0 || nx >= xSize || ny >= ySize {
			return true
		}
		return state.At(game.MakeLoc(nx, ny, xSize)) == pla
	}
	return check(x-1, y) && check(x+1, y) && check(x, y-1) && check(x, y+1)
}
