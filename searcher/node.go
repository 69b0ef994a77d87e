package searcher

import (
	"math"
	"sync"
	"sync/atomic"

	"selfplay/evaluator"
	"selfplay/game"
)

type edge struct {
	loc   game.Loc
	prior float64
	node  NodeRef
}

// node is one position of the search tree. Its statistics are white-perspective sums guarded by
// mu; visits and virtual loss are atomics so they can be read while selecting.
type node struct {
	mu sync.RWMutex

	state  game.State
	ref    NodeRef
	parent NodeRef
	loc    game.Loc

	output   *evaluator.Output
	edges    []edge
	expanded bool
	noised   bool

	visits      atomic.Int64
	virtualLoss atomic.Int64

	winSum      float64
	lossSum     float64
	noResultSum float64
	scoreSum    float64
	scoreSqSum  float64
	leadSum      float64
	utilitySum   float64
	utilitySqSum float64
}

type sample struct {
	win      float64
	loss     float64
	noResult float64
	score    float64
	scoreSq  float64
	lead     float64
}

func newNode(state game.State, parent NodeRef, loc game.Loc) *node {
	return &node{state: state, ref: NoNode, parent: parent, loc: loc}
}

func (n *node) add(s sample, noResultUtility float64) {
	n.mu.Lock()
	n.winSum += s.win
	n.lossSum += s.loss
	n.noResultSum += s.noResult
	n.scoreSum += s.score
	n.scoreSqSum += s.scoreSq
	n.leadSum += s.lead
	u := s.win - s.loss + s.noResult*noResultUtility
	n.utilitySum += u
	n.utilitySqSum += u * u
	n.mu.Unlock()
	n.visits.Add(1)
}

func (n *node) values() (Values, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	visits := n.visits.Load()
	if visits <= 0 {
		return Values{}, false
	}
	v := float64(visits)
	mean := n.scoreSum / v
	return Values{
		WinValue:           n.winSum / v,
		LossValue:          n.lossSum / v,
		NoResultValue:      n.noResultSum / v,
		WinLossValue:       (n.winSum - n.lossSum) / v,
		ExpectedScore:      mean,
		ExpectedScoreStdev: math.Sqrt(math.Max(0, n.scoreSqSum/v-mean*mean)),
		Lead:               n.leadSum / v,
		Visits:             visits,
	}, true
}

// utility returns the average utility of the node from pla's perspective, counting in-flight
// visits as losses.
func (n *node) utility(pla game.Player) (float64, int64) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.utilityLocked(pla)
}

func (n *node) utilityLocked(pla game.Player) (float64, int64) {
	sum := n.utilitySum
	visits := n.visits.Load()
	vl := n.virtualLoss.Load()
	if pla == game.Black {
		sum = -sum
	}
	total := visits + vl
	if total == 0 {
		return 0, 0
	}
	return (sum - VIRTUAL_LOSS*float64(vl)) / float64(total), total
}

// utilityLCB is a lower confidence bound on pla's average utility. It needs at least two visits.
func (n *node) utilityLCB(pla game.Player) (float64, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	visits := n.visits.Load()
	if visits < 2 {
		return 0, false
	}
	v := float64(visits)
	mean := n.utilitySum / v
	variance := math.Max(0, n.utilitySqSum/v-mean*mean)
	if pla == game.Black {
		mean = -mean
	}
	return mean - LCB_STDEVS*math.Sqrt(variance/v), true
}

func outputSample(output *evaluator.Output) sample {
	return sample{
		win:      output.WhiteWinProb,
		loss:     output.WhiteLossProb,
		noResult: output.WhiteNoResultProb,
		score:    output.WhiteScoreMean,
		scoreSq:  output.WhiteScoreMean*output.WhiteScoreMean + output.WhiteScoreStdev*output.WhiteScoreStdev,
		lead:     output.WhiteLead,
	}
}

func terminalSample(result game.Result, drawEquivalentWinsForWhite float64) sample {
	s := sample{score: result.WhiteMinusBlack, lead: result.WhiteMinusBlack}
	s.scoreSq = s.score * s.score
	switch {
	case result.NoResult:
		s.noResult = 1
	case result.Winner == game.White:
		s.win = 1
	case result.Winner == game.Black:
		s.loss = 1
	default:
		s.win = drawEquivalentWinsForWhite
		s.loss = 1 - drawEquivalentWinsForWhite
	}
	return s
}
