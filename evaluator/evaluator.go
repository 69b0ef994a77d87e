package evaluator

import "selfplay/game"

// InputParams are the per-query knobs a search passes to its evaluator.
type InputParams struct {
	DrawEquivalentWinsForWhite float64
	PlayoutDoublingAdvantage   float64
}

// Output is the raw evaluation of one position. Policy is indexed by game.PolicyPos and holds
// -1 for illegal moves. Values are from White's perspective.
type Output struct {
	XSize             int
	YSize             int
	Policy            []float64
	WhiteWinProb      float64
	WhiteLossProb     float64
	WhiteNoResultProb float64
	WhiteScoreMean    float64
	WhiteScoreStdev   float64
	WhiteLead         float64
}

type Stats struct {
	Rows         int64
	Batches      int64
	AvgBatchSize float64
}

// Evaluator computes raw policy and value estimates. Implementations must be safe for
// concurrent use since every game worker queries them.
type Evaluator interface {
	Name() string
	Evaluate(state game.State, pla game.Player, params InputParams) *Output
	Stats() Stats
	IsNeuralNetLess() bool
	SupportsRules(rules game.Rules) bool
}
