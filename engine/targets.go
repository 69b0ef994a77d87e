package engine

import (
	"fmt"
	"math"

	"selfplay/game"
	"selfplay/meta"
	"selfplay/searcher"
)

// QuantizePolicyTarget converts play selection values to int16 weights. Values are scaled down
// uniformly when the largest exceeds meta.POLICY_TARGET_MAX.
func QuantizePolicyTarget(locs []game.Loc, values []float64) ([]PolicyTargetMove, error) {
	if len(locs) != len(values) {
		return nil, fmt.Errorf("policy target: %d locations for %d values", len(locs), len(values))
	}
	maxValue := 0.0
	for _, v := range values {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("policy target: invalid play selection value %v", v)
		}
		maxValue = math.Max(maxValue, v)
	}

	factor := 1.0
	if maxValue > meta.POLICY_TARGET_MAX {
		factor = meta.POLICY_TARGET_MAX / maxValue
	}
	moves := make([]PolicyTargetMove, len(locs))
	for i, loc := range locs {
		moves[i] = PolicyTargetMove{Loc: loc, Weight: int16(math.Round(values[i] * factor))}
	}
	return moves, nil
}

func extractPolicyTarget(bot searcher.Search, node searcher.NodeRef) ([]PolicyTargetMove, error) {
	locs, values, ok := bot.PlaySelectionValues(node, meta.POLICY_TARGET_SCALE_MAX_TO_AT_LEAST)
	if !ok {
		return nil, fmt.Errorf("policy target: no play selection values at node %d", node)
	}
	return QuantizePolicyTarget(locs, values)
}

func extractValueTargets(bot searcher.Search, node searcher.NodeRef) (ValueTargets, error) {
	values, ok := bot.NodeValues(node)
	if !ok {
		return ValueTargets{}, fmt.Errorf("value targets: no values at node %d", node)
	}
	return ValueTargets{
		Win:      values.WinValue,
		Loss:     values.LossValue,
		NoResult: values.NoResultValue,
		Score:    values.ExpectedScore,
	}, nil
}

// extractQValueTargets lists the values of every visited child.
func extractQValueTargets(bot searcher.Search, node searcher.NodeRef) []QValueTarget {
	var targets []QValueTarget
	for _, child := range bot.Children(node) {
		values, ok := bot.NodeValues(child.Node)
		if !ok || values.Visits <= 0 {
			continue
		}
		targets = append(targets, QValueTarget{
			Loc:     child.Loc,
			WinLoss: values.WinLossValue,
			Score:   values.ExpectedScore,
			Visits:  values.Visits,
		})
	}
	return targets
}

func computeNNRawStats(bot searcher.Search, state game.State, pla game.Player) NNRawStats {
	output := bot.Evaluator().Evaluate(state, pla, rawInputParams(bot))

	entropy := 0.0
	for _, p := range output.Policy {
		if p >= 1e-30 {
			entropy -= p * math.Log(p)
		}
	}
	return NNRawStats{
		WhiteWinLoss:   output.WhiteWinProb - output.WhiteLossProb,
		WhiteScoreMean: output.WhiteScoreMean,
		PolicyEntropy:  entropy,
	}
}

// searchTargets is the full set of targets read off one searched node.
type searchTargets struct {
	policy         []PolicyTargetMove
	value          ValueTargets
	qValues        []QValueTarget
	policySurprise float64
	searchEntropy  float64
	policyEntropy  float64
}

func extractSearchTargets(bot searcher.Search, node searcher.NodeRef) (searchTargets, error) {
	var t searchTargets
	var err error
	if t.policy, err = extractPolicyTarget(bot, node); err != nil {
		return t, err
	}
	if t.value, err = extractValueTargets(bot, node); err != nil {
		return t, err
	}
	t.qValues = extractQValueTargets(bot, node)

	var ok bool
	t.policySurprise, t.searchEntropy, t.policyEntropy, ok = bot.PolicySurpriseAndEntropy(node)
	if !ok {
		return t, fmt.Errorf("policy surprise: unavailable at node %d", node)
	}
	return t, nil
}

func newSidePosition(state game.State, pla game.Player, numEvaluatorChanges int) *SidePosition {
	return &SidePosition{
		State:                    state,
		Pla:                      pla,
		NumEvaluatorChangesSoFar: numEvaluatorChanges,
	}
}

func (sp *SidePosition) setTargets(t searchTargets) {
	sp.PolicyTarget = t.policy
	sp.ValueTargets = t.value
	sp.QValueTargets = t.qValues
	sp.PolicySurprise = t.policySurprise
	sp.SearchEntropy = t.searchEntropy
	sp.PolicyEntropy = t.policyEntropy
}
