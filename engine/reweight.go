package engine

import (
	"math"

	"selfplay/meta"
	"selfplay/utils"
)

// ValueSurprise compares each turn's raw evaluation against the final outcome smoothed backward
// through the game. whiteValueTargets has one more entry than rawValues, the final outcome.
func ValueSurprise(whiteValueTargets, rawValues []ValueTargets, area int) []float64 {
	surprise := make([]float64, len(rawValues))
	nowFactor := 1.0 / (1.0 + float64(area)*meta.VALUE_SURPRISE_NOW_FACTOR_PER_CELL)

	final := whiteValueTargets[len(whiteValueTargets)-1]
	win, loss, noResult := final.Win, final.Loss, final.NoResult
	for i := len(rawValues) - 1; i >= 0; i-- {
		win += nowFactor * (whiteValueTargets[i].Win - win)
		loss += nowFactor * (whiteValueTargets[i].Loss - loss)
		noResult += nowFactor * (whiteValueTargets[i].NoResult - noResult)

		s := klTerm(win, rawValues[i].Win) + klTerm(loss, rawValues[i].Loss) + klTerm(noResult, rawValues[i].NoResult)
		surprise[i] = utils.Clamp(s, 0, 1)
	}
	return surprise
}

func klTerm(target, raw float64) float64 {
	if target <= 1e-100 {
		return 0
	}
	return target * (math.Log(target) - math.Log(math.Max(raw, 1e-100)))
}

// ReweightBySurprise redistributes the total target weight of a game toward surprising turns. The
// total is preserved. Games with less than one unit of weight are left alone.
func ReweightBySurprise(targetWeights, policySurprise, valueSurprise []float64, policySurpriseDataWeight, valueSurpriseDataWeight float64) {
	sumWeights, sumPolicy, sumValue := 0.0, 0.0, 0.0
	for i, w := range targetWeights {
		sumWeights += w
		sumPolicy += policySurprise[i] * w
		sumValue += valueSurprise[i] * w
	}
	if sumWeights < 1 {
		return
	}
	avgPolicySurprise := sumPolicy / sumWeights
	avgValueSurprise := sumValue / sumWeights

	// Lopsided games barely surprise the value head, dividing by that would blow up a few rows
	if avgValueSurprise < meta.VALUE_SURPRISE_FLOOR {
		valueSurpriseDataWeight *= avgValueSurprise / meta.VALUE_SURPRISE_FLOOR
	}

	// Reduced searches still count when they surprised the policy well beyond average
	threshold := avgPolicySurprise * meta.POLICY_SURPRISE_THRESHOLD_FACTOR
	policyProp := func(i int) float64 {
		w := targetWeights[i]
		return w*policySurprise[i] + (1-w)*math.Max(0, policySurprise[i]-threshold)
	}
	valueProp := func(i int) float64 {
		return targetWeights[i] * valueSurprise[i]
	}

	sumPolicyProp, sumValueProp := 0.0, 0.0
	for i := range targetWeights {
		sumPolicyProp += policyProp(i)
		sumValueProp += valueProp(i)
	}
	sumPolicyProp = math.Max(sumPolicyProp, 1e-10)
	sumValueProp = math.Max(sumValueProp, 1e-10)

	reweighted := make([]float64, len(targetWeights))
	for i, w := range targetWeights {
		reweighted[i] = (1-policySurpriseDataWeight-valueSurpriseDataWeight)*w +
			policySurpriseDataWeight*policyProp(i)*sumWeights/sumPolicyProp +
			valueSurpriseDataWeight*valueProp(i)*sumWeights/sumValueProp
	}
	copy(targetWeights, reweighted)
}

// ResolveWeight rounds a fractional weight to an integer, up with probability equal to the
// fraction, so the expectation is unchanged.
func ResolveWeight(weight float64, rand *utils.Rand) float64 {
	if weight <= 0 {
		return 0
	}
	floored := math.Floor(weight)
	if rand.Bool(weight - floored) {
		return floored + 1
	}
	return floored
}
