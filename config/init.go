package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"selfplay/game"
)

// GameInit configures the randomized setup of new games.
type GameInit struct {
	KoRules                 []string `yaml:"koRules" json:"koRules"`
	ScoringRules            []string `yaml:"scoringRules" json:"scoringRules"`
	TaxRules                []string `yaml:"taxRules" json:"taxRules"`
	MultiStoneSuicideLegals []bool   `yaml:"multiStoneSuicideLegals" json:"multiStoneSuicideLegals"`
	HasButtons              []bool   `yaml:"hasButtons" json:"hasButtons"`

	// Exactly one of BSizes and BSizesXY must be given
	BSizes             []int     `yaml:"bSizes" json:"bSizes"`
	BSizesXY           []string  `yaml:"bSizesXY" json:"bSizesXY"`
	BSizeRelProbs      []float64 `yaml:"bSizeRelProbs" json:"bSizeRelProbs"`
	AllowRectangleProb *float64  `yaml:"allowRectangleProb" json:"allowRectangleProb"`

	// Exactly one of KomiMean and KomiAuto must be given
	KomiMean                   *float64 `yaml:"komiMean" json:"komiMean"`
	KomiAuto                   bool     `yaml:"komiAuto" json:"komiAuto"`
	KomiStdev                  float64  `yaml:"komiStdev" json:"komiStdev"`
	KomiBigStdevProb           float64  `yaml:"komiBigStdevProb" json:"komiBigStdevProb"`
	KomiBigStdev               float64  `yaml:"komiBigStdev" json:"komiBigStdev"`
	KomiBiggerStdevProb        float64  `yaml:"komiBiggerStdevProb" json:"komiBiggerStdevProb"`
	KomiBiggerStdev            float64  `yaml:"komiBiggerStdev" json:"komiBiggerStdev"`
	KomiAllowIntegerProb       float64  `yaml:"komiAllowIntegerProb" json:"komiAllowIntegerProb"`
	HandicapProb               float64  `yaml:"handicapProb" json:"handicapProb"`
	NumExtraBlackFixed         int      `yaml:"numExtraBlackFixed" json:"numExtraBlackFixed"`
	HandicapCompensateKomiProb float64  `yaml:"handicapCompensateKomiProb" json:"handicapCompensateKomiProb"`
	HandicapKomiInterpZeroProb float64  `yaml:"handicapKomiInterpZeroProb" json:"handicapKomiInterpZeroProb"`
	SgfKomiInterpZeroProb      float64  `yaml:"sgfKomiInterpZeroProb" json:"sgfKomiInterpZeroProb"`
	// Defaults to handicapCompensateKomiProb when absent
	ForkCompensateKomiProb *float64 `yaml:"forkCompensateKomiProb" json:"forkCompensateKomiProb"`
	// Defaults to forkCompensateKomiProb when absent
	SgfCompensateKomiProb *float64 `yaml:"sgfCompensateKomiProb" json:"sgfCompensateKomiProb"`

	NoResultStdev  float64 `yaml:"noResultStdev" json:"noResultStdev"`
	DrawRandRadius float64 `yaml:"drawRandRadius" json:"drawRandRadius"`

	StartPosesFromSgfDir       string  `yaml:"startPosesFromSgfDir" json:"startPosesFromSgfDir"`
	StartPosesSgfExcludes      string  `yaml:"startPosesSgfExcludes" json:"startPosesSgfExcludes"`
	StartPosesProb             float64 `yaml:"startPosesProb" json:"startPosesProb"`
	StartPosesLoadProb         float64 `yaml:"startPosesLoadProb" json:"startPosesLoadProb"`
	StartPosesTurnWeightLambda float64 `yaml:"startPosesTurnWeightLambda" json:"startPosesTurnWeightLambda"`
	HintPosesDir               string  `yaml:"hintPosesDir" json:"hintPosesDir"`
	HintPosesProb              float64 `yaml:"hintPosesProb" json:"hintPosesProb"`
}

func DefaultGameInit() GameInit {
	return GameInit{
		KoRules:                 []string{"POSITIONAL"},
		ScoringRules:            []string{"AREA"},
		TaxRules:                []string{"NONE"},
		MultiStoneSuicideLegals: []bool{false},
		HasButtons:              []bool{false},
		KomiBigStdev:            10,
		KomiBiggerStdev:         30,
		KomiAllowIntegerProb:    1,
		StartPosesLoadProb:      1,
	}
}

// BoardSize is an allowed board size with its relative probability.
type BoardSize struct {
	XSize   int
	YSize   int
	RelProb float64
}

// BoardSizes expands the size configuration into explicit sizes. With allowRectangleProb, that
// share of the mass goes to pairs of edges drawn independently.
func (g GameInit) BoardSizes(source string) ([]BoardSize, error) {
	if (len(g.BSizes) > 0) == (len(g.BSizesXY) > 0) {
		return nil, NewError(source, "bSizes", "must specify exactly one of bSizes or bSizesXY")
	}
	var sizes []BoardSize
	if len(g.BSizes) > 0 {
		if len(g.BSizes) != len(g.BSizeRelProbs) {
			return nil, NewError(source, "bSizeRelProbs", "bSizes and bSizeRelProbs must have same number of values")
		}
		allowRectangleProb := 0.0
		if g.AllowRectangleProb != nil {
			allowRectangleProb = *g.AllowRectangleProb
		}
		if allowRectangleProb < 0 || allowRectangleProb > 1 {
			return nil, NewError(source, "allowRectangleProb", "must be in [0,1]")
		}
		relProbSum := 0.0
		for _, p := range g.BSizeRelProbs {
			relProbSum += p
		}
		if relProbSum <= 1e-100 {
			return nil, NewError(source, "bSizeRelProbs", "must sum to a positive value")
		}
		for i, x := range g.BSizes {
			if x < 2 || x > game.MaxLen {
				return nil, NewError(source, "bSizes", "size %d out of range [2,%d]", x, game.MaxLen)
			}
			for j, y := range g.BSizes {
				pi, pj := g.BSizeRelProbs[i]/relProbSum, g.BSizeRelProbs[j]/relProbSum
				if x == y {
					sizes = append(sizes, BoardSize{x, y, (1-allowRectangleProb)*pi + allowRectangleProb*pi*pj})
				} else if allowRectangleProb > 0 {
					sizes = append(sizes, BoardSize{x, y, allowRectangleProb * pi * pj})
				}
			}
		}
	} else {
		if g.AllowRectangleProb != nil {
			return nil, NewError(source, "allowRectangleProb", "cannot be used with bSizesXY")
		}
		if len(g.BSizesXY) != len(g.BSizeRelProbs) {
			return nil, NewError(source, "bSizeRelProbs", "bSizesXY and bSizeRelProbs must have same number of values")
		}
		for i, s := range g.BSizesXY {
			x, y, err := parseSizeXY(s)
			if err != nil {
				return nil, NewError(source, "bSizesXY", "%v", err)
			}
			sizes = append(sizes, BoardSize{x, y, g.BSizeRelProbs[i]})
		}
	}

	sum := 0.0
	for _, s := range sizes {
		if s.RelProb < 0 || math.IsNaN(s.RelProb) {
			return nil, NewError(source, "bSizeRelProbs", "must be nonnegative")
		}
		sum += s.RelProb
	}
	if sum <= 0 {
		return nil, NewError(source, "bSizeRelProbs", "must sum to a positive value")
	}
	return sizes, nil
}

func parseSizeXY(s string) (int, int, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == 'x' || r == '-' })
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("could not parse board size %q", s)
	}
	x, errX := strconv.Atoi(strings.TrimSpace(parts[0]))
	y, errY := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errX != nil || errY != nil {
		return 0, 0, fmt.Errorf("could not parse board size %q", s)
	}
	if x < 2 || y < 2 || x > game.MaxLen || y > game.MaxLen {
		return 0, 0, fmt.Errorf("board size %q out of range [2,%d]", s, game.MaxLen)
	}
	return x, y, nil
}

// AllowedRules parses the allowed value sets of every rule axis.
type AllowedRules struct {
	KoRules                 []game.KoRule
	ScoringRules            []game.ScoringRule
	TaxRules                []game.TaxRule
	MultiStoneSuicideLegals []bool
	HasButtons              []bool
}

func (g GameInit) AllowedRules(source string) (AllowedRules, error) {
	var allowed AllowedRules
	for _, s := range g.KoRules {
		r, err := game.ParseKoRule(s)
		if err != nil {
			return allowed, NewError(source, "koRules", "%v", err)
		}
		allowed.KoRules = append(allowed.KoRules, r)
	}
	for _, s := range g.ScoringRules {
		r, err := game.ParseScoringRule(s)
		if err != nil {
			return allowed, NewError(source, "scoringRules", "%v", err)
		}
		allowed.ScoringRules = append(allowed.ScoringRules, r)
	}
	for _, s := range g.TaxRules {
		r, err := game.ParseTaxRule(s)
		if err != nil {
			return allowed, NewError(source, "taxRules", "%v", err)
		}
		allowed.TaxRules = append(allowed.TaxRules, r)
	}
	allowed.MultiStoneSuicideLegals = g.MultiStoneSuicideLegals
	allowed.HasButtons = g.HasButtons

	switch {
	case len(allowed.KoRules) == 0:
		return allowed, NewError(source, "koRules", "must have at least one value")
	case len(allowed.ScoringRules) == 0:
		return allowed, NewError(source, "scoringRules", "must have at least one value")
	case len(allowed.TaxRules) == 0:
		return allowed, NewError(source, "taxRules", "must have at least one value")
	case len(allowed.MultiStoneSuicideLegals) == 0:
		return allowed, NewError(source, "multiStoneSuicideLegals", "must have at least one value")
	case len(allowed.HasButtons) == 0:
		return allowed, NewError(source, "hasButtons", "must have at least one value")
	}
	hasArea := false
	for _, r := range allowed.ScoringRules {
		hasArea = hasArea || r == game.ScoringArea
	}
	for _, b := range allowed.HasButtons {
		if b && !hasArea {
			return allowed, NewError(source, "hasButtons", "must be false if scoringRules does not include AREA")
		}
	}
	return allowed, nil
}

// ResolvedKomiMean is the configured komi mean, 7.5 when komi is automatic.
func (g GameInit) ResolvedKomiMean() float64 {
	if g.KomiMean == nil {
		return 7.5
	}
	return *g.KomiMean
}

func (g GameInit) ResolvedForkCompensateKomiProb() float64 {
	if g.ForkCompensateKomiProb != nil {
		return *g.ForkCompensateKomiProb
	}
	return g.HandicapCompensateKomiProb
}

func (g GameInit) ResolvedSgfCompensateKomiProb() float64 {
	if g.SgfCompensateKomiProb != nil {
		return *g.SgfCompensateKomiProb
	}
	return g.ResolvedForkCompensateKomiProb()
}

func (g GameInit) Validate(source string) error {
	if _, err := g.AllowedRules(source); err != nil {
		return err
	}
	if _, err := g.BoardSizes(source); err != nil {
		return err
	}
	if g.KomiMean == nil && !g.KomiAuto {
		return NewError(source, "komiMean", "must specify either komiMean or komiAuto")
	}
	if g.KomiMean != nil && g.KomiAuto {
		return NewError(source, "komiMean", "cannot specify both komiMean and komiAuto")
	}
	if g.KomiMean != nil && (*g.KomiMean < -150 || *g.KomiMean > 150) {
		return NewError(source, "komiMean", "must be in [-150,150], got %v", *g.KomiMean)
	}

	ranges := []struct {
		key    string
		value  float64
		lo, hi float64
	}{
		{"komiStdev", g.KomiStdev, 0, 60},
		{"komiBigStdevProb", g.KomiBigStdevProb, 0, 1},
		{"komiBigStdev", g.KomiBigStdev, 0, 60},
		{"komiBiggerStdevProb", g.KomiBiggerStdevProb, 0, 1},
		{"komiBiggerStdev", g.KomiBiggerStdev, 0, 120},
		{"komiAllowIntegerProb", g.KomiAllowIntegerProb, 0, 1},
		{"handicapProb", g.HandicapProb, 0, 1},
		{"handicapCompensateKomiProb", g.HandicapCompensateKomiProb, 0, 1},
		{"handicapKomiInterpZeroProb", g.HandicapKomiInterpZeroProb, 0, 1},
		{"sgfKomiInterpZeroProb", g.SgfKomiInterpZeroProb, 0, 1},
		{"forkCompensateKomiProb", g.ResolvedForkCompensateKomiProb(), 0, 1},
		{"sgfCompensateKomiProb", g.ResolvedSgfCompensateKomiProb(), 0, 1},
		{"noResultStdev", g.NoResultStdev, 0, 1},
		{"drawRandRadius", g.DrawRandRadius, 0, 1},
		{"startPosesProb", g.StartPosesProb, 0, 1},
		{"startPosesLoadProb", g.StartPosesLoadProb, 0, 1},
		{"startPosesTurnWeightLambda", g.StartPosesTurnWeightLambda, -10, 10},
		{"hintPosesProb", g.HintPosesProb, 0, 1},
	}
	for _, r := range ranges {
		if math.IsNaN(r.value) || r.value < r.lo || r.value > r.hi {
			return NewError(source, r.key, "must be in [%v,%v], got %v", r.lo, r.hi, r.value)
		}
	}
	if g.NumExtraBlackFixed != 0 && (g.NumExtraBlackFixed < 1 || g.NumExtraBlackFixed > 18) {
		return NewError(source, "numExtraBlackFixed", "must be in [1,18], got %d", g.NumExtraBlackFixed)
	}
	return nil
}
