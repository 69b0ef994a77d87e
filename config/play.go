package config

import "math"

// PlaySettings are the knobs of the game driver and post-game forking.
type PlaySettings struct {
	// Opening
	InitGamesWithPolicy           bool    `yaml:"initGamesWithPolicy" json:"initGamesWithPolicy"`
	PolicyInitAreaProp            float64 `yaml:"policyInitAreaProp" json:"policyInitAreaProp"`
	StartPosesPolicyInitAreaProp  float64 `yaml:"startPosesPolicyInitAreaProp" json:"startPosesPolicyInitAreaProp"`
	PolicyInitAreaTemperature     float64 `yaml:"policyInitAreaTemperature" json:"policyInitAreaTemperature"`
	PolicyInitGammaShape          float64 `yaml:"policyInitGammaShape" json:"policyInitGammaShape"`
	CompensateAfterPolicyInitProb float64 `yaml:"compensateAfterPolicyInitProb" json:"compensateAfterPolicyInitProb"`
	HandicapTemperature           float64 `yaml:"handicapTemperature" json:"handicapTemperature"`
	CompensateKomiVisits          int64   `yaml:"compensateKomiVisits" json:"compensateKomiVisits"`
	FlipKomiProbWhenNoCompensate  float64 `yaml:"flipKomiProbWhenNoCompensate" json:"flipKomiProbWhenNoCompensate"`
	FancyKomiVarying              bool    `yaml:"fancyKomiVarying" json:"fancyKomiVarying"`
	CleanupTrainingProb           float64 `yaml:"cleanupTrainingProb" json:"cleanupTrainingProb"`

	// Forking
	ForkGameProb                  float64 `yaml:"forkGameProb" json:"forkGameProb"`
	ForkGameMinChoices            int     `yaml:"forkGameMinChoices" json:"forkGameMinChoices"`
	ForkGameMaxChoices            int     `yaml:"forkGameMaxChoices" json:"forkGameMaxChoices"`
	EarlyForkGameProb             float64 `yaml:"earlyForkGameProb" json:"earlyForkGameProb"`
	EarlyForkGameExpectedMoveProp float64 `yaml:"earlyForkGameExpectedMoveProp" json:"earlyForkGameExpectedMoveProp"`
	EarlyForkGameMaxChoices       int     `yaml:"earlyForkGameMaxChoices" json:"earlyForkGameMaxChoices"`
	SekiForkHackProb              float64 `yaml:"sekiForkHackProb" json:"sekiForkHackProb"`
	SekiForkBackProp              float64 `yaml:"sekiForkBackProp" json:"sekiForkBackProp"`

	// Per-move search budget
	CheapSearchProb               float64 `yaml:"cheapSearchProb" json:"cheapSearchProb"`
	CheapSearchVisits             int64   `yaml:"cheapSearchVisits" json:"cheapSearchVisits"`
	CheapSearchTargetWeight       float64 `yaml:"cheapSearchTargetWeight" json:"cheapSearchTargetWeight"`
	ReduceVisits                  bool    `yaml:"reduceVisits" json:"reduceVisits"`
	ReduceVisitsThreshold         float64 `yaml:"reduceVisitsThreshold" json:"reduceVisitsThreshold"`
	ReduceVisitsThresholdLookback int     `yaml:"reduceVisitsThresholdLookback" json:"reduceVisitsThresholdLookback"`
	ReducedVisitsMin              int64   `yaml:"reducedVisitsMin" json:"reducedVisitsMin"`
	ReducedVisitsWeight           float64 `yaml:"reducedVisitsWeight" json:"reducedVisitsWeight"`

	// Asymmetric playouts
	HandicapAsymmetricPlayoutProb   float64 `yaml:"handicapAsymmetricPlayoutProb" json:"handicapAsymmetricPlayoutProb"`
	NormalAsymmetricPlayoutProb     float64 `yaml:"normalAsymmetricPlayoutProb" json:"normalAsymmetricPlayoutProb"`
	MaxAsymmetricRatio              float64 `yaml:"maxAsymmetricRatio" json:"maxAsymmetricRatio"`
	MinAsymmetricCompensateKomiProb float64 `yaml:"minAsymmetricCompensateKomiProb" json:"minAsymmetricCompensateKomiProb"`

	// Training data
	SidePositionProb            float64 `yaml:"sidePositionProb" json:"sidePositionProb"`
	SecondOrderSidePositionProb float64 `yaml:"secondOrderSidePositionProb" json:"secondOrderSidePositionProb"`
	PolicySurpriseDataWeight    float64 `yaml:"policySurpriseDataWeight" json:"policySurpriseDataWeight"`
	ValueSurpriseDataWeight     float64 `yaml:"valueSurpriseDataWeight" json:"valueSurpriseDataWeight"`
	ScaleDataWeight             float64 `yaml:"scaleDataWeight" json:"scaleDataWeight"`
	NoResolveTargetWeights      bool    `yaml:"noResolveTargetWeights" json:"noResolveTargetWeights"`
	RecordTreePositions         bool    `yaml:"recordTreePositions" json:"recordTreePositions"`
	RecordTreeThreshold         int64   `yaml:"recordTreeThreshold" json:"recordTreeThreshold"`
	RecordTreeTargetWeight      float64 `yaml:"recordTreeTargetWeight" json:"recordTreeTargetWeight"`
	EstimateLeadProb            float64 `yaml:"estimateLeadProb" json:"estimateLeadProb"`
	EstimateLeadVisits          int64   `yaml:"estimateLeadVisits" json:"estimateLeadVisits"`

	// Resignation
	AllowResignation  bool    `yaml:"allowResignation" json:"allowResignation"`
	ResignThreshold   float64 `yaml:"resignThreshold" json:"resignThreshold"`
	ResignConsecTurns int     `yaml:"resignConsecTurns" json:"resignConsecTurns"`

	// Match-only dynamic komi
	DynamicSelfKomiBonusMin   float64 `yaml:"dynamicSelfKomiBonusMin" json:"dynamicSelfKomiBonusMin"`
	DynamicSelfKomiBonusMax   float64 `yaml:"dynamicSelfKomiBonusMax" json:"dynamicSelfKomiBonusMax"`
	DynamicSelfKomiWinLossMin float64 `yaml:"dynamicSelfKomiWinLossMin" json:"dynamicSelfKomiWinLossMin"`
	DynamicSelfKomiWinLossMax float64 `yaml:"dynamicSelfKomiWinLossMax" json:"dynamicSelfKomiWinLossMax"`

	AutoTerminateProb float64 `yaml:"autoTerminateProb" json:"autoTerminateProb"`
	RecordTimePerMove bool    `yaml:"recordTimePerMove" json:"recordTimePerMove"`
	ForSelfPlay       bool    `yaml:"forSelfPlay" json:"forSelfPlay"`
}

func DefaultPlaySettings() PlaySettings {
	return PlaySettings{
		PolicyInitAreaTemperature:     1.0,
		PolicyInitGammaShape:          1.0,
		HandicapTemperature:           0.5,
		CompensateKomiVisits:          20,
		CleanupTrainingProb:           0.04,
		ForkGameMinChoices:            1,
		ForkGameMaxChoices:            1,
		EarlyForkGameExpectedMoveProp: 0.0,
		EarlyForkGameMaxChoices:       1,
		SekiForkBackProp:              0.10,
		CheapSearchTargetWeight:       0.0,
		ReduceVisitsThreshold:         0.9,
		ReduceVisitsThresholdLookback: 1,
		MaxAsymmetricRatio:            2.0,
		SecondOrderSidePositionProb:   0.25,
		ScaleDataWeight:               1.0,
		RecordTreeThreshold:           1,
		EstimateLeadVisits:            10,
		ResignThreshold:               -0.98,
		ResignConsecTurns:             3,
		DynamicSelfKomiWinLossMin:     -1,
		DynamicSelfKomiWinLossMax:     1,
		AutoTerminateProb:             0.98,
	}
}

func (p PlaySettings) Validate(source string) error {
	probs := []struct {
		key   string
		value float64
	}{
		{"policyInitAreaProp", p.PolicyInitAreaProp},
		{"startPosesPolicyInitAreaProp", p.StartPosesPolicyInitAreaProp},
		{"compensateAfterPolicyInitProb", p.CompensateAfterPolicyInitProb},
		{"flipKomiProbWhenNoCompensate", p.FlipKomiProbWhenNoCompensate},
		{"cleanupTrainingProb", p.CleanupTrainingProb},
		{"forkGameProb", p.ForkGameProb},
		{"earlyForkGameProb", p.EarlyForkGameProb},
		{"sekiForkHackProb", p.SekiForkHackProb},
		{"sekiForkBackProp", p.SekiForkBackProp},
		{"cheapSearchProb", p.CheapSearchProb},
		{"cheapSearchTargetWeight", p.CheapSearchTargetWeight},
		{"reducedVisitsWeight", p.ReducedVisitsWeight},
		{"handicapAsymmetricPlayoutProb", p.HandicapAsymmetricPlayoutProb},
		{"normalAsymmetricPlayoutProb", p.NormalAsymmetricPlayoutProb},
		{"minAsymmetricCompensateKomiProb", p.MinAsymmetricCompensateKomiProb},
		{"sidePositionProb", p.SidePositionProb},
		{"secondOrderSidePositionProb", p.SecondOrderSidePositionProb},
		{"policySurpriseDataWeight", p.PolicySurpriseDataWeight},
		{"valueSurpriseDataWeight", p.ValueSurpriseDataWeight},
		{"recordTreeTargetWeight", p.RecordTreeTargetWeight},
		{"estimateLeadProb", p.EstimateLeadProb},
		{"autoTerminateProb", p.AutoTerminateProb},
	}
	for _, prob := range probs {
		if math.IsNaN(prob.value) || prob.value < 0 || prob.value > 1 {
			return NewError(source, prob.key, "must be in [0,1], got %v", prob.value)
		}
	}
	if p.PolicySurpriseDataWeight+p.ValueSurpriseDataWeight > 1 {
		return NewError(source, "valueSurpriseDataWeight", "policySurpriseDataWeight + valueSurpriseDataWeight must be <= 1")
	}
	if p.PolicyInitAreaTemperature <= 0 || p.PolicyInitAreaTemperature >= 10 {
		return NewError(source, "policyInitAreaTemperature", "must be in (0,10), got %v", p.PolicyInitAreaTemperature)
	}
	if p.HandicapTemperature <= 0 || p.HandicapTemperature >= 10 {
		return NewError(source, "handicapTemperature", "must be in (0,10), got %v", p.HandicapTemperature)
	}
	if p.PolicyInitGammaShape <= 0 {
		return NewError(source, "policyInitGammaShape", "must be positive, got %v", p.PolicyInitGammaShape)
	}
	if p.CheapSearchProb > 0 && p.CheapSearchVisits <= 0 {
		return NewError(source, "cheapSearchVisits", "must be positive when cheapSearchProb > 0")
	}
	if p.ReduceVisits {
		if p.ReducedVisitsMin <= 0 {
			return NewError(source, "reducedVisitsMin", "must be positive when reduceVisits is enabled")
		}
		if p.ReduceVisitsThreshold < 0 || p.ReduceVisitsThreshold >= 1 {
			return NewError(source, "reduceVisitsThreshold", "must be in [0,1), got %v", p.ReduceVisitsThreshold)
		}
		if p.ReduceVisitsThresholdLookback <= 0 {
			return NewError(source, "reduceVisitsThresholdLookback", "must be positive")
		}
	}
	if p.MaxAsymmetricRatio < 1 {
		return NewError(source, "maxAsymmetricRatio", "must be >= 1, got %v", p.MaxAsymmetricRatio)
	}
	if p.ForkGameMinChoices < 1 {
		return NewError(source, "forkGameMinChoices", "must be >= 1")
	}
	if p.ForkGameMaxChoices < p.ForkGameMinChoices {
		return NewError(source, "forkGameMaxChoices", "must be >= forkGameMinChoices")
	}
	if p.EarlyForkGameMaxChoices < p.ForkGameMinChoices {
		return NewError(source, "earlyForkGameMaxChoices", "must be >= forkGameMinChoices")
	}
	if p.ScaleDataWeight < 0 {
		return NewError(source, "scaleDataWeight", "must be nonnegative")
	}
	if p.AllowResignation {
		if math.IsNaN(p.ResignThreshold) || p.ResignThreshold > 0 {
			return NewError(source, "resignThreshold", "must be <= 0, got %v", p.ResignThreshold)
		}
		if p.ResignConsecTurns < 1 {
			return NewError(source, "resignConsecTurns", "must be >= 1")
		}
	}
	if p.EstimateLeadProb > 0 && p.EstimateLeadVisits <= 0 {
		return NewError(source, "estimateLeadVisits", "must be positive when estimateLeadProb > 0")
	}
	if p.DynamicSelfKomiBonusMin > p.DynamicSelfKomiBonusMax {
		return NewError(source, "dynamicSelfKomiBonusMin", "must be <= dynamicSelfKomiBonusMax")
	}
	if p.ForSelfPlay {
		// Self-play records full data, which needs games scored to the end and a fixed komi
		if p.AllowResignation {
			return NewError(source, "allowResignation", "cannot be combined with forSelfPlay")
		}
		if p.DynamicSelfKomiBonusMin != 0 || p.DynamicSelfKomiBonusMax != 0 {
			return NewError(source, "dynamicSelfKomiBonusMin", "dynamic self komi cannot be combined with forSelfPlay")
		}
	}
	return nil
}
